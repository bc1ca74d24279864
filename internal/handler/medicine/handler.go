package medicine

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/service/medicine"
	"github.com/jwalitptl/medinfo-api/internal/service/translation"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
	"github.com/jwalitptl/medinfo-api/pkg/httputil"
)

const imageField = "image"

type Scanner interface {
	Scan(ctx context.Context, image []byte) (*model.PrescriptionScanResult, error)
}

type Translator interface {
	TranslateMedicine(ctx context.Context, rec *model.Medicine, target string) (*model.Medicine, error)
}

type Handler struct {
	resolver   medicine.Resolver
	scanner    Scanner
	translator Translator
	maxUpload  int64
	logger     zerolog.Logger
}

// NewHandler serves medicine lookups and prescription scans. translator may
// be nil, in which case the lang parameter is ignored.
func NewHandler(resolver medicine.Resolver, scanner Scanner, translator Translator, maxUpload int64, logger zerolog.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{
		resolver:   resolver,
		scanner:    scanner,
		translator: translator,
		maxUpload:  maxUpload,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	medicines := r.Group("/medicine")
	{
		medicines.GET("", h.Get)
		medicines.POST("/scan", h.Scan)
	}
}

// Get resolves ?name= and, when ?lang= names another language, returns a
// translated copy. A failed translation falls back to the stored English
// record.
func (h *Handler) Get(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		httputil.RespondWithError(c, errors.Validation("Medicine name is required"))
		return
	}

	rec, err := h.resolver.Resolve(c.Request.Context(), name)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	lang := strings.TrimSpace(c.Query("lang"))
	if h.translator != nil && !translation.IsIdentity(lang) {
		translated, err := h.translator.TranslateMedicine(c.Request.Context(), rec, lang)
		if err == nil {
			c.Header("Content-Language", lang)
			c.JSON(http.StatusOK, translated)
			return
		}
		h.logger.Warn().Err(err).Str("lang", lang).Msg("serving untranslated record")
	}

	c.Header("Content-Language", "en")
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Scan(c *gin.Context) {
	if c.Request.ContentLength > h.maxUpload {
		httputil.RespondWithMessage(c, http.StatusRequestEntityTooLarge, "Image too large")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	header, err := c.FormFile(imageField)
	if err != nil {
		if tooLarge(err) {
			httputil.RespondWithMessage(c, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		httputil.RespondWithError(c, errors.Validation("Prescription image is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}
	if int64(len(image)) > h.maxUpload {
		httputil.RespondWithMessage(c, http.StatusRequestEntityTooLarge, "Image too large")
		return
	}

	result, err := h.scanner.Scan(c.Request.Context(), image)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return true
	}
	// mime/multipart does not always wrap the reader error.
	return strings.Contains(err.Error(), "request body too large")
}
