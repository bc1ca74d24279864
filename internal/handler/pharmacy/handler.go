package pharmacy

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
	"github.com/jwalitptl/medinfo-api/pkg/httputil"
)

// Finder is implemented by internal/service/pharmacy.
type Finder interface {
	Nearby(ctx context.Context, lat, lng float64, radius int) (*model.PharmacySearchResult, error)
	Search(ctx context.Context, query string, radius int) (*model.PharmacySearchResult, error)
	Geocode(ctx context.Context, query string) (*model.GeoPoint, error)
}

type Handler struct {
	finder Finder
}

func NewHandler(finder Finder) *Handler {
	return &Handler{finder: finder}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/pharmacies", h.List)
	r.GET("/geocode", h.Geocode)
}

// List answers ?lat=&lng=[&radius=] or ?q=[&radius=]. Coordinates win when
// both are given.
func (h *Handler) List(c *gin.Context) {
	radius := 0
	if raw := c.Query("radius"); raw != "" {
		r, err := strconv.Atoi(raw)
		if err != nil || r < 0 {
			httputil.RespondWithError(c, errors.Validation("Invalid radius"))
			return
		}
		radius = r
	}

	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	query := strings.TrimSpace(c.Query("q"))

	var (
		res *model.PharmacySearchResult
		err error
	)
	switch {
	case latRaw != "" || lngRaw != "":
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lng, lngErr := strconv.ParseFloat(lngRaw, 64)
		if latErr != nil || lngErr != nil {
			httputil.RespondWithError(c, errors.Validation("Invalid coordinates"))
			return
		}
		res, err = h.finder.Nearby(c.Request.Context(), lat, lng, radius)
	case query != "":
		res, err = h.finder.Search(c.Request.Context(), query, radius)
	default:
		httputil.RespondWithError(c, errors.Validation("Location is required"))
		return
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) Geocode(c *gin.Context) {
	point, err := h.finder.Geocode(c.Request.Context(), c.Query("q"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, point)
}
