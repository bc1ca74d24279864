package translate

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medinfo-api/internal/middleware"
	provider "github.com/jwalitptl/medinfo-api/internal/provider/translate"
	"github.com/jwalitptl/medinfo-api/internal/service/translation"
)

func setup(t *testing.T, upstream http.HandlerFunc) *gin.Engine {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()
	svc := translation.NewService(provider.NewClient(srv.URL, "", time.Second), zerolog.Nop())
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/translate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTranslate(t *testing.T) {
	var got map[string]interface{}
	r := setup(t, func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"translatedText":["Hola"]}`))
	})

	w := post(r, `{"q":"Hello","source":"en","target":"es"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"translatedText":"Hola"}`, w.Body.String())
	assert.Equal(t, "es", got["target"])
	assert.Equal(t, "en", got["source"])
}

func TestTranslate_Validation(t *testing.T) {
	r := setup(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("upstream must not be called")
	})

	w := post(r, `{"q":"Hello"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"All fields are required"}`, w.Body.String())

	w = post(r, `{"q":"Hello","target":"es","format":"pdf"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Format must be one of: text, html"}`, w.Body.String())
}

func TestTranslate_UpstreamFailure(t *testing.T) {
	r := setup(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	w := post(r, `{"q":"Hello","target":"es"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"translation request failed"}`, w.Body.String())
}
