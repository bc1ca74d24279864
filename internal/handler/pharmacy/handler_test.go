package pharmacy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/provider/places"
	"github.com/jwalitptl/medinfo-api/internal/service/pharmacy"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

type stubPlaces struct {
	lastLat, lastLng float64
	lastRadius       int
}

func (s *stubPlaces) Pharmacies(_ context.Context, lat, lng float64, radius int) ([]places.Element, error) {
	s.lastLat, s.lastLng, s.lastRadius = lat, lng, radius
	return []places.Element{
		{Type: "node", Lat: lat + 0.001, Lon: lng, Tags: map[string]string{"name": "Wellness Forever"}},
	}, nil
}

func (s *stubPlaces) Geocode(_ context.Context, query string) (*places.Place, error) {
	if query != "Pune" {
		return nil, &errors.AppError{Code: errors.ErrNotFound, Message: "Location not found"}
	}
	return &places.Place{Lat: 18.52, Lng: 73.85, DisplayName: "Pune, Maharashtra, India"}, nil
}

func setup() (*gin.Engine, *stubPlaces) {
	gin.SetMode(gin.TestMode)
	stub := &stubPlaces{}
	r := gin.New()
	NewHandler(pharmacy.NewService(stub, 0, time.Minute, zerolog.Nop())).RegisterRoutes(r.Group("/api"))
	return r, stub
}

func get(r http.Handler, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestList_ByCoordinates(t *testing.T) {
	r, stub := setup()

	w := get(r, "/api/pharmacies?lat=19.07&lng=72.87&radius=2000")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 19.07, stub.lastLat)
	assert.Equal(t, 2000, stub.lastRadius)

	var res model.PharmacySearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 72.87, res.Center.Lng)
	require.Len(t, res.Pharmacies, 1)
	assert.Equal(t, "Wellness Forever", res.Pharmacies[0].Name)
	assert.Equal(t, model.DefaultPharmacyAddress, res.Pharmacies[0].Address)
}

func TestList_ByQuery(t *testing.T) {
	r, stub := setup()

	w := get(r, "/api/pharmacies?q=Pune")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pharmacy.DefaultRadius, stub.lastRadius)

	var res model.PharmacySearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Pune, Maharashtra, India", res.Center.DisplayName)

	w = get(r, "/api/pharmacies?q=Atlantis")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Location not found"}`, w.Body.String())
}

func TestList_BadInput(t *testing.T) {
	r, _ := setup()

	tests := []struct {
		url  string
		want string
	}{
		{"/api/pharmacies", "Location is required"},
		{"/api/pharmacies?lat=abc&lng=1", "Invalid coordinates"},
		{"/api/pharmacies?lat=10", "Invalid coordinates"},
		{"/api/pharmacies?lat=95&lng=1", "Invalid coordinates"},
		{"/api/pharmacies?q=Pune&radius=far", "Invalid radius"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			w := get(r, tt.url)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"message":"`+tt.want+`"}`, w.Body.String())
		})
	}
}

func TestGeocode(t *testing.T) {
	r, _ := setup()

	w := get(r, "/api/geocode?q=Pune")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"lat":18.52,"lng":73.85,"displayName":"Pune, Maharashtra, India"}`, w.Body.String())

	w = get(r, "/api/geocode")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Location is required"}`, w.Body.String())
}
