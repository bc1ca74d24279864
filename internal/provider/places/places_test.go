package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

func TestPharmacyQuery(t *testing.T) {
	got := PharmacyQuery(19.076, 72.8777, 3000)
	want := `[out:json];(node["amenity"="pharmacy"](around:3000,19.076,72.8777);way["amenity"="pharmacy"](around:3000,19.076,72.8777););out center;`
	assert.Equal(t, want, got)
}

func TestClient_Pharmacies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), `node["amenity"="pharmacy"]`)
		assert.Equal(t, "medinfo-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"elements":[
			{"type":"node","id":1,"lat":1.5,"lon":2.5,"tags":{"name":"Apollo"}},
			{"type":"way","id":2,"center":{"lat":3.5,"lon":4.5},"tags":{}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "medinfo-test", time.Second)
	els, err := c.Pharmacies(context.Background(), 1, 2, 500)
	require.NoError(t, err)
	require.Len(t, els, 2)

	lat, lng, ok := els[0].Position()
	assert.True(t, ok)
	assert.Equal(t, 1.5, lat)
	assert.Equal(t, 2.5, lng)

	lat, lng, ok = els[1].Position()
	assert.True(t, ok)
	assert.Equal(t, 3.5, lat)
	assert.Equal(t, 4.5, lng)
}

func TestElement_PositionMissing(t *testing.T) {
	_, _, ok := Element{Type: "way"}.Position()
	assert.False(t, ok)
}

func TestClient_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		if r.URL.Query().Get("q") == "nowhere" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"19.0760","lon":"72.8777","display_name":"Mumbai, India"}]`))
	}))
	defer srv.Close()

	c := NewClient("", srv.URL, "", time.Second)
	p, err := c.Geocode(context.Background(), "Mumbai")
	require.NoError(t, err)
	assert.Equal(t, 19.076, p.Lat)
	assert.Equal(t, 72.8777, p.Lng)
	assert.Equal(t, "Mumbai, India", p.DisplayName)

	_, err = c.Geocode(context.Background(), "nowhere")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, "Location not found", err.Error())
}

func TestClient_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.URL, "", time.Second).Pharmacies(context.Background(), 0, 0, 100)
	assert.True(t, errors.Is(err, errors.ErrUpstream))
}
