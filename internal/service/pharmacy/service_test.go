package pharmacy

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/provider/places"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

type fakePlaces struct {
	elements     []places.Element
	place        *places.Place
	geocodeCalls int
	lastRadius   int
}

func (f *fakePlaces) Pharmacies(_ context.Context, _, _ float64, radius int) ([]places.Element, error) {
	f.lastRadius = radius
	return f.elements, nil
}

func (f *fakePlaces) Geocode(context.Context, string) (*places.Place, error) {
	f.geocodeCalls++
	if f.place == nil {
		return nil, &errors.AppError{Code: errors.ErrNotFound, Message: "Location not found"}
	}
	return f.place, nil
}

func TestNearby(t *testing.T) {
	fp := &fakePlaces{elements: []places.Element{
		{Type: "node", Lat: 19.1, Lon: 72.8, Tags: map[string]string{
			"name": "Apollo Pharmacy", "addr:housenumber": "12", "addr:street": "MG Road", "addr:city": "Mumbai",
		}},
		{Type: "way", Center: &places.Coordinate{Lat: 19.2, Lon: 72.9}, Tags: map[string]string{}},
		{Type: "way", Tags: map[string]string{"name": "No position"}},
	}}
	svc := NewService(fp, 0, time.Minute, zerolog.Nop())

	res, err := svc.Nearby(context.Background(), 19.0, 72.8, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultRadius, fp.lastRadius)
	require.Len(t, res.Pharmacies, 2)

	assert.Equal(t, &model.Pharmacy{
		Name:    "Apollo Pharmacy",
		Address: "12, MG Road, Mumbai",
		Lat:     19.1,
		Lng:     72.8,
		MapsURL: "https://www.google.com/maps?q=Apollo+Pharmacy@19.1,72.8",
	}, res.Pharmacies[0])
	assert.Equal(t, model.DefaultPharmacyName, res.Pharmacies[1].Name)
	assert.Equal(t, model.DefaultPharmacyAddress, res.Pharmacies[1].Address)
	assert.Equal(t, 19.2, res.Pharmacies[1].Lat)
}

func TestNearby_RadiusClampAndValidation(t *testing.T) {
	fp := &fakePlaces{}
	svc := NewService(fp, 3000, time.Minute, zerolog.Nop())

	_, err := svc.Nearby(context.Background(), 1, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, MinRadius, fp.lastRadius)

	res, err := svc.Nearby(context.Background(), 1, 1, 50000)
	require.NoError(t, err)
	assert.Equal(t, MaxRadius, fp.lastRadius)
	assert.NotNil(t, res.Pharmacies)

	_, err = svc.Nearby(context.Background(), 91, 0, 0)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	_, err = svc.Nearby(context.Background(), 0, -181, 0)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestGeocode_Cached(t *testing.T) {
	fp := &fakePlaces{place: &places.Place{Lat: 28.6, Lng: 77.2, DisplayName: "New Delhi"}}
	svc := NewService(fp, 0, time.Minute, zerolog.Nop())

	for _, q := range []string{"New Delhi", " new delhi "} {
		p, err := svc.Geocode(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, "New Delhi", p.DisplayName)
	}
	assert.Equal(t, 1, fp.geocodeCalls)
}

func TestGeocode_NotFoundAndEmpty(t *testing.T) {
	svc := NewService(&fakePlaces{}, 0, time.Minute, zerolog.Nop())

	_, err := svc.Geocode(context.Background(), "Atlantis")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = svc.Geocode(context.Background(), "")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestSearch(t *testing.T) {
	fp := &fakePlaces{
		place:    &places.Place{Lat: 28.6, Lng: 77.2, DisplayName: "New Delhi"},
		elements: []places.Element{{Type: "node", Lat: 28.61, Lon: 77.21, Tags: map[string]string{"name": "Jan Aushadhi"}}},
	}
	svc := NewService(fp, 0, time.Minute, zerolog.Nop())

	res, err := svc.Search(context.Background(), "New Delhi", 1000)
	require.NoError(t, err)
	assert.Equal(t, "New Delhi", res.Center.DisplayName)
	assert.Equal(t, 1000, res.Radius)
	require.Len(t, res.Pharmacies, 1)
	assert.Equal(t, "Jan Aushadhi", res.Pharmacies[0].Name)
}
