// Package pharmacy finds pharmacies near a point or a named place.
package pharmacy

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/provider/places"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

const (
	DefaultRadius = 3000
	MinRadius     = 100
	MaxRadius     = 10000
)

// PlacesClient is the subset of the OpenStreetMap client used here.
type PlacesClient interface {
	Pharmacies(ctx context.Context, lat, lng float64, radius int) ([]places.Element, error)
	Geocode(ctx context.Context, query string) (*places.Place, error)
}

type Service struct {
	client        PlacesClient
	geocodeCache  *gocache.Cache
	defaultRadius int
	logger        zerolog.Logger
}

func NewService(client PlacesClient, defaultRadius int, cacheTTL time.Duration, logger zerolog.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	if defaultRadius <= 0 {
		defaultRadius = DefaultRadius
	}
	return &Service{
		client:        client,
		geocodeCache:  gocache.New(cacheTTL, 2*cacheTTL),
		defaultRadius: ClampRadius(defaultRadius),
		logger:        logger,
	}
}

// ClampRadius keeps a radius in meters within the supported range.
func ClampRadius(r int) int {
	switch {
	case r < MinRadius:
		return MinRadius
	case r > MaxRadius:
		return MaxRadius
	}
	return r
}

// Nearby lists pharmacies within radius meters. A zero radius uses the
// default.
func (s *Service) Nearby(ctx context.Context, lat, lng float64, radius int) (*model.PharmacySearchResult, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, errors.Validation("Invalid coordinates")
	}
	if radius == 0 {
		radius = s.defaultRadius
	}
	radius = ClampRadius(radius)

	elements, err := s.client.Pharmacies(ctx, lat, lng, radius)
	if err != nil {
		return nil, err
	}

	pharmacies := make([]*model.Pharmacy, 0, len(elements))
	for _, el := range elements {
		plat, plng, ok := el.Position()
		if !ok {
			continue
		}
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			name = model.DefaultPharmacyName
		}
		pharmacies = append(pharmacies, &model.Pharmacy{
			Name:    name,
			Address: FormatAddress(el.Tags),
			Lat:     plat,
			Lng:     plng,
			MapsURL: MapsURL(name, plat, plng),
		})
	}
	s.logger.Debug().Int("count", len(pharmacies)).Int("radius", radius).Msg("pharmacies found")

	return &model.PharmacySearchResult{
		Center:     model.GeoPoint{Lat: lat, Lng: lng},
		Radius:     radius,
		Pharmacies: pharmacies,
	}, nil
}

// Geocode resolves a place name, caching hits in process.
func (s *Service) Geocode(ctx context.Context, query string) (*model.GeoPoint, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.Validation("Location is required")
	}
	key := strings.ToLower(query)
	if v, ok := s.geocodeCache.Get(key); ok {
		p := v.(model.GeoPoint)
		return &p, nil
	}

	place, err := s.client.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	point := model.GeoPoint{Lat: place.Lat, Lng: place.Lng, DisplayName: place.DisplayName}
	s.geocodeCache.SetDefault(key, point)
	return &point, nil
}

// Search geocodes query and lists pharmacies around it.
func (s *Service) Search(ctx context.Context, query string, radius int) (*model.PharmacySearchResult, error) {
	center, err := s.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	res, err := s.Nearby(ctx, center.Lat, center.Lng, radius)
	if err != nil {
		return nil, err
	}
	res.Center = *center
	return res, nil
}

// FormatAddress joins the OSM address tags that are present.
func FormatAddress(tags map[string]string) string {
	var parts []string
	for _, k := range []string{"addr:housenumber", "addr:street", "addr:suburb", "addr:city"} {
		if v := strings.TrimSpace(tags[k]); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return model.DefaultPharmacyAddress
	}
	return strings.Join(parts, ", ")
}

func MapsURL(name string, lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%s@%s,%s",
		url.QueryEscape(name),
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64),
	)
}
