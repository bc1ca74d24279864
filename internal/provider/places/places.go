// Package places queries OpenStreetMap services: Overpass for pharmacies and
// Nominatim for geocoding.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

// Element is an Overpass node or way. Ways carry their position in Center.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *Coordinate       `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Position returns the element's coordinates and whether it has any.
func (e Element) Position() (float64, float64, bool) {
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	if e.Type == "node" {
		return e.Lat, e.Lon, true
	}
	return 0, 0, false
}

// Place is a geocoding hit.
type Place struct {
	Lat         float64
	Lng         float64
	DisplayName string
}

type Client struct {
	overpassURL  string
	nominatimURL string
	userAgent    string
	httpClient   *http.Client
}

func NewClient(overpassURL, nominatimURL, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		overpassURL:  overpassURL,
		nominatimURL: nominatimURL,
		userAgent:    userAgent,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// PharmacyQuery builds the Overpass QL query for pharmacies within radius
// meters of a point.
func PharmacyQuery(lat, lng float64, radius int) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", radius, formatCoord(lat), formatCoord(lng))
	return `[out:json];(node["amenity"="pharmacy"]` + around + `;way["amenity"="pharmacy"]` + around + `;);out center;`
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Pharmacies runs the Overpass query around a point.
func (c *Client) Pharmacies(ctx context.Context, lat, lng float64, radius int) ([]Element, error) {
	form := url.Values{"data": {PharmacyQuery(lat, lng, radius)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.overpassURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Internal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		Elements []Element `json:"elements"`
	}
	if err := c.do(req, "pharmacy search", &out); err != nil {
		return nil, err
	}
	return out.Elements, nil
}

type nominatimHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the first Nominatim hit for query.
func (c *Client) Geocode(ctx context.Context, query string) (*Place, error) {
	u, err := url.Parse(c.nominatimURL)
	if err != nil {
		return nil, errors.Internal(err)
	}
	q := u.Query()
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Internal(err)
	}

	var hits []nominatimHit
	if err := c.do(req, "geocoding", &hits); err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, &errors.AppError{Code: errors.ErrNotFound, Message: "Location not found"}
	}
	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return nil, errors.Upstream("geocoding", fmt.Errorf("bad lat %q: %w", hits[0].Lat, err))
	}
	lng, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return nil, errors.Upstream("geocoding", fmt.Errorf("bad lon %q: %w", hits[0].Lon, err))
	}
	return &Place{Lat: lat, Lng: lng, DisplayName: hits[0].DisplayName}, nil
}

func (c *Client) do(req *http.Request, service string, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		// Nominatim's usage policy requires an identifying agent.
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.FromUpstream(service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.Upstream(service, fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Upstream(service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
