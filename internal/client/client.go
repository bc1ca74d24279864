// Package client is a typed HTTP client for the medinfo API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/medinfo-api/internal/model"
)

// APIError is a non-2xx response. Message is the server's {message} body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a client for baseURL. A nil httpClient gets a 2 minute
// timeout, long enough for a cold medicine lookup.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SetToken sends token as a bearer credential on later requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Medicine(ctx context.Context, name, lang string) (*model.Medicine, error) {
	q := url.Values{"name": {name}}
	if lang != "" {
		q.Set("lang", lang)
	}
	var out model.Medicine
	if err := c.do(ctx, http.MethodGet, "/api/medicine?"+q.Encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scan uploads a prescription image as the multipart "image" field.
func (c *Client) Scan(ctx context.Context, filename string, image io.Reader) (*model.PrescriptionScanResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out model.PrescriptionScanResult
	if err := c.do(ctx, http.MethodPost, "/api/medicine/scan", &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*model.PublicUser, error) {
	var out model.AuthResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, "", &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var out model.ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chatbot/chat", model.ChatRequest{Message: message}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Pharmacies lists pharmacies around a point. A zero radius uses the
// server default.
func (c *Client) Pharmacies(ctx context.Context, lat, lng float64, radius int) (*model.PharmacySearchResult, error) {
	q := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lng": {strconv.FormatFloat(lng, 'f', -1, 64)},
	}
	return c.pharmacies(ctx, q, radius)
}

// PharmaciesNear geocodes place on the server and lists pharmacies around it.
func (c *Client) PharmaciesNear(ctx context.Context, place string, radius int) (*model.PharmacySearchResult, error) {
	return c.pharmacies(ctx, url.Values{"q": {place}}, radius)
}

func (c *Client) pharmacies(ctx context.Context, q url.Values, radius int) (*model.PharmacySearchResult, error) {
	if radius > 0 {
		q.Set("radius", strconv.Itoa(radius))
	}
	var out model.PharmacySearchResult
	if err := c.do(ctx, http.MethodGet, "/api/pharmacies?"+q.Encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(body), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach medinfo api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
