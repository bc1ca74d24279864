// Package ocr extracts text from prescription images.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/jwalitptl/medinfo-api/pkg/circuitbreaker"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
	"github.com/jwalitptl/medinfo-api/pkg/metrics"
)

const serviceName = "ocr"

// Engine turns image bytes into text.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// runFunc executes a command with stdin and returns stdout.
type runFunc func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// TesseractEngine runs the tesseract CLI, piping the image through stdin.
type TesseractEngine struct {
	binary   string
	language string
	timeout  time.Duration
	metrics  *metrics.Metrics
	run      runFunc
}

func NewTesseractEngine(binary, language string, timeout time.Duration, m *metrics.Metrics) *TesseractEngine {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &TesseractEngine{binary: binary, language: language, timeout: timeout, metrics: m, run: runCommand}
}

func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	out, err := e.run(ctx, image, e.binary, "stdin", "stdout", "-l", e.language)
	e.metrics.OCRLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", classify(ctx, err, e.metrics)
	}
	return strings.TrimSpace(string(out)), nil
}

// HTTPEngine posts the image to an OCR service that answers {"text": "..."}.
type HTTPEngine struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	metrics    *metrics.Metrics
}

func NewHTTPEngine(url string, timeout time.Duration, httpClient *http.Client, m *metrics.Metrics) *HTTPEngine {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &HTTPEngine{
		url:        url,
		timeout:    timeout,
		httpClient: httpClient,
		metrics:    m,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:             "ocr-http",
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
			OnStateChange: func(name string, state float64) {
				m.BreakerState.WithLabelValues(name).Set(state)
			},
		}),
	}
}

type ocrResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (e *HTTPEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("image", "prescription")
	if err != nil {
		return "", errors.Internal(err)
	}
	if _, err := fw.Write(image); err != nil {
		return "", errors.Internal(err)
	}
	if err := w.Close(); err != nil {
		return "", errors.Internal(err)
	}

	start := time.Now()
	var text string
	err = e.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body.Bytes()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		resp, err := e.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var out ocrResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode ocr response (status %d): %w", resp.StatusCode, err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, out.Error)
		}
		text = out.Text
		return nil
	})
	e.metrics.OCRLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", classify(ctx, err, e.metrics)
	}
	return strings.TrimSpace(text), nil
}

func classify(ctx context.Context, err error, m *metrics.Metrics) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = ctx.Err()
	}
	appErr := errors.FromUpstream(serviceName, err)
	m.UpstreamErrors.WithLabelValues(serviceName, errors.CodeOf(appErr).String()).Inc()
	return appErr
}
