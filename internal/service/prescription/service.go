// Package prescription turns a prescription image into resolved medicine
// records.
package prescription

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/provider/llm"
	"github.com/jwalitptl/medinfo-api/internal/provider/ocr"
	"github.com/jwalitptl/medinfo-api/internal/service/medicine"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
	"github.com/jwalitptl/medinfo-api/pkg/metrics"
)

const extractionSystemPrompt = `You are a medical prescription analyzer.

Task: From the OCR extracted text of a PRINTED prescription (not handwritten), extract all medicine names present. Normalize them to their base names (no dosage numbers, no forms like tablet/syrup/capsule), and return ONLY a single line of comma-separated medicine names.

Rules:
- Include only valid medicine names that appear in the text
- Remove dosage and form information (e.g., 500 mg, tablet, syrup)
- If a brand appears, return its normalized base/generic medicine name
- Do not explain anything else
- If none present, return an empty string`

func extractionPrompt(ocrText string) string {
	return "OCR Text:\n\"\"\"\n" + ocrText + "\n\"\"\""
}

var (
	formPattern  = regexp.MustCompile(`(?i)\b(tablets?|tabs?|capsules?|caps?|syrup|injection|cream|ointment|drops|suspension|gel)\b\.?`)
	spacePattern = regexp.MustCompile(`\s+`)

	// Compound doses (250mg/5ml) first, then a number with a unit, a
	// percentage, and finally bare numbers and ratios such as 70/30.
	dosagePattern = regexp.MustCompile(`(?i)` +
		`\b\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml|iu)\s*/\s*\d*(?:\.\d+)?\s*(?:mg|mcg|g|ml|iu)\b` +
		`|\b\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml|iu)\b` +
		`|\b\d+(?:\.\d+)?\s*%` +
		`|\b\d+(?:\.\d+)?(?:\s*/\s*\d+(?:\.\d+)?)*\b`)
)

type Service struct {
	ocr         ocr.Engine
	gen         llm.TextGenerator
	resolver    medicine.Resolver
	concurrency int
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewService(engine ocr.Engine, gen llm.TextGenerator, resolver medicine.Resolver, concurrency int, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		ocr:         engine,
		gen:         gen,
		resolver:    resolver,
		concurrency: concurrency,
		metrics:     m,
		logger:      logger,
	}
}

// Scan runs OCR, extracts names and resolves each one. Names that fail to
// resolve are logged and left out of Medicines.
func (s *Service) Scan(ctx context.Context, image []byte) (*model.PrescriptionScanResult, error) {
	if len(image) == 0 {
		return nil, errors.Validation("Prescription image is required")
	}

	text, err := s.ocr.Recognize(ctx, image)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("length", len(text)).Msg("ocr text extracted")

	names, err := s.extractNames(ctx, text)
	if err != nil {
		return nil, err
	}
	s.metrics.PrescriptionNames.Observe(float64(len(names)))

	return &model.PrescriptionScanResult{
		Text:      text,
		Names:     names,
		Medicines: s.resolveAll(ctx, names),
	}, nil
}

func (s *Service) extractNames(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	raw, err := s.gen.GenerateText(ctx, extractionSystemPrompt, extractionPrompt(text))
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("raw", raw).Msg("extraction response")

	line, err := extractLine(raw)
	if err != nil {
		return nil, err
	}
	return SplitNames(line), nil
}

// extractLine accepts either plain CSV text or a JSON object whose
// "medicines" field is a CSV string or a list of strings.
func extractLine(raw string) (string, error) {
	if !llm.LooksLikeObject(raw) {
		return llm.StripCodeFence(raw), nil
	}
	var obj struct {
		Medicines json.RawMessage `json:"medicines"`
	}
	if err := llm.DecodeObject(raw, &obj); err != nil {
		return "", err
	}
	var line string
	if err := json.Unmarshal(obj.Medicines, &line); err == nil {
		return line, nil
	}
	var list []string
	if err := json.Unmarshal(obj.Medicines, &list); err == nil {
		return strings.Join(list, ","), nil
	}
	return "", errors.MalformedOutput("text generation", `"medicines" must be a string or a list of strings`)
}

// SplitNames splits a comma-separated line into cleaned names, dropping
// dosage and form words and duplicates (case-insensitive, first spelling
// wins).
func SplitNames(line string) []string {
	names := []string{}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(line, ",") {
		name := cleanName(part)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}

func cleanName(s string) string {
	s = dosagePattern.ReplaceAllString(s, " ")
	s = formPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.Trim(s, " .-")
}

func (s *Service) resolveAll(ctx context.Context, names []string) []*model.Medicine {
	start := time.Now()
	resolved := make([]*model.Medicine, len(names))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			med, err := s.resolver.Resolve(ctx, name)
			if err != nil {
				// Per-name failures never cancel the batch.
				s.logger.Warn().Err(err).Str("name", name).Msg("failed to resolve medicine")
				return nil
			}
			resolved[i] = med
			return nil
		})
	}
	_ = g.Wait()

	medicines := make([]*model.Medicine, 0, len(names))
	for _, med := range resolved {
		if med != nil {
			medicines = append(medicines, med)
		}
	}
	s.logger.Info().
		Int("names", len(names)).
		Int("resolved", len(medicines)).
		Dur("duration", time.Since(start)).
		Msg("prescription resolved")
	return medicines
}
