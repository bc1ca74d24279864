package medicine

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/provider/llm"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

// NameNormalizer maps free-text input to a canonical medicine name.
type NameNormalizer interface {
	Normalize(ctx context.Context, input string) (*model.NormalizationResult, error)
}

// Normalizer asks the text generator for the canonical name and memoizes
// recognized results per input.
type Normalizer struct {
	gen    llm.TextGenerator
	memo   *gocache.Cache
	logger zerolog.Logger
}

func NewNormalizer(gen llm.TextGenerator, ttl time.Duration, logger zerolog.Logger) *Normalizer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Normalizer{
		gen:    gen,
		memo:   gocache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// Normalize returns a NotRecognized error for empty, unknown or low
// confidence answers.
func (n *Normalizer) Normalize(ctx context.Context, input string) (*model.NormalizationResult, error) {
	memoKey := strings.ToLower(strings.TrimSpace(input))
	if v, ok := n.memo.Get(memoKey); ok {
		res := *v.(*model.NormalizationResult)
		return &res, nil
	}

	raw, err := n.gen.GenerateText(ctx, normalizationSystemPrompt, normalizationPrompt(input))
	if err != nil {
		return nil, err
	}
	n.logger.Debug().Str("input", input).Str("raw", raw).Msg("normalization response")

	res, err := parseNormalization(raw)
	if err != nil {
		return nil, err
	}
	if res.CanonicalName == "" || strings.EqualFold(res.CanonicalName, "unknown") || res.Confidence == model.ConfidenceLow {
		return nil, errors.NotRecognized(input)
	}

	n.memo.SetDefault(memoKey, res)
	out := *res
	return &out, nil
}

func parseNormalization(raw string) (*model.NormalizationResult, error) {
	var res model.NormalizationResult
	if err := llm.DecodeObject(raw, &res); err != nil {
		return nil, err
	}
	res.CanonicalName = strings.TrimSpace(res.CanonicalName)
	res.GenericName = strings.TrimSpace(res.GenericName)
	res.Confidence = strings.ToLower(strings.TrimSpace(res.Confidence))

	switch res.Confidence {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
	default:
		return nil, errors.MalformedOutput("text generation", fmt.Sprintf("confidence %q", res.Confidence))
	}
	return &res, nil
}
