package medicine

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

func TestNormalizer_ParsesAndMemoizes(t *testing.T) {
	gen := newScriptedGenerator("```json\n{\"canonicalName\":\" Ibuprofen \",\"genericName\":\"Ibuprofen\",\"confidence\":\"HIGH\"}\n```", "")
	var inputs []string
	inner := gen.normalize
	gen.normalize = func(ctx context.Context, user string) (string, error) {
		inputs = append(inputs, user)
		return inner(ctx, user)
	}
	n := NewNormalizer(gen, time.Minute, zerolog.Nop())

	res, err := n.Normalize(context.Background(), "Brufen 400 tablet")
	require.NoError(t, err)
	assert.Equal(t, &model.NormalizationResult{CanonicalName: "Ibuprofen", GenericName: "Ibuprofen", Confidence: model.ConfidenceHigh}, res)
	assert.Equal(t, []string{`User input: "Brufen 400 tablet"`}, inputs)

	// Mutating the returned value does not leak into the memo.
	res.GenericName = "changed"
	again, err := n.Normalize(context.Background(), "  brufen 400 TABLET")
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofen", again.GenericName)
	assert.Len(t, inputs, 1)
}

func TestNormalizer_DoesNotMemoizeFailures(t *testing.T) {
	gen := newScriptedGenerator(`{"canonicalName":"unknown","genericName":"","confidence":"low"}`, "")
	n := NewNormalizer(gen, time.Minute, zerolog.Nop())

	for i := 0; i < 2; i++ {
		_, err := n.Normalize(context.Background(), "chair")
		assert.True(t, errors.Is(err, errors.ErrNotRecognized))
	}
	assert.Equal(t, 2, gen.count(normalizationSystemPrompt))
}

func TestNormalizer_GeneratorError(t *testing.T) {
	gen := newScriptedGenerator("", "")
	gen.normalize = func(context.Context, string) (string, error) {
		return "", errors.UpstreamTimeout("text generation", context.DeadlineExceeded)
	}
	n := NewNormalizer(gen, time.Minute, zerolog.Nop())

	_, err := n.Normalize(context.Background(), "paracetamol")
	assert.True(t, errors.Is(err, errors.ErrUpstreamTimeout))
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}
