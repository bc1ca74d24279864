// Package translation renders medicine records and free text in another
// language. Translated records are never stored.
package translation

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/provider/translate"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

type Service struct {
	translator translate.Translator
	logger     zerolog.Logger
}

func NewService(translator translate.Translator, logger zerolog.Logger) *Service {
	return &Service{translator: translator, logger: logger}
}

// IsIdentity reports whether target means "leave the record in English".
func IsIdentity(target string) bool {
	t := strings.ToLower(strings.TrimSpace(target))
	return t == "" || t == "en"
}

// TranslateMedicine returns a translated copy of rec. Names and
// alternatives stay as they are; all descriptive text goes out in one
// batched call.
func (s *Service) TranslateMedicine(ctx context.Context, rec *model.Medicine, target string) (*model.Medicine, error) {
	if rec == nil || IsIdentity(target) {
		return rec, nil
	}
	out := *rec

	// Each field claims a contiguous span of the batch.
	var batch []string
	type span struct{ start, n int }
	add := func(items ...string) span {
		sp := span{start: len(batch), n: len(items)}
		batch = append(batch, items...)
		return sp
	}
	generic := add(rec.GenericName)
	category := add(rec.Category)
	howToUse := add(rec.HowToUse)
	uses := add(rec.Uses...)
	symptoms := add(rec.Symptoms...)
	warnings := add(rec.Warnings...)
	sideEffects := add(rec.SideEffects...)

	translated, err := s.translator.Translate(ctx, batch, "auto", target, "text")
	if err != nil {
		s.logger.Warn().Err(err).Str("target", target).Str("medicine", rec.NormalizedName).Msg("record translation failed")
		return nil, err
	}
	if len(translated) != len(batch) {
		return nil, errors.Upstream("translation", nil)
	}

	slice := func(sp span) pq.StringArray {
		items := make(pq.StringArray, sp.n)
		copy(items, translated[sp.start:sp.start+sp.n])
		return items
	}
	out.GenericName = translated[generic.start]
	out.Category = translated[category.start]
	out.HowToUse = translated[howToUse.start]
	out.Uses = slice(uses)
	out.Symptoms = slice(symptoms)
	out.Warnings = slice(warnings)
	out.SideEffects = slice(sideEffects)
	out.Alternatives = append(model.Alternatives{}, rec.Alternatives...)
	return &out, nil
}

// Translate proxies a single text translation.
func (s *Service) Translate(ctx context.Context, req *model.TranslateRequest) (*model.TranslateResponse, error) {
	if strings.TrimSpace(req.Q) == "" || strings.TrimSpace(req.Target) == "" {
		return nil, errors.Validation("Text and target language are required")
	}
	out, err := s.translator.Translate(ctx, []string{req.Q}, req.Source, req.Target, req.Format)
	if err != nil {
		return nil, err
	}
	return &model.TranslateResponse{TranslatedText: out[0]}, nil
}
