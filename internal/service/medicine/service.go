// Package medicine resolves free-text medicine names to stored records,
// generating and storing a record on first lookup.
package medicine

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/provider/llm"
	"github.com/jwalitptl/medinfo-api/internal/repository"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
	"github.com/jwalitptl/medinfo-api/pkg/messaging"
	"github.com/jwalitptl/medinfo-api/pkg/metrics"
)

// Resolution outcomes recorded in metrics.
const (
	outcomeStoreHit       = "store_hit"
	outcomeGenerated      = "generated"
	outcomeConflictReread = "conflict_reread"
	outcomeNotRecognized  = "not_recognized"
	outcomeFailed         = "failed"
)

// Resolver is what the HTTP layer and the prescription scanner depend on.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*model.Medicine, error)
}

type Options struct {
	// Source tags generated records, usually the provider name.
	Source string
	// CoalesceGeneration shares one generation between concurrent misses
	// for the same key in this process.
	CoalesceGeneration bool
}

type Service struct {
	normalizer NameNormalizer
	gen        llm.TextGenerator
	repo       repository.MedicineRepository
	publisher  messaging.Publisher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	opts       Options
	group      singleflight.Group
}

func NewService(
	normalizer NameNormalizer,
	gen llm.TextGenerator,
	repo repository.MedicineRepository,
	publisher messaging.Publisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
	opts Options,
) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if m == nil {
		m = metrics.NewNop()
	}
	if opts.Source == "" {
		opts.Source = model.DefaultSource
	}
	return &Service{
		normalizer: normalizer,
		gen:        gen,
		repo:       repo,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
		opts:       opts,
	}
}

// Resolve returns the stored record for name, generating it on a miss.
// Stored records are never modified.
func (s *Service) Resolve(ctx context.Context, name string) (*model.Medicine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("Medicine name is required")
	}

	norm, err := s.normalizer.Normalize(ctx, name)
	if err != nil {
		if errors.Is(err, errors.ErrNotRecognized) {
			s.count(outcomeNotRecognized)
		} else {
			s.count(outcomeFailed)
		}
		return nil, err
	}

	key := norm.LookupKey()
	log := s.logger.With().Str("input", name).Str("key", key).Logger()

	existing, err := s.repo.GetByNormalizedName(ctx, key)
	if err == nil {
		log.Debug().Msg("medicine served from store")
		s.count(outcomeStoreHit)
		return existing, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		s.count(outcomeFailed)
		return nil, err
	}

	if !s.opts.CoalesceGeneration {
		return s.generateAndStore(ctx, key, norm, log)
	}
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		return s.generateAndStore(ctx, key, norm, log)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Msg("shared concurrent generation")
	}
	return v.(*model.Medicine), nil
}

func (s *Service) generateAndStore(ctx context.Context, key string, norm *model.NormalizationResult, log zerolog.Logger) (*model.Medicine, error) {
	raw, err := s.gen.GenerateText(ctx, recordSystemPrompt, recordPrompt(norm.DisplayName()))
	if err != nil {
		s.count(outcomeFailed)
		return nil, err
	}
	log.Debug().Str("raw", raw).Msg("record generation response")

	med, err := parseRecord(raw)
	if err != nil {
		s.count(outcomeFailed)
		return nil, err
	}
	med.NormalizedName = key
	med.Source = s.opts.Source

	if err := s.repo.Create(ctx, med); err != nil {
		if !errors.Is(err, errors.ErrConflict) {
			s.count(outcomeFailed)
			return nil, err
		}
		stored, rerr := s.repo.GetByNormalizedName(ctx, key)
		if rerr != nil {
			log.Warn().Err(rerr).Msg("re-read after insert conflict failed")
			s.count(outcomeFailed)
			return nil, errors.Conflict("Medicine is being created, please retry", rerr)
		}
		log.Info().Msg("medicine created concurrently, returning stored record")
		s.count(outcomeConflictReread)
		return stored, nil
	}

	log.Info().Str("id", med.ID.String()).Msg("medicine generated and stored")
	s.count(outcomeGenerated)
	if err := s.publisher.Publish(ctx, model.EventMedicineCreated, model.MedicineCreatedPayload{
		ID:             med.ID.String(),
		NormalizedName: med.NormalizedName,
		Source:         med.Source,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to publish medicine.created")
	}
	return med, nil
}

func (s *Service) count(outcome string) {
	s.metrics.Resolutions.WithLabelValues(outcome).Inc()
}

// generatedRecord is the wire shape of the record generation response.
type generatedRecord struct {
	MedicineName string          `json:"medicineName"`
	GenericName  string          `json:"genericName"`
	Category     string          `json:"category"`
	Uses         stringList      `json:"uses"`
	Symptoms     stringList      `json:"symptoms"`
	HowToUse     string          `json:"howToUse"`
	Warnings     stringList      `json:"warnings"`
	SideEffects  stringList      `json:"sideEffects"`
	Alternatives json.RawMessage `json:"alternatives"`
}

// stringList accepts a list of strings or a single string, which becomes a
// one-element list. Null and blank strings decode to an empty list.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = stringList{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s == "" {
			*l = stringList{}
		} else {
			*l = stringList{s}
		}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

func parseRecord(raw string) (*model.Medicine, error) {
	var rec generatedRecord
	if err := llm.DecodeObject(raw, &rec); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.MedicineName) == "" {
		return nil, errors.IncompleteData("Incomplete medicine data")
	}

	med := &model.Medicine{
		MedicineName: strings.TrimSpace(rec.MedicineName),
		GenericName:  strings.TrimSpace(rec.GenericName),
		Category:     rec.Category,
		Uses:         pq.StringArray(rec.Uses),
		Symptoms:     pq.StringArray(rec.Symptoms),
		HowToUse:     rec.HowToUse,
		Warnings:     pq.StringArray(rec.Warnings),
		SideEffects:  pq.StringArray(rec.SideEffects),
		Alternatives: sanitizeAlternatives(rec.Alternatives),
	}
	med.EnsureLists()
	return med, nil
}

// sanitizeAlternatives keeps entries with a string name. Any type other than
// "branded" becomes "generic". A non-array value yields no alternatives.
func sanitizeAlternatives(raw json.RawMessage) model.Alternatives {
	out := model.Alternatives{}
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return out
	}
	for _, item := range items {
		var alt struct {
			Name interface{} `json:"name"`
			Type interface{} `json:"type"`
		}
		if json.Unmarshal(item, &alt) != nil {
			continue
		}
		name, ok := alt.Name.(string)
		if !ok {
			continue
		}
		kind := model.AlternativeGeneric
		if t, ok := alt.Type.(string); ok && t == model.AlternativeBranded {
			kind = model.AlternativeBranded
		}
		out = append(out, model.Alternative{Name: strings.TrimSpace(name), Kind: kind})
	}
	return out
}
