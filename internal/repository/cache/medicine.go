package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/repository"
)

const keyPrefix = "medicine:"

func medicineCacheKey(normalizedName string) string {
	return keyPrefix + normalizedName
}

// MedicineRepository wraps a MedicineRepository with a Redis read-through
// cache. Records are immutable once stored, so entries are never invalidated,
// only expired.
type MedicineRepository struct {
	next   repository.MedicineRepository
	client redis.Cmdable
	ttl    time.Duration
	logger zerolog.Logger
}

func NewMedicineRepository(next repository.MedicineRepository, client redis.Cmdable, ttl time.Duration, logger zerolog.Logger) *MedicineRepository {
	return &MedicineRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *MedicineRepository) GetByNormalizedName(ctx context.Context, normalizedName string) (*model.Medicine, error) {
	key := medicineCacheKey(normalizedName)

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var medicine model.Medicine
		if err := json.Unmarshal(data, &medicine); err == nil {
			medicine.EnsureLists()
			return &medicine, nil
		}
		r.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
	case !stderrors.Is(err, redis.Nil):
		// The store stays authoritative when Redis is down.
		r.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	medicine, err := r.next.GetByNormalizedName(ctx, normalizedName)
	if err != nil {
		return nil, err
	}
	r.store(ctx, medicine)
	return medicine, nil
}

func (r *MedicineRepository) Create(ctx context.Context, medicine *model.Medicine) error {
	if err := r.next.Create(ctx, medicine); err != nil {
		return err
	}
	r.store(ctx, medicine)
	return nil
}

func (r *MedicineRepository) store(ctx context.Context, medicine *model.Medicine) {
	data, err := json.Marshal(medicine)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to encode medicine for cache")
		return
	}
	if err := r.client.Set(ctx, medicineCacheKey(medicine.NormalizedName), data, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(fmt.Errorf("failed to cache medicine: %w", err)).Str("key", medicine.NormalizedName).Send()
	}
}
