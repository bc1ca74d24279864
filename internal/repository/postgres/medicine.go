package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/repository"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

const medicineColumns = `id, normalized_name, medicine_name, generic_name, category,
	uses, symptoms, how_to_use, warnings, side_effects, alternatives, source,
	created_at, updated_at`

type medicineRepository struct {
	BaseRepository
}

func NewMedicineRepository(base BaseRepository) repository.MedicineRepository {
	return &medicineRepository{BaseRepository: base}
}

func (r *medicineRepository) GetByNormalizedName(ctx context.Context, normalizedName string) (*model.Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE normalized_name = $1`

	var medicine model.Medicine
	if err := r.db.GetContext(ctx, &medicine, query, normalizedName); err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("medicine", err)
		}
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}

	medicine.EnsureLists()
	return &medicine, nil
}

// Create inserts the record unless a row with the same normalized name
// already exists, in which case a Conflict error is returned and nothing is
// written.
func (r *medicineRepository) Create(ctx context.Context, medicine *model.Medicine) error {
	query := `
		INSERT INTO medicines (` + medicineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (normalized_name) DO NOTHING
	`

	medicine.EnsureLists()
	if medicine.Source == "" {
		medicine.Source = model.DefaultSource
	}
	medicine.Touch(time.Now().UTC())

	result, err := r.db.ExecContext(ctx, query,
		medicine.ID,
		medicine.NormalizedName,
		medicine.MedicineName,
		medicine.GenericName,
		medicine.Category,
		medicine.Uses,
		medicine.Symptoms,
		medicine.HowToUse,
		medicine.Warnings,
		medicine.SideEffects,
		medicine.Alternatives,
		medicine.Source,
		medicine.CreatedAt,
		medicine.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("medicine already exists", err)
		}
		return fmt.Errorf("failed to create medicine: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.Conflict("medicine already exists", fmt.Errorf("normalized name %q", medicine.NormalizedName))
	}

	return nil
}
