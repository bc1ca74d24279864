package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/medinfo-api/internal/model"
)

// All repository interfaces in one file. Implementations return
// errors.NotFound for missing rows and errors.Conflict for unique key
// violations.
type (
	// MedicineRepository is the create-if-absent medicine store.
	MedicineRepository interface {
		GetByNormalizedName(ctx context.Context, normalizedName string) (*model.Medicine, error)
		Create(ctx context.Context, medicine *model.Medicine) error
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}
)
