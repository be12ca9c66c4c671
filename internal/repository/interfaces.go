package repository

import (
	"context"

	"github.com/perioclinic/perio-records/internal/model"
)

// All repository interfaces in one file
type (
	// RecordStore moves flat records across the storage boundary.
	RecordStore interface {
		// Load reads every stored record in file order. A missing
		// backing file surfaces as a storage error satisfying
		// errors.IsNotExist, so a first run can start from an empty
		// collection.
		Load(ctx context.Context) ([]model.Record, error)
		// Save replaces the entire store contents.
		Save(ctx context.Context, records []model.Record) error
	}
)
