package leads

import (
	"context"

	"github.com/google/uuid"
)

// Lead is the summary other contexts may read.
type Lead struct {
	ID         uuid.UUID
	FullName   string
	Email      string
	Phone      string
	Source     string
	Message    *string
	AssignedTo *uuid.UUID
}

// Lookup is the read-only view other contexts depend on instead of the
// repository.
type Lookup interface {
	Summary(ctx context.Context, id uuid.UUID) (Lead, error)
}
