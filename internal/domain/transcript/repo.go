package transcript

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert inserts the transcript or, if the session already has one,
	// replaces its content.
	Upsert(ctx context.Context, t *Transcript) error
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*Transcript, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
