package ports

import (
	"context"

	"github.com/aretw0/ttystep/pkg/domain"
)

// SessionStore defines the interface for persisting session summaries.
type SessionStore interface {
	// Save persists the summary for a given session ID.
	Save(ctx context.Context, info *domain.SessionInfo) error

	// Load retrieves the summary for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.SessionInfo, error)

	// Delete removes the summary for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the known session IDs.
	List(ctx context.Context) ([]string, error)
}
