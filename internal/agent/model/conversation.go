package model

import (
	"context"
)

// SessionRepository persists sessions between turns and runs.
type SessionRepository interface {
	// Load returns the stored session, or a fresh one with that id when none exists.
	Load(ctx context.Context, conversationID string) (*Session, error)

	// Save writes the whole session.
	Save(ctx context.Context, session *Session) error

	// Delete removes a stored session. Deleting a missing session is not an error.
	Delete(ctx context.Context, conversationID string) error
}
