// Package storage persists conversation history.
package storage

import (
	"context"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
)

// Driver stores conversation records.
type Driver interface {
	// SaveConversation inserts rec, or replaces the stored record with the
	// same id while keeping its creation time.
	SaveConversation(ctx context.Context, rec conversation.Record) error

	// GetConversation returns the record with id, or a NotFoundError.
	GetConversation(ctx context.Context, id string) (*conversation.Record, error)

	// ListConversations returns every record, most recently updated first.
	ListConversations(ctx context.Context) ([]conversation.Record, error)

	// DeleteConversation removes the record with id, or returns a
	// NotFoundError.
	DeleteConversation(ctx context.Context, id string) error

	// Close releases the driver's resources.
	Close() error
}
