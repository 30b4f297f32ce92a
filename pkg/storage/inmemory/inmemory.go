// Package inmemory is a map-backed storage driver, used when no database is
// configured and in tests.
package inmemory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	mu sync.RWMutex

	// records is keyed by conversation id
	records map[string]conversation.Record
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]conversation.Record),
	}
}

func (d *Driver) SaveConversation(_ context.Context, rec conversation.Record) error {
	if rec.ID == "" {
		return errors.New("cannot store a conversation without an id")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.records[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	d.records[rec.ID] = clone(rec)
	return nil
}

func (d *Driver) GetConversation(_ context.Context, id string) (*conversation.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}
	out := clone(rec)
	return &out, nil
}

func (d *Driver) ListConversations(_ context.Context) ([]conversation.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]conversation.Record, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, clone(rec))
	}
	slices.SortFunc(out, func(a, b conversation.Record) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (d *Driver) DeleteConversation(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.records[id]; !ok {
		return storage.NotFoundError{ID: id}
	}
	delete(d.records, id)
	return nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

func clone(rec conversation.Record) conversation.Record {
	msgs := make([]llm.Message, len(rec.Messages))
	for i, m := range rec.Messages {
		msgs[i] = m.Clone()
	}
	rec.Messages = msgs
	return rec
}
