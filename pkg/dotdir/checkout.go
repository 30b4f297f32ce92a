package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
)

const checkoutFile = "checkout.json"

// CheckoutState is the conversation a chat session resumes from. It carries
// the full record so resuming works without a history database.
type CheckoutState struct {
	Conversation conversation.Record `json:"conversation"`
	SavedAt      time.Time           `json:"saved_at,omitzero"`
}

// checkoutPath resolves checkout.json inside the target directory.
func (m *Manager) checkoutPath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, checkoutFile), nil
}

// LoadCheckoutState returns the saved checkout, or nil, nil when nothing is
// checked out.
func (m *Manager) LoadCheckoutState(overrideDir string) (*CheckoutState, error) {
	path, err := m.checkoutPath(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reading checkout state: %w", err)
	}

	var state CheckoutState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing checkout state: %w", err)
	}
	return &state, nil
}

// SaveCheckout stamps state and replaces checkout.json. The file is written
// next to its final path and renamed so a crash never leaves half a record.
func (m *Manager) SaveCheckout(state *CheckoutState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil checkout state")
	}

	path, err := m.checkoutPath(overrideDir)
	if err != nil {
		return err
	}

	state.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkout state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing checkout state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing checkout state: %w", err)
	}
	return nil
}

// ClearCheckout forgets the checkout so the next chat starts fresh.
func (m *Manager) ClearCheckout(overrideDir string) error {
	path, err := m.checkoutPath(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing checkout state: %w", err)
	}
	return nil
}
