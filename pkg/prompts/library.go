// Package prompts is the library of system prompts sent upstream. The
// prompts themselves are opaque text: built-in defaults are embedded in the
// binary and any of them can be replaced by a "<name>.md" file in an
// override directory.
package prompts

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/promptsmith/pkg/logger"
)

// Prompt names.
const (
	GeneratePrompt    = "generate-prompt"
	Agent             = "agent"
	Meta              = "meta"
	AgentInstructions = "agent-instructions"
	MetaInstructions  = "meta-instructions"

	// Master is the optional active master prompt. When present it replaces
	// both the agent and the meta template.
	Master = "master"
)

const fileExt = ".md"

//go:embed defaults/*.md
var defaults embed.FS

// ErrUnknownPrompt is returned by Get for a name with no prompt.
var ErrUnknownPrompt = errors.New("unknown prompt")

// Library holds the current prompts. It is safe for concurrent use.
type Library struct {
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	prompts map[string]string
}

// New loads the embedded defaults and then the overrides in dir. An empty
// dir means defaults only; a dir that does not exist yet is not an error.
func New(dir string, l *slog.Logger) (*Library, error) {
	lib := &Library{dir: dir, logger: logger.OrNop(l)}
	if err := lib.Reload(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Dir returns the override directory.
func (l *Library) Dir() string {
	return l.dir
}

// Get returns the prompt called name.
func (l *Library) Get(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.prompts[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
	}
	return p, nil
}

// Names returns the loaded prompt names.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.prompts))
	for name := range l.prompts {
		names = append(names, name)
	}
	return names
}

// Reload rereads the defaults and the override directory.
func (l *Library) Reload() error {
	prompts := map[string]string{}

	entries, err := fs.ReadDir(defaults, "defaults")
	if err != nil {
		return fmt.Errorf("reading embedded prompts: %w", err)
	}
	for _, e := range entries {
		data, err := fs.ReadFile(defaults, "defaults/"+e.Name())
		if err != nil {
			return fmt.Errorf("reading embedded prompt %s: %w", e.Name(), err)
		}
		prompts[strings.TrimSuffix(e.Name(), fileExt)] = strings.TrimSpace(string(data))
	}

	if l.dir != "" {
		overrides, err := os.ReadDir(l.dir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading prompts dir: %w", err)
		}
		for _, e := range overrides {
			if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
				continue
			}
			data, err := os.ReadFile(filepath.Join(l.dir, e.Name()))
			if err != nil {
				return fmt.Errorf("reading prompt %s: %w", e.Name(), err)
			}
			text := strings.TrimSpace(string(data))
			if text == "" {
				continue
			}
			prompts[strings.TrimSuffix(e.Name(), fileExt)] = text
		}
	}

	l.mu.Lock()
	l.prompts = prompts
	l.mu.Unlock()
	return nil
}

// Watch reloads the library whenever a prompt file in the override
// directory is written, created, renamed or removed. It blocks until ctx is
// done. ready, when non-nil, is closed once the watch is registered.
func (l *Library) Watch(ctx context.Context, ready chan<- struct{}) error {
	if l.dir == "" {
		return errors.New("no prompts directory to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating prompts watcher: %w", err)
	}
	defer watcher.Close()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating prompts dir: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watching prompts dir: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != fileExt {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := l.Reload(); err != nil {
				l.logger.Warn("reloading prompts", "error", err)
				continue
			}
			l.logger.Info("prompts reloaded", "file", filepath.Base(event.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("prompts watcher error", "error", err)
		}
	}
}
