// Package theme holds the light/dark display preference of a session.
package theme

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	apperrors "github.com/sarthakastic/storefront/pkg/errors"
)

// Theme is the colour scheme of the storefront.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Parse validates a stored or user-supplied theme value.
func Parse(s string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Dark:
		return Dark, true
	case Light:
		return Light, true
	}
	return "", false
}

// HintHeader is the client hint carrying the OS colour-scheme preference.
const HintHeader = "Sec-CH-Prefers-Color-Scheme"

// FromHint maps the client-hint header value (e.g. `"dark"`) to a theme.
// Anything other than dark yields light.
func FromHint(v string) Theme {
	if t, ok := Parse(strings.Trim(v, `"`)); ok {
		return t
	}
	return Light
}

// Store persists theme preferences by key. Load returns an error matching
// apperrors.ErrNotFound when nothing has been stored for key.
type Store interface {
	Load(ctx context.Context, key string) (Theme, error)
	Save(ctx context.Context, key string, t Theme) error
}

// DefaultTTL is how long a stored preference outlives its last use.
const DefaultTTL = 30 * 24 * time.Hour

// MemoryStore is an in-process Store. Entries expire ttl after they were
// last saved or loaded; a non-positive ttl keeps them forever.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	theme   Theme
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	now := s.now()
	if ok && s.expired(e, now) {
		delete(s.entries, key)
		ok = false
	}
	if !ok {
		return "", apperrors.NotFound("theme", key)
	}
	s.entries[key] = s.entry(e.theme, now)
	return e.theme, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, t Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.entry(t, s.now())
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for key, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) entry(t Theme, now time.Time) memoryEntry {
	e := memoryEntry{theme: t}
	if s.ttl > 0 {
		e.expires = now.Add(s.ttl)
	}
	return e
}

func (s *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// Preference is the current theme of one client, backed by a Store.
// The stored value is read once at construction and written back whenever
// it changes. Store failures are logged; the in-memory value stays
// authoritative.
type Preference struct {
	store  Store
	key    string
	logger *slog.Logger

	mu      sync.Mutex
	current Theme
}

// NewPreference loads the stored theme for key. When none is stored (or the
// stored value is unreadable) it uses hint. Nothing is written until the
// theme is toggled.
func NewPreference(ctx context.Context, store Store, key string, hint Theme, logger *slog.Logger) *Preference {
	p := &Preference{store: store, key: key, logger: logger}

	t, err := store.Load(ctx, key)
	switch {
	case err == nil:
		if parsed, ok := Parse(string(t)); ok {
			t = parsed
		} else {
			t = hint
		}
	case errors.Is(err, apperrors.ErrNotFound):
		t = hint
	default:
		logger.WarnContext(ctx, "load theme preference failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		t = hint
	}
	if t == "" {
		t = Light
	}

	p.current = t
	return p
}

// Current returns the active theme.
func (p *Preference) Current() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Toggle flips the theme, persists it and returns the new value.
func (p *Preference) Toggle(ctx context.Context) Theme {
	p.mu.Lock()
	p.current = p.current.Toggle()
	t := p.current
	p.mu.Unlock()

	p.persist(ctx, t)
	return t
}

func (p *Preference) persist(ctx context.Context, t Theme) {
	if err := p.store.Save(ctx, p.key, t); err != nil {
		p.logger.WarnContext(ctx, "save theme preference failed",
			slog.String("key", p.key),
			slog.String("theme", string(t)),
			slog.String("error", err.Error()),
		)
	}
}
