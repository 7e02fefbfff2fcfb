package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sarthakastic/storefront/internal/domain"
	"github.com/sarthakastic/storefront/internal/theme"
	"github.com/sarthakastic/storefront/pkg/logger"
)

// DefaultTTL is how long an idle session lives.
const DefaultTTL = 30 * time.Minute

// Config configures a Manager.
type Config struct {
	TTL         time.Duration
	SearchDelay time.Duration
	ThemeStore  theme.Store
	// ThemeTTL bounds the default in-memory theme store. Ignored when
	// ThemeStore is set.
	ThemeTTL time.Duration
}

// sweeper is implemented by theme stores that hold expired entries until
// swept.
type sweeper interface {
	Sweep() int
}

// SearchCommitFunc is called after debounced search input has been
// committed into a session's filter state.
type SearchCommitFunc func(s *Session, filters domain.FilterState)

// Manager creates, looks up and expires sessions.
type Manager struct {
	ttl         time.Duration
	searchDelay time.Duration
	themes      theme.Store
	logger      *slog.Logger
	nowFunc     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	onSearch SearchCommitFunc
	closed   bool
}

// NewManager returns an empty manager. A nil ThemeStore keeps themes in memory.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	store := cfg.ThemeStore
	if store == nil {
		themeTTL := cfg.ThemeTTL
		if themeTTL <= 0 {
			themeTTL = theme.DefaultTTL
		}
		store = theme.NewMemoryStore(themeTTL)
	}
	return &Manager{
		ttl:         ttl,
		searchDelay: cfg.SearchDelay,
		themes:      store,
		logger:      logger,
		nowFunc:     time.Now,
		sessions:    make(map[string]*Session),
	}
}

// OnSearchCommit registers fn for sessions created afterwards.
func (m *Manager) OnSearchCommit(fn SearchCommitFunc) {
	m.mu.Lock()
	m.onSearch = fn
	m.mu.Unlock()
}

// Lookup returns the live session with id and refreshes its idle timer.
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	now := m.nowFunc()
	if now.Sub(s.idleSince()) > m.ttl {
		m.removeLocked(id, s, "expired")
		return nil, false
	}
	s.touch(now)
	return s, true
}

// Get returns the live session with id, or creates a new one when id is
// empty, unknown or expired. A replacement session keeps a well-formed id so
// that preferences stored under it are found again. hint seeds the theme
// when no preference is stored. created reports whether a new session was
// made.
func (m *Manager) Get(ctx context.Context, id string, hint theme.Theme) (s *Session, created bool, err error) {
	if id != "" {
		if s, ok := m.Lookup(id); ok {
			return s, false, nil
		}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, false, ErrClosed
	}
	onSearch := m.onSearch
	m.mu.Unlock()

	if !wellFormed(id) {
		id = uuid.NewString()
	}
	l := m.logger.With(slog.String("session_id", id))
	base := logger.NewContext(logger.WithSessionID(context.Background(), id), l)

	// Theme loading may hit redis; keep it outside the manager lock.
	pref := theme.NewPreference(ctx, m.themes, id, hint, l)
	s = newSession(base, id, pref, m.searchDelay, m.nowFunc(), onSearch)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		s.close()
		return nil, false, ErrClosed
	}
	if existing, ok := m.sessions[id]; ok && !existing.Closed() {
		// A concurrent request with the same cookie got there first.
		s.close()
		existing.touch(m.nowFunc())
		return existing, false, nil
	}
	m.sessions[id] = s
	sessionsActive.Set(float64(len(m.sessions)))

	l.DebugContext(ctx, "session created")
	return s, true, nil
}

// wellFormed reports whether id is a canonical uuid, the only form Get
// hands out.
func wellFormed(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

// Destroy tears down the session with id. It reports whether it existed.
func (m *Manager) Destroy(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	m.removeLocked(id, s, "destroyed")
	return true
}

func (m *Manager) removeLocked(id string, s *Session, reason string) {
	delete(m.sessions, id)
	s.close()
	sessionsActive.Set(float64(len(m.sessions)))
	sessionsEnded.WithLabelValues(reason).Inc()
	m.logger.Debug("session ended",
		slog.String("session_id", id),
		slog.String("reason", reason),
	)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CleanupLoop expires idle sessions until ctx is done.
func (m *Manager) CleanupLoop(ctx context.Context) {
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
			m.sweepThemes()
		}
	}
}

func (m *Manager) cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	expired := 0
	for id, s := range m.sessions {
		if now.Sub(s.idleSince()) > m.ttl {
			m.removeLocked(id, s, "expired")
			expired++
		}
	}
	return expired
}

func (m *Manager) sweepThemes() int {
	sw, ok := m.themes.(sweeper)
	if !ok {
		return 0
	}
	n := sw.Sweep()
	if n > 0 {
		m.logger.Debug("expired theme preferences dropped", slog.Int("count", n))
	}
	return n
}

// Close tears down every session. Get fails with ErrClosed afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for id, s := range m.sessions {
		m.removeLocked(id, s, "shutdown")
	}
	return nil
}
