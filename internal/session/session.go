// Package session holds the per-browser view state of the storefront: the
// filter state, the favorites set, the theme preference, the debounced
// search input and the in-flight catalog fetches.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sarthakastic/storefront/internal/catalog"
	"github.com/sarthakastic/storefront/internal/debounce"
	"github.com/sarthakastic/storefront/internal/domain"
	"github.com/sarthakastic/storefront/internal/fakestore"
	"github.com/sarthakastic/storefront/internal/favorites"
	"github.com/sarthakastic/storefront/internal/fetch"
	"github.com/sarthakastic/storefront/internal/theme"
)

// Fetch resource names, used as metric labels.
const (
	ResourceProducts   = "products"
	ResourceCategories = "categories"
	ResourceProduct    = "product"
)

// Session is one shopper's state. FilterState and the favorites set are
// values: every update swaps in a new one under mu.
type Session struct {
	id        string
	createdAt time.Time

	Theme      *theme.Preference
	Products   *fetch.Slot[[]domain.Product]
	Categories *fetch.Slot[[]string]
	Detail     *fetch.Slot[*domain.Product]
	View       *catalog.Memo

	search *debounce.Debouncer[string]

	mu        sync.Mutex
	filters   domain.FilterState
	favorites favorites.Set
	lastSeen  time.Time
	closed    bool
}

func newSession(base context.Context, id string, pref *theme.Preference, searchDelay time.Duration, now time.Time, onSearch func(*Session, domain.FilterState)) *Session {
	s := &Session{
		id:         id,
		createdAt:  now,
		Theme:      pref,
		Products:   fetch.NewSlot[[]domain.Product](base, ResourceProducts, fakestore.MsgListProducts),
		Categories: fetch.NewSlot[[]string](base, ResourceCategories, fakestore.MsgListCategories),
		Detail:     fetch.NewSlot[*domain.Product](base, ResourceProduct, fakestore.MsgGetProduct),
		View:       &catalog.Memo{},
		filters:    domain.DefaultFilters(),
		lastSeen:   now,
	}
	s.search = debounce.New(searchDelay, func(q string) {
		f := s.UpdateFilters(func(f domain.FilterState) domain.FilterState {
			return f.WithSearchQuery(q)
		})
		if onSearch != nil {
			onSearch(s, f)
		}
	})
	return s
}

// ID returns the session identifier carried by the cookie.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Filters returns the current filter state.
func (s *Session) Filters() domain.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// UpdateFilters replaces the filter state with fn's result and returns it.
func (s *Session) UpdateFilters(fn func(domain.FilterState) domain.FilterState) domain.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = fn(s.filters)
	return s.filters
}

// Favorites returns the current favorites set. The slice must not be modified.
func (s *Session) Favorites() favorites.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites
}

// UpdateFavorites replaces the favorites set with fn's result and returns
// the previous and new sets.
func (s *Session) UpdateFavorites(fn func(favorites.Set) favorites.Set) (before, after favorites.Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before = s.favorites
	s.favorites = fn(before)
	return before, s.favorites
}

// PushSearch feeds raw search input into the debouncer. The filter state
// only changes once the input has been quiet for the configured delay.
func (s *Session) PushSearch(v string) {
	s.search.Push(v)
}

// FlushSearch commits pending search input immediately. It reports whether
// there was anything to commit.
func (s *Session) FlushSearch() bool {
	return s.search.Flush()
}

// CancelSearch drops search input still waiting for the quiet period.
func (s *Session) CancelSearch() {
	s.search.Cancel()
}

// SearchPending reports whether search input is waiting for the quiet period.
func (s *Session) SearchPending() bool {
	return s.search.Pending()
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// close tears the session down. Pending search input is dropped and every
// in-flight fetch is cancelled; results that arrive later are discarded.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.search.Stop()
	s.Products.Close()
	s.Categories.Close()
	s.Detail.Close()
	s.View.Invalidate()
}
