package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sarthakastic/storefront/internal/catalog"
	"github.com/sarthakastic/storefront/internal/domain"
	"github.com/sarthakastic/storefront/internal/event"
	"github.com/sarthakastic/storefront/internal/fakestore"
	"github.com/sarthakastic/storefront/internal/favorites"
	"github.com/sarthakastic/storefront/internal/fetch"
	"github.com/sarthakastic/storefront/internal/session"
	"github.com/sarthakastic/storefront/internal/theme"
	apperrors "github.com/sarthakastic/storefront/pkg/errors"
)

// DefaultPageWait is how long a page waits for pending fetches.
const DefaultPageWait = 2 * time.Second

// listKey identifies the single product list and category list fetches.
const listKey = "all"

// StorefrontService builds the page views of a session and applies its
// mutations.
type StorefrontService struct {
	catalog  fakestore.Catalog
	sessions *session.Manager
	events   event.Publisher
	logger   *slog.Logger
	pageWait time.Duration
}

// NewStorefrontService creates the service and registers it for debounced
// search commits on sessions.
func NewStorefrontService(cat fakestore.Catalog, sessions *session.Manager, events event.Publisher, logger *slog.Logger, pageWait time.Duration) *StorefrontService {
	if events == nil {
		events = event.NoopPublisher{}
	}
	if pageWait <= 0 {
		pageWait = DefaultPageWait
	}
	s := &StorefrontService{
		catalog:  cat,
		sessions: sessions,
		events:   events,
		logger:   logger,
		pageWait: pageWait,
	}
	sessions.OnSearchCommit(s.searchCommitted)
	return s
}

// Home returns the product listing page. The products and categories
// fetches run independently; the page waits at most pageWait for them.
func (s *StorefrontService) Home(ctx context.Context, sess *session.Session) HomeView {
	products, version := ensure(sess.Products, listKey, s.catalog.ListProducts)
	categories, _ := ensure(sess.Categories, listKey, s.catalog.ListCategories)

	waitCtx, cancel := context.WithTimeout(ctx, s.pageWait)
	defer cancel()
	prodSnap := products.Wait(waitCtx)
	catSnap := categories.Wait(waitCtx)

	filters := sess.Filters()
	favs := sess.Favorites()
	view := HomeView{
		State:           prodSnap.State,
		Products:        []domain.Product{},
		Filters:         filters,
		CanClearFilters: !filters.IsDefault(),
		Theme:           sess.Theme.Current(),
		FavoritesCount:  len(favs),
		FavoriteIDs:     favs.IDs(),
	}

	var fetched []string
	if catSnap.State == fetch.StateFulfilled {
		fetched = catSnap.Data
	}

	switch prodSnap.State {
	case fetch.StateRejected:
		view.Error = prodSnap.Error
		view.Categories = catalog.CategoryOptions(fetched, nil)
	case fetch.StateFulfilled:
		view.Products = sess.View.View(version, prodSnap.Data, filters)
		view.ProductsCount = len(view.Products)
		view.Categories = catalog.CategoryOptions(fetched, prodSnap.Data)
		if len(view.Products) == 0 {
			view.EmptyMessage = catalog.EmptyMessage(prodSnap.Data, filters)
		}
	default:
		view.Categories = catalog.CategoryOptions(fetched, nil)
	}
	return view
}

// Favourites returns the favourites page.
func (s *StorefrontService) Favourites(sess *session.Session) FavouritesView {
	return favouritesView(sess.Favorites(), sess.Theme.Current())
}

func favouritesView(set favorites.Set, t theme.Theme) FavouritesView {
	view := FavouritesView{
		Count:    len(set),
		Products: []domain.Product(set),
		Theme:    t,
	}
	if view.Products == nil {
		view.Products = []domain.Product{}
	}
	if len(set) == 0 {
		view.EmptyMessage = MsgNoFavorites
	}
	return view
}

// ProductDetail returns the detail page for id. Navigating to another id
// tears down the previous detail fetch.
func (s *StorefrontService) ProductDetail(ctx context.Context, sess *session.Session, id int) DetailView {
	req, _ := ensure(sess.Detail, strconv.Itoa(id), func(ctx context.Context) (*domain.Product, error) {
		p, err := s.catalog.GetProduct(ctx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return p, err
	})

	waitCtx, cancel := context.WithTimeout(ctx, s.pageWait)
	defer cancel()
	snap := req.Wait(waitCtx)

	view := DetailView{
		State: snap.State,
		Error: snap.Error,
		Theme: sess.Theme.Current(),
	}
	if snap.State != fetch.StateFulfilled {
		return view
	}
	if snap.Data == nil {
		view.NotFound = true
		view.Message = MsgProductNotFound
		return view
	}

	view.Product = snap.Data
	rate, count := snap.Data.RatingSummary()
	view.Rating = &RatingView{Rate: rate, Count: count}
	view.IsFavorite = favorites.IsFavorite(sess.Favorites(), snap.Data.ID)
	return view
}

// ensure returns the slot's request for key. A request that was rejected
// earlier is started again: each page visit makes one attempt.
func ensure[T any](slot *fetch.Slot[T], key string, fn fetch.Func[T]) (*fetch.Request[T], uint64) {
	req, gen := slot.Ensure(key, fn)
	if req.Snapshot().State == fetch.StateRejected {
		return slot.Reload(key, fn)
	}
	return req, gen
}

// Filters returns the current filter state.
func (s *StorefrontService) Filters(sess *session.Session) domain.FilterState {
	return sess.Filters()
}

// SetSearchQuery commits a search query immediately.
func (s *StorefrontService) SetSearchQuery(ctx context.Context, sess *session.Session, q string) domain.FilterState {
	sess.CancelSearch()
	return s.changeFilters(ctx, sess, func(f domain.FilterState) domain.FilterState {
		return f.WithSearchQuery(q)
	})
}

// PushSearchInput feeds raw search box input. It is committed once the
// input has been quiet for the session's debounce delay.
func (s *StorefrontService) PushSearchInput(sess *session.Session, v string) {
	sess.PushSearch(v)
}

// SetCategory selects a category; domain.CategoryAll clears it.
func (s *StorefrontService) SetCategory(ctx context.Context, sess *session.Session, category string) domain.FilterState {
	return s.changeFilters(ctx, sess, func(f domain.FilterState) domain.FilterState {
		return f.WithCategory(category)
	})
}

// SetSortOrder selects the price ordering.
func (s *StorefrontService) SetSortOrder(ctx context.Context, sess *session.Session, order domain.SortOrder) domain.FilterState {
	return s.changeFilters(ctx, sess, func(f domain.FilterState) domain.FilterState {
		return f.WithSortOrder(order)
	})
}

// ApplyFilters applies every non-nil field of patch as one update.
func (s *StorefrontService) ApplyFilters(ctx context.Context, sess *session.Session, patch FilterPatch) domain.FilterState {
	if patch.SearchQuery != nil {
		sess.CancelSearch()
	}
	return s.changeFilters(ctx, sess, func(f domain.FilterState) domain.FilterState {
		if patch.SearchQuery != nil {
			f = f.WithSearchQuery(*patch.SearchQuery)
		}
		if patch.Category != nil {
			f = f.WithCategory(*patch.Category)
		}
		if patch.SortOrder != nil {
			f = f.WithSortOrder(*patch.SortOrder)
		}
		return f
	})
}

// ResetFilters restores the default filters and drops pending search input.
func (s *StorefrontService) ResetFilters(ctx context.Context, sess *session.Session) domain.FilterState {
	sess.CancelSearch()
	return s.changeFilters(ctx, sess, func(f domain.FilterState) domain.FilterState {
		return f.Reset()
	})
}

func (s *StorefrontService) changeFilters(ctx context.Context, sess *session.Session, fn func(domain.FilterState) domain.FilterState) domain.FilterState {
	var before domain.FilterState
	after := sess.UpdateFilters(func(f domain.FilterState) domain.FilterState {
		before = f
		return fn(f)
	})
	if after != before {
		s.events.FiltersChanged(ctx, sess.ID(), after)
	}
	return after
}

func (s *StorefrontService) searchCommitted(sess *session.Session, f domain.FilterState) {
	s.logger.Debug("search query committed",
		slog.String("session_id", sess.ID()),
		slog.String("search_query", f.SearchQuery),
	)
	s.events.FiltersChanged(context.Background(), sess.ID(), f)
}

// AddFavorite adds product id to the session's favourites. Adding a
// favourite twice is a no-op.
func (s *StorefrontService) AddFavorite(ctx context.Context, sess *session.Session, id int) (FavouritesView, error) {
	if favorites.IsFavorite(sess.Favorites(), id) {
		return s.Favourites(sess), nil
	}
	p, err := s.resolveProduct(ctx, sess, id)
	if err != nil {
		return FavouritesView{}, err
	}

	before, after := sess.UpdateFavorites(func(set favorites.Set) favorites.Set {
		return favorites.Add(set, p)
	})
	if len(after) != len(before) {
		s.events.FavoriteAdded(ctx, sess.ID(), p, len(after))
	}
	return favouritesView(after, sess.Theme.Current()), nil
}

// RemoveFavorite removes product id from the session's favourites.
func (s *StorefrontService) RemoveFavorite(ctx context.Context, sess *session.Session, id int) FavouritesView {
	before, after := sess.UpdateFavorites(func(set favorites.Set) favorites.Set {
		return favorites.Remove(set, id)
	})
	if len(after) != len(before) {
		s.events.FavoriteRemoved(ctx, sess.ID(), id, len(after))
	}
	return favouritesView(after, sess.Theme.Current())
}

// ToggleFavorite adds product id when it is not a favourite and removes it
// otherwise.
func (s *StorefrontService) ToggleFavorite(ctx context.Context, sess *session.Session, id int) (FavoriteToggle, error) {
	if favorites.IsFavorite(sess.Favorites(), id) {
		view := s.RemoveFavorite(ctx, sess, id)
		return FavoriteToggle{ProductID: id, IsFavorite: false, Favourites: view}, nil
	}

	view, err := s.AddFavorite(ctx, sess, id)
	if err != nil {
		return FavoriteToggle{}, err
	}
	return FavoriteToggle{ProductID: id, IsFavorite: true, Favourites: view}, nil
}

// resolveProduct finds product id among the session's loaded products or
// its detail product before asking the catalog.
func (s *StorefrontService) resolveProduct(ctx context.Context, sess *session.Session, id int) (domain.Product, error) {
	if req, _ := sess.Products.Current(); req != nil {
		if snap := req.Snapshot(); snap.State == fetch.StateFulfilled {
			for _, p := range snap.Data {
				if p.ID == id {
					return p, nil
				}
			}
		}
	}
	if req, _ := sess.Detail.Current(); req != nil {
		if snap := req.Snapshot(); snap.State == fetch.StateFulfilled && snap.Data != nil && snap.Data.ID == id {
			return *snap.Data, nil
		}
	}

	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("resolve product %d: %w", id, err)
	}
	if p == nil {
		return domain.Product{}, apperrors.NotFound("product", strconv.Itoa(id))
	}
	return *p, nil
}

// Theme returns the session's theme.
func (s *StorefrontService) Theme(sess *session.Session) theme.Theme {
	return sess.Theme.Current()
}

// ToggleTheme flips the session's theme and persists it.
func (s *StorefrontService) ToggleTheme(ctx context.Context, sess *session.Session) theme.Theme {
	t := sess.Theme.Toggle(ctx)
	s.events.ThemeChanged(ctx, sess.ID(), t)
	return t
}

// EndSession tears the session down. In-flight fetches are cancelled and
// their late results discarded.
func (s *StorefrontService) EndSession(sess *session.Session) bool {
	return s.sessions.Destroy(sess.ID())
}
