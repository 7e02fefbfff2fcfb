package theme

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sarthakastic/storefront/pkg/errors"
	"github.com/sarthakastic/storefront/pkg/logger"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Load(ctx context.Context, key string) (Theme, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(Theme), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, key string, t Theme) error {
	return m.Called(ctx, key, t).Error(0)
}

func TestTheme_Toggle(t *testing.T) {
	assert.Equal(t, Light, Dark.Toggle())
	assert.Equal(t, Dark, Light.Toggle())
	assert.Equal(t, Dark, Theme("").Toggle())
}

func TestParse(t *testing.T) {
	got, ok := Parse(" DARK ")
	assert.True(t, ok)
	assert.Equal(t, Dark, got)

	_, ok = Parse("sepia")
	assert.False(t, ok)
}

func TestFromHint(t *testing.T) {
	assert.Equal(t, Dark, FromHint(`"dark"`))
	assert.Equal(t, Dark, FromHint("dark"))
	assert.Equal(t, Light, FromHint(`"light"`))
	assert.Equal(t, Light, FromHint(""))
	assert.Equal(t, Light, FromHint("no-preference"))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	_, err := s.Load(ctx, "theme:a")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, s.Save(ctx, "theme:a", Dark))
	got, err := s.Load(ctx, "theme:a")
	require.NoError(t, err)
	assert.Equal(t, Dark, got)
}

func TestNewPreference_UsesStoredValue(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "k", Dark))

	p := NewPreference(ctx, s, "k", Light, logger.Discard())
	assert.Equal(t, Dark, p.Current())
}

func TestNewPreference_FallsBackToHintWithoutWriting(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	p := NewPreference(ctx, s, "k", Dark, logger.Discard())
	assert.Equal(t, Dark, p.Current())

	_, err := s.Load(ctx, "k")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestNewPreference_EmptyHintIsLight(t *testing.T) {
	p := NewPreference(context.Background(), NewMemoryStore(0), "k", "", logger.Discard())
	assert.Equal(t, Light, p.Current())
}

func TestNewPreference_InvalidStoredValueUsesHint(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "k", Theme("sepia")))

	p := NewPreference(ctx, s, "k", Light, logger.Discard())
	assert.Equal(t, Light, p.Current())
}

func TestPreference_TogglePersistsEveryChange(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	p := NewPreference(ctx, s, "k", Light, logger.Discard())

	assert.Equal(t, Dark, p.Toggle(ctx))
	stored, _ := s.Load(ctx, "k")
	assert.Equal(t, Dark, stored)

	assert.Equal(t, Light, p.Toggle(ctx))
	stored, _ = s.Load(ctx, "k")
	assert.Equal(t, Light, stored)
}

func TestPreference_StoreFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	store.On("Load", mock.Anything, "k").Return(Theme(""), errors.New("connection refused"))
	store.On("Save", mock.Anything, "k", mock.Anything).Return(errors.New("connection refused"))

	p := NewPreference(ctx, store, "k", Dark, logger.Discard())
	assert.Equal(t, Dark, p.Current())
	assert.Equal(t, Light, p.Toggle(ctx))

	store.AssertNumberOfCalls(t, "Save", 1)
}

func TestMemoryStore_EntriesExpire(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "a", Dark))
	require.NoError(t, s.Save(ctx, "b", Light))

	now = now.Add(45 * time.Minute)
	got, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, Dark, got, "load slides the expiry")

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, s.Sweep(), "b expired, a was refreshed")
	assert.Equal(t, 1, s.Len())

	now = now.Add(time.Hour)
	_, err = s.Load(ctx, "a")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, s.Len(), "an expired entry is dropped on load")
}

func TestMemoryStore_NoTTLKeepsEntries(t *testing.T) {
	s := NewMemoryStore(0)
	s.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }

	require.NoError(t, s.Save(context.Background(), "a", Dark))
	assert.Zero(t, s.Sweep())
	assert.Equal(t, 1, s.Len())
}
