package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/pageinfo"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client)
}

func strPtr(s string) *string { return &s }

func TestCreateAndGetByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := &domain.Bookmark{
		ID:         5,
		URL:        "https://ex.com",
		Title:      "Example",
		Tags:       []string{"news", "tech"},
		FolderID:   1,
		FolderName: "Reading",
		DateAdded:  1000,
	}
	require.NoError(t, s.Create(ctx, b))
	assert.NotEmpty(t, b.CreatedAt, "Create should stamp CreatedAt")
	assert.NotEmpty(t, b.UpdatedAt, "Create should stamp UpdatedAt")

	got, err := s.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ID)
	assert.Equal(t, "Example", got.Title)
	assert.Equal(t, []string{"news", "tech"}, got.Tags)
	assert.Equal(t, "Reading", got.FolderName)
}

func TestGetByIDMiss(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetByID(context.Background(), 404)
	assert.True(t, errors.Is(err, domain.ErrLookupMiss), "missing record should report ErrLookupMiss, got %v", err)
}

func TestUpdateIsMergePatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &domain.Bookmark{
		ID:          9,
		URL:         "https://ex.com/a",
		Title:       "Before",
		Tags:        []string{"old"},
		Description: strPtr("original description"),
	}))

	err := s.Update(ctx, 9, domain.BookmarkPatch{Title: strPtr("After")})
	require.NoError(t, err)

	got, err := s.GetByID(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	// Unsupplied fields must be untouched.
	assert.Equal(t, "https://ex.com/a", got.URL)
	assert.Equal(t, []string{"old"}, got.Tags)
	require.NotNil(t, got.Description)
	assert.Equal(t, "original description", *got.Description)
}

func TestUpdateRefreshesUpdatedAtMonotonically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &domain.Bookmark{ID: 3, URL: "https://ex.com"}))

	var stamps []string
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Update(ctx, 3, domain.BookmarkPatch{Title: strPtr("t")}))
		got, err := s.GetByID(ctx, 3)
		require.NoError(t, err)
		stamps = append(stamps, got.UpdatedAt)
	}

	for i := 1; i < len(stamps); i++ {
		prev, err := time.Parse(time.RFC3339Nano, stamps[i-1])
		require.NoError(t, err)
		cur, err := time.Parse(time.RFC3339Nano, stamps[i])
		require.NoError(t, err)
		assert.False(t, cur.Before(prev), "updatedAt went backwards: %s -> %s", stamps[i-1], stamps[i])
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	s := newTestStore(t)

	err := s.Update(context.Background(), 77, domain.BookmarkPatch{Title: strPtr("x")})
	assert.True(t, errors.Is(err, domain.ErrLookupMiss))
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &domain.Bookmark{ID: 2, URL: "https://ex.com"}))
	require.NoError(t, s.Remove(ctx, 2))

	// Second removal of the same id is not an error.
	require.NoError(t, s.Remove(ctx, 2))

	_, err := s.GetByID(ctx, 2)
	assert.True(t, errors.Is(err, domain.ErrLookupMiss))

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateFolders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateMany(ctx, []*domain.Bookmark{
		{ID: 1, URL: "https://a.com", FolderName: "Old"},
		{ID: 2, URL: "https://b.com", FolderName: "Old"},
		{ID: 3, URL: "https://c.com", FolderName: "Other"},
	}))

	require.NoError(t, s.UpdateFolders(ctx, "Old", "New"))

	for _, id := range []int64{1, 2} {
		got, err := s.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "New", got.FolderName, "bookmark %d", id)
	}

	got, err := s.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Other", got.FolderName, "unrelated record must not change")
}

func TestGetAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateMany(ctx, []*domain.Bookmark{
		{ID: 1, URL: "https://a.com"},
		{ID: 2, URL: "https://b.com"},
	}))

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPageInfoCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.CachedPageInfo(ctx, "https://ex.com")
	require.NoError(t, err)
	assert.False(t, ok, "empty cache should miss without error")

	info := pageinfo.PageInfo{Description: "desc", Domain: "ex.com"}
	require.NoError(t, s.CachePageInfo(ctx, "https://ex.com", info, time.Minute))

	got, ok, err := s.CachedPageInfo(ctx, "https://ex.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "desc", got.Description)
	assert.Equal(t, "ex.com", got.Domain)

	require.NoError(t, s.InvalidatePageInfo(ctx, "https://ex.com"))
	_, ok, err = s.CachedPageInfo(ctx, "https://ex.com")
	require.NoError(t, err)
	assert.False(t, ok)
}
