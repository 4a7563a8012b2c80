package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/logger"
	redisstore "github.com/MrSnakeDoc/marque/internal/store/redis"
)

type pageFetcher struct {
	pages   map[string]string
	err     error
	fetched []string
}

func (f *pageFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

func newBackfillStore(t *testing.T) *redisstore.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewStore(client)
}

const articleHTML = `<html><head>
<meta property="og:description" content="A deep dive into schedulers">
<meta property="og:image" content="https://blog.example.com/cover.png">
<meta property="og:type" content="article">
<link rel="icon" href="/favicon.ico">
</head><body></body></html>`

func TestSweepEnrichesFlaggedRecords(t *testing.T) {
	store := newBackfillStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &domain.Bookmark{
		ID:    5,
		URL:   "https://blog.example.com/schedulers",
		Title: "Schedulers",
		Error: 1,
	}))
	require.NoError(t, store.Create(ctx, &domain.Bookmark{
		ID:    6,
		URL:   "https://other.example.com/",
		Title: "Already enriched",
	}))

	fetcher := &pageFetcher{pages: map[string]string{
		"https://blog.example.com/schedulers": articleHTML,
	}}
	bf := NewBackfill(store, fetcher, logger.New("error", false), 0, 0)

	require.NoError(t, bf.Sweep(ctx))

	b, err := store.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Error)
	require.NotNil(t, b.Description)
	assert.Equal(t, "A deep dive into schedulers", *b.Description)
	require.NotNil(t, b.Image)
	assert.Equal(t, "https://blog.example.com/cover.png", *b.Image)
	require.NotNil(t, b.Type)
	assert.Equal(t, "article", *b.Type)
	require.NotNil(t, b.Favicon)
	assert.Equal(t, "https://blog.example.com/favicon.ico", *b.Favicon)

	assert.Equal(t, []string{"https://blog.example.com/schedulers"}, fetcher.fetched,
		"clean records are never re-fetched")
}

func TestSweepKeepsFlagOnFetchFailure(t *testing.T) {
	store := newBackfillStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &domain.Bookmark{
		ID:    5,
		URL:   "https://down.example.com/",
		Error: 1,
	}))

	fetcher := &pageFetcher{err: domain.ErrFetchTimeout}
	bf := NewBackfill(store, fetcher, logger.New("error", false), 0, 0)

	require.NoError(t, bf.Sweep(ctx))

	b, err := store.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Error, "failed enrichment stays flagged for the next pass")
}

func TestSweepRespectsBatchLimit(t *testing.T) {
	store := newBackfillStore(t)
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		require.NoError(t, store.Create(ctx, &domain.Bookmark{
			ID:    id,
			URL:   "https://example.com/",
			Error: 1,
		}))
	}

	fetcher := &pageFetcher{pages: map[string]string{"https://example.com/": articleHTML}}
	bf := NewBackfill(store, fetcher, logger.New("error", false), 0, 2)

	require.NoError(t, bf.Sweep(ctx))

	assert.Len(t, fetcher.fetched, 2)
}
