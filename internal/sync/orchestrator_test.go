package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marque/internal/browser"
	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/index"
	"github.com/MrSnakeDoc/marque/internal/logger"
	"github.com/MrSnakeDoc/marque/internal/notify"
	redisstore "github.com/MrSnakeDoc/marque/internal/store/redis"
)

type fakeSource struct {
	results map[string][]domain.TreeNode
	tree    []domain.TreeNode
	err     error
}

func (f *fakeSource) Search(_ context.Context, url string) ([]domain.TreeNode, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results[url], nil
}

func (f *fakeSource) Tree(context.Context) ([]domain.TreeNode, error) {
	return f.tree, f.err
}

type fakeTabs struct {
	mu      sync.Mutex
	active  *browser.Tab
	html    string
	htmlErr error
	byURL   map[string][]browser.Tab
	icons   map[int64]string
}

func newFakeTabs() *fakeTabs {
	return &fakeTabs{
		byURL: make(map[string][]browser.Tab),
		icons: make(map[int64]string),
	}
}

func (f *fakeTabs) ActiveTab(context.Context) (browser.Tab, bool, error) {
	if f.active == nil {
		return browser.Tab{}, false, nil
	}
	return *f.active, true, nil
}

func (f *fakeTabs) RenderedHTML(context.Context, int64) (string, error) {
	return f.html, f.htmlErr
}

func (f *fakeTabs) QueryByURL(_ context.Context, url string) ([]browser.Tab, error) {
	return f.byURL[url], nil
}

func (f *fakeTabs) SetIcon(_ context.Context, tabID int64, iconPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.icons[tabID] = iconPath
	return nil
}

func (f *fakeTabs) iconFor(tabID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.icons[tabID]
}

type fakeFetcher struct {
	html string
	err  error
}

func (f *fakeFetcher) Fetch(context.Context, string) (string, error) {
	return f.html, f.err
}

type fixture struct {
	orch    *Orchestrator
	store   *redisstore.Store
	folders *index.FolderTable
	source  *fakeSource
	tabs    *fakeTabs
	fetcher *fakeFetcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisstore.NewStore(client)
	folders := index.NewFolderTable()
	source := &fakeSource{results: make(map[string][]domain.TreeNode)}
	tabs := newFakeTabs()
	fetcher := &fakeFetcher{}
	log := logger.New("error", false)
	notifier := notify.New(tabs, nil, log)

	return &fixture{
		orch:    New(store, folders, source, tabs, fetcher, notifier, log),
		store:   store,
		folders: folders,
		source:  source,
		tabs:    tabs,
		fetcher: fetcher,
	}
}

const enrichedPage = `<html><head>
  <meta property="og:description" content="Example page">
  <meta property="og:type" content="website">
</head></html>`

func TestHandleCreatedEnriched(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.folders.Replace([]*domain.Folder{{ID: 1, Title: "Reading"}})
	fx.fetcher.html = enrichedPage
	fx.tabs.byURL["https://ex.com"] = []browser.Tab{{ID: 11, URL: "https://ex.com"}}

	fx.orch.handle(ctx, domain.Event{
		Type: domain.EventCreated,
		ID:   5,
		Created: &domain.CreatedInfo{
			ID:        5,
			Title:     "Example #news #tech",
			URL:       "https://ex.com",
			ParentID:  1,
			DateAdded: 1000,
		},
	})

	got, err := fx.store.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Example", got.Title)
	assert.Equal(t, []string{"news", "tech"}, got.Tags)
	assert.Equal(t, "Reading", got.FolderName)
	assert.Equal(t, "https://ex.com", got.URL)
	assert.Equal(t, 0, got.Error)
	assert.Equal(t, int64(1000), got.DateAdded)
	require.NotNil(t, got.Description)
	assert.Equal(t, "Example page", *got.Description)
	require.NotNil(t, got.Domain)
	assert.Equal(t, "ex.com", *got.Domain)

	assert.Equal(t, browser.IconSaved, fx.tabs.iconFor(11), "matching tab should show saved icon")
}

func TestHandleCreatedPrefersRenderedHTML(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.folders.Replace([]*domain.Folder{{ID: 1, Title: "Reading"}})
	fx.tabs.active = &browser.Tab{ID: 7, URL: "https://ex.com"}
	fx.tabs.html = `<html><head><meta property="og:description" content="From live DOM"></head></html>`
	fx.fetcher.err = errors.New("network path must not be used")

	fx.orch.handle(ctx, domain.Event{
		Type:    domain.EventCreated,
		ID:      6,
		Created: &domain.CreatedInfo{ID: 6, Title: "Live", URL: "https://ex.com", ParentID: 1},
	})

	got, err := fx.store.GetByID(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Error)
	require.NotNil(t, got.Description)
	assert.Equal(t, "From live DOM", *got.Description)
}

func TestHandleCreatedFetchFailureStillCreates(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.folders.Replace([]*domain.Folder{{ID: 1, Title: "Reading"}})
	fx.fetcher.err = fmt.Errorf("%w: boom", domain.ErrFetchNetwork)

	fx.orch.handle(ctx, domain.Event{
		Type: domain.EventCreated,
		ID:   8,
		Created: &domain.CreatedInfo{
			ID: 8, Title: "Broken #x", URL: "https://down.example", ParentID: 1,
		},
	})

	got, err := fx.store.GetByID(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Error, "enrichment failure must set the error flag")
	assert.Equal(t, "Broken", got.Title)
	assert.Equal(t, []string{"x"}, got.Tags)
	assert.Equal(t, "https://down.example", got.URL)
	assert.Nil(t, got.Description)
}

func TestHandleCreatedFolderMiss(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.fetcher.html = "<html></html>"

	fx.orch.handle(ctx, domain.Event{
		Type:    domain.EventCreated,
		ID:      9,
		Created: &domain.CreatedInfo{ID: 9, Title: "Orphan", URL: "https://ex.com", ParentID: 99},
	})

	got, err := fx.store.GetByID(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "", got.FolderName, "unknown folder degrades to empty name")
}

func TestHandleChangedBookmark(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.store.Create(ctx, &domain.Bookmark{
		ID: 4, URL: "https://ex.com", Title: "Old", Tags: []string{"old"},
	}))

	fx.orch.handle(ctx, domain.Event{
		Type:    domain.EventChanged,
		ID:      4,
		Changed: &domain.ChangedInfo{Title: "New title #fresh"},
	})

	got, err := fx.store.GetByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, []string{"fresh"}, got.Tags)
	assert.Equal(t, "https://ex.com", got.URL, "url untouched when not supplied")
}

func TestHandleChangedFolderCascades(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.folders.Replace([]*domain.Folder{{ID: 1, Title: "Old"}})
	require.NoError(t, fx.store.Create(ctx, &domain.Bookmark{ID: 10, URL: "https://a.com", FolderID: 1, FolderName: "Old"}))
	require.NoError(t, fx.store.Create(ctx, &domain.Bookmark{ID: 11, URL: "https://b.com", FolderID: 2, FolderName: "Other"}))

	fx.orch.handle(ctx, domain.Event{
		Type:    domain.EventChanged,
		ID:      1, // folder id
		Changed: &domain.ChangedInfo{Title: "New"},
	})

	got, err := fx.store.GetByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "New", got.FolderName)

	untouched, err := fx.store.GetByID(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, "Other", untouched.FolderName)

	folder, ok := fx.folders.Get(1)
	require.True(t, ok)
	assert.Equal(t, "New", folder.Title, "snapshot must follow the rename")
}

func TestHandleMoved(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.folders.Replace([]*domain.Folder{{ID: 2, Title: "Archive"}})
	require.NoError(t, fx.store.Create(ctx, &domain.Bookmark{ID: 12, URL: "https://ex.com", FolderID: 1, FolderName: "Reading"}))

	fx.orch.handle(ctx, domain.Event{
		Type:  domain.EventMoved,
		ID:    12,
		Moved: &domain.MovedInfo{ParentID: 2, OldParentID: 1},
	})

	got, err := fx.store.GetByID(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.FolderID)
	assert.Equal(t, "Archive", got.FolderName)
}

func TestHandleMovedFolderMissPatchesWhatResolves(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.store.Create(ctx, &domain.Bookmark{ID: 13, URL: "https://ex.com", FolderID: 1, FolderName: "Reading"}))

	fx.orch.handle(ctx, domain.Event{
		Type:  domain.EventMoved,
		ID:    13,
		Moved: &domain.MovedInfo{ParentID: 42},
	})

	got, err := fx.store.GetByID(ctx, 13)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.FolderID)
	assert.Equal(t, "Reading", got.FolderName, "unresolvable folder name is left alone")
}

func TestHandleRemovedResetsIconsWhenUnreferenced(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.store.Create(ctx, &domain.Bookmark{ID: 14, URL: "https://ex.com/page#section"}))
	fx.tabs.byURL["https://ex.com/page"] = []browser.Tab{{ID: 21}, {ID: 22}}
	// No external references remain for this URL.

	fx.orch.handle(ctx, domain.Event{Type: domain.EventRemoved, ID: 14})

	_, err := fx.store.GetByID(ctx, 14)
	assert.True(t, errors.Is(err, domain.ErrLookupMiss), "record must be deleted")
	assert.Equal(t, browser.IconNotSaved, fx.tabs.iconFor(21))
	assert.Equal(t, browser.IconNotSaved, fx.tabs.iconFor(22))
}

func TestHandleRemovedKeepsIconsWhenStillReferenced(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.store.Create(ctx, &domain.Bookmark{ID: 15, URL: "https://ex.com"}))
	fx.source.results["https://ex.com"] = []domain.TreeNode{{ID: 99, URL: "https://ex.com"}}
	fx.tabs.byURL["https://ex.com"] = []browser.Tab{{ID: 31}}

	fx.orch.handle(ctx, domain.Event{Type: domain.EventRemoved, ID: 15})

	_, err := fx.store.GetByID(ctx, 15)
	assert.True(t, errors.Is(err, domain.ErrLookupMiss))
	assert.Equal(t, "", fx.tabs.iconFor(31), "icon untouched while another reference exists")
}

func TestHandleRemovedUnknownRecord(t *testing.T) {
	fx := newFixture(t)

	// Removing an id that was never stored must not error or panic.
	fx.orch.handle(context.Background(), domain.Event{Type: domain.EventRemoved, ID: 404})
}

func TestHandleTabLoaded(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.source.results["https://ex.com"] = []domain.TreeNode{{ID: 1, URL: "https://ex.com"}}

	fx.orch.handle(ctx, domain.Event{
		Type:      domain.EventTabLoaded,
		TabLoaded: &domain.TabLoadedInfo{TabID: 41, URL: "https://ex.com"},
	})
	assert.Equal(t, browser.IconSaved, fx.tabs.iconFor(41))

	fx.orch.handle(ctx, domain.Event{
		Type:      domain.EventTabLoaded,
		TabLoaded: &domain.TabLoadedInfo{TabID: 42, URL: "https://unsaved.example"},
	})
	assert.Equal(t, browser.IconNotSaved, fx.tabs.iconFor(42))
}

func TestHandlerPanicIsContained(t *testing.T) {
	fx := newFixture(t)

	// A malformed event (typed payload missing) must be absorbed by the
	// per-event boundary, never crash the loop.
	fx.orch.handle(context.Background(), domain.Event{Type: domain.EventCreated, ID: 1})
	fx.orch.handle(context.Background(), domain.Event{Type: "bogus"})
}
