// Package sync coordinates bookmark lifecycle events: fetch, extract,
// tag, persist, and reflect saved state back into the browser.
package sync

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marque/internal/browser"
	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/index"
	"github.com/MrSnakeDoc/marque/internal/logger"
	"github.com/MrSnakeDoc/marque/internal/notify"
	"github.com/MrSnakeDoc/marque/internal/pageinfo"
	redisstore "github.com/MrSnakeDoc/marque/internal/store/redis"
	"github.com/MrSnakeDoc/marque/internal/tags"
)

// Store is the record-store surface the orchestrator needs.
// *redisstore.Store satisfies it; tests may substitute their own.
type Store interface {
	Create(ctx context.Context, b *domain.Bookmark) error
	Update(ctx context.Context, id int64, patch domain.BookmarkPatch) error
	Remove(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Bookmark, error)
	UpdateFolders(ctx context.Context, oldName, newName string) error
	CachedPageInfo(ctx context.Context, url string) (pageinfo.PageInfo, bool, error)
	CachePageInfo(ctx context.Context, url string, info pageinfo.PageInfo, ttl time.Duration) error
}

// ContentFetcher is the network fallback path for page content.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Orchestrator subscribes to bookmark lifecycle events and drives the
// enrichment pipeline. Handlers run one goroutine per event with an
// independent catch-log-continue boundary; nothing retries and no
// failure stops the event loop.
type Orchestrator struct {
	store    Store
	folders  *index.FolderTable
	source   browser.Source
	tabs     browser.Tabs
	fetcher  ContentFetcher
	notifier *notify.Notifier
	logger   logger.Logger
}

// New creates the orchestrator.
func New(
	store Store,
	folders *index.FolderTable,
	source browser.Source,
	tabs browser.Tabs,
	fetcher ContentFetcher,
	notifier *notify.Notifier,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:    store,
		folders:  folders,
		source:   source,
		tabs:     tabs,
		fetcher:  fetcher,
		notifier: notifier,
		logger:   log,
	}
}

// Run consumes events until the channel closes or ctx is done.
// Each event is handled in its own goroutine so a slow enrichment
// never delays the next lifecycle notification.
func (o *Orchestrator) Run(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			go o.handle(ctx, ev)
		}
	}
}

// handle dispatches one event inside a per-task error boundary.
func (o *Orchestrator) handle(ctx context.Context, ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorf("event handler panicked: type=%s id=%d: %v", ev.Type, ev.ID, r)
		}
	}()

	switch ev.Type {
	case domain.EventCreated:
		o.handleCreated(ctx, ev.ID, ev.Created)
	case domain.EventChanged:
		o.handleChanged(ctx, ev.ID, ev.Changed)
	case domain.EventMoved:
		o.handleMoved(ctx, ev.ID, ev.Moved)
	case domain.EventRemoved:
		o.handleRemoved(ctx, ev.ID)
	case domain.EventTabLoaded:
		o.handleTabLoaded(ctx, ev.TabLoaded)
	default:
		o.logger.Warn("unknown event type", logger.String("type", string(ev.Type)))
	}
}

// handleCreated persists a new enriched record. Enrichment is best
// effort: any fetch or parse failure only sets the error flag, the
// base record is always created.
func (o *Orchestrator) handleCreated(ctx context.Context, id int64, info *domain.CreatedInfo) {
	if info == nil {
		o.logger.Warn("created event without payload", logger.Int64("id", id))
		return
	}

	// A created node without a URL is a folder: record it in the
	// snapshot so later events under it resolve their folder name.
	if info.URL == "" {
		o.folders.Put(&domain.Folder{ID: id, Title: info.Title, ParentID: info.ParentID})
		o.logger.Info("folder created",
			logger.Int64("folder_id", id),
			logger.String("title", info.Title))
		return
	}

	page, enrichErr := o.pageInfoFor(ctx, info.URL)

	title, tagList := tags.Parse(info.Title)

	var folderID int64
	var folderName string
	if folder, ok := o.folders.Get(info.ParentID); ok {
		folderID = folder.ID
		folderName = folder.Title
	} else {
		o.logger.Warn("parent folder not in snapshot",
			logger.Int64("bookmark_id", id),
			logger.Int64("parent_id", info.ParentID))
	}

	entity := &domain.Bookmark{
		ID:          id,
		URL:         info.URL,
		FolderID:    folderID,
		FolderName:  folderName,
		Title:       title,
		Tags:        tagList,
		Description: nilIfEmpty(page.Description),
		Favicon:     nilIfEmpty(page.Favicon),
		Image:       nilIfEmpty(page.Image),
		Domain:      nilIfEmpty(page.Domain),
		Type:        nilIfEmpty(page.Type),
		Keywords:    page.Keywords,
		DateAdded:   info.DateAdded,
	}
	if enrichErr != nil {
		entity.Error = 1
		o.logger.Warn("enrichment failed, creating base record",
			logger.Int64("bookmark_id", id),
			logger.String("url", info.URL),
			logger.Error(enrichErr))
	}

	if err := o.store.Create(ctx, entity); err != nil {
		// No broadcast on a failed write; observers would refresh into
		// the same state they already have.
		o.logger.Error("failed to create bookmark record",
			logger.Int64("bookmark_id", id),
			logger.Error(err))
		return
	}

	o.logger.Info("bookmark created",
		logger.Int64("bookmark_id", id),
		logger.String("folder", folderName),
		logger.Bool("enriched", enrichErr == nil))
	o.notifier.DataUpdated()

	// Icon update has its own failure boundary: a tab query error must
	// not undo or obscure the successful creation above.
	o.markTabs(ctx, info.URL, browser.IconSaved)
}

// handleChanged re-derives title/tags and patches the record. The
// folder snapshot provides an explicit kind check: a hit means the
// changed node is a folder, and its rename cascades to every record
// filed under the old name.
func (o *Orchestrator) handleChanged(ctx context.Context, id int64, info *domain.ChangedInfo) {
	if info == nil {
		o.logger.Warn("changed event without payload", logger.Int64("id", id))
		return
	}

	if folder, ok := o.folders.Get(id); ok {
		o.renameFolder(ctx, folder, info.Title)
		return
	}

	patch := domain.BookmarkPatch{}
	if info.Title != "" {
		title, tagList := tags.Parse(info.Title)
		patch.Title = &title
		patch.Tags = &tagList
	}
	if info.URL != "" {
		patch.URL = &info.URL
	}

	if err := o.store.Update(ctx, id, patch); err != nil {
		o.logger.Error("failed to update bookmark record",
			logger.Int64("bookmark_id", id),
			logger.Error(err))
		return
	}

	o.logger.Info("bookmark updated", logger.Int64("bookmark_id", id))
	o.notifier.DataUpdated()
}

// renameFolder cascades a folder title change to the snapshot and to
// every bookmark denormalized under the old name.
func (o *Orchestrator) renameFolder(ctx context.Context, folder *domain.Folder, newTitle string) {
	if newTitle == "" || newTitle == folder.Title {
		return
	}

	oldTitle := folder.Title
	if err := o.store.UpdateFolders(ctx, oldTitle, newTitle); err != nil {
		o.logger.Error("failed to cascade folder rename",
			logger.Int64("folder_id", folder.ID),
			logger.String("old", oldTitle),
			logger.String("new", newTitle),
			logger.Error(err))
		return
	}

	o.folders.Put(&domain.Folder{ID: folder.ID, Title: newTitle, ParentID: folder.ParentID})

	o.logger.Info("folder renamed",
		logger.Int64("folder_id", folder.ID),
		logger.String("old", oldTitle),
		logger.String("new", newTitle))
	o.notifier.DataUpdated()
}

// handleMoved patches folder fields only. A snapshot miss patches what
// is resolvable and leaves the rest for the next reconciliation.
func (o *Orchestrator) handleMoved(ctx context.Context, id int64, info *domain.MovedInfo) {
	if info == nil {
		o.logger.Warn("moved event without payload", logger.Int64("id", id))
		return
	}

	patch := domain.BookmarkPatch{FolderID: &info.ParentID}
	if folder, ok := o.folders.Get(info.ParentID); ok {
		patch.FolderName = &folder.Title
	} else {
		o.logger.Warn("move destination not in folder snapshot",
			logger.Int64("bookmark_id", id),
			logger.Int64("parent_id", info.ParentID))
	}

	if err := o.store.Update(ctx, id, patch); err != nil {
		o.logger.Error("failed to patch moved bookmark",
			logger.Int64("bookmark_id", id),
			logger.Error(err))
		return
	}

	o.logger.Info("bookmark moved", logger.Int64("bookmark_id", id))
	o.notifier.DataUpdated()
}

// handleRemoved looks the record up before deleting: its URL is needed
// for icon cleanup. Icon cleanup and deletion fail independently, and
// deletion happens regardless of the lookup outcome.
func (o *Orchestrator) handleRemoved(ctx context.Context, id int64) {
	// Drop the node from the folder snapshot. No-op for bookmarks.
	o.folders.Delete(id)

	if rec, err := o.store.GetByID(ctx, id); err == nil {
		o.resetIconsIfUnreferenced(ctx, rec.URL)
	} else if !errors.Is(err, domain.ErrLookupMiss) {
		o.logger.Warn("failed to load record before removal",
			logger.Int64("bookmark_id", id),
			logger.Error(err))
	}

	if err := o.store.Remove(ctx, id); err != nil {
		o.logger.Error("failed to remove bookmark record",
			logger.Int64("bookmark_id", id),
			logger.Error(err))
		return
	}

	o.logger.Info("bookmark removed", logger.Int64("bookmark_id", id))
	o.notifier.DataUpdated()
}

// resetIconsIfUnreferenced resets the action icon for tabs showing a
// URL when no live external bookmark references it anymore.
func (o *Orchestrator) resetIconsIfUnreferenced(ctx context.Context, url string) {
	refs, err := o.source.Search(ctx, url)
	if err != nil {
		o.logger.Warn("external bookmark search failed during icon cleanup",
			logger.String("url", url),
			logger.Error(err))
		return
	}
	if len(refs) > 0 {
		return
	}
	o.markTabs(ctx, url, browser.IconNotSaved)
}

// handleTabLoaded reflects saved state on navigation. This reads
// through to the external source, not the local store, so a drifted
// store never shows a wrong icon.
func (o *Orchestrator) handleTabLoaded(ctx context.Context, info *domain.TabLoadedInfo) {
	if info == nil || info.URL == "" {
		return
	}

	refs, err := o.source.Search(ctx, info.URL)
	if err != nil {
		o.logger.Warn("external bookmark search failed on tab load",
			logger.String("url", info.URL),
			logger.Error(err))
		return
	}

	icon := browser.IconNotSaved
	if len(refs) > 0 {
		icon = browser.IconSaved
	}
	o.notifier.SetIcon(ctx, info.TabID, icon)
}

// markTabs sets the action icon on every tab showing the URL.
// The fragment is stripped before the query: the same page can be open
// under many anchors.
func (o *Orchestrator) markTabs(ctx context.Context, url, icon string) {
	tabsList, err := o.tabs.QueryByURL(ctx, stripFragment(url))
	if err != nil {
		o.logger.Warn("tab query failed",
			logger.String("url", url),
			logger.Error(err))
		return
	}
	for _, tab := range tabsList {
		o.notifier.SetIcon(ctx, tab.ID, icon)
	}
}

// pageInfoFor obtains page metadata for a URL: cached extraction when
// available, otherwise the active tab's rendered DOM, otherwise a
// bounded network fetch. The returned error reports a failed fetch;
// extraction itself never fails.
func (o *Orchestrator) pageInfoFor(ctx context.Context, url string) (pageinfo.PageInfo, error) {
	if cached, ok, err := o.store.CachedPageInfo(ctx, url); err == nil && ok {
		return cached, nil
	}

	html, err := o.pageContent(ctx, url)
	if err != nil {
		// Extraction on an empty document still derives the domain.
		return pageinfo.Extract(url, ""), err
	}

	info := pageinfo.Extract(url, html)
	if err := o.store.CachePageInfo(ctx, url, info, redisstore.DefaultPageCacheTTL); err != nil {
		o.logger.Debug("failed to cache page info", logger.Error(err))
	}
	return info, nil
}

// pageContent prefers the active tab's rendered HTML: a freshly
// created bookmark is usually for the page currently open, and its
// live DOM beats a cold fetch on client-rendered sites.
func (o *Orchestrator) pageContent(ctx context.Context, url string) (string, error) {
	if tab, ok, err := o.tabs.ActiveTab(ctx); err == nil && ok {
		html, err := o.tabs.RenderedHTML(ctx, tab.ID)
		if err == nil && html != "" {
			return html, nil
		}
		o.logger.Debug("rendered HTML unavailable, falling back to fetch",
			logger.Int64("tab_id", tab.ID),
			logger.Error(err))
	}

	return o.fetcher.Fetch(ctx, url)
}

func stripFragment(url string) string {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		return url[:i]
	}
	return url
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
