// Package scheduler runs the periodic background passes: full-tree
// reconciliation against the external bookmark source, and the
// enrichment backfill sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/marque/internal/browser"
	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/index"
	"github.com/MrSnakeDoc/marque/internal/logger"
	"github.com/MrSnakeDoc/marque/internal/notify"
	redisstore "github.com/MrSnakeDoc/marque/internal/store/redis"
	"github.com/MrSnakeDoc/marque/internal/tags"
)

// Reconciler converges the persisted record store onto the external
// bookmark tree. It is the recovery path for every event missed while
// the daemon was not running.
type Reconciler struct {
	source        browser.Source
	store         *redisstore.Store
	folders       *index.FolderTable
	notifier      *notify.Notifier
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewReconciler creates a reconciler. manualTrigger lets the HTTP
// layer request an immediate pass.
func NewReconciler(
	source browser.Source,
	store *redisstore.Store,
	folders *index.FolderTable,
	notifier *notify.Notifier,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Reconciler {
	return &Reconciler{
		source:        source,
		store:         store,
		folders:       folders,
		notifier:      notifier,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs one pass immediately, then reconciles on the interval or
// on manual trigger until stopped.
func (r *Reconciler) Start(ctx context.Context) error {
	if err := r.Reconcile(ctx); err != nil {
		// Startup reconciliation is best effort: the host may not be
		// connected yet, live events will still be handled.
		r.logger.Warn("initial reconciliation failed", logger.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.Reconcile(ctx); err != nil {
					r.logger.Error("reconciliation failed", logger.Error(err))
				}
			case <-r.manualTrigger:
				r.logger.Info("manual reconciliation triggered")
				if err := r.Reconcile(ctx); err != nil {
					r.logger.Error("reconciliation failed", logger.Error(err))
				}
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reconciler.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

// externalBookmark is one bookmark node flattened out of the tree,
// with its parent folder resolved during the walk.
type externalBookmark struct {
	node       domain.TreeNode
	folderID   int64
	folderName string
}

// Reconcile pulls the full external tree, refreshes the folder
// snapshot, creates missing records, patches drifted ones and removes
// stale local-only records. Deterministic convergence: afterwards
// every external bookmark is represented and nothing local-only
// survives.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	r.logger.Info("reconciling store against external bookmark tree")

	tree, err := r.source.Tree(ctx)
	if err != nil {
		return fmt.Errorf("failed to load external tree: %w", err)
	}

	folders, externals := flatten(tree)
	r.folders.Replace(folders)

	local, err := r.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local records: %w", err)
	}
	localByID := make(map[int64]*domain.Bookmark, len(local))
	for _, b := range local {
		localByID[b.ID] = b
	}

	var created, patched, removed int

	var missing []*domain.Bookmark
	for _, ext := range externals {
		existing, ok := localByID[ext.node.ID]
		if !ok {
			missing = append(missing, baseRecord(ext))
			continue
		}
		if patch, dirty := driftPatch(existing, ext); dirty {
			if err := r.store.Update(ctx, existing.ID, patch); err != nil {
				r.logger.Warn("failed to patch drifted record",
					logger.Int64("bookmark_id", existing.ID),
					logger.Error(err))
				continue
			}
			patched++
		}
	}

	if len(missing) > 0 {
		if err := r.store.CreateMany(ctx, missing); err != nil {
			return fmt.Errorf("failed to create missing records: %w", err)
		}
		created = len(missing)
	}

	externalIDs := make(map[int64]bool, len(externals))
	for _, ext := range externals {
		externalIDs[ext.node.ID] = true
	}
	for _, b := range local {
		if externalIDs[b.ID] {
			continue
		}
		if err := r.store.Remove(ctx, b.ID); err != nil {
			r.logger.Warn("failed to remove stale record",
				logger.Int64("bookmark_id", b.ID),
				logger.Error(err))
			continue
		}
		removed++
	}

	r.logger.Info("reconciliation completed",
		logger.Int("folders", len(folders)),
		logger.Int("external", len(externals)),
		logger.Int("created", created),
		logger.Int("patched", patched),
		logger.Int("removed", removed))

	if created+patched+removed > 0 {
		r.notifier.DataUpdated()
	}

	return nil
}

// flatten walks the tree into a folder list and a bookmark list.
func flatten(tree []domain.TreeNode) ([]*domain.Folder, []externalBookmark) {
	var folders []*domain.Folder
	var bookmarks []externalBookmark

	var walk func(nodes []domain.TreeNode, parentID int64, parentName string)
	walk = func(nodes []domain.TreeNode, parentID int64, parentName string) {
		for _, n := range nodes {
			if n.IsFolder() {
				folders = append(folders, &domain.Folder{
					ID:       n.ID,
					Title:    n.Title,
					ParentID: parentID,
				})
				walk(n.Children, n.ID, n.Title)
				continue
			}
			bookmarks = append(bookmarks, externalBookmark{
				node:       n,
				folderID:   parentID,
				folderName: parentName,
			})
		}
	}
	walk(tree, 0, "")

	return folders, bookmarks
}

// baseRecord assembles an unenriched record for a bookmark discovered
// only during reconciliation. The error flag marks it for the backfill
// sweep, which owns the network enrichment of such records.
func baseRecord(ext externalBookmark) *domain.Bookmark {
	title, tagList := tags.Parse(ext.node.Title)
	return &domain.Bookmark{
		ID:         ext.node.ID,
		URL:        ext.node.URL,
		FolderID:   ext.folderID,
		FolderName: ext.folderName,
		Title:      title,
		Tags:       tagList,
		DateAdded:  ext.node.DateAdded,
		Error:      1,
	}
}

// driftPatch compares a stored record against its external node and
// builds the minimal patch bringing the base fields back in line.
func driftPatch(b *domain.Bookmark, ext externalBookmark) (domain.BookmarkPatch, bool) {
	patch := domain.BookmarkPatch{}
	dirty := false

	title, tagList := tags.Parse(ext.node.Title)
	if b.Title != title {
		patch.Title = &title
		patch.Tags = &tagList
		dirty = true
	}
	if b.URL != ext.node.URL {
		url := ext.node.URL
		patch.URL = &url
		dirty = true
	}
	if b.FolderID != ext.folderID || b.FolderName != ext.folderName {
		folderID := ext.folderID
		folderName := ext.folderName
		patch.FolderID = &folderID
		patch.FolderName = &folderName
		dirty = true
	}

	return patch, dirty
}
