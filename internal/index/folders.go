// Package index holds the in-memory folder snapshot used for
// enrichment-time lookups.
package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/marque/internal/domain"
)

// FolderTable is a point-in-time snapshot of the external folder tree.
// It is refreshed only by explicit reconciliation; folder moves or
// renames after the snapshot require an event or a full resync.
type FolderTable struct {
	mu          sync.RWMutex
	folders     map[int64]*domain.Folder // ID -> Folder
	lastRefresh time.Time
}

// NewFolderTable creates an empty folder table.
func NewFolderTable() *FolderTable {
	return &FolderTable{
		folders: make(map[int64]*domain.Folder),
	}
}

// Replace swaps the whole snapshot.
func (t *FolderTable) Replace(folders []*domain.Folder) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.folders = make(map[int64]*domain.Folder, len(folders))
	for _, f := range folders {
		t.folders[f.ID] = f
	}
	t.lastRefresh = time.Now()
}

// Get retrieves a folder by id.
func (t *FolderTable) Get(id int64) (*domain.Folder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	f, ok := t.folders[id]
	return f, ok
}

// Put adds or updates a single folder without touching the rest of
// the snapshot. Used when an explicit folder event arrives between
// reconciliation passes.
func (t *FolderTable) Put(f *domain.Folder) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.folders[f.ID] = f
}

// Delete removes a folder from the snapshot.
func (t *FolderTable) Delete(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.folders, id)
}

// All returns the folders currently in the snapshot.
func (t *FolderTable) All() []*domain.Folder {
	t.mu.RLock()
	defer t.mu.RUnlock()

	folders := make([]*domain.Folder, 0, len(t.folders))
	for _, f := range t.folders {
		folders = append(folders, f)
	}
	return folders
}

// Count returns the number of folders in the snapshot.
func (t *FolderTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.folders)
}

// LastRefresh returns when the snapshot was last replaced.
func (t *FolderTable) LastRefresh() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.lastRefresh
}
