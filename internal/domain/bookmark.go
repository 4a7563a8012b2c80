package domain

// Bookmark is the persisted, denormalized record for one external bookmark.
//
// It is NOT tied to the browser, Redis or any transport. All inputs
// (lifecycle events, page enrichment, reconciliation) are merged into
// this structure.
//
// A Bookmark is uniquely identified by the external bookmark id.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the external bookmark identifier, parsed as integer.
	ID int64 `json:"id"`

	// URL is the bookmarked page URL.
	URL string `json:"url"`

	// ─────────────────────────────
	// Folder (denormalized at create/move time)
	// ─────────────────────────────

	// FolderID is the id of the parent folder at the time of the
	// last create/move event.
	FolderID int64 `json:"folderId"`

	// FolderName is the parent folder title. Kept in sync via
	// explicit folder-rename cascades and full reconciliation only.
	FolderName string `json:"folderName"`

	// ─────────────────────────────
	// Title & tags
	// ─────────────────────────────

	// Title is the bookmark title with the trailing tag block stripped.
	Title string `json:"title"`

	// Tags are the tokens parsed out of the raw title's tag block.
	// Order is preserved, uniqueness is not enforced.
	Tags []string `json:"tags"`

	// ─────────────────────────────
	// Enrichment (best effort, absence permitted)
	// ─────────────────────────────

	Description *string  `json:"description"`
	Favicon     *string  `json:"favicon"`
	Image       *string  `json:"image"`
	Domain      *string  `json:"domain"`
	Type        *string  `json:"type"`
	Keywords    []string `json:"keywords"`

	// ─────────────────────────────
	// Flags
	// ─────────────────────────────

	// Favorite is integer-coded (0/1) to match the persisted format.
	Favorite int `json:"favorite"`

	// Error is non-zero when enrichment failed. The core fields
	// (id, url, title, tags) are still valid on such a record.
	Error int `json:"error"`

	// ─────────────────────────────
	// Timestamps
	// ─────────────────────────────

	// DateAdded is the origin timestamp from the external source
	// (milliseconds since epoch).
	DateAdded int64 `json:"dateAdded"`

	// CreatedAt and UpdatedAt are ISO-8601 strings. UpdatedAt is
	// refreshed by the store on every write, never by callers.
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// BookmarkPatch is a merge patch for a stored bookmark. Only non-nil
// fields are applied; the store refreshes UpdatedAt itself.
type BookmarkPatch struct {
	Title       *string
	URL         *string
	Tags        *[]string
	FolderID    *int64
	FolderName  *string
	Description *string
	Favicon     *string
	Image       *string
	Domain      *string
	Type        *string
	Keywords    *[]string
	Favorite    *int
	Error       *int
}

// Folder mirrors one folder node of the external bookmark tree.
type Folder struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ParentID int64  `json:"parentId"`
}

// NodeKind discriminates folder nodes from bookmark nodes in lookup
// results. The external id space is shared between both kinds, so
// callers must never infer the kind from the id alone.
type NodeKind int

const (
	KindBookmark NodeKind = iota
	KindFolder
)

func (k NodeKind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "bookmark"
}
