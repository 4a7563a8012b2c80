// Package browser declares the contracts the daemon consumes from the
// host browser extension. The daemon never implements bookmark or tab
// behavior itself; it only talks to whatever fulfils these interfaces.
package browser

import (
	"context"

	"github.com/MrSnakeDoc/marque/internal/domain"
)

// Action icon paths on the extension side.
const (
	IconSaved    = "/icons/icon32_saved.png"
	IconNotSaved = "/icons/icon32.png"
)

// Tab describes one open browser tab.
type Tab struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// Source is the external bookmark tree: the source of truth the local
// store converges towards.
type Source interface {
	// Search returns the external bookmarks matching a URL.
	Search(ctx context.Context, url string) ([]domain.TreeNode, error)

	// Tree returns the full folder/bookmark hierarchy.
	Tree(ctx context.Context) ([]domain.TreeNode, error)
}

// Tabs is the tab/content collaborator: rendered HTML round-trips and
// action icon control.
type Tabs interface {
	// ActiveTab returns the currently focused tab, ok=false when none.
	ActiveTab(ctx context.Context) (Tab, bool, error)

	// RenderedHTML asks the content script in a tab for the page's
	// current DOM, post JS execution.
	RenderedHTML(ctx context.Context, tabID int64) (string, error)

	// QueryByURL returns the open tabs showing a URL.
	QueryByURL(ctx context.Context, url string) ([]Tab, error)

	// SetIcon sets the action icon for one tab. Side effect only.
	SetIcon(ctx context.Context, tabID int64, iconPath string) error
}

// Broadcaster pushes process-wide notifications to any connected UI.
type Broadcaster interface {
	// Broadcast sends a message to every connected client.
	Broadcast(msgType string) error
}
