package domain

// EventType identifies one bookmark lifecycle notification from the host.
type EventType string

const (
	EventCreated   EventType = "created"
	EventChanged   EventType = "changed"
	EventMoved     EventType = "moved"
	EventRemoved   EventType = "removed"
	EventTabLoaded EventType = "tabLoaded"
)

// CreatedInfo is the payload of a bookmark-created notification.
type CreatedInfo struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	ParentID  int64  `json:"parentId"`
	DateAdded int64  `json:"dateAdded"`
}

// ChangedInfo carries the fields a change notification may update.
// Empty strings mean "not supplied" at the host boundary.
type ChangedInfo struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// MovedInfo carries the destination of a move notification.
type MovedInfo struct {
	ParentID    int64 `json:"parentId"`
	OldParentID int64 `json:"oldParentId"`
}

// RemovedInfo carries what the host still knows about a removed node.
type RemovedInfo struct {
	ParentID int64 `json:"parentId"`
}

// TabLoadedInfo is emitted when a tab starts navigating.
type TabLoadedInfo struct {
	TabID int64  `json:"tabId"`
	URL   string `json:"url"`
}

// Event is the tagged union of host notifications. Exactly one payload
// pointer is set, matching Type; payloads are validated at the bridge
// boundary before an Event is published.
type Event struct {
	Type EventType
	ID   int64

	Created   *CreatedInfo
	Changed   *ChangedInfo
	Moved     *MovedInfo
	Removed   *RemovedInfo
	TabLoaded *TabLoadedInfo
}

// TreeNode is one node of the external bookmark tree as returned by the
// host's tree query. Nodes with a URL are bookmarks, the rest are folders.
type TreeNode struct {
	ID        int64      `json:"id"`
	ParentID  int64      `json:"parentId"`
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	DateAdded int64      `json:"dateAdded"`
	Children  []TreeNode `json:"children"`
}

// IsFolder reports whether the node is a folder.
func (n TreeNode) IsFolder() bool { return n.URL == "" }
