// Package notify reflects bookmark-saved state into UI affordances and
// emits change notifications to observers. Everything here is fire and
// forget: failures are logged, never escalated.
package notify

import (
	"context"

	"github.com/MrSnakeDoc/marque/internal/browser"
	"github.com/MrSnakeDoc/marque/internal/logger"
)

// DataUpdatedType is the broadcast message type UI surfaces listen for.
const DataUpdatedType = "dataUpdated"

// Notifier fans out icon updates and data-change broadcasts.
type Notifier struct {
	tabs        browser.Tabs
	broadcaster browser.Broadcaster
	logger      logger.Logger
}

// New creates a notifier. broadcaster may be nil when no UI channel
// exists (tests, offline mode).
func New(tabs browser.Tabs, broadcaster browser.Broadcaster, log logger.Logger) *Notifier {
	return &Notifier{
		tabs:        tabs,
		broadcaster: broadcaster,
		logger:      log,
	}
}

// SetIcon sets a tab's action icon, logging any failure.
func (n *Notifier) SetIcon(ctx context.Context, tabID int64, iconPath string) {
	if err := n.tabs.SetIcon(ctx, tabID, iconPath); err != nil {
		n.logger.Warn("failed to set tab icon",
			logger.Int64("tab_id", tabID),
			logger.String("icon", iconPath),
			logger.Error(err))
	}
}

// DataUpdated broadcasts the dataUpdated message to observers.
func (n *Notifier) DataUpdated() {
	if n.broadcaster == nil {
		return
	}
	if err := n.broadcaster.Broadcast(DataUpdatedType); err != nil {
		n.logger.Warn("failed to broadcast data update", logger.Error(err))
	}
}
