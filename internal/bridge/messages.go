package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/marque/internal/domain"
)

// Message ops on the extension socket.
const (
	opEvent     = "event"
	opResult    = "result"
	opRequest   = "request"
	opBroadcast = "broadcast"
)

// Request methods the daemon may invoke on the host.
const (
	methodSearch       = "bookmarks.search"
	methodTree         = "bookmarks.tree"
	methodActiveTab    = "tabs.active"
	methodRenderedHTML = "tabs.renderedHtml"
	methodQueryTabs    = "tabs.query"
	methodSetIcon      = "tabs.setIcon"
)

// inboundMessage is the envelope for everything the host sends. op is
// either "event" (a lifecycle notification) or "result" (the reply to
// a daemon request, matched by id).
type inboundMessage struct {
	Op    string          `json:"op"`
	Event *hostEvent      `json:"event,omitempty"`
	ID    int64           `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// hostEvent is a lifecycle notification before payload decoding. The
// info shape depends on type.
type hostEvent struct {
	Type string          `json:"type"`
	ID   int64           `json:"id"`
	Info json.RawMessage `json:"info"`
}

// requestMessage is a daemon-to-host call. The host replies with a
// result message carrying the same id.
type requestMessage struct {
	Op     string `json:"op"`
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// broadcastMessage is a one-way daemon-to-host notification.
type broadcastMessage struct {
	Op   string `json:"op"`
	Type string `json:"type"`
}

type searchParams struct {
	URL string `json:"url"`
}

type tabParams struct {
	TabID int64 `json:"tabId"`
}

type queryTabsParams struct {
	URL string `json:"url"`
}

type setIconParams struct {
	TabID int64  `json:"tabId"`
	Path  string `json:"path"`
}

// decodeEvent validates a host notification and builds the tagged
// event. The payload must decode into the shape its type declares;
// tabLoaded carries no node id, every other type requires one.
func decodeEvent(he *hostEvent) (domain.Event, error) {
	ev := domain.Event{Type: domain.EventType(he.Type), ID: he.ID}

	switch ev.Type {
	case domain.EventCreated:
		ev.Created = &domain.CreatedInfo{}
		if err := unmarshalInfo(he.Info, ev.Created); err != nil {
			return domain.Event{}, err
		}
	case domain.EventChanged:
		ev.Changed = &domain.ChangedInfo{}
		if err := unmarshalInfo(he.Info, ev.Changed); err != nil {
			return domain.Event{}, err
		}
	case domain.EventMoved:
		ev.Moved = &domain.MovedInfo{}
		if err := unmarshalInfo(he.Info, ev.Moved); err != nil {
			return domain.Event{}, err
		}
	case domain.EventRemoved:
		ev.Removed = &domain.RemovedInfo{}
		if len(he.Info) > 0 {
			if err := unmarshalInfo(he.Info, ev.Removed); err != nil {
				return domain.Event{}, err
			}
		}
	case domain.EventTabLoaded:
		ev.TabLoaded = &domain.TabLoadedInfo{}
		if err := unmarshalInfo(he.Info, ev.TabLoaded); err != nil {
			return domain.Event{}, err
		}
		if ev.TabLoaded.URL == "" {
			return domain.Event{}, fmt.Errorf("tabLoaded event without url")
		}
		return ev, nil
	default:
		return domain.Event{}, fmt.Errorf("unknown event type %q", he.Type)
	}

	if ev.ID <= 0 {
		return domain.Event{}, fmt.Errorf("%s event without node id", he.Type)
	}

	return ev, nil
}

func unmarshalInfo(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return fmt.Errorf("event payload missing")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("malformed event payload: %w", err)
	}
	return nil
}
