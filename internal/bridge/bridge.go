// Package bridge is the WebSocket link between the daemon and the
// browser extension host. Lifecycle events flow in; bookmark queries,
// tab queries and UI notifications flow out as request/response calls
// correlated by id.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lxzan/gws"

	"github.com/MrSnakeDoc/marque/internal/browser"
	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/logger"
)

const (
	// heartbeatWait is how long a silent connection stays alive. The
	// host pings on a shorter interval.
	heartbeatWait = 40 * time.Second

	// DefaultCallTimeout bounds one daemon-to-host round trip.
	DefaultCallTimeout = 5 * time.Second

	eventBuffer = 64
)

// ErrHostNotConnected reports a call attempted with no extension host
// attached.
var ErrHostNotConnected = errors.New("extension host not connected")

type callResult struct {
	data json.RawMessage
	err  error
}

// Bridge owns the extension socket. It implements the browser.Source,
// browser.Tabs and browser.Broadcaster contracts by proxying each call
// to the connected host. A single host connection is kept; a new
// connection replaces the old one.
type Bridge struct {
	logger      logger.Logger
	events      chan domain.Event
	callTimeout time.Duration
	up          *gws.Upgrader

	mu      sync.Mutex
	host    *gws.Conn
	pending map[int64]chan callResult
	nextID  int64
}

// New creates the bridge.
func New(log logger.Logger) *Bridge {
	b := &Bridge{
		logger:      log,
		events:      make(chan domain.Event, eventBuffer),
		callTimeout: DefaultCallTimeout,
		pending:     make(map[int64]chan callResult),
	}
	b.up = gws.NewUpgrader(b, &gws.ServerOption{})
	return b
}

// Events is the stream of validated host notifications.
func (b *Bridge) Events() <-chan domain.Event {
	return b.events
}

// Connected reports whether an extension host is attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.host != nil
}

// Handler upgrades an HTTP request to the extension socket.
func (b *Bridge) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		socket, err := b.up.Upgrade(w, r)
		if err != nil {
			b.logger.Error("websocket upgrade failed", logger.Error(err))
			return
		}
		go socket.ReadLoop()
	}
}

// ─────────────────────────────────────────────
// gws event callbacks
// ─────────────────────────────────────────────

func (b *Bridge) OnOpen(conn *gws.Conn) {
	_ = conn.SetDeadline(time.Now().Add(heartbeatWait))

	b.mu.Lock()
	prev := b.host
	b.host = conn
	b.mu.Unlock()

	if prev != nil {
		b.logger.Warn("replacing previous extension host connection")
		_ = prev.WriteClose(1000, []byte("replaced"))
	}

	b.logger.Info("extension host connected")
}

func (b *Bridge) OnClose(conn *gws.Conn, err error) {
	b.mu.Lock()
	if b.host == conn {
		b.host = nil
	}
	pending := b.pending
	b.pending = make(map[int64]chan callResult)
	b.mu.Unlock()

	for _, ch := range pending {
		ch <- callResult{err: ErrHostNotConnected}
	}

	b.logger.Info("extension host disconnected", logger.Error(err))
}

func (b *Bridge) OnPing(conn *gws.Conn, _ []byte) {
	_ = conn.SetDeadline(time.Now().Add(heartbeatWait))
	_ = conn.WritePong(nil)
}

func (b *Bridge) OnPong(conn *gws.Conn, _ []byte) {
	_ = conn.SetDeadline(time.Now().Add(heartbeatWait))
}

func (b *Bridge) OnMessage(conn *gws.Conn, message *gws.Message) {
	defer message.Close()
	if message.Opcode != gws.OpcodeText {
		return
	}
	_ = conn.SetDeadline(time.Now().Add(heartbeatWait))

	var msg inboundMessage
	if err := json.Unmarshal(message.Data.Bytes(), &msg); err != nil {
		b.logger.Warn("malformed message from host", logger.Error(err))
		return
	}

	switch msg.Op {
	case opEvent:
		b.handleEvent(msg.Event)
	case opResult:
		b.resolve(msg.ID, msg.Data, msg.Error)
	default:
		b.logger.Warn("unknown message op from host", logger.String("op", msg.Op))
	}
}

func (b *Bridge) handleEvent(he *hostEvent) {
	if he == nil {
		b.logger.Warn("event message without event body")
		return
	}

	ev, err := decodeEvent(he)
	if err != nil {
		b.logger.Warn("dropping invalid host event",
			logger.String("type", he.Type),
			logger.Error(err))
		return
	}

	select {
	case b.events <- ev:
	default:
		b.logger.Error("event buffer full, dropping event",
			logger.String("type", string(ev.Type)),
			logger.Int64("id", ev.ID))
	}
}

func (b *Bridge) resolve(id int64, data json.RawMessage, errMsg string) {
	b.mu.Lock()
	ch, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !ok {
		b.logger.Warn("result for unknown request", logger.Int64("id", id))
		return
	}

	if errMsg != "" {
		ch <- callResult{err: fmt.Errorf("host error: %s", errMsg)}
		return
	}
	ch <- callResult{data: data}
}

// ─────────────────────────────────────────────
// daemon-to-host calls
// ─────────────────────────────────────────────

// call performs one round trip. out, when non-nil, receives the
// decoded result data.
func (b *Bridge) call(ctx context.Context, method string, params any, out any) error {
	b.mu.Lock()
	host := b.host
	if host == nil {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrHostNotConnected, method)
	}
	b.nextID++
	id := b.nextID
	ch := make(chan callResult, 1)
	b.pending[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}

	payload, err := json.Marshal(requestMessage{
		Op:     opRequest,
		ID:     id,
		Method: method,
		Params: params,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}
	if err := host.WriteMessage(gws.OpcodeText, payload); err != nil {
		cancel()
		return fmt.Errorf("failed to send %s request: %w", method, err)
	}

	timer := time.NewTimer(b.callTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return fmt.Errorf("%s: %w", method, res.err)
		}
		if out == nil || len(res.data) == 0 {
			return nil
		}
		if err := json.Unmarshal(res.data, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
		return nil
	case <-timer.C:
		cancel()
		return fmt.Errorf("%s: host did not answer within %s", method, b.callTimeout)
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// ─────────────────────────────────────────────
// browser.Source
// ─────────────────────────────────────────────

func (b *Bridge) Search(ctx context.Context, url string) ([]domain.TreeNode, error) {
	var nodes []domain.TreeNode
	if err := b.call(ctx, methodSearch, searchParams{URL: url}, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (b *Bridge) Tree(ctx context.Context) ([]domain.TreeNode, error) {
	var nodes []domain.TreeNode
	if err := b.call(ctx, methodTree, nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ─────────────────────────────────────────────
// browser.Tabs
// ─────────────────────────────────────────────

func (b *Bridge) ActiveTab(ctx context.Context) (browser.Tab, bool, error) {
	var tab *browser.Tab
	if err := b.call(ctx, methodActiveTab, nil, &tab); err != nil {
		return browser.Tab{}, false, err
	}
	if tab == nil {
		return browser.Tab{}, false, nil
	}
	return *tab, true, nil
}

func (b *Bridge) RenderedHTML(ctx context.Context, tabID int64) (string, error) {
	var html string
	if err := b.call(ctx, methodRenderedHTML, tabParams{TabID: tabID}, &html); err != nil {
		return "", err
	}
	return html, nil
}

func (b *Bridge) QueryByURL(ctx context.Context, url string) ([]browser.Tab, error) {
	var tabs []browser.Tab
	if err := b.call(ctx, methodQueryTabs, queryTabsParams{URL: url}, &tabs); err != nil {
		return nil, err
	}
	return tabs, nil
}

func (b *Bridge) SetIcon(ctx context.Context, tabID int64, iconPath string) error {
	return b.call(ctx, methodSetIcon, setIconParams{TabID: tabID, Path: iconPath}, nil)
}

// ─────────────────────────────────────────────
// browser.Broadcaster
// ─────────────────────────────────────────────

func (b *Bridge) Broadcast(msgType string) error {
	b.mu.Lock()
	host := b.host
	b.mu.Unlock()
	if host == nil {
		return ErrHostNotConnected
	}

	payload, err := json.Marshal(broadcastMessage{Op: opBroadcast, Type: msgType})
	if err != nil {
		return fmt.Errorf("failed to encode broadcast: %w", err)
	}
	return host.WriteMessage(gws.OpcodeText, payload)
}
