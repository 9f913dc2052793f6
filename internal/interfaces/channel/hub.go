package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/riskibarqy/matchboard/internal/domain/board"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/id"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/usecase"
	"github.com/sourcegraph/conc/panics"
)

var (
	ErrChannelNotFound = errors.New("origin channel is not connected")
	ErrChannelBusy     = errors.New("origin channel send buffer is full")
)

// EventHandler is the tracker surface the hub drives.
type EventHandler interface {
	HandleEvent(ctx context.Context, event usecase.Event) (usecase.EventResult, error)
	Board(ctx context.Context) board.Board
	Dismiss(ctx context.Context, matchID string) error
	Navigate(ctx context.Context, matchID, href string) error
}

type HubConfig struct {
	AllowedOrigins []string
	IDs            id.Generator
	Logger         *logging.Logger
}

// Hub keeps producer connections keyed by origin channel and the set of board
// viewers. It implements usecase.CommandSink and usecase.BoardPublisher.
type Hub struct {
	mu        sync.RWMutex
	producers map[string]*Conn
	viewers   map[string]*Conn

	handler  EventHandler
	upgrader websocket.Upgrader
	ids      id.Generator
	logger   *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

var (
	_ usecase.CommandSink    = (*Hub)(nil)
	_ usecase.BoardPublisher = (*Hub)(nil)
)

func NewHub(handler EventHandler, cfg HubConfig) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = id.NewUUIDGenerator("")
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		producers: make(map[string]*Conn),
		viewers:   make(map[string]*Conn),
		handler:   handler,
		ids:       ids,
		logger:    logger.Named("channel"),
		ctx:       ctx,
		cancel:    cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// ServeProducer upgrades a producer connection. The origin channel token comes
// from the "origin" query parameter or is generated; a reconnect with the same
// token replaces the previous connection.
func (h *Hub) ServeProducer(w http.ResponseWriter, r *http.Request) {
	origin := strings.TrimSpace(r.URL.Query().Get("origin"))
	if origin == "" {
		generated, err := h.ids.NewID()
		if err != nil {
			http.Error(w, "cannot assign origin channel", http.StatusInternalServerError)
			return
		}
		origin = generated
	}

	conn, ok := h.upgrade(w, r, origin, roleProducer)
	if !ok {
		return
	}

	h.mu.Lock()
	previous := h.producers[origin]
	h.producers[origin] = conn
	h.mu.Unlock()
	if previous != nil {
		previous.close()
	}

	h.start(conn, func(raw []byte) { h.handleProducerFrame(conn, raw) })
}

// ServeViewer upgrades a board viewer and sends it the current board.
func (h *Hub) ServeViewer(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.upgrade(w, r, "", roleViewer)
	if !ok {
		return
	}

	h.mu.Lock()
	h.viewers[conn.ID] = conn
	h.mu.Unlock()

	if h.handler != nil {
		h.reply(conn, ServerFrame{Type: FrameBoard, Payload: h.handler.Board(h.ctx)})
	}
	h.start(conn, func(raw []byte) { h.handleViewerFrame(conn, raw) })
}

// Send delivers cmd to the producer connected on originChannel.
func (h *Hub) Send(_ context.Context, originChannel string, cmd match.Command) error {
	h.mu.RLock()
	conn := h.producers[originChannel]
	h.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, originChannel)
	}

	frame, err := encodeFrame(ServerFrame{Type: FrameCommand, Payload: cmd})
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	if !conn.trySend(frame) {
		return fmt.Errorf("%w: %s", ErrChannelBusy, originChannel)
	}
	return nil
}

// PublishBoard fans the board out to every viewer. A viewer whose buffer is
// full is disconnected rather than allowed to slow the others down.
func (h *Hub) PublishBoard(_ context.Context, item board.Board) error {
	frame, err := encodeFrame(ServerFrame{Type: FrameBoard, Payload: item})
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}

	h.mu.RLock()
	viewers := make([]*Conn, 0, len(h.viewers))
	for _, conn := range h.viewers {
		viewers = append(viewers, conn)
	}
	h.mu.RUnlock()

	for _, conn := range viewers {
		if conn.trySend(frame) {
			continue
		}
		h.logger.Warn("drop slow board viewer", "connection_id", conn.ID)
		h.unregister(conn)
		conn.close()
	}
	return nil
}

func (h *Hub) Producers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.producers)
}

func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.cancel()

	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.producers)+len(h.viewers))
	for _, conn := range h.producers {
		conns = append(conns, conn)
	}
	for _, conn := range h.viewers {
		conns = append(conns, conn)
	}
	h.producers = make(map[string]*Conn)
	h.viewers = make(map[string]*Conn)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

func (h *Hub) upgrade(w http.ResponseWriter, r *http.Request, origin string, kind role) (*Conn, bool) {
	connID, err := h.ids.NewID()
	if err != nil {
		http.Error(w, "cannot assign connection id", http.StatusInternalServerError)
		return nil, false
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "role", string(kind), "error", err)
		return nil, false
	}

	conn := newConn(connID, origin, kind, ws, h.logger)
	conn.logger.Info("websocket connected")
	h.reply(conn, ServerFrame{Type: FrameHello, Payload: helloPayload{
		ConnectionID:  connID,
		OriginChannel: origin,
		Role:          string(kind),
	}})
	return conn, true
}

func (h *Hub) start(conn *Conn, onFrame func(raw []byte)) {
	go conn.writePump(h.ctx)
	go func() {
		conn.readPump(h.ctx, onFrame)
		h.unregister(conn)
		conn.logger.Info("websocket disconnected")
	}()
}

func (h *Hub) unregister(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch conn.role {
	case roleProducer:
		if current := h.producers[conn.Origin]; current == conn {
			delete(h.producers, conn.Origin)
		}
	case roleViewer:
		delete(h.viewers, conn.ID)
	}
}

// handleProducerFrame applies one inbound event and acknowledges it. The ack
// is sent as soon as the store mutation returns; refresh cycles never block it.
func (h *Hub) handleProducerFrame(conn *Conn, raw []byte) {
	h.dispatch(conn, func() ServerFrame {
		frame, err := decodeFrame(raw)
		if err != nil {
			return ServerFrame{Type: FrameError, Error: "malformed frame"}
		}
		if h.handler == nil {
			return ServerFrame{Type: FrameError, Error: usecase.ErrDependencyUnavailable.Error()}
		}

		result, err := h.handler.HandleEvent(h.ctx, usecase.Event{
			Type:          match.EventType(frame.Type),
			OriginChannel: conn.Origin,
			Payload:       frame.Payload,
		})
		if err != nil {
			return ServerFrame{Type: FrameError, Payload: result, Error: err.Error()}
		}
		return ServerFrame{Type: FrameAck, Payload: result}
	})
}

func (h *Hub) handleViewerFrame(conn *Conn, raw []byte) {
	h.dispatch(conn, func() ServerFrame {
		frame, err := decodeFrame(raw)
		if err != nil {
			return ServerFrame{Type: FrameError, Error: "malformed frame"}
		}
		if h.handler == nil {
			return ServerFrame{Type: FrameError, Error: usecase.ErrDependencyUnavailable.Error()}
		}

		var payload viewerMatchPayload
		if len(frame.Payload) > 0 {
			if err := sonic.Unmarshal(frame.Payload, &payload); err != nil {
				return ServerFrame{Type: FrameError, Error: "malformed payload"}
			}
		}

		switch frame.Type {
		case FrameDismiss:
			err = h.handler.Dismiss(h.ctx, payload.MatchID)
		case FrameNavigate:
			err = h.handler.Navigate(h.ctx, payload.MatchID, payload.Href)
		case FrameBoard:
			return ServerFrame{Type: FrameBoard, Payload: h.handler.Board(h.ctx)}
		default:
			err = fmt.Errorf("%w: unknown frame type %q", usecase.ErrInvalidInput, frame.Type)
		}
		if err != nil {
			return ServerFrame{Type: FrameError, Payload: payload, Error: err.Error()}
		}
		return ServerFrame{Type: FrameAck, Payload: payload}
	})
}

// dispatch runs one frame handler with panic isolation so a bad frame cannot
// take the connection or the process down.
func (h *Hub) dispatch(conn *Conn, handle func() ServerFrame) {
	var reply ServerFrame
	var catcher panics.Catcher
	catcher.Try(func() { reply = handle() })
	if recovered := catcher.Recovered(); recovered != nil {
		conn.logger.Error("websocket frame handler panicked", "panic", recovered.String())
		reply = ServerFrame{Type: FrameError, Error: "internal error"}
	}
	h.reply(conn, reply)
}

func (h *Hub) reply(conn *Conn, frame ServerFrame) {
	raw, err := encodeFrame(frame)
	if err != nil {
		conn.logger.Warn("encode reply failed", "error", err)
		return
	}
	if !conn.trySend(raw) {
		conn.logger.Warn("reply dropped, send buffer full", "type", frame.Type)
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
