// Package hub is the server side of the broadcast channel: a websocket
// endpoint where each connection belongs to its owner's group and receives
// every valuation update published for that owner.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/auth"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/config"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 16
)

// Hub owns every live connection on this instance.
type Hub struct {
	registry     *Registry
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	pongWait     time.Duration
	sendBuffer   int
	backplane    Backplane

	mu    sync.RWMutex
	conns map[string]*conn
}

type conn struct {
	id      string
	ownerID string
	ws      *websocket.Conn
	send    chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func (c *conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// New creates a Hub with the keep-alive settings from cfg.
func New(cfg config.ChannelConfig) *Hub {
	return &Hub{
		registry:     NewRegistry(),
		pingInterval: cfg.PingInterval,
		pongWait:     cfg.PongWait,
		sendBuffer:   sendBufferSize,
		conns:        make(map[string]*conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the CORS layer and the access token.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// WithBackplane routes Publish through b so every instance delivers to its
// local members. Run must be started for frames to arrive.
func (h *Hub) WithBackplane(b Backplane) *Hub {
	h.backplane = b
	return h
}

// Registry exposes the group registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ConnectionCount returns the number of open connections on this instance.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// GroupCount returns the number of owners with at least one subscriber here.
func (h *Hub) GroupCount() int {
	return h.registry.GroupCount()
}

// Run delivers backplane frames until ctx is cancelled. Without a backplane
// it simply waits.
func (h *Hub) Run(ctx context.Context) error {
	if h.backplane == nil {
		<-ctx.Done()
		return nil
	}
	return h.backplane.Subscribe(ctx, h.deliverLocal)
}

// ServeWS upgrades an authenticated request and auto-joins the owner's group.
// It must sit behind auth.Authenticator.Middleware.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		response.RespondError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn().Err(err).Str("owner", ownerID).Msg("websocket upgrade failed")
		return
	}

	c := &conn{
		id:      uuid.New().String(),
		ownerID: ownerID,
		ws:      ws,
		send:    make(chan []byte, h.sendBuffer),
		done:    make(chan struct{}),
	}
	h.addConn(c)

	if err := h.JoinGroup(c.id, ownerID); err != nil {
		log.Error().Err(err).Str("conn", c.id).Msg("auto-join failed")
	}

	log.Debug().Str("conn", c.id).Str("owner", ownerID).Msg("websocket connected")

	go h.writePump(c)
	go h.readPump(c)
}

// JoinGroup adds a registered connection to the owner's group.
// The membership change happens under the connection lock, so a concurrent
// removeConn either sees the join and undoes it or makes the join fail.
func (h *Hub) JoinGroup(connID, ownerID string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.conns[connID]; !ok {
		return fmt.Errorf("%w: join: connection %s is closed", apperrors.ErrGroupOperationFailed, connID)
	}
	h.registry.Join(ownerID, connID)
	return nil
}

// LeaveGroup removes the connection from the owner's group.
func (h *Hub) LeaveGroup(connID, ownerID string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.conns[connID]; !ok {
		return fmt.Errorf("%w: leave: connection %s is closed", apperrors.ErrGroupOperationFailed, connID)
	}
	h.registry.Leave(ownerID, connID)
	return nil
}

// Publish sends payload as an update event to every member of the owner's
// group. Publishing to an empty group succeeds.
func (h *Hub) Publish(ctx context.Context, ownerID string, payload any) error {
	frame, err := EncodeEvent(EventUpdate, payload)
	if err != nil {
		return fmt.Errorf("%w: encode update: %v", apperrors.ErrGroupOperationFailed, err)
	}

	if h.backplane != nil {
		if err := h.backplane.Publish(ctx, ownerID, frame); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrGroupOperationFailed, err)
		}
		return nil
	}

	h.deliverLocal(ownerID, frame)
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	deadline := time.Now().Add(writeWait)
	for _, c := range conns {
		if c.ws != nil {
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		}
		h.removeConn(c)
	}
}

func (h *Hub) deliverLocal(ownerID string, frame []byte) {
	for _, id := range h.registry.Members(ownerID) {
		h.mu.RLock()
		c, ok := h.conns[id]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		if !c.trySend(frame) {
			log.Warn().
				Err(apperrors.ErrGroupOperationFailed).
				Str("conn", c.id).
				Str("owner", ownerID).
				Msg("send queue full, dropping connection")
			h.removeConn(c)
		}
	}
}

func (c *conn) trySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (h *Hub) addConn(c *conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

// removeConn unregisters c and leaves all its groups. Safe to call repeatedly.
func (h *Hub) removeConn(c *conn) {
	h.mu.Lock()
	delete(h.conns, c.id)
	h.mu.Unlock()

	h.registry.RemoveConnection(c.id)
	c.close()
}

func (h *Hub) readPump(c *conn) {
	defer func() {
		h.removeConn(c)
		log.Debug().Str("conn", c.id).Str("owner", c.ownerID).Msg("websocket disconnected")
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(h.pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn", c.id).Msg("websocket read error")
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Type != FrameInvoke {
			log.Debug().Str("conn", c.id).Msg("ignoring malformed frame")
			continue
		}
		h.invoke(c, f)
	}
}

func (h *Hub) invoke(c *conn, f Frame) {
	var err error
	switch f.Target {
	case MethodJoinUserGroup:
		err = h.JoinGroup(c.id, c.ownerID)
	case MethodLeaveUserGroup:
		err = h.LeaveGroup(c.id, c.ownerID)
	case MethodPing:
		pong, _ := EncodeEvent(EventPong, nil)
		c.trySend(pong)
	default:
		err = fmt.Errorf("unknown method %q", f.Target)
	}

	if err != nil {
		log.Warn().Err(err).Str("conn", c.id).Str("method", f.Target).Msg("invocation failed")
	}
	if f.InvocationID != "" && !c.trySend(encodeCompletion(f.InvocationID, err)) {
		h.removeConn(c)
	}
}

func (h *Hub) writePump(c *conn) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.removeConn(c)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.removeConn(c)
				return
			}
		}
	}
}
