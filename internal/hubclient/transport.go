package hubclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
)

// Conn is one live transport to the hub.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens transports. Each call must return a fresh connection.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// TokenSource returns the access token to present on the next dial.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// WebsocketDialer dials the hub endpoint over gorilla/websocket.
type WebsocketDialer struct {
	url      string
	token    TokenSource
	dialer   *websocket.Dialer
	pongWait time.Duration
}

// NewWebsocketDialer creates a dialer for url (ws:// or wss://). The token is
// fetched on every dial so a refreshed credential is picked up on reconnect.
func NewWebsocketDialer(url string, token TokenSource) *WebsocketDialer {
	return &WebsocketDialer{
		url:      url,
		token:    token,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		pongWait: 30 * time.Second,
	}
}

// WithPongWait sets how long the connection may stay silent (no frames and no
// server pings) before it is treated as lost.
func (d *WebsocketDialer) WithPongWait(wait time.Duration) *WebsocketDialer {
	d.pongWait = wait
	return d
}

func (d *WebsocketDialer) Dial(ctx context.Context) (Conn, error) {
	token, err := d.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := d.dialer.DialContext(ctx, d.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
		}
		return nil, err
	}

	c := &wsConn{ws: ws, pongWait: d.pongWait}
	if c.pongWait > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(c.pongWait))
		ws.SetPingHandler(func(data string) error {
			_ = ws.SetReadDeadline(time.Now().Add(c.pongWait))
			c.writeMu.Lock()
			defer c.writeMu.Unlock()
			return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		})
	}
	return c, nil
}

type wsConn struct {
	ws       *websocket.Conn
	pongWait time.Duration
	// gorilla allows a single concurrent writer
	writeMu sync.Mutex
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err == nil && c.pongWait > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	}
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
