// Package hubclient is a reconnecting subscriber for the broadcast channel.
//
// A Client keeps one transport to the hub, joins the owner's group on every
// connection and dispatches incoming events to registered handlers. Handlers
// live in the client, not the transport, so they survive reconnects.
package hubclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/hub"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

// State is the client's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	// StateFailed means automatic retry gave up; Start or Refresh resumes.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StopMode selects what Stop tears down.
type StopMode int

const (
	// SoftStop drops the transport and keeps registered handlers.
	SoftStop StopMode = iota
	// HardStop also clears every handler.
	HardStop
)

// Handler receives the raw payload of an event.
type Handler func(payload json.RawMessage)

// Options configures reconnect behaviour.
type Options struct {
	// MaxRetries is the number of consecutive failed attempts tolerated
	// before giving up.
	MaxRetries int
	// Backoff holds the delay before each retry; the last entry repeats.
	Backoff []time.Duration
	// InvokeTimeout bounds the wait for an invocation's completion.
	InvokeTimeout time.Duration
	// OnGiveUp is called once retries are exhausted, with an error wrapping
	// apperrors.ErrConnectionLost.
	OnGiveUp func(error)
}

// Client is safe for concurrent use.
type Client struct {
	dialer Dialer
	opts   Options
	starts singleflight.Group

	mu         sync.Mutex
	state      State
	session    *session
	generation uint64
	failures   int
	retryTimer *time.Timer

	handlersMu sync.RWMutex
	handlers   map[string]map[string]Handler
}

// New creates a disconnected client. Call Start to connect.
func New(dialer Dialer, opts Options) *Client {
	if len(opts.Backoff) == 0 {
		opts.Backoff = []time.Duration{0}
	}
	if opts.InvokeTimeout <= 0 {
		opts.InvokeTimeout = 10 * time.Second
	}
	return &Client{
		dialer:   dialer,
		opts:     opts,
		handlers: make(map[string]map[string]Handler),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the client is connected and joined.
func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// Start connects and joins the owner's group. Concurrent calls share a single
// attempt and calling Start while connected is a no-op. A failed attempt
// schedules automatic retries.
func (c *Client) Start(ctx context.Context) error {
	_, err, _ := c.starts.Do("start", func() (any, error) {
		return nil, c.connect(ctx)
	})
	return err
}

// EnsureConnected starts the client unless it is already connected.
func (c *Client) EnsureConnected(ctx context.Context) error {
	if c.Connected() {
		return nil
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	if !c.Connected() {
		return fmt.Errorf("%w: not connected", apperrors.ErrConnectionLost)
	}
	return nil
}

// Refresh reconnects with a fresh retry budget, picking up a refreshed
// access token. Handlers are kept.
func (c *Client) Refresh(ctx context.Context) error {
	c.Stop(ctx, SoftStop)
	return c.Start(ctx)
}

// ResetRetries clears the consecutive failure count.
func (c *Client) ResetRetries() {
	c.mu.Lock()
	c.failures = 0
	c.mu.Unlock()
}

// Stop leaves the group (best effort), closes the transport and cancels
// pending retries.
func (c *Client) Stop(ctx context.Context, mode StopMode) {
	c.mu.Lock()
	c.generation++
	c.stopRetryLocked()
	s := c.session
	c.session = nil
	wasConnected := c.state == StateConnected
	c.state = StateDisconnected
	c.failures = 0
	c.mu.Unlock()

	if s != nil {
		if wasConnected {
			if err := c.invoke(ctx, s, hub.MethodLeaveUserGroup); err != nil {
				log.Debug().Err(err).Msg("leave on stop failed")
			}
		}
		_ = s.conn.Close()
	}

	if mode == HardStop {
		c.handlersMu.Lock()
		c.handlers = make(map[string]map[string]Handler)
		c.handlersMu.Unlock()
	}
}

// Ping round-trips a Ping invocation.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	connected := c.state == StateConnected
	c.mu.Unlock()
	if s == nil || !connected {
		return fmt.Errorf("%w: not connected", apperrors.ErrConnectionLost)
	}
	return c.invoke(ctx, s, hub.MethodPing)
}

// On registers handler for event under key, replacing any handler already
// registered with the same key.
func (c *Client) On(event, key string, handler Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[string]Handler)
	}
	c.handlers[event][key] = handler
}

// Off removes the handler registered for event under key.
func (c *Client) Off(event, key string) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	delete(c.handlers[event], key)
	if len(c.handlers[event]) == 0 {
		delete(c.handlers, event)
	}
}

// OnUpdate registers fn for valuation updates.
func (c *Client) OnUpdate(key string, fn func(model.ValuationUpdate)) {
	c.On(hub.EventUpdate, key, func(payload json.RawMessage) {
		var update model.ValuationUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			log.Warn().Err(err).Msg("discarding undecodable update")
			return
		}
		fn(update)
	})
}

// OffUpdate removes the update handler registered under key.
func (c *Client) OffUpdate(key string) {
	c.Off(hub.EventUpdate, key)
}

// HandlerCount returns the number of handlers registered for event.
func (c *Client) HandlerCount(event string) int {
	c.handlersMu.RLock()
	defer c.handlersMu.RUnlock()
	return len(c.handlers[event])
}

func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	if c.state == StateFailed {
		c.failures = 0
	}
	c.stopRetryLocked()
	c.generation++
	gen := c.generation
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		err = fmt.Errorf("%w: dial: %w", apperrors.ErrConnectionLost, err)
		c.attemptFailed(gen, err)
		return err
	}

	s := newSession(conn)
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("%w: stopped while connecting", apperrors.ErrConnectionLost)
	}
	c.session = s
	c.mu.Unlock()

	go c.readLoop(gen, s)
	go c.dispatchLoop(gen, s)

	if err := c.invoke(ctx, s, hub.MethodJoinUserGroup); err != nil {
		_ = conn.Close()
		c.attemptFailed(gen, err)
		return err
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return fmt.Errorf("%w: stopped while connecting", apperrors.ErrConnectionLost)
	}
	if s.isClosed() {
		c.mu.Unlock()
		err := fmt.Errorf("%w: closed after join", apperrors.ErrConnectionLost)
		c.attemptFailed(gen, err)
		return err
	}
	c.state = StateConnected
	c.failures = 0
	c.mu.Unlock()

	log.Info().Msg("Connected to valuation hub")
	return nil
}

// attemptFailed records a failed connection attempt of generation gen.
func (c *Client) attemptFailed(gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.failures++
	// This attempt is over; let the retry timer start a new flight even if
	// the current Start call has not returned yet.
	c.starts.Forget("start")
	giveUp := c.scheduleRetryLocked(cause)
	c.mu.Unlock()

	log.Warn().Err(cause).Int("failures", c.failuresSnapshot()).Msg("hub connection attempt failed")
	c.notifyGiveUp(giveUp)
}

// connectionLost handles the transport of an established connection closing.
// During the join handshake the pending invocation reports the failure instead.
func (c *Client) connectionLost(gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.generation || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.failures = 0
	giveUp := c.scheduleRetryLocked(cause)
	c.mu.Unlock()

	log.Warn().Err(cause).Msg("hub connection lost")
	c.notifyGiveUp(giveUp)
}

// scheduleRetryLocked arms the retry timer, or moves to StateFailed and
// returns the give-up error once the retry budget is spent.
func (c *Client) scheduleRetryLocked(cause error) error {
	if c.failures >= c.opts.MaxRetries {
		c.state = StateFailed
		return fmt.Errorf("%w: giving up after %d attempts: %v", apperrors.ErrConnectionLost, c.failures, cause)
	}

	c.state = StateReconnecting
	gen := c.generation
	c.retryTimer = time.AfterFunc(backoffDelay(c.opts.Backoff, c.failures), func() {
		c.retry(gen)
	})
	return nil
}

func (c *Client) retry(gen uint64) {
	c.mu.Lock()
	stale := gen != c.generation || c.state != StateReconnecting
	c.mu.Unlock()
	if stale {
		return
	}
	if err := c.Start(context.Background()); err != nil {
		log.Debug().Err(err).Msg("hub reconnect attempt failed")
	}
}

func (c *Client) stopRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

func (c *Client) failuresSnapshot() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

func (c *Client) notifyGiveUp(err error) {
	if err == nil {
		return
	}
	log.Error().Err(err).Msg("hub reconnect gave up")
	if c.opts.OnGiveUp != nil {
		c.opts.OnGiveUp(err)
	}
}

// backoffDelay returns the delay before retry n (0-based); the last entry repeats.
func backoffDelay(backoff []time.Duration, n int) time.Duration {
	return backoff[min(n, len(backoff)-1)]
}

// readLoop routes completions directly and queues events for dispatchLoop,
// so a handler may invoke (or Stop) without blocking completion delivery.
func (c *Client) readLoop(gen uint64, s *session) {
	defer close(s.events)
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			s.closeWith(fmt.Errorf("%w: %v", apperrors.ErrConnectionLost, err))
			c.connectionLost(gen, err)
			return
		}

		var f hub.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Debug().Err(err).Msg("ignoring malformed frame")
			continue
		}

		switch f.Type {
		case hub.FrameCompletion:
			s.complete(f)
		case hub.FrameEvent:
			s.events <- f
		}
	}
}

// dispatchLoop runs handlers in arrival order. Events that arrive after the
// session was stopped or replaced are dropped.
func (c *Client) dispatchLoop(gen uint64, s *session) {
	for f := range s.events {
		c.mu.Lock()
		current := gen == c.generation
		c.mu.Unlock()
		if current {
			c.dispatch(f.Target, f.Payload)
		}
	}
}

func (c *Client) dispatch(event string, payload json.RawMessage) {
	c.handlersMu.RLock()
	handlers := make([]Handler, 0, len(c.handlers[event]))
	for _, h := range c.handlers[event] {
		handlers = append(handlers, h)
	}
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}

func (c *Client) invoke(ctx context.Context, s *session, method string) error {
	id := uuid.New().String()
	done, err := s.register(id)
	if err != nil {
		return err
	}
	defer s.unregister(id)

	frame, _ := json.Marshal(hub.Frame{Type: hub.FrameInvoke, InvocationID: id, Target: method})
	if err := s.conn.WriteMessage(frame); err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrConnectionLost, method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.InvokeTimeout)
	defer cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, apperrors.ErrConnectionLost) {
			return fmt.Errorf("%w: %s: %v", apperrors.ErrGroupOperationFailed, method, err)
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// eventBuffer bounds events queued behind a slow handler before the read
// loop stops reading.
const eventBuffer = 64

// session tracks the invocations waiting on one transport.
type session struct {
	conn   Conn
	events chan hub.Frame

	mu      sync.Mutex
	pending map[string]chan error
	closed  error
}

func newSession(conn Conn) *session {
	return &session{
		conn:    conn,
		events:  make(chan hub.Frame, eventBuffer),
		pending: make(map[string]chan error),
	}
}

func (s *session) register(id string) (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed != nil {
		return nil, s.closed
	}
	ch := make(chan error, 1)
	s.pending[id] = ch
	return ch, nil
}

func (s *session) unregister(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *session) complete(f hub.Frame) {
	s.mu.Lock()
	ch, ok := s.pending[f.InvocationID]
	delete(s.pending, f.InvocationID)
	s.mu.Unlock()
	if !ok {
		return
	}
	if f.Error != "" {
		ch <- errors.New(f.Error)
		return
	}
	ch <- nil
}

// closeWith fails every pending invocation with err.
func (s *session) closeWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = err
	for id, ch := range s.pending {
		ch <- err
		delete(s.pending, id)
	}
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed != nil
}
