package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/auth"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

func testHub() *Hub {
	return New(config.ChannelConfig{PingInterval: time.Second, PongWait: 2 * time.Second})
}

// serve mounts h behind a stand-in for the auth middleware that takes the
// owner from the "owner" query parameter.
func serve(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")
		if owner != "" {
			r = r.WithContext(auth.WithOwner(r.Context(), owner))
		}
		h.ServeWS(w, r)
	}))
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, owner string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?owner=" + owner
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func invoke(t *testing.T, ws *websocket.Conn, id, target string) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(Frame{Type: FrameInvoke, InvocationID: id, Target: target}))
}

func readFrame(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

// TestHub_Websocket tests the channel end to end over a real socket.
//
// WHY: Clients only ever see the hub through frames; join acknowledgements and
// update delivery have to work exactly as the client library expects.
func TestHub_Websocket(t *testing.T) {
	t.Run("rejects unauthenticated upgrade", func(t *testing.T) {
		h := testHub()
		srv := serve(t, h)

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("join acknowledged then update delivered", func(t *testing.T) {
		h := testHub()
		srv := serve(t, h)
		ws := dial(t, srv, "o1")

		invoke(t, ws, "1", MethodJoinUserGroup)
		f := readFrame(t, ws)
		assert.Equal(t, FrameCompletion, f.Type)
		assert.Equal(t, "1", f.InvocationID)
		assert.Empty(t, f.Error)

		update := model.Ok([]model.PortfolioValuation{}, "")
		require.NoError(t, h.Publish(context.Background(), "o1", update))

		f = readFrame(t, ws)
		assert.Equal(t, FrameEvent, f.Type)
		assert.Equal(t, EventUpdate, f.Target)

		var got model.ValuationUpdate
		require.NoError(t, json.Unmarshal(f.Payload, &got))
		assert.True(t, got.Success)
	})

	t.Run("updates stay within the owner's group", func(t *testing.T) {
		h := testHub()
		srv := serve(t, h)
		a := dial(t, srv, "a")
		b := dial(t, srv, "b")

		invoke(t, a, "1", MethodJoinUserGroup)
		readFrame(t, a)
		invoke(t, b, "1", MethodJoinUserGroup)
		readFrame(t, b)

		require.NoError(t, h.Publish(context.Background(), "b", model.Fail[[]model.PortfolioValuation]("no portfolios found")))

		f := readFrame(t, b)
		assert.Equal(t, EventUpdate, f.Target)

		require.NoError(t, a.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
		_, _, err := a.ReadMessage()
		assert.Error(t, err, "owner a must not receive b's update")
	})

	t.Run("ping answers with pong", func(t *testing.T) {
		h := testHub()
		srv := serve(t, h)
		ws := dial(t, srv, "o1")

		invoke(t, ws, "p", MethodPing)
		pong := readFrame(t, ws)
		assert.Equal(t, FrameEvent, pong.Type)
		assert.Equal(t, EventPong, pong.Target)

		done := readFrame(t, ws)
		assert.Equal(t, FrameCompletion, done.Type)
		assert.Equal(t, "p", done.InvocationID)
	})

	t.Run("leave stops delivery", func(t *testing.T) {
		h := testHub()
		srv := serve(t, h)
		ws := dial(t, srv, "o1")

		invoke(t, ws, "1", MethodLeaveUserGroup)
		f := readFrame(t, ws)
		assert.Empty(t, f.Error)
		assert.Empty(t, h.Registry().Members("o1"))
	})

	t.Run("unknown method completes with error", func(t *testing.T) {
		h := testHub()
		srv := serve(t, h)
		ws := dial(t, srv, "o1")

		invoke(t, ws, "x", "DropTables")
		f := readFrame(t, ws)
		assert.Equal(t, "x", f.InvocationID)
		assert.Contains(t, f.Error, "unknown method")
	})

	t.Run("disconnect leaves the group", func(t *testing.T) {
		h := testHub()
		srv := serve(t, h)
		ws := dial(t, srv, "o1")

		invoke(t, ws, "1", MethodJoinUserGroup)
		readFrame(t, ws)
		require.Len(t, h.Registry().Members("o1"), 1)

		ws.Close()
		require.Eventually(t, func() bool {
			return len(h.Registry().Members("o1")) == 0 && h.ConnectionCount() == 0
		}, 2*time.Second, 10*time.Millisecond)
	})
}

// TestHub_Groups tests group operations without a socket.
func TestHub_Groups(t *testing.T) {
	t.Run("join on a closed connection leaves registry unchanged", func(t *testing.T) {
		h := testHub()

		err := h.JoinGroup("gone", "o1")
		assert.ErrorIs(t, err, apperrors.ErrGroupOperationFailed)
		assert.Zero(t, h.Registry().GroupCount())
	})

	t.Run("join racing disconnect leaves no stale membership", func(t *testing.T) {
		h := testHub()
		for i := range 200 {
			c := &conn{id: fmt.Sprintf("c%d", i), ownerID: "o1", send: make(chan []byte, 1), done: make(chan struct{})}
			h.addConn(c)

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = h.JoinGroup(c.id, "o1")
			}()
			go func() {
				defer wg.Done()
				h.removeConn(c)
			}()
			wg.Wait()
		}

		assert.Zero(t, h.ConnectionCount())
		assert.Empty(t, h.Registry().Members("o1"))
		assert.Zero(t, h.Registry().GroupCount())
	})

	t.Run("publish to empty group succeeds", func(t *testing.T) {
		h := testHub()
		assert.NoError(t, h.Publish(context.Background(), "nobody", map[string]string{}))
	})

	t.Run("slow consumer is dropped", func(t *testing.T) {
		h := testHub()
		c := &conn{id: "slow", ownerID: "o1", send: make(chan []byte, 1), done: make(chan struct{})}
		h.addConn(c)
		require.NoError(t, h.JoinGroup(c.id, "o1"))

		require.NoError(t, h.Publish(context.Background(), "o1", 1))
		assert.Equal(t, 1, h.ConnectionCount())

		require.NoError(t, h.Publish(context.Background(), "o1", 2))
		assert.Zero(t, h.ConnectionCount())
		assert.Empty(t, h.Registry().Members("o1"))
		select {
		case <-c.done:
		default:
			t.Fatal("dropped connection was not closed")
		}
	})

	t.Run("unencodable payload is a group operation failure", func(t *testing.T) {
		h := testHub()
		err := h.Publish(context.Background(), "o1", make(chan int))
		assert.ErrorIs(t, err, apperrors.ErrGroupOperationFailed)
	})
}

type memoryBackplane struct {
	mu        sync.Mutex
	published map[string][][]byte
	deliver   func(ownerID string, frame []byte)
	ready     chan struct{}
	err       error
}

func newMemoryBackplane() *memoryBackplane {
	return &memoryBackplane{published: map[string][][]byte{}, ready: make(chan struct{})}
}

func (b *memoryBackplane) Publish(_ context.Context, ownerID string, frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.published[ownerID] = append(b.published[ownerID], frame)
	if b.deliver != nil {
		b.deliver(ownerID, frame)
	}
	return nil
}

func (b *memoryBackplane) Subscribe(ctx context.Context, deliver func(string, []byte)) error {
	b.mu.Lock()
	b.deliver = deliver
	b.mu.Unlock()
	close(b.ready)
	<-ctx.Done()
	return nil
}

// TestHub_Backplane tests publishing through a shared backplane.
//
// WHY: With several instances the publishing instance is rarely the one
// holding the socket; delivery must come back through the subscription.
func TestHub_Backplane(t *testing.T) {
	t.Run("publish goes through backplane and is delivered locally", func(t *testing.T) {
		bp := newMemoryBackplane()
		h := testHub().WithBackplane(bp)
		c := &conn{id: "c1", ownerID: "o1", send: make(chan []byte, 4), done: make(chan struct{})}
		h.addConn(c)
		require.NoError(t, h.JoinGroup(c.id, "o1"))

		ctx, cancel := context.WithCancel(context.Background())
		runDone := make(chan error, 1)
		go func() { runDone <- h.Run(ctx) }()
		<-bp.ready

		require.NoError(t, h.Publish(context.Background(), "o1", "hello"))
		assert.Len(t, bp.published["o1"], 1)

		select {
		case frame := <-c.send:
			var f Frame
			require.NoError(t, json.Unmarshal(frame, &f))
			assert.Equal(t, EventUpdate, f.Target)
			assert.JSONEq(t, `"hello"`, string(f.Payload))
		case <-time.After(time.Second):
			t.Fatal("frame not delivered")
		}

		cancel()
		assert.NoError(t, <-runDone)
	})

	t.Run("backplane failure is a group operation failure", func(t *testing.T) {
		bp := newMemoryBackplane()
		bp.err = errors.New("connection refused")
		h := testHub().WithBackplane(bp)

		err := h.Publish(context.Background(), "o1", "x")
		assert.ErrorIs(t, err, apperrors.ErrGroupOperationFailed)
		assert.ErrorContains(t, err, "connection refused")
	})
}
