package hubclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/hub"
)

var errClosed = errors.New("use of closed connection")

// fakeConn answers invocations the way the hub does.
type fakeConn struct {
	in        chan []byte
	done      chan struct{}
	closeOnce sync.Once
	joinErr   string

	mu      sync.Mutex
	invoked []string
}

func newFakeConn(joinErr string) *fakeConn {
	return &fakeConn{in: make(chan []byte, 32), done: make(chan struct{}), joinErr: joinErr}
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case <-f.done:
		return nil, errClosed
	default:
	}
	select {
	case m := <-f.in:
		return m, nil
	case <-f.done:
		return nil, errClosed
	}
}

func (f *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-f.done:
		return errClosed
	default:
	}

	var frame hub.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	f.mu.Lock()
	f.invoked = append(f.invoked, frame.Target)
	f.mu.Unlock()

	completion := hub.Frame{Type: hub.FrameCompletion, InvocationID: frame.InvocationID}
	switch frame.Target {
	case hub.MethodJoinUserGroup:
		completion.Error = f.joinErr
	case hub.MethodPing:
		pong, _ := hub.EncodeEvent(hub.EventPong, nil)
		f.push(pong)
	}
	b, _ := json.Marshal(completion)
	f.push(b)
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

func (f *fakeConn) push(frame []byte) {
	select {
	case f.in <- frame:
	case <-f.done:
	}
}

func (f *fakeConn) pushEvent(target string, payload any) {
	b, _ := hub.EncodeEvent(target, payload)
	f.push(b)
}

func (f *fakeConn) invocations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invoked...)
}

func (f *fakeConn) closed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// fakeDialer hands out fakeConns and fails the first failDials attempts.
type fakeDialer struct {
	mu        sync.Mutex
	conns     []*fakeConn
	dials     int
	failDials int
	alwaysErr error
	joinErr   string
	gate      chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.alwaysErr != nil {
		return nil, d.alwaysErr
	}
	if d.failDials > 0 {
		d.failDials--
		return nil, errors.New("connection refused")
	}
	c := newFakeConn(d.joinErr)
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}
