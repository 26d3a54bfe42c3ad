package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthware/stovetop/pkg/types"
)

// fakeConn is an in-memory wsConn fed by the test.
type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-f.frames:
		return data, nil
	case <-f.closed:
		return nil, errors.New("connection closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeConn) Write(ctx context.Context, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("connection closed")
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	f.mu.Lock()
	f.writes = append(f.writes, append([]byte(nil), data...))
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) wrote() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

func (f *fakeConn) push(t *testing.T, frame types.ServerFrame) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	f.frames <- data
}

// recorder captures reconciliation batches.
type recorder struct {
	mu      sync.Mutex
	batches [][]types.ServerTimer
}

func (r *recorder) ApplyServerTimers(updates []types.ServerTimer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, updates)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestServeDispatchesFrames(t *testing.T) {
	rec := &recorder{}
	c := NewClient(Config{BaseURL: "http://authority", PingInterval: time.Hour}, rec)
	conn := newFakeConn()

	done := make(chan struct{})
	go func() {
		c.serve(conn)
		close(done)
	}()

	conn.push(t, types.ServerFrame{Type: types.FrameInit, Timers: []types.ServerTimer{
		{ID: "t1", Remaining: 120, Status: types.TimerRunning},
	}})
	conn.push(t, types.ServerFrame{Type: types.FrameUpdate, Timers: []types.ServerTimer{
		{ID: "t1", Remaining: 119, Status: types.TimerRunning},
	}})
	conn.push(t, types.ServerFrame{Type: types.FramePong})
	conn.push(t, types.ServerFrame{Type: types.FrameError, Message: "rate limited"})
	conn.frames <- []byte("{malformed")
	conn.push(t, types.ServerFrame{Type: "mystery"})

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 2*time.Millisecond)

	conn.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("serve did not return after close")
	}

	// Only init and update reached the reconciler.
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, 120, rec.batches[0][0].Remaining)
	assert.Equal(t, 119, rec.batches[1][0].Remaining)
}

func TestServeSendsKeepalivePings(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://authority", PingInterval: 5 * time.Millisecond}, nil)
	conn := newFakeConn()

	done := make(chan struct{})
	go func() {
		c.serve(conn)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(conn.wrote()) >= 2 }, time.Second, 2*time.Millisecond)
	conn.Close()
	<-done

	var frame types.ClientFrame
	require.NoError(t, json.Unmarshal(conn.wrote()[0], &frame))
	assert.Equal(t, types.FramePing, frame.Type)
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	c := NewClient(Config{
		BaseURL:     "http://authority",
		BackoffBase: time.Millisecond,
		BackoffMax:  4 * time.Millisecond,
		MaxAttempts: 3,
	}, nil)

	var mu sync.Mutex
	dials := 0
	c.dial = func(ctx context.Context, url string) (wsConn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("connection refused")
	}

	c.Start()
	select {
	case <-c.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not give up")
	}

	// The initial dial plus MaxAttempts retries.
	mu.Lock()
	assert.Equal(t, 4, dials)
	mu.Unlock()

	// Stop after exhaustion returns immediately.
	c.Stop()
}

func TestReconnectCounterResetsOnSuccess(t *testing.T) {
	c := NewClient(Config{
		BaseURL:     "http://authority",
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		MaxAttempts: 1,
	}, nil)

	// Every dial succeeds with a socket that drops straight away. With
	// the counter resetting on success the loop reconnects well past
	// MaxAttempts.
	var mu sync.Mutex
	dials := 0
	c.dial = func(ctx context.Context, url string) (wsConn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		conn := newFakeConn()
		conn.Close()
		return conn, nil
	}

	c.Start()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials >= 4
	}, 2*time.Second, 2*time.Millisecond)

	c.Stop()
}

func TestWsURL(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://timers.example.com", UserID: "u-1"}, nil)
	assert.Equal(t, "ws://timers.example.com/v1/timers/ws?userId=u-1", c.wsURL())

	c = NewClient(Config{BaseURL: "https://timers.example.com", UserID: "u-1"}, nil)
	assert.Equal(t, "wss://timers.example.com/v1/timers/ws?userId=u-1", c.wsURL())
}

func TestCommandPayload(t *testing.T) {
	var mu sync.Mutex
	var got types.TimerCommand
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		_ = json.Unmarshal(body, &got)
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, UserID: "u-1", CreationID: "creation-1"}, nil)

	step := 2
	c.sendCommand(c.command(types.CommandStart, &types.Timer{
		ID:        "t1",
		Label:     "Braise",
		Duration:  3600,
		Remaining: 3599,
		Status:    types.TimerRunning,
		StepIndex: &step,
	}))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
	assert.Equal(t, types.CommandStart, got.Action)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "t1", got.TimerID)
	assert.Equal(t, "creation-1", got.CreationID)
	assert.Equal(t, 3600, got.Duration)
	assert.Equal(t, 3599, got.Remaining)
	require.NotNil(t, got.StepIndex)
	assert.Equal(t, 2, *got.StepIndex)
}

func TestCommandFailureIsSoft(t *testing.T) {
	// Nothing listening: the post fails, the call returns.
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	c.httpc.Timeout = 100 * time.Millisecond

	c.sendCommand(c.command(types.CommandPause, &types.Timer{ID: "t1"}))

	// Rejected responses are equally soft.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()
	c.cfg.BaseURL = ts.URL
	c.sendCommand(c.command(types.CommandPause, &types.Timer{ID: "t1"}))
}
