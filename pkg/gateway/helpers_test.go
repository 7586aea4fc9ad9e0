package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vango-dev/vgate/pkg/protocol"
	"github.com/vango-dev/vgate/pkg/transport/transporttest"
)

// fakeClock fires timers only when Advance is called. Timer callbacks run
// on the calling goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	armed  []time.Duration
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	c.armed = append(c.armed, d)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		due := c.due(target)
		if due == nil {
			break
		}
		due.fired = true
		c.now = due.at
		c.mu.Unlock()
		due.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

func (c *fakeClock) due(target time.Time) *fakeTimer {
	var active []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(target) {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return nil
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].at.Before(active[j].at) })
	return active[0]
}

// Armed returns the duration of every timer armed so far.
func (c *fakeClock) Armed() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.armed...)
}

const testTimeout = 2 * time.Second

type harness struct {
	t      *testing.T
	m      *Manager
	clock  *fakeClock
	dialer *transporttest.Dialer
}

// newHarness builds a manager on a fake clock and transport. The first
// heartbeat fires after half an interval.
func newHarness(t *testing.T, configure ...func(*Config)) *harness {
	t.Helper()

	dialer := transporttest.NewDialer()
	cfg := DefaultConfig().
		WithToken("test-token").
		WithIntents(protocol.IntentGuilds | protocol.IntentGuildMessages).
		WithDialer(dialer).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, fn := range configure {
		fn(cfg)
	}

	clk := newFakeClock()
	m := newManager(cfg, clk, func(d time.Duration) time.Duration { return d / 2 })
	t.Cleanup(m.Destroy)

	return &harness{t: t, m: m, clock: clk, dialer: dialer}
}

// flush waits until every queued event has been processed.
func (h *harness) flush() {
	h.t.Helper()
	require.NoError(h.t, h.m.call(context.Background(), func() {}))
}

func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	h.clock.Advance(d)
	h.flush()
}

func (h *harness) connectAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errCh <- h.m.Connect(ctx)
	}()
	return errCh
}

func (h *harness) nextConn() *transporttest.Conn {
	h.t.Helper()
	c, ok := h.dialer.Next(testTimeout)
	require.True(h.t, ok, "expected a dial")
	return c
}

func (h *harness) noConn() {
	h.t.Helper()
	h.flush()
	c, ok := h.dialer.Next(20 * time.Millisecond)
	require.False(h.t, ok, "unexpected dial to %v", c)
}

func (h *harness) deliver(c *transporttest.Conn, frame string) {
	h.t.Helper()
	c.Deliver(frame)
	h.flush()
}

func (h *harness) hello(c *transporttest.Conn, intervalMs int) {
	h.t.Helper()
	h.deliver(c, fmt.Sprintf(`{"op":10,"d":{"heartbeat_interval":%d}}`, intervalMs))
}

func (h *harness) serverClose(c *transporttest.Conn, code int) {
	h.t.Helper()
	c.ServerClose(code, "")
	h.flush()
}

type sentFrame struct {
	Op protocol.Opcode `json:"op"`
	D  json.RawMessage `json:"d"`
}

func (h *harness) nextFrame(c *transporttest.Conn) sentFrame {
	h.t.Helper()
	raw, ok := c.NextSent(testTimeout)
	require.True(h.t, ok, "expected a frame")
	var f sentFrame
	require.NoError(h.t, json.Unmarshal(raw, &f))
	return f
}

func (h *harness) noFrame(c *transporttest.Conn) {
	h.t.Helper()
	raw, ok := c.NextSent(20 * time.Millisecond)
	require.False(h.t, ok, "unexpected frame %s", raw)
}

func (h *harness) wait(errCh <-chan error) error {
	h.t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(testTimeout):
		h.t.Fatal("Connect did not return")
		return nil
	}
}

// establish runs a full identify handshake and returns the live connection.
func (h *harness) establish(seq int64, sessionID string) *transporttest.Conn {
	h.t.Helper()
	errCh := h.connectAsync()
	c := h.nextConn()
	h.hello(c, 1000)
	f := h.nextFrame(c)
	require.Equal(h.t, protocol.OpIdentify, f.Op)
	h.deliver(c, readyFrame(seq, sessionID))
	require.NoError(h.t, h.wait(errCh))
	return c
}

func readyFrame(seq int64, sessionID string) string {
	return fmt.Sprintf(`{"op":0,"s":%d,"t":"READY","d":{"v":10,"session_id":%q,"resume_gateway_url":"wss://resume.example","user":{"id":"1","username":"bot","bot":true}}}`, seq, sessionID)
}

func dispatchFrame(seq int64, event string) string {
	return fmt.Sprintf(`{"op":0,"s":%d,"t":%q,"d":{}}`, seq, event)
}
