package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/vgate/pkg/events"
	"github.com/vango-dev/vgate/pkg/protocol"
)

func TestConnectIdentifyReady(t *testing.T) {
	h := newHarness(t)

	var readies []*protocol.Ready
	var dispatched []string
	h.m.OnReady(func(r *protocol.Ready) { readies = append(readies, r) })
	h.m.OnDispatch(func(env *protocol.Envelope) { dispatched = append(dispatched, env.Event) })

	errCh := h.connectAsync()
	c := h.nextConn()
	assert.Equal(t, DefaultURL, c.URL)
	assert.Equal(t, StateAwaitingHello, h.m.State())

	h.hello(c, 41250)
	f := h.nextFrame(c)
	require.Equal(t, protocol.OpIdentify, f.Op)

	var id protocol.Identify
	require.NoError(t, json.Unmarshal(f.D, &id))
	assert.Equal(t, "test-token", id.Token)
	assert.Equal(t, protocol.IntentGuilds|protocol.IntentGuildMessages, id.Intents)
	assert.NotEmpty(t, id.Properties.OS)
	assert.Equal(t, StateIdentifying, h.m.State())

	h.deliver(c, readyFrame(1, "abc"))
	require.NoError(t, h.wait(errCh))

	st := h.m.Status()
	assert.Equal(t, StateReady, st.State)
	assert.Equal(t, "abc", st.SessionID)
	require.NotNil(t, st.Sequence)
	assert.EqualValues(t, 1, *st.Sequence)
	assert.NotEmpty(t, st.ConnectionID)

	require.Len(t, readies, 1)
	assert.Equal(t, "bot", readies[0].User.Username)
	assert.Equal(t, []string{protocol.EventReady}, dispatched)
}

func TestConnectSingleDial(t *testing.T) {
	h := newHarness(t)

	first := h.connectAsync()
	c := h.nextConn()
	second := h.connectAsync()
	h.noConn()

	h.hello(c, 1000)
	h.nextFrame(c)
	h.deliver(c, readyFrame(1, "abc"))

	require.NoError(t, h.wait(first))
	require.NoError(t, h.wait(second))

	// Already ready: no second transport.
	require.NoError(t, h.m.Connect(context.Background()))
	h.noConn()
	assert.Equal(t, 1, h.dialer.Dials())
}

func TestSequenceIsMonotonic(t *testing.T) {
	h := newHarness(t)
	c := h.establish(1, "abc")

	h.deliver(c, dispatchFrame(5, "GUILD_CREATE"))
	h.deliver(c, dispatchFrame(3, "GUILD_CREATE"))
	h.deliver(c, `{"op":11,"s":4}`)

	st := h.m.Status()
	require.NotNil(t, st.Sequence)
	assert.EqualValues(t, 5, *st.Sequence)

	h.advance(500 * time.Millisecond)
	f := h.nextFrame(c)
	assert.Equal(t, protocol.OpHeartbeat, f.Op)
	assert.JSONEq(t, `5`, string(f.D))
}

func TestDispatchOrder(t *testing.T) {
	h := newHarness(t)

	var seen []int64
	h.m.OnDispatch(func(env *protocol.Envelope) {
		// The sequence is applied before subscribers run.
		st := h.m.snapshot()
		assert.Equal(t, *env.Seq, *st.Sequence)
		seen = append(seen, *env.Seq)
	})

	c := h.establish(1, "abc")
	for seq := int64(2); seq <= 6; seq++ {
		c.Deliver(dispatchFrame(seq, "MESSAGE_CREATE"))
	}
	h.flush()

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, seen)
}

func TestHeartbeatJitterThenInterval(t *testing.T) {
	h := newHarness(t)
	errCh := h.connectAsync()
	c := h.nextConn()
	h.hello(c, 1000)
	h.nextFrame(c) // identify

	h.advance(499 * time.Millisecond)
	h.noFrame(c)

	h.advance(time.Millisecond)
	f := h.nextFrame(c)
	assert.Equal(t, protocol.OpHeartbeat, f.Op)
	assert.JSONEq(t, `null`, string(f.D), "no sequence before READY")

	h.deliver(c, `{"op":11}`)
	h.advance(999 * time.Millisecond)
	h.noFrame(c)
	h.advance(time.Millisecond)
	assert.Equal(t, protocol.OpHeartbeat, h.nextFrame(c).Op)

	h.deliver(c, readyFrame(1, "abc"))
	require.NoError(t, h.wait(errCh))
}

func TestHeartbeatWithoutAckClosesConnection(t *testing.T) {
	h := newHarness(t)
	c := h.establish(1, "abc")

	h.advance(500 * time.Millisecond)
	require.Equal(t, protocol.OpHeartbeat, h.nextFrame(c).Op)

	// No ack: the next scheduled beat declares the connection dead.
	h.advance(time.Second)
	h.noFrame(c)

	code, _, closed := c.Closed()
	require.True(t, closed)
	assert.Equal(t, int(protocol.CloseHeartbeatTimeout), code)

	st := h.m.Status()
	assert.Equal(t, StateReconnecting, st.State)
	assert.Equal(t, 1, st.ReconnectAttempts)
	assert.Equal(t, "abc", st.SessionID, "session survives for resume")

	// Stopped heartbeat never fires on the dead connection.
	h.advance(10 * time.Second)
	next := h.nextConn()
	h.hello(next, 1000)
	assert.Equal(t, protocol.OpResume, h.nextFrame(next).Op)
}

func TestHeartbeatRequestSendsImmediately(t *testing.T) {
	h := newHarness(t)
	c := h.establish(7, "abc")

	h.deliver(c, `{"op":1,"d":null}`)
	f := h.nextFrame(c)
	assert.Equal(t, protocol.OpHeartbeat, f.Op)
	assert.JSONEq(t, `7`, string(f.D))
}

func TestHeartbeatLatency(t *testing.T) {
	h := newHarness(t)
	c := h.establish(1, "abc")

	h.advance(500 * time.Millisecond)
	h.nextFrame(c)
	h.advance(120 * time.Millisecond)
	h.deliver(c, `{"op":11}`)
	h.deliver(c, `{"op":11}`)

	assert.Equal(t, 120*time.Millisecond, h.m.Latency())
	assert.False(t, h.m.Status().LastHeartbeatAck.IsZero())
}

func TestResumeAfterAbnormalClose(t *testing.T) {
	h := newHarness(t)
	c := h.establish(1, "abc")
	h.deliver(c, dispatchFrame(2, "MESSAGE_CREATE"))

	resumed := 0
	h.m.OnResumed(func() { resumed++ })

	h.serverClose(c, 1006)
	st := h.m.Status()
	assert.Equal(t, StateReconnecting, st.State)
	assert.Equal(t, 1, st.ReconnectAttempts)

	h.advance(5 * time.Second)
	next := h.nextConn()
	assert.Equal(t, "wss://resume.example/?v=10&encoding=json", next.URL)

	h.hello(next, 1000)
	f := h.nextFrame(next)
	require.Equal(t, protocol.OpResume, f.Op)
	var r protocol.Resume
	require.NoError(t, json.Unmarshal(f.D, &r))
	assert.Equal(t, protocol.Resume{Token: "test-token", SessionID: "abc", Seq: 2}, r)
	assert.Equal(t, StateResuming, h.m.State())

	h.deliver(next, `{"op":0,"s":3,"t":"RESUMED","d":{}}`)
	st = h.m.Status()
	assert.Equal(t, StateReady, st.State)
	assert.Zero(t, st.ReconnectAttempts)
	assert.Equal(t, 1, resumed)
}

func TestStaleConnectionEventsIgnored(t *testing.T) {
	h := newHarness(t)
	old := h.establish(1, "abc")

	h.deliver(old, `{"op":7,"d":null}`)
	next := h.nextConn()

	old.Deliver(dispatchFrame(100, "MESSAGE_CREATE"))
	old.ServerClose(1006, "")
	h.flush()

	st := h.m.Status()
	assert.EqualValues(t, 1, *st.Sequence)
	assert.Zero(t, st.ReconnectAttempts)
	h.noConn()

	h.hello(next, 1000)
	assert.Equal(t, protocol.OpResume, h.nextFrame(next).Op)
}

func TestReconnectRequest(t *testing.T) {
	h := newHarness(t)
	c := h.establish(4, "abc")

	h.deliver(c, `{"op":7,"d":null}`)

	code, _, closed := c.Closed()
	require.True(t, closed)
	assert.Equal(t, int(protocol.CloseReconnectRequested), code)

	next := h.nextConn()
	h.hello(next, 1000)
	f := h.nextFrame(next)
	require.Equal(t, protocol.OpResume, f.Op)
	assert.Zero(t, h.m.Status().ReconnectAttempts)
}

func TestReconnectBackoffAndCap(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.WithReconnect(time.Second, 3)
	})

	errCh := h.connectAsync()
	c := h.nextConn()

	// Dial failures count as abnormal closures.
	h.dialer.FailNext(errors.New("connection refused"))

	h.serverClose(c, 1006)
	h.advance(time.Second) // attempt 1 fails to dial, attempt 2 scheduled
	h.advance(2 * time.Second)
	c = h.nextConn()
	h.serverClose(c, 1011)
	h.advance(3 * time.Second)
	c = h.nextConn()
	h.serverClose(c, 1006)

	err := h.wait(errCh)
	require.ErrorIs(t, err, ErrReconnectExhausted)
	assert.Equal(t, StateClosed, h.m.State())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, h.clock.Armed())
	assert.Equal(t, 4, h.dialer.Dials())

	// Nothing else is scheduled.
	h.advance(time.Hour)
	h.noConn()

	// An explicit Connect dials again, but the counter is not reset.
	errCh = h.connectAsync()
	c = h.nextConn()
	h.serverClose(c, 1006)
	require.ErrorIs(t, h.wait(errCh), ErrReconnectExhausted)
}

func TestAuthFailureIsFatal(t *testing.T) {
	h := newHarness(t)

	var errs []error
	h.m.OnError(func(err error) { errs = append(errs, err) })

	errCh := h.connectAsync()
	c := h.nextConn()
	h.hello(c, 1000)
	h.nextFrame(c)
	h.serverClose(c, 4004)

	err := h.wait(errCh)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
	var ce *CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, protocol.CloseAuthFailed, ce.Code)

	st := h.m.Status()
	assert.Equal(t, StateClosed, st.State)
	assert.True(t, st.Destroyed)

	// Later Connect calls fail at once without dialing.
	err = h.m.Connect(context.Background())
	require.ErrorIs(t, err, ErrAuthenticationFailed)
	h.advance(time.Hour)
	h.noConn()
	assert.Equal(t, 1, h.dialer.Dials())

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrAuthenticationFailed)
}

func TestReadyThenAuthFailure(t *testing.T) {
	h := newHarness(t)

	var events []string
	h.m.OnReady(func(*protocol.Ready) { events = append(events, "ready") })
	h.m.OnError(func(err error) { events = append(events, "error") })

	c := h.establish(1, "abc")
	assert.Equal(t, StateReady, h.m.State())

	h.serverClose(c, 4004)
	assert.Equal(t, StateClosed, h.m.State())
	assert.Equal(t, []string{"ready", "error"}, events)
	require.ErrorIs(t, h.m.Connect(context.Background()), ErrAuthenticationFailed)
}

func TestInvalidSessionNotResumable(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.InvalidSessionDelay = 100 * time.Millisecond })
	c := h.establish(3, "abc")

	h.deliver(c, `{"op":9,"d":false}`)
	st := h.m.Status()
	assert.Empty(t, st.SessionID)
	assert.Nil(t, st.Sequence)

	h.advance(99 * time.Millisecond)
	h.noFrame(c)

	h.advance(time.Millisecond)
	assert.Equal(t, protocol.OpIdentify, h.nextFrame(c).Op)
}

func TestInvalidSessionResumable(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.InvalidSessionDelay = 100 * time.Millisecond })
	c := h.establish(3, "abc")

	h.deliver(c, `{"op":9,"d":true}`)
	h.advance(100 * time.Millisecond)

	f := h.nextFrame(c)
	require.Equal(t, protocol.OpResume, f.Op)
	var r protocol.Resume
	require.NoError(t, json.Unmarshal(f.D, &r))
	assert.Equal(t, "abc", r.SessionID)
	assert.EqualValues(t, 3, r.Seq)
}

func TestMissingTokenAtIdentify(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Token = "" })

	errCh := h.connectAsync()
	c := h.nextConn()
	h.hello(c, 1000)

	require.ErrorIs(t, h.wait(errCh), ErrTokenNotSet)
	_, _, closed := c.Closed()
	assert.True(t, closed)
	assert.Equal(t, StateClosed, h.m.State())
}

func TestSetToken(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Token = "" })

	assert.ErrorIs(t, h.m.SetToken(""), ErrEmptyToken)
	require.NoError(t, h.m.SetToken("late-token"))
	assert.ErrorIs(t, h.m.SetToken("other"), ErrTokenAlreadySet)

	errCh := h.connectAsync()
	c := h.nextConn()
	h.hello(c, 1000)
	var id protocol.Identify
	require.NoError(t, json.Unmarshal(h.nextFrame(c).D, &id))
	assert.Equal(t, "late-token", id.Token)

	h.deliver(c, readyFrame(1, "abc"))
	require.NoError(t, h.wait(errCh))
}

func TestMalformedFrameIsDropped(t *testing.T) {
	h := newHarness(t)

	var errs []error
	h.m.OnError(func(err error) { errs = append(errs, err) })

	errCh := h.connectAsync()
	c := h.nextConn()
	h.deliver(c, `{not json`)
	h.deliver(c, `{"op":10,"d":{}}`)

	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, protocol.ErrMalformedFrame)
	}
	_, _, closed := c.Closed()
	assert.False(t, closed)

	h.hello(c, 1000)
	assert.Equal(t, protocol.OpIdentify, h.nextFrame(c).Op)
	h.deliver(c, readyFrame(1, "abc"))
	require.NoError(t, h.wait(errCh))
}

func TestDestroy(t *testing.T) {
	h := newHarness(t)

	errCh := h.connectAsync()
	c := h.nextConn()

	h.m.Destroy()
	require.ErrorIs(t, h.wait(errCh), ErrManagerDestroyed)

	_, _, closed := c.Closed()
	assert.True(t, closed)
	assert.Equal(t, StateClosed, h.m.State())

	h.m.Destroy()
	assert.ErrorIs(t, h.m.Connect(context.Background()), ErrManagerDestroyed)
	assert.ErrorIs(t, h.m.SetToken("x"), ErrManagerDestroyed)

	select {
	case <-h.m.Done():
	default:
		t.Fatal("Done should be closed after Destroy")
	}
}

func TestConnectContextOnlyBoundsWait(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.m.Connect(ctx) }()
	c := h.nextConn()

	cancel()
	require.ErrorIs(t, h.wait(errCh), context.Canceled)

	// The attempt keeps going and a new Connect joins it.
	again := h.connectAsync()
	h.hello(c, 1000)
	h.nextFrame(c)
	h.deliver(c, readyFrame(1, "abc"))
	require.NoError(t, h.wait(again))
	assert.Equal(t, 1, h.dialer.Dials())
}

func TestUnsubscribe(t *testing.T) {
	h := newHarness(t)

	var debug []string
	unsub := h.m.OnDebug(func(msg string) { debug = append(debug, msg) })

	c := h.establish(1, "abc")
	assert.NotEmpty(t, debug)

	unsub()
	n := len(debug)
	h.deliver(c, `{"op":7,"d":null}`)
	assert.Len(t, debug, n)
}

func TestListenerPanicDoesNotStopLoop(t *testing.T) {
	h := newHarness(t)

	var errs []error
	var first, second []string
	h.m.OnError(func(err error) { errs = append(errs, err) })
	h.m.OnReady(func(*protocol.Ready) { panic("ready listener failure") })
	h.m.OnDispatch(func(env *protocol.Envelope) {
		first = append(first, env.Event)
		if env.Event == "BOOM" {
			panic("dispatch listener failure")
		}
	})
	h.m.OnDispatch(func(env *protocol.Envelope) { second = append(second, env.Event) })

	c := h.establish(1, "abc")
	h.deliver(c, dispatchFrame(2, "BOOM"))
	h.deliver(c, dispatchFrame(3, "MESSAGE_CREATE"))

	assert.EqualValues(t, 3, *h.m.Status().Sequence)
	want := []string{protocol.EventReady, "BOOM", "MESSAGE_CREATE"}
	assert.Equal(t, want, first)
	assert.Equal(t, want, second)

	require.Len(t, errs, 2)
	var pe *events.PanicError
	require.ErrorAs(t, errs[0], &pe)
	assert.Equal(t, "ready listener failure", pe.Value)
	require.ErrorAs(t, errs[1], &pe)
	assert.Equal(t, "dispatch listener failure", pe.Value)
}

func TestStatusPublishedBeforeConnectReturns(t *testing.T) {
	h := newHarness(t)

	release := make(chan struct{})
	h.m.OnReady(func(*protocol.Ready) { <-release })
	defer close(release)

	errCh := h.connectAsync()
	c := h.nextConn()
	h.hello(c, 1000)
	require.Equal(t, protocol.OpIdentify, h.nextFrame(c).Op)

	// The ready listener holds the loop, so only a status published
	// ahead of resolving Connect is visible here.
	c.Deliver(readyFrame(1, "abc"))
	require.NoError(t, h.wait(errCh))

	st := h.m.Status()
	assert.Equal(t, StateReady, st.State)
	assert.Equal(t, "abc", st.SessionID)
}

func TestInvalidSessionWithoutDataReidentifies(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.InvalidSessionDelay = 100 * time.Millisecond })

	errCh := h.connectAsync()
	c := h.nextConn()
	h.hello(c, 60000)
	require.Equal(t, protocol.OpIdentify, h.nextFrame(c).Op)

	h.deliver(c, `{"op":9,"d":null}`)
	h.advance(100 * time.Millisecond)
	assert.Equal(t, protocol.OpIdentify, h.nextFrame(c).Op)

	h.deliver(c, readyFrame(1, "abc"))
	require.NoError(t, h.wait(errCh))
}
