package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vgate/pkg/events"
	"github.com/vango-dev/vgate/pkg/protocol"
	"github.com/vango-dev/vgate/pkg/transport"
)

const tracerName = "github.com/vango-dev/vgate/pkg/gateway"

// Manager owns one gateway connection and its session.
// All methods are safe for concurrent use.
type Manager struct {
	config   *Config
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer
	clock    clock
	jitter   func(time.Duration) time.Duration

	// Event loop
	queue    chan func()
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	// ctx is cancelled by Destroy and aborts an in-flight dial.
	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the event loop.
	state    State
	token    string
	session  session
	conn     *connection
	hb       heartbeat
	retry    reconnector
	invalid  invalidSession
	pending  *pendingConnect
	fatalErr error

	statusMu sync.RWMutex
	status   Status

	readyBus    events.Bus[*protocol.Ready]
	resumedBus  events.Bus[struct{}]
	dispatchBus events.Bus[*protocol.Envelope]
	debugBus    events.Bus[string]
	errorBus    events.Bus[error]
}

// connection is the handle of one transport connection.
type connection struct {
	id   string
	conn transport.Conn
}

type invalidSession struct {
	gen   uint64
	timer timer
}

// New creates a Manager and starts its event loop. A nil config uses
// DefaultConfig. Call Destroy to release it.
func New(config *Config) *Manager {
	return newManager(config, realClock{}, uniformJitter)
}

func newManager(config *Config, clk clock, jitter func(time.Duration) time.Duration) *Manager {
	config = config.withDefaults()

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:   config,
		logger:   config.Logger.With("component", "gateway"),
		recorder: config.Recorder,
		tracer:   tp.Tracer(tracerName),
		clock:    clk,
		jitter:   jitter,
		queue:    make(chan func(), config.QueueSize),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		token:    config.Token,
	}
	m.status = m.snapshot()

	go m.loop()
	return m
}

// =============================================================================
// Event loop
// =============================================================================

func (m *Manager) loop() {
	defer close(m.stopped)

	for {
		select {
		case fn := <-m.queue:
			m.execute(fn)
		case <-m.quit:
			m.shutdown()
			return
		}
	}
}

// execute runs fn with panic recovery and publishes the resulting status.
func (m *Manager) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("event loop panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
		m.publishStatus()
	}()

	fn()
}

// post queues fn on the event loop. It returns false once the loop has
// been told to stop.
func (m *Manager) post(fn func()) bool {
	select {
	case <-m.quit:
		return false
	default:
	}

	select {
	case m.queue <- fn:
		return true
	case <-m.quit:
		return false
	}
}

// call runs fn on the event loop and waits for it to finish.
func (m *Manager) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !m.post(func() {
		defer close(done)
		fn()
	}) {
		return ErrManagerDestroyed
	}

	select {
	case <-done:
		return nil
	case <-m.stopped:
		return ErrManagerDestroyed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) shutdown() {
	m.closeConnection(protocol.CloseNormal, "destroyed")
	m.cancelReconnect()
	if m.fatalErr == nil {
		m.fatalErr = ErrManagerDestroyed
	}
	m.setState(StateClosed)
	m.resolvePending(ErrManagerDestroyed)
	m.publishStatus()
	m.logger.Info("manager destroyed")
}

// =============================================================================
// Public API
// =============================================================================

// Connect starts a connection attempt, or joins the one in progress, and
// waits until the session is ready.
//
// ctx only bounds the wait: when it ends, Connect returns ctx.Err() and the
// attempt carries on. Once the manager is ready, Connect returns nil without
// dialing again.
func (m *Manager) Connect(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "gateway.connect")
	defer span.End()

	var p *pendingConnect
	err := m.call(ctx, func() { p = m.connect() })
	if err == nil {
		err = p.wait(ctx, m.stopped)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.String("gateway.session_id", m.Status().SessionID))
	return nil
}

// SetToken sets the authentication token. It may be called once, and only
// when Config.Token was empty.
func (m *Manager) SetToken(token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	var err error
	if callErr := m.call(context.Background(), func() {
		if m.token != "" {
			err = ErrTokenAlreadySet
			return
		}
		m.token = token
	}); callErr != nil {
		return callErr
	}
	return err
}

// Destroy closes the connection, stops every timer and fails any pending
// Connect with ErrManagerDestroyed. It is idempotent and blocks until the
// event loop has exited, so it must not be called from a subscriber.
func (m *Manager) Destroy() {
	m.stopOnce.Do(func() {
		m.cancel()
		close(m.quit)
	})
	<-m.stopped
}

// Done returns a channel that's closed once the manager is destroyed.
func (m *Manager) Done() <-chan struct{} {
	return m.stopped
}

// State returns the current connection state.
func (m *Manager) State() State {
	return m.Status().State
}

// Latency returns the round trip of the last acknowledged heartbeat.
func (m *Manager) Latency() time.Duration {
	return m.Status().Latency
}

// Status returns a snapshot of the manager.
func (m *Manager) Status() Status {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.status
}

// =============================================================================
// Connection lifecycle (event loop only)
// =============================================================================

// connect returns the pending attempt, creating it and dialing if needed.
func (m *Manager) connect() *pendingConnect {
	if m.fatalErr != nil {
		return resolvedConnect(m.fatalErr)
	}
	if m.pending != nil {
		return m.pending
	}
	if m.state == StateReady {
		return resolvedConnect(nil)
	}

	m.pending = newPendingConnect()
	if m.conn == nil && m.retry.timer == nil {
		m.dial()
	}
	return m.pending
}

func (m *Manager) dial() {
	if m.fatalErr != nil {
		return
	}

	url := m.session.dialURL(m.config.URL)
	id := uuid.NewString()
	m.setState(StateConnecting)
	m.logger.Info("connecting", "url", url, "conn", id)
	m.debug("Connecting to " + url)

	conn, err := m.config.Dialer.Dial(m.ctx, url, m.listen(id))
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		m.logger.Warn("dial failed", "url", url, "error", err)
		m.emitError(fmt.Errorf("gateway: dial: %w", err))
		m.handleClosure(protocol.CloseAbnormal, err.Error())
		return
	}

	m.conn = &connection{id: id, conn: conn}
	m.setState(StateAwaitingHello)
}

// listen binds transport callbacks to connection id. Callbacks for a
// connection that is no longer current are dropped.
func (m *Manager) listen(id string) transport.Listener {
	return transport.ListenerFuncs{
		Message: func(data []byte) {
			m.post(func() {
				if m.current(id) {
					m.handleFrame(data)
				}
			})
		},
		Error: func(err error) {
			m.post(func() {
				if m.current(id) {
					m.logger.Debug("transport error", "conn", id, "error", err)
					m.debug("Connection error: " + err.Error())
				}
			})
		},
		Close: func(code int, reason string) {
			m.post(func() {
				if !m.current(id) {
					return
				}
				m.conn = nil
				m.handleClosure(protocol.CloseCode(code), reason)
			})
		},
	}
}

func (m *Manager) current(id string) bool {
	return m.conn != nil && m.conn.id == id
}

func (m *Manager) handleFrame(data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		m.logger.Warn("dropping malformed frame", "conn", m.conn.id, "error", err)
		m.recorder.RecordDecodeError()
		m.emitError(err)
		return
	}

	if env.Seq != nil {
		m.session.observe(*env.Seq)
	}

	switch p := env.Payload.(type) {
	case *protocol.Hello:
		m.onHello(p.HeartbeatInterval)
	case protocol.HeartbeatAck:
		m.ackHeartbeat()
	case protocol.HeartbeatRequest:
		m.beat(false)
	case protocol.Reconnect:
		m.onReconnectRequest()
	case *protocol.InvalidSession:
		m.onInvalidSession(p.Resumable)
	case *protocol.Ready, protocol.Resumed, *protocol.Dispatch:
		m.onDispatch(env)
	case *protocol.Unknown:
		m.logger.Debug("ignoring frame", "op", int(p.Op))
	}
}

func (m *Manager) onHello(interval time.Duration) {
	m.debug(fmt.Sprintf("Received hello, heartbeat interval %s", interval))
	m.startHeartbeat(interval)
	m.handshake()
}

// handshake resumes when the session allows it and identifies otherwise.
func (m *Manager) handshake() {
	if m.session.resumable() {
		m.resume()
		return
	}
	m.identify()
}

func (m *Manager) identify() {
	if m.token == "" {
		m.fail(ErrTokenNotSet)
		return
	}

	frame, err := protocol.EncodeIdentify(protocol.Identify{
		Token:      m.token,
		Intents:    m.config.Intents,
		Properties: m.config.Properties,
	})
	if err != nil {
		m.logger.Error("identify encode error", "error", err)
		return
	}

	m.setState(StateIdentifying)
	m.debug("Identifying")
	m.send(frame)
}

func (m *Manager) resume() {
	if m.token == "" {
		m.fail(ErrTokenNotSet)
		return
	}

	seq := m.session.sequence()
	frame, err := protocol.EncodeResume(protocol.Resume{
		Token:     m.token,
		SessionID: m.session.id,
		Seq:       *seq,
	})
	if err != nil {
		m.logger.Error("resume encode error", "error", err)
		return
	}

	m.setState(StateResuming)
	m.debug(fmt.Sprintf("Attempting to resume session %s at sequence %d", m.session.id, *seq))
	m.send(frame)
}

func (m *Manager) onDispatch(env *protocol.Envelope) {
	attrs := []attribute.KeyValue{attribute.String("gateway.event", env.Event)}
	if env.Seq != nil {
		attrs = append(attrs, attribute.Int64("gateway.seq", *env.Seq))
	}
	_, span := m.tracer.Start(m.ctx, "gateway.dispatch", trace.WithAttributes(attrs...))
	defer span.End()

	m.recorder.RecordDispatch(env.Event)

	switch p := env.Payload.(type) {
	case *protocol.Ready:
		m.session.id = p.SessionID
		m.session.resumeURL = p.ResumeGatewayURL
		m.resetReconnect()
		m.setState(StateReady)
		m.logger.Info("session ready", "session", p.SessionID, "user", p.User.Username)
		m.debug("Session ready")
		m.publishStatus()
		m.resolvePending(nil)
		m.subscriberPanic("ready", m.readyBus.Emit(p))

	case protocol.Resumed:
		m.resetReconnect()
		m.setState(StateReady)
		m.logger.Info("session resumed", "session", m.session.id)
		m.debug("Session resumed successfully")
		m.publishStatus()
		m.resolvePending(nil)
		m.subscriberPanic("resumed", m.resumedBus.Emit(struct{}{}))
	}

	m.subscriberPanic("dispatch", m.dispatchBus.Emit(env))
}

// onReconnectRequest drops the connection with a code that keeps the
// session resumable and dials again at once.
func (m *Manager) onReconnectRequest() {
	m.logger.Info("reconnect requested by gateway")
	m.debug("Received reconnect request")
	m.closeConnection(protocol.CloseReconnectRequested, "reconnect requested")
	m.setState(StateReconnecting)
	m.dial()
}

func (m *Manager) onInvalidSession(resumable bool) {
	m.logger.Info("invalid session", "resumable", resumable)
	m.debug(fmt.Sprintf("Invalid session, can resume: %t", resumable))
	if !resumable {
		m.session.reset()
	}

	m.stopInvalidSession()
	gen := m.invalid.gen
	m.invalid.timer = m.clock.AfterFunc(m.config.InvalidSessionDelay, func() {
		m.post(func() {
			if gen != m.invalid.gen || m.conn == nil {
				return
			}
			m.invalid.timer = nil
			m.handshake()
		})
	})
}

func (m *Manager) stopInvalidSession() {
	if m.invalid.timer != nil {
		m.invalid.timer.Stop()
		m.invalid.timer = nil
	}
	m.invalid.gen++
}

// handleClosure reacts to the end of the current connection.
func (m *Manager) handleClosure(code protocol.CloseCode, reason string) {
	m.stopHeartbeat()
	m.stopInvalidSession()
	m.recorder.RecordClose(code)
	m.logger.Info("connection closed", "code", int(code), "name", code.String(), "reason", reason)
	m.debug(fmt.Sprintf("Connection closed: %d %s", int(code), reason))

	if code.IsAuthFailure() {
		m.fail(&CloseError{Code: code, Reason: reason, Err: ErrAuthenticationFailed})
		return
	}
	m.supervise()
}

// closeConnection closes the current connection locally. Its later
// callbacks are ignored.
func (m *Manager) closeConnection(code protocol.CloseCode, reason string) {
	m.stopHeartbeat()
	m.stopInvalidSession()
	if m.conn == nil {
		return
	}
	c := m.conn
	m.conn = nil
	if err := c.conn.Close(int(code), reason); err != nil {
		m.logger.Debug("close error", "conn", c.id, "error", err)
	}
}

// fail tears the manager down for good. Later Connect calls return err.
func (m *Manager) fail(err error) {
	m.logger.Error("gateway failed", "error", err)
	m.fatalErr = err
	m.closeConnection(protocol.CloseNormal, "")
	m.cancelReconnect()
	m.setState(StateClosed)
	m.resolvePending(err)
	m.emitError(err)
}

// send writes frame to the current connection. Failures are logged; a
// broken connection reports itself through its close callback.
func (m *Manager) send(frame []byte) bool {
	if m.conn == nil {
		return false
	}
	if err := m.conn.conn.Send(frame); err != nil {
		m.logger.Warn("send failed", "conn", m.conn.id, "error", err)
		m.debug("Send failed: " + err.Error())
		return false
	}
	return true
}

func (m *Manager) resolvePending(err error) {
	if m.pending == nil {
		return
	}
	m.pending.resolve(err)
	m.pending = nil
}

func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	m.logger.Debug("state change", "from", m.state.String(), "to", s.String())
	m.state = s
	m.recorder.RecordState(s.String())
}

func (m *Manager) debug(msg string) {
	m.subscriberPanic("debug", m.debugBus.Emit(msg))
}

func (m *Manager) emitError(err error) {
	m.subscriberPanic("error", m.errorBus.Emit(err))
}

// subscriberPanic logs panics recovered from subscribers of event and
// forwards them to the error stream. Panics in error subscribers are only
// logged.
func (m *Manager) subscriberPanic(event string, err error) {
	if err == nil {
		return
	}
	m.logger.Error("subscriber panicked", "event", event, "error", err)
	if event != "error" {
		m.emitError(err)
	}
}

func (m *Manager) snapshot() Status {
	st := Status{
		State:             m.state,
		SessionID:         m.session.id,
		Sequence:          m.session.sequence(),
		ResumeURL:         m.session.resumeURL,
		ReconnectAttempts: m.retry.attempts,
		Latency:           m.hb.latency,
		LastHeartbeatAck:  m.hb.lastAck,
		Destroyed:         m.fatalErr != nil,
	}
	if m.conn != nil {
		st.ConnectionID = m.conn.id
	}
	return st
}

func (m *Manager) publishStatus() {
	st := m.snapshot()
	m.statusMu.Lock()
	m.status = st
	m.statusMu.Unlock()
}
