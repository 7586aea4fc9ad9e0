package gateway

import (
	"time"

	"github.com/vango-dev/vgate/pkg/protocol"
)

// heartbeat tracks the keep-alive loop of the current connection.
// Timer callbacks carry the generation they were armed with; a firing from
// an older generation is ignored.
type heartbeat struct {
	interval time.Duration
	gen      uint64
	timer    timer
	acked    bool
	sentAt   time.Time
	latency  time.Duration
	lastAck  time.Time
}

// startHeartbeat arms the first beat after a random jitter within one
// interval, then beats every interval.
func (m *Manager) startHeartbeat(interval time.Duration) {
	m.stopHeartbeat()
	m.hb.interval = interval
	m.hb.acked = true
	m.hb.sentAt = time.Time{}

	delay := m.jitter(interval)
	m.logger.Debug("heartbeat started", "interval", interval, "first_beat", delay)
	m.armHeartbeat(delay)
}

func (m *Manager) armHeartbeat(d time.Duration) {
	gen := m.hb.gen
	m.hb.timer = m.clock.AfterFunc(d, func() {
		m.post(func() { m.heartbeatTick(gen) })
	})
}

func (m *Manager) heartbeatTick(gen uint64) {
	if gen != m.hb.gen {
		return
	}
	m.armHeartbeat(m.hb.interval)
	m.beat(true)
}

// stopHeartbeat is idempotent and safe before startHeartbeat.
func (m *Manager) stopHeartbeat() {
	if m.hb.timer != nil {
		m.hb.timer.Stop()
		m.hb.timer = nil
	}
	m.hb.gen++
}

// beat sends a heartbeat. A scheduled beat whose predecessor was never
// acknowledged closes the connection instead.
func (m *Manager) beat(scheduled bool) {
	if m.conn == nil {
		return
	}
	if scheduled && !m.hb.acked {
		m.logger.Warn("heartbeat not acknowledged, closing connection",
			"conn", m.conn.id,
			"interval", m.hb.interval)
		m.debug("Heartbeat not acknowledged, reconnecting")
		m.closeConnection(protocol.CloseHeartbeatTimeout, "heartbeat not acknowledged")
		m.supervise()
		return
	}

	frame, err := protocol.EncodeHeartbeat(m.session.sequence())
	if err != nil {
		m.logger.Error("heartbeat encode error", "error", err)
		return
	}
	m.hb.acked = false
	m.hb.sentAt = m.clock.Now()
	if m.send(frame) {
		m.recorder.RecordHeartbeat()
	}
}

// ackHeartbeat is idempotent. Only the first ack after a beat updates the
// latency.
func (m *Manager) ackHeartbeat() {
	m.hb.acked = true
	if m.hb.sentAt.IsZero() {
		return
	}
	now := m.clock.Now()
	m.hb.latency = now.Sub(m.hb.sentAt)
	m.hb.lastAck = now
	m.hb.sentAt = time.Time{}
	m.recorder.RecordHeartbeatAck(m.hb.latency)
}
