package gateway

import (
	"fmt"
	"time"
)

// reconnector is the backoff state of the reconnect supervisor.
type reconnector struct {
	attempts int
	gen      uint64
	timer    timer
}

// backoff returns the delay before the given attempt: base times attempt.
func backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// supervise schedules a reconnect after an abnormal closure, or gives up
// once the attempt cap is reached.
func (m *Manager) supervise() {
	if m.fatalErr != nil {
		return
	}
	m.cancelReconnect()

	if m.retry.attempts >= m.config.MaxReconnectAttempts {
		err := fmt.Errorf("%w (%d attempts)", ErrReconnectExhausted, m.retry.attempts)
		m.logger.Error("giving up on reconnect", "attempts", m.retry.attempts)
		m.debug(fmt.Sprintf("Max reconnect attempts (%d) reached", m.config.MaxReconnectAttempts))
		m.setState(StateClosed)
		m.resolvePending(err)
		m.emitError(err)
		return
	}

	m.retry.attempts++
	attempt := m.retry.attempts
	delay := backoff(m.config.ReconnectDelay, attempt)

	m.setState(StateReconnecting)
	m.recorder.RecordReconnect(attempt)
	m.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
	m.debug(fmt.Sprintf("Attempting to reconnect (%d/%d) in %s", attempt, m.config.MaxReconnectAttempts, delay))

	gen := m.retry.gen
	m.retry.timer = m.clock.AfterFunc(delay, func() {
		m.post(func() {
			if gen != m.retry.gen || m.fatalErr != nil {
				return
			}
			m.retry.timer = nil
			m.dial()
		})
	})
}

// cancelReconnect is idempotent.
func (m *Manager) cancelReconnect() {
	if m.retry.timer != nil {
		m.retry.timer.Stop()
		m.retry.timer = nil
	}
	m.retry.gen++
}

// resetReconnect clears the attempt counter once a session is established.
func (m *Manager) resetReconnect() {
	m.retry.attempts = 0
}
