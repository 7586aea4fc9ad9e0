package gateway

import (
	"time"

	"github.com/vango-dev/vgate/pkg/protocol"
)

// Recorder receives connection metrics. Implementations must be safe for
// concurrent use; pkg/metrics provides a Prometheus-backed one.
type Recorder interface {
	RecordDispatch(event string)
	RecordHeartbeat()
	RecordHeartbeatAck(latency time.Duration)
	RecordReconnect(attempt int)
	RecordClose(code protocol.CloseCode)
	RecordDecodeError()
	RecordState(state string)
}

type noopRecorder struct{}

func (noopRecorder) RecordDispatch(string) {}
func (noopRecorder) RecordHeartbeat() {}
func (noopRecorder) RecordHeartbeatAck(time.Duration) {}
func (noopRecorder) RecordReconnect(int) {}
func (noopRecorder) RecordClose(protocol.CloseCode) {}
func (noopRecorder) RecordDecodeError() {}
func (noopRecorder) RecordState(string) {}
