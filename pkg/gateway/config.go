package gateway

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vgate/pkg/protocol"
	"github.com/vango-dev/vgate/pkg/transport"
)

// DefaultURL is the gateway endpoint used when Config.URL is empty.
const DefaultURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Config holds configuration for a Manager.
type Config struct {
	// Connection

	// URL is the gateway endpoint.
	// Default: DefaultURL.
	URL string

	// Token authenticates identify and resume. It may instead be supplied
	// once with SetToken.
	Token string

	// Intents selects the event groups the gateway delivers.
	Intents protocol.Intent

	// Properties describe this client in the identify payload.
	// Default: protocol.DefaultIdentifyProperties().
	Properties protocol.IdentifyProperties

	// Reconnect

	// ReconnectDelay is the base backoff delay. Attempt n waits n times this.
	// Default: 5 seconds.
	ReconnectDelay time.Duration

	// MaxReconnectAttempts caps consecutive reconnect attempts.
	// Default: 5.
	MaxReconnectAttempts int

	// InvalidSessionDelay is the wait before answering an invalid session.
	// Default: 5 seconds.
	InvalidSessionDelay time.Duration

	// Internals

	// QueueSize is the buffer size of the event loop queue.
	// Default: 256.
	QueueSize int

	// Dialer opens connections.
	// Default: a transport.WebSocketDialer.
	Dialer transport.Dialer

	// Logger receives structured logs.
	// Default: slog.Default().
	Logger *slog.Logger

	// Recorder receives metrics.
	// Default: a no-op recorder.
	Recorder Recorder

	// TracerProvider creates the manager's tracer.
	// Default: the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		URL:                  DefaultURL,
		Properties:           protocol.DefaultIdentifyProperties(),
		ReconnectDelay:       5 * time.Second,
		MaxReconnectAttempts: 5,
		InvalidSessionDelay:  5 * time.Second,
		QueueSize:            256,
	}
}

// Clone returns a shallow copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithURL sets the gateway URL and returns the config for chaining.
func (c *Config) WithURL(url string) *Config {
	c.URL = url
	return c
}

// WithToken sets the token and returns the config for chaining.
func (c *Config) WithToken(token string) *Config {
	c.Token = token
	return c
}

// WithIntents sets the intents and returns the config for chaining.
func (c *Config) WithIntents(intents protocol.Intent) *Config {
	c.Intents = intents
	return c
}

// WithReconnect sets the backoff base delay and attempt cap and returns the
// config for chaining.
func (c *Config) WithReconnect(delay time.Duration, maxAttempts int) *Config {
	c.ReconnectDelay = delay
	c.MaxReconnectAttempts = maxAttempts
	return c
}

// WithDialer sets the dialer and returns the config for chaining.
func (c *Config) WithDialer(d transport.Dialer) *Config {
	c.Dialer = d
	return c
}

// WithLogger sets the logger and returns the config for chaining.
func (c *Config) WithLogger(logger *slog.Logger) *Config {
	c.Logger = logger
	return c
}

// WithRecorder sets the metrics recorder and returns the config for chaining.
func (c *Config) WithRecorder(r Recorder) *Config {
	c.Recorder = r
	return c
}

// WithTracerProvider sets the tracer provider and returns the config for chaining.
func (c *Config) WithTracerProvider(tp trace.TracerProvider) *Config {
	c.TracerProvider = tp
	return c
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		return def
	}
	out := c.Clone()
	if out.URL == "" {
		out.URL = def.URL
	}
	if out.Properties == (protocol.IdentifyProperties{}) {
		out.Properties = def.Properties
	}
	if out.ReconnectDelay <= 0 {
		out.ReconnectDelay = def.ReconnectDelay
	}
	if out.MaxReconnectAttempts <= 0 {
		out.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if out.InvalidSessionDelay <= 0 {
		out.InvalidSessionDelay = def.InvalidSessionDelay
	}
	if out.QueueSize <= 0 {
		out.QueueSize = def.QueueSize
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Dialer == nil {
		wsCfg := transport.DefaultWebSocketConfig()
		wsCfg.Logger = out.Logger
		out.Dialer = transport.NewWebSocketDialer(wsCfg)
	}
	if out.Recorder == nil {
		out.Recorder = noopRecorder{}
	}
	return out
}
