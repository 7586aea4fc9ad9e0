package commands

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Middleware wraps a command's RunFunc.
type Middleware func(next RunFunc) RunFunc

// Use appends middleware. The first one registered runs outermost.
func (r *Registry) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw...)
}

// chain wraps run with the registered middleware.
func (r *Registry) chain(run RunFunc) RunFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.middleware) - 1; i >= 0; i-- {
		run = r.middleware[i](run)
	}
	return run
}

const defaultTracerName = "vgate/commands"

// TracingConfig configures the Tracing middleware.
type TracingConfig struct {
	// TracerProvider creates the tracer. Default: the global provider.
	TracerProvider trace.TracerProvider

	// IncludeUserID adds the author id to every span.
	IncludeUserID bool
}

// TracingOption configures Tracing.
type TracingOption func(*TracingConfig)

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeUserID controls whether the author id is recorded.
func WithIncludeUserID(include bool) TracingOption {
	return func(c *TracingConfig) {
		c.IncludeUserID = include
	}
}

// Tracing starts a "command.<name>" span around each run and records its
// error.
func Tracing(opts ...TracingOption) Middleware {
	config := TracingConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(defaultTracerName)

	return func(next RunFunc) RunFunc {
		return func(ctx context.Context, inv *Invocation) error {
			attrs := []attribute.KeyValue{
				attribute.String("command.name", inv.Name),
				attribute.Int("command.args", len(inv.Args)),
			}
			if inv.Message != nil {
				attrs = append(attrs, attribute.String("message.channel_id", inv.Message.ChannelID))
				if config.IncludeUserID {
					attrs = append(attrs, attribute.String("message.author_id", inv.Message.Author.ID))
				}
			}

			ctx, span := tracer.Start(ctx, "command."+inv.Name,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...))
			defer span.End()

			err := next(ctx, inv)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return err
		}
	}
}
