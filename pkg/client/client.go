// Package client is a thin bot client on top of the gateway manager.
//
// It validates and normalizes the login token, forwards lifecycle events
// from the manager, and routes selected dispatch events to typed handlers.
// Only MESSAGE_CREATE is routed by default.
//
//	c, err := client.New(client.Options{
//	    Intents: []protocol.Intent{protocol.IntentGuildMessages, protocol.IntentMessageContent},
//	})
//	if err != nil {
//	    return err
//	}
//	c.OnMessageCreate(func(m *client.Message) {
//	    log.Println(m.Author.Username, m.Content)
//	})
//	if _, err := c.Login(ctx, os.Getenv("CLIENT_TOKEN")); err != nil {
//	    return err
//	}
//	defer c.Destroy()
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vango-dev/vgate/pkg/events"
	"github.com/vango-dev/vgate/pkg/gateway"
	"github.com/vango-dev/vgate/pkg/protocol"
)

// ErrNoIntents is returned by New when no intent is given.
var ErrNoIntents = errors.New("client: at least one intent must be provided")

// DebugPrefix is prepended to manager debug messages.
const DebugPrefix = "[WS => Manager]: "

// Options configures a Client.
type Options struct {
	// Intents are combined into the identify intents. At least one is required.
	Intents []protocol.Intent

	// Token is used by Login when it is called with an empty token.
	Token string

	// Gateway is the base manager config. Its Token and Intents are ignored.
	// Default: gateway.DefaultConfig().
	Gateway *gateway.Config

	// Router routes dispatch events. Default: NewRouter().
	Router *Router

	// Logger receives structured logs. Default: slog.Default().
	Logger *slog.Logger
}

// Client wraps a gateway.Manager.
type Client struct {
	manager *gateway.Manager
	router  *Router
	logger  *slog.Logger
	intents protocol.Intent

	mu        sync.Mutex
	token     string
	user      *protocol.User
	destroyed bool
	unsubs    []func()

	ready    events.Bus[*protocol.Ready]
	resumed  events.Bus[struct{}]
	debug    events.Bus[string]
	errs     events.Bus[error]
	messages events.Bus[*Message]
}

// New creates a Client and its manager.
func New(opts Options) (*Client, error) {
	if len(opts.Intents) == 0 {
		return nil, ErrNoIntents
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	router := opts.Router
	if router == nil {
		router = NewRouter()
	}

	cfg := opts.Gateway.Clone()
	if cfg == nil {
		cfg = gateway.DefaultConfig()
	}
	intents := protocol.CombineIntents(opts.Intents...)
	cfg.Intents = intents
	cfg.Token = ""
	if cfg.Logger == nil {
		cfg.Logger = logger
	}

	c := &Client{
		manager: gateway.New(cfg),
		router:  router,
		logger:  logger.With("component", "client"),
		intents: intents,
		token:   opts.Token,
	}
	c.attach()
	return c, nil
}

func (c *Client) attach() {
	c.unsubs = append(c.unsubs,
		c.manager.OnReady(func(r *protocol.Ready) {
			c.mu.Lock()
			user := r.User
			c.user = &user
			c.mu.Unlock()
			c.logger.Info("logged in", "user", r.User.Username, "id", r.User.ID)
			c.subscriberPanic("ready", c.ready.Emit(r))
		}),
		c.manager.OnResumed(func() {
			c.subscriberPanic("resumed", c.resumed.Emit(struct{}{}))
		}),
		c.manager.OnDebug(func(msg string) {
			c.subscriberPanic("debug", c.debug.Emit(DebugPrefix+msg))
		}),
		c.manager.OnError(c.emitError),
		c.manager.OnDispatch(c.route),
	)
}

// route hands a dispatch to its handler, if one is registered.
func (c *Client) route(env *protocol.Envelope) {
	handle, ok := c.router.Lookup(env.Event)
	if !ok {
		return
	}
	if err := handle(c, env.Data); err != nil {
		c.logger.Warn("dispatch handler failed", "event", env.Event, "error", err)
		c.emitError(err)
	}
}

func (c *Client) emitError(err error) {
	c.subscriberPanic("error", c.errs.Emit(err))
}

// subscriberPanic reports panics recovered from subscribers of event on
// the error stream. Panics in error subscribers are only logged.
func (c *Client) subscriberPanic(event string, err error) {
	if err == nil {
		return
	}
	c.logger.Error("subscriber panicked", "event", event, "error", err)
	if event != "error" {
		c.emitError(err)
	}
}

// Login normalizes and validates token, falling back to Options.Token when
// it is empty, then connects. It returns the normalized token.
//
// A token that fails validation, or a second Login once a token is set,
// returns an error and leaves the client as it was. If connecting fails
// the client is destroyed.
func (c *Client) Login(ctx context.Context, token string) (string, error) {
	c.mu.Lock()
	if token == "" {
		token = c.token
	}
	c.mu.Unlock()

	token = NormalizeToken(token)
	if err := ValidateToken(token); err != nil {
		return "", err
	}

	if err := c.manager.SetToken(token); err != nil {
		return "", fmt.Errorf("client: login failed: %w", err)
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if err := c.manager.Connect(ctx); err != nil {
		c.Destroy()
		return "", fmt.Errorf("client: login failed: %w", err)
	}
	return token, nil
}

// Destroy stops the manager, forgets the token and removes every
// subscriber. It is idempotent.
func (c *Client) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.token = ""
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	c.manager.Destroy()

	c.ready.Clear()
	c.resumed.Clear()
	c.debug.Clear()
	c.errs.Clear()
	c.messages.Clear()
}

// Token returns the normalized token, empty before Login or after Destroy.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// User returns the bot user from READY, or nil before the first READY.
func (c *Client) User() *protocol.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Intents returns the combined intents.
func (c *Client) Intents() protocol.Intent {
	return c.intents
}

// Router returns the dispatch router.
func (c *Client) Router() *Router {
	return c.router
}

// Manager returns the underlying gateway manager.
func (c *Client) Manager() *gateway.Manager {
	return c.manager
}

// OnReady subscribes to READY.
func (c *Client) OnReady(fn func(*protocol.Ready)) (unsubscribe func()) {
	return c.ready.Subscribe(fn)
}

// OnResumed subscribes to RESUMED.
func (c *Client) OnResumed(fn func()) (unsubscribe func()) {
	return c.resumed.Subscribe(func(struct{}) { fn() })
}

// OnDebug subscribes to prefixed debug messages.
func (c *Client) OnDebug(fn func(string)) (unsubscribe func()) {
	return c.debug.Subscribe(fn)
}

// OnError subscribes to manager and handler errors.
func (c *Client) OnError(fn func(error)) (unsubscribe func()) {
	return c.errs.Subscribe(fn)
}

// OnMessageCreate subscribes to decoded MESSAGE_CREATE events.
func (c *Client) OnMessageCreate(fn func(*Message)) (unsubscribe func()) {
	return c.messages.Subscribe(fn)
}
