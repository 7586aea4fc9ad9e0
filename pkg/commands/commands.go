// Package commands runs text commands addressed to the bot.
//
// A message is a command when it starts with the bot mention or the
// configured prefix. The rest is split on whitespace into a command name
// and arguments.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/vgate/pkg/client"
)

// Registry errors.
var (
	ErrNameRequired = errors.New("commands: name is required")
	ErrRunRequired  = errors.New("commands: run function is required")
	ErrDuplicate    = errors.New("commands: duplicate command")
)

// RunFunc executes a command.
type RunFunc func(ctx context.Context, inv *Invocation) error

// Command is a named text command.
type Command struct {
	Name        string
	Description string

	// Cooldown is the minimum time between two runs by the same user.
	Cooldown time.Duration

	Run RunFunc
}

// Invocation carries one command run.
type Invocation struct {
	Client  *client.Client
	Message *client.Message
	Name    string
	Args    []string
	Logger  *slog.Logger
}

// Registry holds commands by name.
type Registry struct {
	logger *slog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	commands   map[string]*Command
	cooldowns  map[string]time.Time // command + "\x00" + user id -> end of cooldown
	lastSweep  time.Time
	middleware []Middleware

	wg sync.WaitGroup
}

// NewRegistry creates an empty registry. A nil logger uses slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger.With("component", "commands"),
		now:       time.Now,
		commands:  make(map[string]*Command),
		cooldowns: make(map[string]time.Time),
	}
}

// Register adds cmd. Names are unique.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil || cmd.Name == "" {
		return ErrNameRequired
	}
	if cmd.Run == nil {
		return fmt.Errorf("%w: %s", ErrRunRequired, cmd.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[cmd.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	r.logger.Debug("command loaded", "name", cmd.Name)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(cmds ...*Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the command with the given name.
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns every command name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse extracts a command name and arguments from content. content must
// start with mention or prefix; an empty mention or prefix never matches.
func Parse(content, prefix, mention string) (name string, args []string, ok bool) {
	var rest string
	switch {
	case mention != "" && strings.HasPrefix(content, mention):
		rest = content[len(mention):]
	case prefix != "" && strings.HasPrefix(content, prefix):
		rest = content[len(prefix):]
	default:
		return "", nil, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

// allow reports whether user may run cmd now, and records the run.
func (r *Registry) allow(cmd *Command, userID string) bool {
	if cmd.Cooldown <= 0 {
		return true
	}
	key := cmd.Name + "\x00" + userID
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepCooldowns(now)
	if until, ok := r.cooldowns[key]; ok && now.Before(until) {
		return false
	}
	r.cooldowns[key] = now.Add(cmd.Cooldown)
	return true
}

// cooldownSweepInterval bounds how often expired cooldowns are dropped.
const cooldownSweepInterval = time.Minute

// sweepCooldowns removes expired entries. r.mu must be held.
func (r *Registry) sweepCooldowns(now time.Time) {
	if now.Sub(r.lastSweep) < cooldownSweepInterval {
		return
	}
	r.lastSweep = now
	for key, until := range r.cooldowns {
		if !now.Before(until) {
			delete(r.cooldowns, key)
		}
	}
}

// Handle runs the command addressed by msg, if any, in its own goroutine.
// It returns true when a command was started.
func (r *Registry) Handle(ctx context.Context, c *client.Client, msg *client.Message, prefix string) bool {
	if msg == nil || msg.Content == "" || msg.Author.Bot {
		return false
	}

	var (
		name string
		args []string
		ok   bool
	)
	for _, mention := range mentions(c) {
		if name, args, ok = Parse(msg.Content, prefix, mention); ok {
			break
		}
	}
	if !ok {
		return false
	}

	cmd, found := r.Lookup(name)
	if !found {
		return false
	}
	if !r.allow(cmd, msg.Author.ID) {
		r.logger.Debug("command on cooldown", "name", name, "user", msg.Author.ID)
		return false
	}

	inv := &Invocation{
		Client:  c,
		Message: msg,
		Name:    name,
		Args:    args,
		Logger:  r.logger.With("command", name),
	}
	r.wg.Add(1)
	go r.run(ctx, cmd, inv)
	return true
}

// mentions returns the mention forms of the bot user. Before READY the id
// is taken from the token.
func mentions(c *client.Client) []string {
	var id string
	if u := c.User(); u != nil {
		id = u.ID
	} else if tid, err := client.UserIDFromToken(c.Token()); err == nil {
		id = tid
	}
	if id == "" {
		return []string{""}
	}
	return []string{client.Mention(id), "<@!" + id + ">"}
}

func (r *Registry) run(ctx context.Context, cmd *Command, inv *Invocation) {
	defer r.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("command panic",
				"name", cmd.Name,
				"panic", p,
				"stack", string(debug.Stack()))
		}
	}()

	if err := r.chain(cmd.Run)(ctx, inv); err != nil {
		r.logger.Error("command failed", "name", cmd.Name, "user", inv.Message.Author.Username, "error", err)
		return
	}
	r.logger.Info("command executed", "name", cmd.Name, "user", inv.Message.Author.Username)
}

// Attach runs commands for every message the client receives. The returned
// function detaches the registry.
func (r *Registry) Attach(ctx context.Context, c *client.Client, prefix string) (detach func()) {
	return c.OnMessageCreate(func(msg *client.Message) {
		r.Handle(ctx, c, msg, prefix)
	})
}

// Wait blocks until every started command has returned.
func (r *Registry) Wait() {
	r.wg.Wait()
}
