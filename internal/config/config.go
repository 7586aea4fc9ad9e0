package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vgate/internal/errors"
	"github.com/vango-dev/vgate/internal/logging"
	"github.com/vango-dev/vgate/pkg/gateway"
	"github.com/vango-dev/vgate/pkg/protocol"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvToken  = "CLIENT_TOKEN"
	EnvPrefix = "CLIENT_PREFIX"
)

const (
	// BaseName is the config file name without extension.
	BaseName = "vgate"

	// DefaultPrefix is the default command prefix.
	DefaultPrefix = "!"

	// DefaultLoginTimeout bounds the wait for the first READY.
	DefaultLoginTimeout = "30s"
)

// Format is a config file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FileNames lists the files Load looks for, in order.
var FileNames = []string{"vgate.json", "vgate.toml", "vgate.yaml", "vgate.yml"}

// DefaultIntents are used when client.intents is empty.
var DefaultIntents = []string{"guilds", "guild_messages", "message_content"}

// Config is the complete vgate configuration.
type Config struct {
	Client  ClientConfig  `json:"client" toml:"client" yaml:"client"`
	Gateway GatewayConfig `json:"gateway" toml:"gateway" yaml:"gateway"`
	Log     LogConfig     `json:"log" toml:"log" yaml:"log"`
	Admin   AdminConfig   `json:"admin" toml:"admin" yaml:"admin"`

	configPath string
}

// ClientConfig configures the bot client.
type ClientConfig struct {
	// Token is the bot token. Prefer ${CLIENT_TOKEN} over a literal.
	Token string `json:"token,omitempty" toml:"token,omitempty" yaml:"token,omitempty"`

	// Prefix starts a text command.
	Prefix string `json:"prefix,omitempty" toml:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Intents are snake_case intent names.
	Intents []string `json:"intents,omitempty" toml:"intents,omitempty" yaml:"intents,omitempty"`

	// LoginTimeout bounds the wait for READY (e.g. "30s").
	LoginTimeout string `json:"login_timeout,omitempty" toml:"login_timeout,omitempty" yaml:"login_timeout,omitempty"`
}

// GatewayConfig configures the connection manager. Durations are strings
// such as "5s".
type GatewayConfig struct {
	URL                  string `json:"url,omitempty" toml:"url,omitempty" yaml:"url,omitempty"`
	ReconnectDelay       string `json:"reconnect_delay,omitempty" toml:"reconnect_delay,omitempty" yaml:"reconnect_delay,omitempty"`
	MaxReconnectAttempts int    `json:"max_reconnect_attempts,omitempty" toml:"max_reconnect_attempts,omitempty" yaml:"max_reconnect_attempts,omitempty"`
	InvalidSessionDelay  string `json:"invalid_session_delay,omitempty" toml:"invalid_session_delay,omitempty" yaml:"invalid_session_delay,omitempty"`
	QueueSize            int    `json:"queue_size,omitempty" toml:"queue_size,omitempty" yaml:"queue_size,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level   string `json:"level,omitempty" toml:"level,omitempty" yaml:"level,omitempty"`
	Format  string `json:"format,omitempty" toml:"format,omitempty" yaml:"format,omitempty"`
	NoColor bool   `json:"no_color,omitempty" toml:"no_color,omitempty" yaml:"no_color,omitempty"`
}

// AdminConfig configures the admin HTTP server. An empty Addr disables it.
type AdminConfig struct {
	Addr      string `json:"addr,omitempty" toml:"addr,omitempty" yaml:"addr,omitempty"`
	Namespace string `json:"namespace,omitempty" toml:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	def := gateway.DefaultConfig()
	return &Config{
		Client: ClientConfig{
			Prefix:       DefaultPrefix,
			Intents:      append([]string(nil), DefaultIntents...),
			LoginTimeout: DefaultLoginTimeout,
		},
		Gateway: GatewayConfig{
			URL:                  def.URL,
			ReconnectDelay:       def.ReconnectDelay.String(),
			MaxReconnectAttempts: def.MaxReconnectAttempts,
			InvalidSessionDelay:  def.InvalidSessionDelay.String(),
			QueueSize:            def.QueueSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatColor,
		},
		Admin: AdminConfig{
			Namespace: "vgate",
		},
	}
}

// FormatOf returns the format implied by the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.New("C004").WithDetail("Unsupported config file " + filepath.Base(path) + ".")
}

// Find returns the first config file present in dir.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.New("C001").
		WithDetail("No vgate.json, vgate.toml or vgate.yaml found in " + dir + ".")
}

// Exists reports whether dir contains a config file.
func Exists(dir string) bool {
	_, err := Find(dir)
	return err == nil
}

// Load reads the config file found in dir.
func Load(dir string) (*Config, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads, expands, decodes and validates the file at path.
func LoadFile(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C001").WithDetail("No config file at " + path + ".")
		}
		return nil, errors.New("C002").Wrap(err)
	}

	expanded := []byte(expandEnvVars(string(data)))
	cfg := New()
	if err := decode(format, expanded, cfg); err != nil {
		return nil, parseError(path, format, expanded, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(format Format, data []byte, cfg *Config) error {
	switch format {
	case FormatTOML:
		return toml.Unmarshal(data, cfg)
	case FormatYAML:
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// parseError locates a decode failure in the source file when the decoder
// reports a position.
func parseError(path string, format Format, data []byte, err error) error {
	e := errors.New("C002").Wrap(err)

	line, col := 0, 0
	switch format {
	case FormatJSON:
		if se, ok := err.(*json.SyntaxError); ok {
			line, col = offsetToLine(data, se.Offset)
		}
		e.WithSuggestion("Check that the file is valid JSON")
	case FormatTOML:
		if pe, ok := err.(toml.ParseError); ok {
			line = pe.Position.Line
		}
		e.WithSuggestion("Check that string values are quoted")
	case FormatYAML:
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
		e.WithSuggestion("Check the indentation")
	}
	if line > 0 {
		e.WithLocation(path, line, col)
	}
	return e
}

// offsetToLine converts a byte offset into a 1-based line and column.
func offsetToLine(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line = bytes.Count(before, []byte("\n")) + 1
	col = int(offset) - (bytes.LastIndexByte(before, '\n') + 1)
	return line, col
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the environment value, or "" when unset.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path in the format of its extension.
func (c *Config) SaveTo(path string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := c.Encode(format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.New("C002").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Encode renders the configuration in the given format.
func (c *Config) Encode(format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, errors.New("C002").Wrap(err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, errors.New("C002").Wrap(err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return nil, errors.New("C002").Wrap(err)
		}
		if err := enc.Close(); err != nil {
			return nil, errors.New("C002").Wrap(err)
		}
	default:
		return nil, errors.New("C004").WithDetail(fmt.Sprintf("Unknown format %q.", format))
	}
	return buf.Bytes(), nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	def := New()
	if c.Client.Prefix == "" {
		c.Client.Prefix = def.Client.Prefix
	}
	if len(c.Client.Intents) == 0 {
		c.Client.Intents = def.Client.Intents
	}
	if c.Client.LoginTimeout == "" {
		c.Client.LoginTimeout = def.Client.LoginTimeout
	}
	if c.Gateway.URL == "" {
		c.Gateway.URL = def.Gateway.URL
	}
	if c.Gateway.ReconnectDelay == "" {
		c.Gateway.ReconnectDelay = def.Gateway.ReconnectDelay
	}
	if c.Gateway.MaxReconnectAttempts == 0 {
		c.Gateway.MaxReconnectAttempts = def.Gateway.MaxReconnectAttempts
	}
	if c.Gateway.InvalidSessionDelay == "" {
		c.Gateway.InvalidSessionDelay = def.Gateway.InvalidSessionDelay
	}
	if c.Gateway.QueueSize == 0 {
		c.Gateway.QueueSize = def.Gateway.QueueSize
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Admin.Namespace == "" {
		c.Admin.Namespace = def.Admin.Namespace
	}
}

// ApplyEnv overrides the token and prefix from CLIENT_TOKEN and
// CLIENT_PREFIX when they are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvToken); v != "" {
		c.Client.Token = v
	}
	if v := os.Getenv(EnvPrefix); v != "" {
		c.Client.Prefix = v
	}
}

func invalid(field, detail string) *errors.Error {
	return errors.New("C003").WithDetail(field + ": " + detail)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := protocol.ParseIntents(c.Client.Intents); err != nil {
		return invalid("client.intents", err.Error()).
			WithSuggestion("Known intents: " + strings.Join(protocol.IntentNames(), ", "))
	}
	for field, raw := range map[string]string{
		"client.login_timeout":          c.Client.LoginTimeout,
		"gateway.reconnect_delay":       c.Gateway.ReconnectDelay,
		"gateway.invalid_session_delay": c.Gateway.InvalidSessionDelay,
	} {
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			return invalid(field, fmt.Sprintf("%q is not a positive duration", raw)).
				WithSuggestion(`Use a Go duration such as "5s"`)
		}
	}
	if c.Gateway.MaxReconnectAttempts < 0 {
		return invalid("gateway.max_reconnect_attempts", "must not be negative")
	}
	if c.Gateway.QueueSize < 0 {
		return invalid("gateway.queue_size", "must not be negative")
	}
	if !strings.HasPrefix(c.Gateway.URL, "ws://") && !strings.HasPrefix(c.Gateway.URL, "wss://") {
		return invalid("gateway.url", "must start with ws:// or wss://")
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return invalid("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case logging.FormatColor, logging.FormatText, logging.FormatJSON:
	default:
		return invalid("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	return nil
}

// IntentSet resolves the configured intent names.
func (c *ClientConfig) IntentSet() (protocol.Intent, error) {
	return protocol.ParseIntents(c.Intents)
}

// Timeout returns the parsed login timeout.
func (c *ClientConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.LoginTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultLoginTimeout)
	}
	return d
}

// ToGateway converts the section into a manager config. Token, intents,
// logger and dialer are left to the caller.
func (g *GatewayConfig) ToGateway() (*gateway.Config, error) {
	cfg := gateway.DefaultConfig().WithURL(g.URL)
	if g.ReconnectDelay != "" {
		d, err := time.ParseDuration(g.ReconnectDelay)
		if err != nil {
			return nil, invalid("gateway.reconnect_delay", err.Error())
		}
		cfg.ReconnectDelay = d
	}
	if g.MaxReconnectAttempts > 0 {
		cfg.MaxReconnectAttempts = g.MaxReconnectAttempts
	}
	if g.InvalidSessionDelay != "" {
		d, err := time.ParseDuration(g.InvalidSessionDelay)
		if err != nil {
			return nil, invalid("gateway.invalid_session_delay", err.Error())
		}
		cfg.InvalidSessionDelay = d
	}
	if g.QueueSize > 0 {
		cfg.QueueSize = g.QueueSize
	}
	return cfg, nil
}

// Logging returns the logger settings with VGATE_LOG_* overrides applied.
func (l LogConfig) Logging() logging.Config {
	out := logging.Config{Level: l.Level, Format: l.Format, NoColor: l.NoColor}
	out.ApplyEnv()
	return out
}
