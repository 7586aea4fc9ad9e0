package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/vgate/internal/errors"
	"github.com/vango-dev/vgate/pkg/gateway"
	"github.com/vango-dev/vgate/pkg/protocol"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func code(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Client.Prefix != DefaultPrefix {
		t.Errorf("Client.Prefix = %q, want %q", cfg.Client.Prefix, DefaultPrefix)
	}
	if cfg.Gateway.URL != gateway.DefaultURL {
		t.Errorf("Gateway.URL = %q", cfg.Gateway.URL)
	}
	if cfg.Gateway.ReconnectDelay != "5s" {
		t.Errorf("Gateway.ReconnectDelay = %q, want 5s", cfg.Gateway.ReconnectDelay)
	}
	if cfg.Gateway.MaxReconnectAttempts != 5 {
		t.Errorf("Gateway.MaxReconnectAttempts = %d, want 5", cfg.Gateway.MaxReconnectAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "vgate.json",
			content: `{
  "client": {"prefix": "?", "intents": ["guilds", "guild_messages"]},
  "gateway": {"reconnect_delay": "2s", "max_reconnect_attempts": 3},
  "admin": {"addr": ":9090"}
}`,
		},
		{
			name: "toml",
			file: "vgate.toml",
			content: `[client]
prefix = "?"
intents = ["guilds", "guild_messages"]

[gateway]
reconnect_delay = "2s"
max_reconnect_attempts = 3

[admin]
addr = ":9090"
`,
		},
		{
			name: "yaml",
			file: "vgate.yaml",
			content: `client:
  prefix: "?"
  intents: [guilds, guild_messages]
gateway:
  reconnect_delay: 2s
  max_reconnect_attempts: 3
admin:
  addr: ":9090"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, tt.file, tt.content)

			cfg, err := Load(dir)
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if cfg.Path() != path {
				t.Errorf("Path() = %q, want %q", cfg.Path(), path)
			}
			if cfg.Client.Prefix != "?" {
				t.Errorf("Client.Prefix = %q, want ?", cfg.Client.Prefix)
			}
			intents, err := cfg.Client.IntentSet()
			if err != nil {
				t.Fatal(err)
			}
			if intents != protocol.IntentGuilds|protocol.IntentGuildMessages {
				t.Errorf("intents = %d", intents)
			}
			if cfg.Gateway.ReconnectDelay != "2s" || cfg.Gateway.MaxReconnectAttempts != 3 {
				t.Errorf("Gateway = %+v", cfg.Gateway)
			}
			if cfg.Admin.Addr != ":9090" {
				t.Errorf("Admin.Addr = %q", cfg.Admin.Addr)
			}
			// Untouched fields keep their defaults.
			if cfg.Gateway.URL != gateway.DefaultURL || cfg.Log.Level != "info" {
				t.Errorf("defaults lost: %+v %+v", cfg.Gateway, cfg.Log)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	if code(err) != "C001" {
		t.Errorf("error code = %q, want C001 (%v)", code(err), err)
	}
	if Exists(t.TempDir()) {
		t.Error("Exists should be false for an empty directory")
	}
}

func TestLoadFilePrefersJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vgate.yaml", "client:\n  prefix: y\n")
	want := writeFile(t, dir, "vgate.json", `{"client":{"prefix":"j"}}`)

	got, err := Find(dir)
	if err != nil || got != want {
		t.Fatalf("Find() = %q, %v; want %q", got, err, want)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "vgate.ini", "x=1")
	_, err := LoadFile(path)
	if code(err) != "C004" {
		t.Errorf("error code = %q, want C004", code(err))
	}
}

func TestLoadParseErrorLocation(t *testing.T) {
	tests := []struct {
		file    string
		content string
		line    int
	}{
		{"vgate.json", "{\n  \"client\": {\n    \"prefix\": ,\n  }\n}", 3},
		{"vgate.toml", "[client]\nprefix = \"!\"\n[gateway]\nurl = wss://x\n", 4},
		{"vgate.yaml", "client:\n\tprefix: x\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := LoadFile(path)

			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("expected *errors.Error, got %v", err)
			}
			if e.Code != "C002" {
				t.Errorf("Code = %q, want C002", e.Code)
			}
			if e.Location == nil {
				t.Fatalf("Location not set: %v", err)
			}
			if e.Location.Line != tt.line {
				t.Errorf("Location.Line = %d, want %d", e.Location.Line, tt.line)
			}
			if len(e.Context) == 0 {
				t.Error("Context should hold the surrounding lines")
			}
		})
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("VGATE_TEST_TOKEN", "abc.def.ghi")
	path := writeFile(t, t.TempDir(), "vgate.toml", "[client]\ntoken = \"${VGATE_TEST_TOKEN}\"\nprefix = \"${VGATE_UNSET_VAR}\"\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Client.Token != "abc.def.ghi" {
		t.Errorf("Client.Token = %q", cfg.Client.Token)
	}
	if cfg.Client.Prefix != DefaultPrefix {
		t.Errorf("unset variable should fall back to the default prefix, got %q", cfg.Client.Prefix)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"unknown intent", func(c *Config) { c.Client.Intents = []string{"guilds", "everything"} }, "client.intents"},
		{"bad duration", func(c *Config) { c.Gateway.ReconnectDelay = "soon" }, "gateway.reconnect_delay"},
		{"zero duration", func(c *Config) { c.Client.LoginTimeout = "0s" }, "client.login_timeout"},
		{"negative attempts", func(c *Config) { c.Gateway.MaxReconnectAttempts = -1 }, "gateway.max_reconnect_attempts"},
		{"http url", func(c *Config) { c.Gateway.URL = "https://gateway.example" }, "gateway.url"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if code(err) != "C003" {
				t.Fatalf("error code = %q, want C003 (%v)", code(err), err)
			}
			var e *errors.Error
			stderrors.As(err, &e)
			if !strings.HasPrefix(e.Detail, tt.field+":") {
				t.Errorf("Detail = %q, want field %s", e.Detail, tt.field)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvToken, "Bot env-token")
	t.Setenv(EnvPrefix, "$")

	cfg := New()
	cfg.Client.Token = "file-token"
	cfg.ApplyEnv()

	if cfg.Client.Token != "Bot env-token" {
		t.Errorf("Client.Token = %q", cfg.Client.Token)
	}
	if cfg.Client.Prefix != "$" {
		t.Errorf("Client.Prefix = %q", cfg.Client.Prefix)
	}
}

func TestApplyEnvKeepsFileValues(t *testing.T) {
	t.Setenv(EnvToken, "")
	cfg := New()
	cfg.Client.Token = "file-token"
	cfg.ApplyEnv()
	if cfg.Client.Token != "file-token" {
		t.Errorf("Client.Token = %q", cfg.Client.Token)
	}
}

func TestToGateway(t *testing.T) {
	cfg := New()
	cfg.Gateway.URL = "ws://127.0.0.1:1234/?v=10"
	cfg.Gateway.ReconnectDelay = "250ms"
	cfg.Gateway.MaxReconnectAttempts = 2
	cfg.Gateway.InvalidSessionDelay = "1s"
	cfg.Gateway.QueueSize = 16

	gw, err := cfg.Gateway.ToGateway()
	if err != nil {
		t.Fatal(err)
	}
	if gw.URL != "ws://127.0.0.1:1234/?v=10" {
		t.Errorf("URL = %q", gw.URL)
	}
	if gw.ReconnectDelay != 250*time.Millisecond || gw.MaxReconnectAttempts != 2 {
		t.Errorf("reconnect = %v x%d", gw.ReconnectDelay, gw.MaxReconnectAttempts)
	}
	if gw.InvalidSessionDelay != time.Second || gw.QueueSize != 16 {
		t.Errorf("InvalidSessionDelay = %v, QueueSize = %d", gw.InvalidSessionDelay, gw.QueueSize)
	}

	cfg.Gateway.ReconnectDelay = "nope"
	if _, err := cfg.Gateway.ToGateway(); code(err) != "C003" {
		t.Errorf("error code = %q, want C003", code(err))
	}
}

func TestTimeout(t *testing.T) {
	c := ClientConfig{LoginTimeout: "10s"}
	if c.Timeout() != 10*time.Second {
		t.Errorf("Timeout() = %v", c.Timeout())
	}
	c.LoginTimeout = "bad"
	if c.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want default", c.Timeout())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"vgate.json", "vgate.toml", "vgate.yaml"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := New()
			cfg.Client.Prefix = "%"
			cfg.Admin.Addr = "127.0.0.1:9100"

			path := filepath.Join(dir, name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo error: %v", err)
			}
			if cfg.Path() != path {
				t.Errorf("Path() = %q", cfg.Path())
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile error: %v", err)
			}
			if loaded.Client.Prefix != "%" || loaded.Admin.Addr != "127.0.0.1:9100" {
				t.Errorf("loaded = %+v", loaded)
			}
			if strings.Join(loaded.Client.Intents, ",") != strings.Join(DefaultIntents, ",") {
				t.Errorf("Intents = %v", loaded.Client.Intents)
			}
		})
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save without a path should fail")
	}
}

func TestLogging(t *testing.T) {
	t.Setenv("VGATE_LOG_LEVEL", "error")
	got := LogConfig{Level: "debug", Format: "json"}.Logging()
	if got.Level != "error" || got.Format != "json" {
		t.Errorf("Logging() = %+v", got)
	}
}
