package main

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vgate/internal/admin"
	"github.com/vango-dev/vgate/internal/config"
	"github.com/vango-dev/vgate/internal/errors"
	"github.com/vango-dev/vgate/internal/logging"
	"github.com/vango-dev/vgate/pkg/client"
	"github.com/vango-dev/vgate/pkg/commands"
	"github.com/vango-dev/vgate/pkg/gateway"
	"github.com/vango-dev/vgate/pkg/metrics"
	"github.com/vango-dev/vgate/pkg/protocol"
)

type runOptions struct {
	configPath string
	adminAddr  string
	prefix     string
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the gateway and run commands",
		Long: `Log in, keep the gateway connection alive and answer text commands
until SIGINT or SIGTERM.

The token comes from CLIENT_TOKEN or client.token in the config file.

Examples:
  CLIENT_TOKEN=... vgate run
  vgate run --config ./vgate.yaml --metrics-addr :9090
  vgate run --prefix '?'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: vgate.{json,toml,yaml} in the working directory)")
	cmd.Flags().StringVar(&opts.adminAddr, "metrics-addr", "", "Serve /healthz, /status and /metrics on this address")
	cmd.Flags().StringVarP(&opts.prefix, "prefix", "p", "", "Command prefix (overrides config and CLIENT_PREFIX)")

	return cmd
}

func runGateway(ctx context.Context, out io.Writer, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, found, err := loadConfig(opts.configPath, ".")
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if opts.prefix != "" {
		cfg.Client.Prefix = opts.prefix
	}
	if opts.adminAddr != "" {
		cfg.Admin.Addr = opts.adminAddr
	}

	logger := logging.New(cfg.Log.Logging(), os.Stderr)

	printBanner(out)
	field(out, "Config", configLabel(cfg, found))
	field(out, "Gateway", cfg.Gateway.URL)
	field(out, "Prefix", cfg.Client.Prefix)
	if cfg.Admin.Addr != "" {
		field(out, "Admin", cfg.Admin.Addr)
	}
	info(out, "")

	intents, err := cfg.Client.IntentSet()
	if err != nil {
		return errors.New("C003").WithDetail("client.intents: " + err.Error())
	}
	gw, err := cfg.Gateway.ToGateway()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(
		metrics.WithRegistry(reg),
		metrics.WithNamespace(cfg.Admin.Namespace),
	)
	gw.WithRecorder(recorder).WithLogger(logger)

	c, err := client.New(client.Options{
		Intents: []protocol.Intent{intents},
		Token:   cfg.Client.Token,
		Gateway: gw,
		Logger:  logger,
	})
	if err != nil {
		return errors.FromError(err, "X002")
	}
	defer c.Destroy()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fatal := make(chan error, 1)
	c.OnError(func(err error) {
		if stderrors.Is(err, gateway.ErrReconnectExhausted) || stderrors.Is(err, gateway.ErrAuthenticationFailed) {
			select {
			case fatal <- err:
			default:
			}
			return
		}
		logger.Warn("gateway error", "error", err)
	})
	c.OnDebug(func(msg string) {
		logger.Debug(msg)
	})

	registry := commands.NewRegistry(logger)
	registry.Use(commands.Tracing())
	registry.MustRegister(commands.Ping())
	detach := registry.Attach(ctx, c, cfg.Client.Prefix)
	defer func() {
		detach()
		registry.Wait()
	}()

	if cfg.Admin.Addr != "" {
		srv := admin.NewServer(cfg.Admin.Addr, c.Manager(), reg, logger)
		if _, err := srv.Start(); err != nil {
			return errors.New("X002").WithDetail("Could not start the admin server.").Wrap(err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	loginCtx, cancel := context.WithTimeout(ctx, cfg.Client.Timeout())
	_, err = c.Login(loginCtx, "")
	cancel()
	if err != nil {
		return errors.FromError(err, "X002")
	}
	if u := c.User(); u != nil {
		success(out, "Logged in as %s (%s)", u.Username, u.ID)
	}

	select {
	case <-ctx.Done():
		info(out, "Shutting down")
		return nil
	case err := <-fatal:
		errorMsg(out, "Connection lost")
		return errors.FromError(err, "X002")
	}
}

func configLabel(cfg *config.Config, found bool) string {
	if !found {
		return "(defaults)"
	}
	return cfg.Path()
}
