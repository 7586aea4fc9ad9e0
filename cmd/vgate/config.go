package main

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vgate/internal/config"
	"github.com/vango-dev/vgate/internal/errors"
)

// loadConfig reads path, or the config file in dir when path is empty.
// A missing file in dir yields the defaults with found set to false.
func loadConfig(path, dir string) (cfg *config.Config, found bool, err error) {
	if path != "" {
		cfg, err = config.LoadFile(path)
		return cfg, err == nil, err
	}
	cfg, err = config.Load(dir)
	var e *errors.Error
	if stderrors.As(err, &e) && e.Code == "C001" {
		return config.New(), false, nil
	}
	return cfg, err == nil, err
}

// redact hides all but the first segment of a token.
func redact(token string) string {
	if token == "" {
		return ""
	}
	if i := strings.IndexByte(token, '.'); i > 0 {
		return token[:i] + ".***"
	}
	return "***"
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	cmd.AddCommand(configShowCmd(), configInitCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	var (
		path   string
		format string
		reveal bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and environment overrides.

The token is redacted unless --reveal is given.

Examples:
  vgate config show
  vgate config show --format yaml
  vgate config show --config ./deploy/vgate.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, found, err := loadConfig(path, ".")
			if err != nil {
				return err
			}
			cfg.ApplyEnv()
			if !reveal {
				cfg.Client.Token = redact(cfg.Client.Token)
			}

			data, err := cfg.Encode(config.Format(format))
			if err != nil {
				return err
			}
			if !found {
				warn(cmd.ErrOrStderr(), "No config file found, showing defaults")
			} else {
				info(cmd.ErrOrStderr(), "%s", grayText("# "+cfg.Path()))
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&path, "config", "c", "", "Config file (default: vgate.{json,toml,yaml} in the working directory)")
	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatTOML), "Output format: json, toml or yaml")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the token unredacted")
	return cmd
}

func configInitCmd() *cobra.Command {
	var (
		dir    string
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Long: `Write vgate.<format> with default values. The token is read
from the CLIENT_TOKEN environment variable at startup.

Examples:
  vgate config init
  vgate config init --format yaml --dir ./deploy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(dir, config.BaseName+"."+format)
			if _, err := config.FormatOf(path); err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.New("C005").WithDetail(path + " already exists.")
			}

			cfg := config.New()
			cfg.Client.Token = "${" + config.EnvToken + "}"
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Created %s", path)
			info(cmd.OutOrStdout(), "Set %s and run 'vgate run'", config.EnvToken)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write to")
	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatTOML), "File format: json, toml or yaml")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
