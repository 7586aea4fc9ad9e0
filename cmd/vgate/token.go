package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vgate/internal/config"
	"github.com/vango-dev/vgate/internal/errors"
	"github.com/vango-dev/vgate/pkg/client"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with bot tokens",
	}
	cmd.AddCommand(tokenInspectCmd())
	return cmd
}

func tokenInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [token]",
		Short: "Validate a token and print the bot user id",
		Long: `Validate the shape of a bot token and decode the user id from its
first segment. Without an argument the token is read from CLIENT_TOKEN.

Nothing is sent over the network.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := os.Getenv(config.EnvToken)
			if len(args) == 1 {
				raw = args[0]
			}

			token := client.NormalizeToken(raw)
			if err := client.ValidateToken(token); err != nil {
				return errors.FromError(err, "T002")
			}
			id, err := client.UserIDFromToken(token)
			if err != nil {
				return errors.FromError(err, "T002")
			}

			out := cmd.OutOrStdout()
			success(out, "Token format is valid")
			field(out, "User ID", id)
			field(out, "Mention", client.Mention(id))
			field(out, "Token", redact(token))
			return nil
		},
	}
	return cmd
}
