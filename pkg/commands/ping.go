package commands

import "context"

// Ping logs the message content and its arguments.
func Ping() *Command {
	return &Command{
		Name:        "ping",
		Description: "Logs the message and its arguments",
		Run: func(ctx context.Context, inv *Invocation) error {
			inv.Logger.Info("ping", "content", inv.Message.Content, "args", inv.Args)
			return nil
		},
	}
}
