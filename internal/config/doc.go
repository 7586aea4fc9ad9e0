// Package config loads the vgate configuration file.
//
// The file is vgate.json, vgate.toml or vgate.yaml in the working
// directory. The format follows the extension. ${VAR} references are
// expanded from the environment before parsing.
//
// # Configuration File Structure
//
//	[client]
//	token = "${CLIENT_TOKEN}"
//	prefix = "!"
//	intents = ["guilds", "guild_messages", "message_content"]
//	login_timeout = "30s"
//
//	[gateway]
//	url = "wss://gateway.discord.gg/?v=10&encoding=json"
//	reconnect_delay = "5s"
//	max_reconnect_attempts = 5
//	invalid_session_delay = "5s"
//
//	[log]
//	level = "info"
//	format = "color"
//
//	[admin]
//	addr = ":9090"
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    return err
//	}
//	cfg.ApplyEnv()
//	gw, err := cfg.Gateway.ToGateway()
package config
