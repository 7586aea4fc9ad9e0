package errors

import "sort"

// Template defines a registered error code.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

var registry = map[string]Template{
	// Config (C001-C099)
	"C001": {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Detail:     "No vgate.json, vgate.toml or vgate.yaml was found in the working directory.",
		Suggestion: "Run 'vgate config init' to create one, or pass --config",
	},
	"C002": {
		Category: CategoryConfig,
		Message:  "Config file could not be parsed",
		Detail:   "The file is not valid for its format.",
	},
	"C003": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
	},
	"C004": {
		Category:   CategoryConfig,
		Message:    "Unsupported config format",
		Detail:     "Config files must end in .json, .toml, .yaml or .yml.",
		Suggestion: "Rename the file or pass --format",
	},
	"C005": {
		Category:   CategoryConfig,
		Message:    "Config file already exists",
		Suggestion: "Pass --force to overwrite it",
	},

	// Token (T001-T099)
	"T001": {
		Category:   CategoryToken,
		Message:    "Token is required",
		Detail:     "The bot token was not given in the config file or the environment.",
		Suggestion: "Set CLIENT_TOKEN or client.token",
	},
	"T002": {
		Category:   CategoryToken,
		Message:    "Token format is invalid",
		Detail:     "A bot token has three dot-separated segments. The first one is the base64 encoded user id.",
		Suggestion: "Copy the token again from the developer portal",
	},

	// Gateway (G001-G099)
	"G001": {
		Category:   CategoryGateway,
		Message:    "Authentication failed",
		Detail:     "The gateway closed the connection with code 4004.",
		Suggestion: "Reset the bot token and update CLIENT_TOKEN",
	},
	"G002": {
		Category: CategoryGateway,
		Message:  "Reconnect attempts exhausted",
		Detail:   "The connection kept dropping and the reconnect limit was reached.",
	},
	"G003": {
		Category:   CategoryGateway,
		Message:    "Gateway connection timed out",
		Detail:     "No READY was received before the login timeout.",
		Suggestion: "Check the gateway URL and the intents",
	},
	"G004": {
		Category: CategoryGateway,
		Message:  "Client was shut down",
	},

	// CLI (X001-X099)
	"X001": {
		Category: CategoryCLI,
		Message:  "Invalid argument",
	},
	"X002": {
		Category: CategoryCLI,
		Message:  "Command failed",
	},
}

// Codes returns all registered codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
