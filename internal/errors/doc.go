// Package errors provides coded, actionable errors for the vgate CLI.
//
// Library packages return plain sentinels and typed wrappers. The CLI maps
// them to an *Error with a stable code, a short explanation and a hint, and
// prints it to the terminal.
//
// # Categories
//
//   - config: the config file is missing, unreadable or invalid
//   - token: the bot token is missing or malformed
//   - gateway: the gateway refused or dropped the session
//   - cli: bad flags or arguments
//
// # Usage
//
//	err := errors.New("C002").
//	    WithLocation("vgate.toml", 4, 9).
//	    WithSuggestion("Quote string values").
//	    Wrap(parseErr)
//
//	errors.PrintError(err)
//	// Output:
//	// ERROR C002: Config file could not be parsed
//	//
//	//   vgate.toml:4:9
//	//
//	//       3 │ [gateway]
//	//   →   4 │ url = wss://gateway.discord.gg
//	//         │         ^
//	//       5 │ reconnect_delay = "5s"
//	//
//	//   Hint: Quote string values
package errors
