// Package gateway maintains a single authenticated connection to a real-time
// event gateway.
//
// A Manager performs the opening handshake (hello, then identify or resume),
// keeps the connection alive with acknowledged heartbeats, tracks the
// dispatch sequence number so a dropped session can be resumed, and
// reconnects with linear backoff after abnormal closures.
//
// # Event Loop
//
// All manager state is owned by one goroutine. Transport callbacks, timer
// firings and public method calls are queued onto it as closures, so frames
// are processed strictly in arrival order and the sequence number is
// updated before a dispatch reaches subscribers.
//
// Subscribers registered with OnReady, OnDispatch and friends run on that
// goroutine, synchronously and in registration order. They must not call
// Connect, SetToken or Destroy directly; start a goroutine instead.
//
// # Usage
//
//	m := gateway.New(gateway.DefaultConfig().
//	    WithToken(token).
//	    WithIntents(protocol.IntentGuilds | protocol.IntentGuildMessages))
//	defer m.Destroy()
//
//	m.OnDispatch(func(env *protocol.Envelope) {
//	    log.Println(env.Event, string(env.Data))
//	})
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	if err := m.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Failure Handling
//
// A close with code 4004 means the token was rejected. The manager tears
// itself down and every later Connect returns the same *CloseError. Any
// other closure, a failed dial, or a heartbeat that was never acknowledged
// is handed to the reconnect supervisor, which waits ReconnectDelay times
// the attempt number before dialing again. After MaxReconnectAttempts
// consecutive failures the pending Connect fails with ErrReconnectExhausted.
// The attempt counter resets whenever the session becomes ready.
package gateway
