// Package lutron provides a session manager for the telnet Integration
// Protocol of Lutron Caseta Pro and RadioRA2 hubs.
//
// # Basic Usage
//
//	session, err := lutron.NewSession("10.0.1.111")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	// Fade zone 25 to 50% over 30 minutes.
//	if err := session.SetLevel(ctx, 25, 50, 1800); err != nil {
//	    log.Print(err)
//	}
//
//	level, err := session.QueryLevel(ctx, 25)
//
// # Configuration
//
// The session can be configured using functional options:
//
//	session, err := lutron.NewSession("10.0.1.111",
//	    lutron.WithCredentials("lutron", "integration"),
//	    lutron.WithPingZone(25),
//	    lutron.WithIdleTimeout(10*time.Minute),
//	    lutron.WithLogger(slog.Default()),
//	)
//
// # Connection Lifecycle
//
// The hub accepts a single telnet connection at a time. A Session
// connects on the first command, disconnects after DefaultIdleTimeout
// without a command, and queries the ping zone every DefaultPingInterval
// in between. Pings do not extend the idle timeout. Transport errors on
// the command path disconnect the session; the next command reconnects.
//
// # Protocol
//
// Commands are CRLF-terminated text lines:
//
//	#OUTPUT,<zone>,1,<level>,<fade seconds>
//	?OUTPUT,<zone>,1
//
// Replies have the form ~OUTPUT,<zone>,1,<level> and may be preceded by
// login prompts and the GNET> shell prompt on the same line. The protocol
// has no request ids, so a Session runs one exchange at a time.
package lutron
