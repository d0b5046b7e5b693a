package lutron

import (
	"errors"
	"log/slog"
	"time"
)

// Default connection parameters for a Caseta Pro / RadioRA2 hub.
const (
	DefaultPort     = 23
	DefaultUsername = "lutron"
	DefaultPassword = "integration"
	DefaultPingZone = 1

	// DefaultIdleTimeout releases the hub's single telnet slot after
	// five minutes without a user command.
	DefaultIdleTimeout = 300 * time.Second

	// DefaultPingInterval is how often an idle connection is probed.
	DefaultPingInterval = 60 * time.Second
)

// Option configures a Session.
type Option func(*sessionConfig) error

// sessionConfig holds the configuration for a Session.
type sessionConfig struct {
	port           int
	username       string
	password       string
	pingZone       int
	idleTimeout    time.Duration
	pingInterval   time.Duration
	loginDelay     time.Duration
	responseDelay  time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	connectTimeout time.Duration
	logger         *slog.Logger
}

// defaultConfig returns the default session configuration.
func defaultConfig() *sessionConfig {
	return &sessionConfig{
		port:           DefaultPort,
		username:       DefaultUsername,
		password:       DefaultPassword,
		pingZone:       DefaultPingZone,
		idleTimeout:    DefaultIdleTimeout,
		pingInterval:   DefaultPingInterval,
		loginDelay:     time.Second,
		responseDelay:  500 * time.Millisecond,
		readTimeout:    500 * time.Millisecond,
		writeTimeout:   5 * time.Second,
		connectTimeout: 5 * time.Second,
		logger:         nil,
	}
}

// WithPort sets the TCP port of the hub's telnet server.
// Default is 23.
func WithPort(port int) Option {
	return func(c *sessionConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		c.port = port
		return nil
	}
}

// WithCredentials sets the login sent after the connection opens.
// Default is lutron / integration.
func WithCredentials(username, password string) Option {
	return func(c *sessionConfig) error {
		if username == "" {
			return errors.New("username must not be empty")
		}
		c.username = username
		c.password = password
		return nil
	}
}

// WithPingZone sets the zone queried by the keep-alive ping.
// Default is zone 1.
func WithPingZone(zone int) Option {
	return func(c *sessionConfig) error {
		if zone < 1 {
			return errors.New("ping zone must be positive")
		}
		c.pingZone = zone
		return nil
	}
}

// WithIdleTimeout sets how long the session stays open without a user
// command before it disconnects on its own.
// Default is 300 seconds.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *sessionConfig) error {
		if d <= 0 {
			return errors.New("idle timeout must be positive")
		}
		c.idleTimeout = d
		return nil
	}
}

// WithPingInterval sets the keep-alive ping period.
// Default is 60 seconds.
func WithPingInterval(d time.Duration) Option {
	return func(c *sessionConfig) error {
		if d <= 0 {
			return errors.New("ping interval must be positive")
		}
		c.pingInterval = d
		return nil
	}
}

// WithLoginDelay sets the pause before each login step.
// Default is 1 second.
func WithLoginDelay(d time.Duration) Option {
	return func(c *sessionConfig) error {
		if d < 0 {
			return errors.New("login delay must not be negative")
		}
		c.loginDelay = d
		return nil
	}
}

// WithResponseDelay sets the grace period between writing a command and
// reading the reply.
// Default is 500 milliseconds.
func WithResponseDelay(d time.Duration) Option {
	return func(c *sessionConfig) error {
		if d < 0 {
			return errors.New("response delay must not be negative")
		}
		c.responseDelay = d
		return nil
	}
}

// WithReadTimeout sets how long a single line read may wait before the
// reader decides the hub has nothing more to say.
// Default is 500 milliseconds.
func WithReadTimeout(d time.Duration) Option {
	return func(c *sessionConfig) error {
		if d <= 0 {
			return errors.New("read timeout must be positive")
		}
		c.readTimeout = d
		return nil
	}
}

// WithConnectTimeout sets the timeout for opening the TCP connection.
// Default is 5 seconds.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *sessionConfig) error {
		if d <= 0 {
			return errors.New("connect timeout must be positive")
		}
		c.connectTimeout = d
		return nil
	}
}

// WithLogger sets a structured logger for debug and error logging.
// By default, no logging is performed.
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) error {
		c.logger = logger
		return nil
	}
}
