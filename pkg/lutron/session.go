package lutron

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// maxResponseBytes bounds a single read-everything pass so a hub that
// streams monitoring output cannot hold a command forever.
const maxResponseBytes = 64 * 1024

var (
	// ErrSessionClosed is returned by Connect after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrConnectAborted is returned by a connect that was overtaken by
	// Disconnect while it was still logging in.
	ErrConnectAborted = errors.New("disconnected during login")
)

// Session owns the single telnet connection to a Lutron hub.
//
// The connection is opened lazily by the first command, closed after the
// idle timeout, and probed by a keep-alive ping in between. Commands are
// serialized: the protocol has no request ids, so only one exchange may be
// on the wire at a time.
type Session struct {
	host   string
	addr   string
	cfg    *sessionConfig
	logger *slog.Logger

	pingZone atomic.Int64

	// exchangeMu is held across connect and write-wait-read.
	exchangeMu sync.Mutex

	// mu guards everything below. It is never held during network I/O.
	mu         sync.Mutex
	conn       net.Conn
	reader     *bufio.Reader
	connLog    *slog.Logger
	connected  bool
	closed     bool
	idleTimer  *time.Timer
	idleSeq    uint64
	pingCancel context.CancelFunc
	// connGen counts teardowns. A login started under an older generation
	// must not commit its connection.
	connGen uint64

	bg sync.WaitGroup
}

// NewSession creates a disconnected session for the hub at host.
// No connection is made until Connect or the first command.
func NewSession(host string, opts ...Option) (*Session, error) {
	if host == "" {
		return nil, errors.New("host is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Session{
		host:   host,
		addr:   net.JoinHostPort(host, strconv.Itoa(cfg.port)),
		cfg:    cfg,
		logger: logger.With("hub", host),
	}
	s.pingZone.Store(int64(cfg.pingZone))
	return s, nil
}

// Addr returns the host:port of the hub.
func (s *Session) Addr() string {
	return s.addr
}

// IsConnected reports whether the session currently holds an open connection.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// PingZone returns the zone queried by the keep-alive ping.
func (s *Session) PingZone() int {
	return int(s.pingZone.Load())
}

// SetPingZone changes the keep-alive zone. The running ping loop picks up
// the new zone on its next tick.
func (s *Session) SetPingZone(zone int) error {
	if zone < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidZone, zone)
	}
	s.pingZone.Store(int64(zone))
	s.logger.Debug("ping zone updated", "zone", zone)
	return nil
}

// Connect opens the connection and logs in. If the session is already
// connected it only restarts the idle timer.
//
// Login is timing based: the hub sends no acknowledgement, so the
// username and password are written after fixed pauses and the session is
// considered authenticated one pause later. Only a failure to open or
// write to the socket is reported; prompt content is never inspected.
func (s *Session) Connect(ctx context.Context) error {
	s.exchangeMu.Lock()
	defer s.exchangeMu.Unlock()
	return s.connectLocked(ctx)
}

// connectLocked requires exchangeMu.
func (s *Session) connectLocked(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.connected {
		s.armIdleTimerLocked()
		s.mu.Unlock()
		s.logger.Debug("already connected, idle timer reset")
		return nil
	}
	gen := s.connGen
	s.mu.Unlock()

	s.logger.Debug("connecting to hub", "addr", s.addr)

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.connectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", s.addr)
	if err != nil {
		s.logger.Error("failed to connect to hub", "addr", s.addr, "error", err)
		return &ConnectError{Addr: s.addr, Err: err}
	}

	if err := s.login(ctx, conn); err != nil {
		conn.Close()
		s.logger.Error("failed to log in to hub", "addr", s.addr, "error", err)
		return &ConnectError{Addr: s.addr, Err: err}
	}

	log := s.logger.With("conn_id", uuid.NewString())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return ErrSessionClosed
	}
	if s.connGen != gen {
		s.mu.Unlock()
		conn.Close()
		s.logger.Debug("connect aborted by disconnect", "addr", s.addr)
		return &ConnectError{Addr: s.addr, Err: ErrConnectAborted}
	}
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.connLog = log
	s.connected = true
	s.armIdleTimerLocked()
	s.startPingLocked()
	s.mu.Unlock()

	log.Info("connected to hub", "addr", s.addr)
	return nil
}

func (s *Session) login(ctx context.Context, conn net.Conn) error {
	if err := sleepCtx(ctx, s.cfg.loginDelay); err != nil {
		return err
	}
	if err := s.writeLine(conn, s.cfg.username); err != nil {
		return err
	}
	if err := sleepCtx(ctx, s.cfg.loginDelay); err != nil {
		return err
	}
	if err := s.writeLine(conn, s.cfg.password); err != nil {
		return err
	}
	return sleepCtx(ctx, s.cfg.loginDelay)
}

// Disconnect stops both timers and closes the connection. It is safe to
// call at any time, any number of times, and from any goroutine. Close
// errors are logged and dropped.
func (s *Session) Disconnect() {
	s.teardown(nil)
}

// Close disconnects and waits for background goroutines to exit. The
// session cannot be reconnected afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.Disconnect()
	s.bg.Wait()
	return nil
}

// teardown detaches the connection when cond (checked under mu) allows it,
// then closes the socket outside the lock.
func (s *Session) teardown(cond func() bool) bool {
	s.mu.Lock()
	if cond != nil && !cond() {
		s.mu.Unlock()
		return false
	}
	s.stopIdleTimerLocked()
	s.stopPingLocked()
	s.connGen++

	conn, log := s.conn, s.connLog
	s.conn = nil
	s.reader = nil
	s.connLog = nil
	s.connected = false
	s.mu.Unlock()

	if conn == nil {
		return false
	}

	log.Debug("disconnecting from hub")
	if err := conn.Close(); err != nil {
		log.Debug("error during disconnect (ignored)", "error", err)
	}
	log.Info("disconnected from hub")
	return true
}

// SendCommand writes one protocol line and returns the hub's reply with
// prompt noise removed. An empty reply with a nil error means the hub
// answered only with prompts.
//
// The session connects first if needed. Every call restarts both the idle
// timer and the keep-alive timer. Any write or read failure disconnects
// the session so the next call starts from a clean connection.
func (s *Session) SendCommand(ctx context.Context, command string) (string, error) {
	s.exchangeMu.Lock()
	defer s.exchangeMu.Unlock()

	if !s.IsConnected() {
		if err := s.connectLocked(ctx); err != nil {
			s.logger.Debug("failed to connect before sending command", "command", command, "error", err)
			return "", err
		}
	}

	s.mu.Lock()
	conn, reader, log := s.conn, s.reader, s.connLog
	if conn == nil {
		s.mu.Unlock()
		return "", &TransportError{Op: "send", Err: ErrNotConnected}
	}
	s.armIdleTimerLocked()
	s.startPingLocked()
	s.mu.Unlock()

	log.Debug("sending command", "command", command)

	resp, err := s.exchange(ctx, conn, reader, command)
	if err != nil {
		log.Error("error sending command", "command", command, "error", err)
		s.teardown(func() bool { return s.conn == conn })
		return "", err
	}

	log.Debug("received response", "response", resp)
	return resp, nil
}

// exchange requires exchangeMu.
func (s *Session) exchange(ctx context.Context, conn net.Conn, r *bufio.Reader, command string) (string, error) {
	if err := s.writeLine(conn, command); err != nil {
		return "", err
	}

	if err := sleepCtx(ctx, s.cfg.responseDelay); err != nil {
		return "", &TransportError{Op: "wait", Err: err}
	}

	raw, err := s.readAvailable(conn, r)
	if err != nil {
		return "", err
	}

	resp := ExtractResponse(raw)
	if zone, ok := commandZone(command); ok {
		resp = ExtractReply(raw, zone)
	}
	if resp == "" {
		s.logger.Debug("no valid response found", "raw", raw)
	}
	return resp, nil
}

func (s *Session) writeLine(conn net.Conn, line string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.writeTimeout)); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if _, err := conn.Write([]byte(line + lineTerminator)); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// readAvailable collects every line that arrives within one read timeout
// of the previous one and stops at the first timeout.
func (s *Session) readAvailable(conn net.Conn, r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for sb.Len() < maxResponseBytes {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.readTimeout)); err != nil {
			return "", &TransportError{Op: "read", Err: err}
		}

		line, err := r.ReadString('\n')
		sb.WriteString(line)
		if err == nil {
			continue
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			break
		}
		return "", &TransportError{Op: "read", Err: err}
	}
	_ = conn.SetReadDeadline(time.Time{})
	return sb.String(), nil
}

// SetLevel fades zone to brightness (0-100) over fadeSeconds and waits for
// the hub to acknowledge it.
func (s *Session) SetLevel(ctx context.Context, zone, brightness, fadeSeconds int) error {
	command, err := SetLevelCommand(zone, brightness, fadeSeconds)
	if err != nil {
		return err
	}

	s.logger.Info("setting zone level", "zone", zone, "brightness", brightness, "fade", fadeSeconds)

	resp, err := s.SendCommand(ctx, command)
	if err != nil {
		return err
	}

	if !IsAckFor(resp, zone) {
		s.logger.Warn("unexpected or no response from hub", "zone", zone, "response", resp)
		if resp == "" {
			return ErrNoResponse
		}
		return fmt.Errorf("%w: %q", ErrUnexpectedResponse, resp)
	}

	s.logger.Debug("command acknowledged by hub", "zone", zone)
	return nil
}

// QueryLevel returns the current brightness (0-100) of zone.
func (s *Session) QueryLevel(ctx context.Context, zone int) (float64, error) {
	command, err := QueryLevelCommand(zone)
	if err != nil {
		return 0, err
	}

	s.logger.Debug("querying zone level", "zone", zone)

	resp, err := s.SendCommand(ctx, command)
	if err != nil {
		return 0, err
	}

	level, err := ParseLevel(resp)
	if err != nil {
		s.logger.Warn("query failed", "zone", zone, "response", resp, "error", err)
		return 0, err
	}
	if level.Zone != zone {
		s.logger.Warn("reply for another zone", "zone", zone, "response", resp)
		return 0, fmt.Errorf("%w: %q", ErrUnexpectedResponse, resp)
	}

	s.logger.Debug("zone level", "zone", zone, "level", level.Value)
	return level.Value, nil
}

// SetLightLevel is SetLevel reduced to success or failure.
func (s *Session) SetLightLevel(ctx context.Context, zone, brightness, fadeSeconds int) bool {
	return s.SetLevel(ctx, zone, brightness, fadeSeconds) == nil
}

// QueryLightLevel is QueryLevel with the error reduced to ok == false.
func (s *Session) QueryLightLevel(ctx context.Context, zone int) (float64, bool) {
	level, err := s.QueryLevel(ctx, zone)
	if err != nil {
		return 0, false
	}
	return level, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
