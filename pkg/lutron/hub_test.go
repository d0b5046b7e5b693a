package lutron

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeHub is an in-process telnet server that behaves like a Caseta Pro
// hub: it prompts for a login, echoes its GNET> prompt after every reply
// and answers OUTPUT commands from an in-memory level table.
type fakeHub struct {
	ln net.Listener

	mu          sync.Mutex
	levels      map[int]float64
	commands    []string
	receivedAt  []time.Time
	logins      []string
	connections int
	conns       []net.Conn

	// reply overrides the normal reply when non-nil. Returning "" sends
	// only a prompt.
	reply func(cmd string) string
	// replyDelay is slept before each reply.
	replyDelay time.Duration
	// dropOnCommand closes the connection instead of replying.
	dropOnCommand bool
}

func newFakeHub(t *testing.T) *fakeHub {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h := &fakeHub{
		ln:     ln,
		levels: map[int]float64{1: 0},
	}
	go h.serve()
	t.Cleanup(h.close)
	return h
}

func (h *fakeHub) close() {
	h.ln.Close()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		c.Close()
	}
}

func (h *fakeHub) port() int {
	return h.ln.Addr().(*net.TCPAddr).Port
}

func (h *fakeHub) setLevel(zone int, level float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.levels[zone] = level
}

func (h *fakeHub) setReply(fn func(cmd string) string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reply = fn
}

func (h *fakeHub) setReplyDelay(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replyDelay = d
}

func (h *fakeHub) setDropOnCommand(drop bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropOnCommand = drop
}

func (h *fakeHub) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.commands...)
}

// timesReceived returns when each copy of cmd arrived.
func (h *fakeHub) timesReceived(cmd string) []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	var at []time.Time
	for i, c := range h.commands {
		if c == cmd {
			at = append(at, h.receivedAt[i])
		}
	}
	return at
}

func (h *fakeHub) countReceived(cmd string) int {
	n := 0
	for _, c := range h.received() {
		if c == cmd {
			n++
		}
	}
	return n
}

func (h *fakeHub) connectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connections
}

func (h *fakeHub) loginLines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.logins...)
}

func (h *fakeHub) serve() {
	for {
		conn, err := h.ln.Accept()
		if err != nil {
			return
		}
		h.mu.Lock()
		h.connections++
		h.conns = append(h.conns, conn)
		h.mu.Unlock()
		go h.handle(conn)
	}
}

func (h *fakeHub) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	// Prompts carry no newline, so they end up glued to the first reply.
	for _, prompt := range []string{"login: ", "password: "} {
		if _, err := conn.Write([]byte(prompt)); err != nil {
			return
		}
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		h.mu.Lock()
		h.logins = append(h.logins, strings.TrimRight(line, "\r\n"))
		h.mu.Unlock()
	}
	if _, err := conn.Write([]byte("\r\n" + PromptMarker + " ")); err != nil {
		return
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")

		h.mu.Lock()
		h.commands = append(h.commands, cmd)
		h.receivedAt = append(h.receivedAt, time.Now())
		reply, delay, drop := h.reply, h.replyDelay, h.dropOnCommand
		h.mu.Unlock()

		if drop {
			return
		}
		if delay > 0 {
			time.Sleep(delay)
		}

		var out string
		if reply != nil {
			out = reply(cmd)
		} else {
			out = h.answer(cmd)
		}
		if out != "" {
			out += "\r\n"
		}
		if _, err := conn.Write([]byte(out + PromptMarker + " ")); err != nil {
			return
		}
	}
}

func (h *fakeHub) answer(cmd string) string {
	parts := strings.Split(cmd, ",")
	if len(parts) < 3 {
		return ""
	}
	zone, err := strconv.Atoi(parts[1])
	if err != nil {
		return ""
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch parts[0] {
	case "#OUTPUT":
		if len(parts) < 4 {
			return ""
		}
		level, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return ""
		}
		h.levels[zone] = level
		return fmt.Sprintf("~OUTPUT,%d,1,%.2f", zone, level)
	case "?OUTPUT":
		return fmt.Sprintf("~OUTPUT,%d,1,%.2f", zone, h.levels[zone])
	}
	return ""
}

// testSession returns a session against hub with every delay shrunk.
func testSession(t *testing.T, hub *fakeHub, opts ...Option) *Session {
	t.Helper()

	base := []Option{
		WithPort(hub.port()),
		WithLoginDelay(5 * time.Millisecond),
		WithResponseDelay(5 * time.Millisecond),
		WithReadTimeout(50 * time.Millisecond),
		WithConnectTimeout(time.Second),
		WithIdleTimeout(time.Minute),
		WithPingInterval(time.Minute),
	}
	s, err := NewSession("127.0.0.1", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
