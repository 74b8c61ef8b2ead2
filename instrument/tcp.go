package instrument

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// DefaultSCPIPort is the raw-socket SCPI port LXI instruments listen on.
const DefaultSCPIPort = "5025"

// DefaultIOTimeout bounds each write or query on a TCPInstrument.
const DefaultIOTimeout = 2 * time.Second

// ErrClosed is returned by operations on a closed TCPInstrument.
var ErrClosed = errors.New("instrument connection closed")

// TCPInstrument speaks newline-terminated SCPI over a raw TCP socket. Calls
// are serialised so each query reads back its own response line. Any failed
// write or read closes the connection: a reply that arrives late, or a line
// cut short by the deadline, would otherwise be handed to the next query.
type TCPInstrument struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	closed  bool
}

// Dial connects to addr ("host" or "host:port"; the port defaults to 5025).
// A non-positive timeout selects DefaultIOTimeout for each later operation.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*TCPInstrument, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultSCPIPort)
	}
	if timeout <= 0 {
		timeout = DefaultIOTimeout
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial instrument %s: %w", addr, err)
	}
	return newTCPInstrument(conn, timeout), nil
}

func newTCPInstrument(conn net.Conn, timeout time.Duration) *TCPInstrument {
	return &TCPInstrument{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
	}
}

// Write sends command without waiting for a response.
func (t *TCPInstrument) Write(command string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.send(command); err != nil {
		return t.fail(err)
	}
	return nil
}

// Query sends command and returns the next response line without its
// terminator.
func (t *TCPInstrument) Query(command string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.send(command); err != nil {
		return "", t.fail(err)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", t.fail(fmt.Errorf("read response to %q: %w", command, err))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close closes the connection. Closing twice is a no-op.
func (t *TCPInstrument) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

// fail drops a connection whose request/response framing can no longer be
// trusted. Later calls return ErrClosed. The caller holds t.mu.
func (t *TCPInstrument) fail(err error) error {
	if !t.closed && !errors.Is(err, ErrClosed) {
		t.closed = true
		_ = t.conn.Close()
	}
	return err
}

func (t *TCPInstrument) send(command string) error {
	if t.closed {
		return ErrClosed
	}
	if err := t.conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if _, err := t.conn.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("write %q: %w", command, err)
	}
	return nil
}
