package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// DefaultTCPPort is where the development agent listens.
const DefaultTCPPort = 7600

const tcpReadTimeout = 50 * time.Millisecond

// TCPTransport carries the line protocol over a TCP socket. It exists so
// the host and the device agent can run loopback on one machine without
// serial hardware; the read side polls with a short deadline to match the
// serial transport's contract.
type TCPTransport struct {
	host string
	port int

	mu      sync.Mutex
	conn    net.Conn
	writeMu sync.Mutex
}

func NewTCPTransport(host string, port int) *TCPTransport {
	if port == 0 {
		port = DefaultTCPPort
	}

	return &TCPTransport{host: host, port: port}
}

func (t *TCPTransport) Name() string {
	return "tcp"
}

func (t *TCPTransport) SetHost(host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.host = host
}

func (t *TCPTransport) Host() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.host
}

func (t *TCPTransport) StatusTarget() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.host == "" {
		return ""
	}

	return net.JoinHostPort(t.host, fmt.Sprintf("%d", t.port))
}

func (t *TCPTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conn != nil
}

func (t *TCPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	target := ""
	if t.host != "" {
		target = net.JoinHostPort(t.host, fmt.Sprintf("%d", t.port))
	}
	logger := transportLogger("tcp", "target", target)

	if t.conn != nil {
		logger.Debug("connect skipped: already connected")

		return nil
	}

	if t.host == "" {
		logger.Warn("connect failed: host is empty")

		return errors.New("tcp host is empty")
	}

	dialer := net.Dialer{Timeout: 6 * time.Second}
	logger.Info("connecting")
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		logger.Warn("connect failed", "error", err)

		return fmt.Errorf("dial tcp: %w", err)
	}
	t.conn = conn
	logger.Info("connected", "remote", conn.RemoteAddr().String())

	return nil
}

func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	logger := transportLogger("tcp", "host", t.host)

	if t.conn == nil {
		logger.Debug("close skipped: not connected")

		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	if err != nil {
		logger.Warn("close failed", "error", err)

		return err
	}
	logger.Info("closed")

	return err
}

func (t *TCPTransport) ReadChunk(ctx context.Context, buf []byte) (int, error) {
	conn, err := t.currentConn()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(tcpReadTimeout))
	n, err := conn.Read(buf)
	if err != nil && isTimeout(err) {
		// Deadline expiry is a poll outcome, same contract as serial.
		return n, nil
	}

	return n, err
}

func (t *TCPTransport) WriteLine(ctx context.Context, record string) error {
	logger := transportLogger("tcp")
	conn, err := t.currentConn()
	if err != nil {
		logger.Debug("write line failed: not connected", "error", err)

		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := conn.Write(FrameLine(record)); err != nil {
		logger.Warn("write line failed", "record_len", len(record), "error", err)

		return fmt.Errorf("write line: %w", err)
	}
	logger.Debug("write line", "record_len", len(record))

	return nil
}

func (t *TCPTransport) currentConn() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, ErrNotConnected
	}

	return t.conn, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, os.ErrDeadlineExceeded)
}
