// Command agent is the device-side program: the command loop over
// either stdio (for bridging onto a real UART) or a TCP listener (for
// loopback development against the console). One connection is served
// at a time; the loop is the whole program body.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sealink/internal/app"
	"sealink/internal/config"
	"sealink/internal/device"
	"sealink/internal/envelope"
	"sealink/internal/logging"
	"sealink/internal/transport"
)

const connReadTimeout = 50 * time.Millisecond

func main() {
	if err := run(); err != nil {
		slog.Error("run agent", "error", err)
		os.Exit(1)
	}
}

func run() error {
	listen := flag.String("listen", "", "serve the loop over tcp on this address instead of stdio, e.g. :7600")
	seed := flag.String("seed", "", "key seed override for the encrypted command path")
	noCrypto := flag.Bool("no-crypto", false, "disable the encrypted command path")
	logLevel := flag.String("log-level", "info", "log level (debug|info|warn|error)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.BuildVersionWithDate())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stdout may carry the wire protocol, so logs go to stderr.
	logMgr := logging.NewManagerTo(os.Stderr)
	if err := logMgr.Configure(config.LoggingConfig{Level: *logLevel}, ""); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() { _ = logMgr.Close() }()
	logger := logMgr.Logger("agent")
	logger.Info("starting sealink agent", "version", app.BuildVersion(), "mode", mode(*listen))

	var opts []device.Option
	if !*noCrypto {
		opts = append(opts, device.WithCrypto(envelope.NewSystem(agentSeed(*seed))))
	}

	if *listen == "" {
		loop := device.NewLoop(logMgr.Logger("device"), newStdioConn(stop), opts...)
		err := loop.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	return serveTCP(ctx, logger, logMgr.Logger("device"), *listen, opts)
}

func mode(listen string) string {
	if listen == "" {
		return "stdio"
	}
	return "tcp " + listen
}

func agentSeed(flagSeed string) string {
	if s := strings.TrimSpace(flagSeed); s != "" {
		return s
	}
	if s := strings.TrimSpace(os.Getenv("SEALINK_KEY_SEED")); s != "" {
		return s
	}
	return envelope.DefaultKeySeed
}

// serveTCP accepts one connection at a time and runs the device loop
// over it until the peer hangs up, then goes back to accepting.
func serveTCP(ctx context.Context, logger, deviceLogger *slog.Logger, addr string, opts []device.Option) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", addr, err)
	}
	defer func() { _ = listener.Close() }()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	logger.Info("listening", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("accept failed", "error", err)
			continue
		}
		logger.Info("peer connected", "remote", conn.RemoteAddr().String())

		connCtx, cancel := context.WithCancel(ctx)
		loop := device.NewLoop(deviceLogger, newNetConn(conn, cancel), opts...)
		_ = loop.Run(connCtx)
		cancel()
		_ = conn.Close()
		logger.Info("peer disconnected", "remote", conn.RemoteAddr().String())
	}
}

// stdioConn adapts the process streams to the device loop. Reads block,
// which is fine: a blocked read just means the loop has nothing to do.
type stdioConn struct {
	onEOF context.CancelFunc
}

func newStdioConn(onEOF context.CancelFunc) *stdioConn {
	return &stdioConn{onEOF: onEOF}
}

func (c *stdioConn) ReadChunk(buf []byte) (int, error) {
	n, err := os.Stdin.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			// The pipe is gone; there is nothing left to serve.
			c.onEOF()
		}
		return n, err
	}
	return n, nil
}

func (c *stdioConn) WriteLine(record string) error {
	if _, err := os.Stdout.Write(transport.FrameLine(record)); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// netConn adapts one accepted socket to the device loop with the same
// short poll deadline the host transports use. Any terminal read error
// cancels the loop so the listener can take the next peer.
type netConn struct {
	conn     net.Conn
	onClosed context.CancelFunc
}

func newNetConn(conn net.Conn, onClosed context.CancelFunc) *netConn {
	return &netConn{conn: conn, onClosed: onClosed}
}

func (c *netConn) ReadChunk(buf []byte) (int, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(connReadTimeout))
	n, err := c.conn.Read(buf)
	if err != nil {
		if isTimeout(err) {
			return n, nil
		}
		c.onClosed()
		return 0, io.EOF
	}
	return n, nil
}

func (c *netConn) WriteLine(record string) error {
	if _, err := c.conn.Write(transport.FrameLine(record)); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
