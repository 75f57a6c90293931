// Package device implements the device side of the link: a single
// cooperative loop that reads newline-delimited commands from its byte
// stream, dispatches them by action and writes one response line per
// command. The loop is infinite by design; only context cancellation
// stops it.
package device

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"sealink/internal/envelope"
	"sealink/internal/transport"
	"sealink/internal/wire"
)

const (
	// idleDelay yields the scheduler when a poll produced no data.
	idleDelay = 10 * time.Millisecond
	// dispatchDelay is the cooperative pause after processing a chunk,
	// a courtesy to other device tasks rather than a correctness need.
	dispatchDelay = 2 * time.Millisecond

	readChunkSize = 256
)

// Conn is the device's end of the byte stream. ReadChunk follows the
// poll contract of transport.Transport: (0, nil) means no data yet.
type Conn interface {
	ReadChunk(buf []byte) (int, error)
	WriteLine(record string) error
}

// Loop is the device program body. With a crypto system installed it
// opens envelope lines and seals the matching responses; without one,
// envelope lines fall through to the plain decode path and earn the
// same invalid-JSON error any unparseable line gets.
type Loop struct {
	logger *slog.Logger
	conn   Conn
	crypto *envelope.System

	greeting   string
	pongText   string
	healthText string
}

// Option tweaks a Loop at construction time.
type Option func(*Loop)

// WithCrypto enables the encrypted command path.
func WithCrypto(sys *envelope.System) Option {
	return func(l *Loop) { l.crypto = sys }
}

// WithTexts overrides the canned reply bodies.
func WithTexts(greeting, pong, health string) Option {
	return func(l *Loop) {
		l.greeting = greeting
		l.pongText = pong
		l.healthText = health
	}
}

func NewLoop(logger *slog.Logger, conn Conn, opts ...Option) *Loop {
	l := &Loop{
		logger:     logger,
		conn:       conn,
		greeting:   "Hello from the device!",
		pongText:   "Pong from the device!",
		healthText: "Device is running normally",
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run announces readiness and then services commands until ctx is
// cancelled. I/O errors never terminate the loop: a failed read is
// reported as an error response and polling continues.
func (l *Loop) Run(ctx context.Context) error {
	l.emit(wire.Response{Status: "ready", Message: "Device ready for commands"}, false)

	var acc transport.LineAccumulator
	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := l.conn.ReadChunk(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				// End of stream behaves like an empty poll window.
				if !sleep(ctx, idleDelay) {
					return ctx.Err()
				}
				continue
			}
			l.logger.Warn("read failed", "error", err)
			l.emit(wire.Response{Status: "error", Message: "UART read error occurred"}, false)
			if !sleep(ctx, idleDelay) {
				return ctx.Err()
			}
			continue
		}
		if n == 0 {
			if !sleep(ctx, idleDelay) {
				return ctx.Err()
			}
			continue
		}

		for _, line := range acc.Feed(buf[:n]) {
			l.handleLine(line)
		}

		if !sleep(ctx, dispatchDelay) {
			return ctx.Err()
		}
	}
}

func (l *Loop) handleLine(line string) {
	if l.crypto != nil {
		if env, err := envelope.Decode(line); err == nil {
			l.handleSealed(env)
			return
		}
	}

	cmd, err := wire.DecodeCommand(line)
	if err != nil {
		l.logger.Debug("undecodable line", "error", err)
		l.emit(wire.Response{Status: "error", Message: "Invalid JSON format"}, false)
		return
	}

	l.emit(l.Dispatch(cmd), false)
}

// handleSealed serves one envelope line: sealed commands get sealed
// responses, but a failed open is reported in the clear since the peer
// evidently cannot share our key material.
func (l *Loop) handleSealed(env envelope.Message) {
	cmd, err := wire.DecryptCommand(l.crypto, env)
	if err != nil {
		if errors.Is(err, wire.ErrMalformedMessage) {
			l.emit(wire.Response{Status: "error", Message: "Invalid JSON format"}, true)
			return
		}
		l.logger.Warn("envelope open failed", "error", err)
		l.emit(wire.Response{Status: "error", Message: "Decryption failed"}, false)
		return
	}

	l.emit(l.Dispatch(cmd), true)
}

// Dispatch maps one command to its response. The action is a free-form
// string; unknown values are echoed back in the error response.
func (l *Loop) Dispatch(cmd wire.Command) wire.Response {
	switch cmd.Action {
	case "hello":
		return wire.Response{Status: "hello_response", Message: l.greeting, ResponseTo: wire.StringPtr("hello")}
	case "ping":
		return wire.Response{Status: "pong", Message: l.pongText, ResponseTo: wire.StringPtr("ping")}
	case "status":
		return wire.Response{Status: "status_response", Message: l.healthText, ResponseTo: wire.StringPtr("status")}
	default:
		return wire.Response{Status: "error", Message: "Unknown command", ResponseTo: wire.StringPtr(cmd.Action)}
	}
}

func (l *Loop) emit(resp wire.Response, sealed bool) {
	record, err := l.encode(resp, sealed)
	if err != nil {
		l.logger.Error("encode response failed", "status", resp.Status, "error", err)
		return
	}
	if err := l.conn.WriteLine(record); err != nil {
		l.logger.Warn("write response failed", "status", resp.Status, "error", err)
	}
}

func (l *Loop) encode(resp wire.Response, sealed bool) (string, error) {
	if !sealed {
		return wire.EncodeResponse(resp)
	}

	env, err := wire.EncryptResponse(l.crypto, resp)
	if err != nil {
		return "", err
	}

	return envelope.Encode(env)
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
