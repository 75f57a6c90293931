// Package link owns the host side of the device connection: a reconnect
// loop that opens the transport, reads and classifies incoming lines and
// publishes the results, plus the command sender that writes to the
// currently open handle.
package link

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sealink/internal/bus"
	"sealink/internal/envelope"
	"sealink/internal/events"
	"sealink/internal/transport"
	"sealink/internal/wire"
)

const (
	defaultBackoffFloor   = 1 * time.Second
	defaultBackoffCeiling = 5 * time.Second
	defaultBackoffStep    = 1 * time.Second

	idleReadDelay = 10 * time.Millisecond
	readChunkSize = 1024
)

// Service runs the link lifecycle. A single reader goroutine owns the
// transport connection; callers observe it through the bus and the
// last-message cache.
type Service struct {
	logger    *slog.Logger
	transport transport.Transport
	crypto    *envelope.System
	bus       bus.MessageBus

	backoffFloor   time.Duration
	backoffCeiling time.Duration
	backoffStep    time.Duration

	mu      sync.Mutex
	started bool

	lastMu   sync.Mutex
	last     string
	haveLast bool
}

// NewService wires the link manager. The crypto system is the
// process-wide fixed key used to open incoming envelopes; it must not be
// nil.
func NewService(logger *slog.Logger, b bus.MessageBus, tr transport.Transport, crypto *envelope.System) *Service {
	return &Service{
		logger:         logger,
		transport:      tr,
		crypto:         crypto,
		bus:            b,
		backoffFloor:   defaultBackoffFloor,
		backoffCeiling: defaultBackoffCeiling,
		backoffStep:    defaultBackoffStep,
	}
}

// Start launches the reconnect loop. Starting an already running service
// is a no-op; the latch is never reset, one loop per process lifetime.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.logger.Debug("start skipped: already running")
		return
	}
	s.started = true

	go s.runConnector(ctx)
}

// LastMessage returns the most recent human-readable message and whether
// one has been cached yet.
func (s *Service) LastMessage() (string, bool) {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()

	return s.last, s.haveLast
}

func (s *Service) cacheMessage(text string) {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	s.last = text
	s.haveLast = true
}

func (s *Service) runConnector(ctx context.Context) {
	backoff := s.backoffFloor
	for {
		if err := ctx.Err(); err != nil {
			return
		}

		s.publishConnStatus(events.ConnectionStateConnecting, nil)
		if err := s.transport.Connect(ctx); err != nil {
			s.publishConnStatus(events.ConnectionStateReconnecting, err)
			s.logger.Error("transport connect failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = s.nextBackoff(backoff)
			continue
		}

		backoff = s.backoffFloor
		s.publishConnStatus(events.ConnectionStateConnected, nil)

		err := s.runReader(ctx)
		_ = s.transport.Close()
		s.publishConnStatus(events.ConnectionStateReconnecting, err)

		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = s.nextBackoff(backoff)
	}
}

func (s *Service) runReader(ctx context.Context) error {
	var acc transport.LineAccumulator
	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.transport.ReadChunk(ctx, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			// No data in this poll window; the connection is fine.
			if !sleepWithContext(ctx, idleReadDelay) {
				return ctx.Err()
			}
			continue
		}

		for _, line := range acc.Feed(buf[:n]) {
			s.handleLine(line)
		}
	}
}

// handleLine classifies one record: plain response first, then envelope,
// otherwise raw.
func (s *Service) handleLine(line string) {
	now := time.Now()

	if resp, err := wire.DecodeResponse(line); err == nil {
		s.logger.Debug("plain response", "status", resp.Status)
		s.bus.Publish(events.TopicResponse, events.ResponseReceived{
			Response:  resp,
			Origin:    events.OriginPlain,
			Timestamp: now,
		})
		s.cacheMessage("[plain] " + resp.Message)
		return
	}

	if env, err := envelope.Decode(line); err == nil {
		s.bus.Publish(events.TopicEnvelope, events.EnvelopeReceived{
			Envelope:  env,
			Timestamp: now,
		})
		s.handleEnvelope(env, now)
		return
	}

	s.logger.Debug("raw line", "line_len", len(line))
	s.bus.Publish(events.TopicRaw, events.RawMessage{Line: line, Timestamp: now})
	s.cacheMessage("[raw] " + line)
}

func (s *Service) handleEnvelope(env envelope.Message, now time.Time) {
	plaintext, err := s.crypto.Open(env)
	if err != nil {
		s.logger.Warn("envelope open failed", "error", err)
		s.cacheMessage("[decrypt error] " + err.Error())
		return
	}

	if resp, err := wire.DecodeResponse(plaintext); err == nil {
		s.logger.Debug("decrypted response", "status", resp.Status)
		s.bus.Publish(events.TopicResponse, events.ResponseReceived{
			Response:  resp,
			Origin:    events.OriginDecrypted,
			Timestamp: now,
		})
		s.cacheMessage("[decrypted] " + resp.Message)
		return
	}

	s.cacheMessage("[decrypted] " + plaintext)
}

func (s *Service) publishConnStatus(state events.ConnectionState, err error) {
	status := events.ConnectionStatus{
		State:         state,
		TransportName: s.transport.Name(),
		Timestamp:     time.Now(),
	}
	if resolver, ok := s.transport.(transport.StatusTargetResolver); ok {
		status.Target = resolver.StatusTarget()
	}
	if err != nil {
		status.Err = err.Error()
	}
	s.bus.Publish(events.TopicLinkStatus, status)
}

// nextBackoff advances the retry delay by one step up to the ceiling.
// The floor is restored by the connector on a successful open.
func (s *Service) nextBackoff(current time.Duration) time.Duration {
	next := current + s.backoffStep
	if next > s.backoffCeiling {
		return s.backoffCeiling
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
