package link

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"sealink/internal/bus"
	"sealink/internal/envelope"
	"sealink/internal/events"
	"sealink/internal/transport"
	"sealink/internal/wire"
)

// ErrCryptoNotReady is returned by SendEncrypted before EnableCrypto has
// installed the key.
var ErrCryptoNotReady = errors.New("link: crypto not initialized")

// postSendDelay leaves the device time to process a command before the
// caller proceeds.
const postSendDelay = 50 * time.Millisecond

// Sender writes commands to the link's currently published connection
// handle, failing fast with transport.ErrNotConnected when the link is
// down. Sends are synchronous; nothing is queued.
type Sender struct {
	logger    *slog.Logger
	transport transport.Transport
	bus       bus.MessageBus

	mu     sync.Mutex
	crypto *envelope.System
}

func NewSender(logger *slog.Logger, b bus.MessageBus, tr transport.Transport) *Sender {
	return &Sender{
		logger:    logger,
		transport: tr,
		bus:       b,
	}
}

// EnableCrypto installs the envelope system used by SendEncrypted. Until
// it has run, encrypted sends fail with ErrCryptoNotReady.
func (s *Sender) EnableCrypto(sys *envelope.System) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crypto = sys
}

// CryptoReady reports whether the encrypted send path is initialized.
func (s *Sender) CryptoReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.crypto != nil
}

// Send encodes a plain command, frames it and writes it to the link.
func (s *Sender) Send(ctx context.Context, action string, data *string) error {
	record, err := wire.EncodeCommand(wire.Command{Action: action, Data: data})
	if err != nil {
		return err
	}

	return s.write(ctx, action, data, record, false)
}

// SendEncrypted seals the command into an envelope before writing.
func (s *Sender) SendEncrypted(ctx context.Context, action string, data *string) error {
	sys := s.cryptoSystem()
	if sys == nil {
		return ErrCryptoNotReady
	}

	env, err := wire.EncryptCommand(sys, wire.Command{Action: action, Data: data})
	if err != nil {
		return err
	}

	record, err := envelope.Encode(env)
	if err != nil {
		return err
	}

	return s.write(ctx, action, data, record, true)
}

func (s *Sender) cryptoSystem() *envelope.System {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.crypto
}

func (s *Sender) write(ctx context.Context, action string, data *string, record string, encrypted bool) error {
	if err := s.transport.WriteLine(ctx, record); err != nil {
		s.logger.Warn("command write failed", "action", action, "encrypted", encrypted, "error", err)
		return err
	}

	s.logger.Debug("command sent", "action", action, "encrypted", encrypted)
	s.bus.Publish(events.TopicCommandSent, events.CommandSent{
		Action:    action,
		Data:      data,
		Encrypted: encrypted,
		Timestamp: time.Now(),
	})

	// The write already succeeded; the settle delay is best effort.
	sleepWithContext(ctx, postSendDelay)

	return nil
}
