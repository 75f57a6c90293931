package events

import (
	"time"

	"sealink/internal/envelope"
	"sealink/internal/wire"
)

// ConnectionState describes the link lifecycle state shown to callers.
type ConnectionState string

const (
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateReconnecting ConnectionState = "reconnecting"
)

// ConnectionStatus is a bus event snapshot of current link status.
type ConnectionStatus struct {
	State         ConnectionState
	Err           string
	TransportName string
	Target        string
	Timestamp     time.Time
}

// ResponseOrigin tells how a response reached the host.
type ResponseOrigin string

const (
	OriginPlain     ResponseOrigin = "plain"
	OriginDecrypted ResponseOrigin = "decrypted"
)

// ResponseReceived carries one decoded device response, plain or sealed
// and decrypted.
type ResponseReceived struct {
	Response  wire.Response
	Origin    ResponseOrigin
	Timestamp time.Time
}

// EnvelopeReceived carries one encrypted envelope as it arrived, before
// any decryption attempt.
type EnvelopeReceived struct {
	Envelope  envelope.Message
	Timestamp time.Time
}

// RawMessage carries a line that matched neither payload shape.
type RawMessage struct {
	Line      string
	Timestamp time.Time
}

// CommandSent reports one command written to the link.
type CommandSent struct {
	Action    string
	Data      *string
	Encrypted bool
	Timestamp time.Time
}
