package transport

import "context"

// Transport is one byte-stream link carrying newline-delimited records.
type Transport interface {
	Name() string
	Connect(ctx context.Context) error
	Close() error
	// ReadChunk reads whatever bytes are available into buf. A return of
	// (0, nil) is a poll timeout: no data yet, connection still healthy.
	ReadChunk(ctx context.Context, buf []byte) (int, error)
	// WriteLine frames record with the line terminator, writes it fully
	// and flushes.
	WriteLine(ctx context.Context, record string) error
}

type StatusTargetResolver interface {
	StatusTarget() string
}
