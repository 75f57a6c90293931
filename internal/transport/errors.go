package transport

import "errors"

// ErrNotConnected is returned when an operation needs the link but no
// connection handle is currently published.
var ErrNotConnected = errors.New("transport: not connected")
