package wire

import "errors"

var ErrMalformedMessage = errors.New("wire: malformed message")
