package envelope

import "errors"

var (
	ErrEncryptionFailed  = errors.New("envelope: encryption failed")
	ErrBase64Decode      = errors.New("envelope: base64 decode failed")
	ErrDecryptionFailed  = errors.New("envelope: decryption failed")
	ErrUTF8Decode        = errors.New("envelope: plaintext is not valid UTF-8")
	ErrKeyLength         = errors.New("envelope: key must be 32 bytes")
	ErrMalformedEnvelope = errors.New("envelope: malformed envelope")
)
