// Package envelope seals and opens the encrypted wire envelope: one
// AEAD-protected JSON payload per message, carried as base64 ciphertext
// plus base64 nonce. Both link ends derive the same 256-bit key by
// hashing a fixed seed, so no key material ever crosses the wire.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes. A fresh random nonce of
	// this size is drawn for every Seal call and never reused under a key.
	NonceSize = 12
)

// DefaultKeySeed is the demo seed both sides hash into the shared link key.
const DefaultKeySeed = "SEALINK_DEMO_KEY_2025"

// Message is the wire form of one sealed payload. Ciphertext carries the
// AEAD output with the authentication tag appended; both fields use the
// standard base64 alphabet.
type Message struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
}

// System holds the derived key for the process lifetime and performs the
// seal and open operations. The zero value is unusable; construct via
// NewSystem or FromKey.
type System struct {
	key [KeySize]byte
}

// NewSystem derives the key as SHA-256 of the seed string.
func NewSystem(seed string) *System {
	return &System{key: sha256.Sum256([]byte(seed))}
}

// FromKey builds a System around an existing 32-byte key.
func FromKey(key []byte) (*System, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d", ErrKeyLength, len(key))
	}

	s := &System{}
	copy(s.key[:], key)

	return s, nil
}

// Seal encrypts plaintext under a fresh 12-byte random nonce and returns
// the base64-encoded envelope.
func (s *System) Seal(plaintext string) (Message, error) {
	aead, err := s.newAEAD()
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Message{}, fmt.Errorf("%w: nonce: %v", ErrEncryptionFailed, err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	return Message{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Open decodes and decrypts an envelope, returning the UTF-8 plaintext.
// It fails with ErrBase64Decode on malformed encoding, ErrDecryptionFailed
// on a bad nonce length, tag mismatch or corrupt ciphertext, and
// ErrUTF8Decode when the recovered bytes are not valid text.
func (s *System) Open(msg Message) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(msg.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrBase64Decode, err)
	}

	nonce, err := base64.StdEncoding.DecodeString(msg.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrBase64Decode, err)
	}

	// GCM panics on a wrong-size nonce, so reject it here.
	if len(nonce) != NonceSize {
		return "", fmt.Errorf("%w: nonce is %d bytes, want %d", ErrDecryptionFailed, len(nonce), NonceSize)
	}

	aead, err := s.newAEAD()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	if !utf8.Valid(plain) {
		return "", ErrUTF8Decode
	}

	return string(plain), nil
}

func (s *System) newAEAD() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

// Encode renders the envelope as a single-line JSON object.
func Encode(msg Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("envelope: encode: %w", err)
	}

	return string(data), nil
}

// Decode parses the JSON form of an envelope. Both fields must be present;
// anything else fails with ErrMalformedEnvelope so callers can fall back
// to other classifications.
func Decode(text string) (Message, error) {
	var raw struct {
		Ciphertext *string `json:"ciphertext"`
		Nonce      *string `json:"nonce"`
	}

	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if raw.Ciphertext == nil || raw.Nonce == nil {
		return Message{}, fmt.Errorf("%w: missing ciphertext or nonce", ErrMalformedEnvelope)
	}

	return Message{Ciphertext: *raw.Ciphertext, Nonce: *raw.Nonce}, nil
}
