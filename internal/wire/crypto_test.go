package wire

import (
	"errors"
	"testing"

	"sealink/internal/envelope"
)

func TestEncryptDecryptCommand(t *testing.T) {
	sys := envelope.NewSystem("test seed")

	want := Command{Action: "hello", Data: StringPtr("sealed payload")}

	msg, err := EncryptCommand(sys, want)
	if err != nil {
		t.Fatalf("EncryptCommand failed: %v", err)
	}

	got, err := DecryptCommand(sys, msg)
	if err != nil {
		t.Fatalf("DecryptCommand failed: %v", err)
	}

	if got.Action != want.Action || got.Data == nil || *got.Data != *want.Data {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestEncryptDecryptResponse(t *testing.T) {
	sys := envelope.NewSystem("test seed")

	want := Response{Status: "pong", Message: "Pong from the device!", ResponseTo: StringPtr("ping")}

	msg, err := EncryptResponse(sys, want)
	if err != nil {
		t.Fatalf("EncryptResponse failed: %v", err)
	}

	got, err := DecryptResponse(sys, msg)
	if err != nil {
		t.Fatalf("DecryptResponse failed: %v", err)
	}

	if got.Status != want.Status || got.Message != want.Message {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecryptCommandWrongKey(t *testing.T) {
	msg, err := EncryptCommand(envelope.NewSystem("seed one"), Command{Action: "ping"})
	if err != nil {
		t.Fatalf("EncryptCommand failed: %v", err)
	}

	if _, err := DecryptCommand(envelope.NewSystem("seed two"), msg); !errors.Is(err, envelope.ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestDecryptCommandNonCommandPlaintext(t *testing.T) {
	sys := envelope.NewSystem("test seed")

	msg, err := sys.Seal("just some text, not a command")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := DecryptCommand(sys, msg); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage, got %v", err)
	}
}
