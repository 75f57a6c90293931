package wire

import (
	"errors"
	"testing"
)

func TestCommandRoundTrip(t *testing.T) {
	cases := []Command{
		{Action: "ping"},
		{Action: "hello", Data: StringPtr("from the console")},
		{Action: "status", Data: StringPtr("")},
	}

	for _, want := range cases {
		text, err := EncodeCommand(want)
		if err != nil {
			t.Fatalf("EncodeCommand(%+v) failed: %v", want, err)
		}

		got, err := DecodeCommand(text)
		if err != nil {
			t.Fatalf("DecodeCommand(%q) failed: %v", text, err)
		}

		if got.Action != want.Action {
			t.Fatalf("action mismatch: got %q, want %q", got.Action, want.Action)
		}

		switch {
		case want.Data == nil && got.Data != nil:
			t.Fatalf("expected nil data, got %q", *got.Data)
		case want.Data != nil && (got.Data == nil || *got.Data != *want.Data):
			t.Fatalf("data mismatch: got %v, want %q", got.Data, *want.Data)
		}
	}
}

func TestEncodeCommandEmitsNullData(t *testing.T) {
	text, err := EncodeCommand(Command{Action: "ping"})
	if err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}

	if text != `{"action":"ping","data":null}` {
		t.Fatalf("unexpected wire form: %s", text)
	}
}

func TestDecodeCommandOptionalData(t *testing.T) {
	for _, text := range []string{
		`{"action":"ping","data":null}`,
		`{"action":"ping"}`,
	} {
		c, err := DecodeCommand(text)
		if err != nil {
			t.Fatalf("DecodeCommand(%q) failed: %v", text, err)
		}
		if c.Action != "ping" || c.Data != nil {
			t.Fatalf("DecodeCommand(%q) = %+v, want action ping and nil data", text, c)
		}
	}
}

func TestDecodeCommandMalformed(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"not json", "not json at all"},
		{"empty object", `{}`},
		{"null action", `{"action":null}`},
		{"wrong shape", `[1,2]`},
		{"action wrong type", `{"action":42}`},
	}

	for _, tc := range cases {
		if _, err := DecodeCommand(tc.text); !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("%s: expected ErrMalformedMessage, got %v", tc.name, err)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	cases := []Response{
		{Status: "ready", Message: "Device ready for commands"},
		{Status: "pong", Message: "Pong from the device!", ResponseTo: StringPtr("ping")},
		{Status: "error", Message: "Unknown command", ResponseTo: StringPtr("bogus")},
	}

	for _, want := range cases {
		text, err := EncodeResponse(want)
		if err != nil {
			t.Fatalf("EncodeResponse(%+v) failed: %v", want, err)
		}

		got, err := DecodeResponse(text)
		if err != nil {
			t.Fatalf("DecodeResponse(%q) failed: %v", text, err)
		}

		if got.Status != want.Status || got.Message != want.Message {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}

		switch {
		case want.ResponseTo == nil && got.ResponseTo != nil:
			t.Fatalf("expected nil response_to, got %q", *got.ResponseTo)
		case want.ResponseTo != nil && (got.ResponseTo == nil || *got.ResponseTo != *want.ResponseTo):
			t.Fatalf("response_to mismatch: got %v, want %q", got.ResponseTo, *want.ResponseTo)
		}
	}
}

func TestDecodeResponseMalformed(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"not json", "plain text line"},
		{"missing message", `{"status":"ready"}`},
		{"missing status", `{"message":"hi"}`},
		{"null status", `{"status":null,"message":"hi"}`},
		{"command shape", `{"action":"ping","data":null}`},
	}

	for _, tc := range cases {
		if _, err := DecodeResponse(tc.text); !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("%s: expected ErrMalformedMessage, got %v", tc.name, err)
		}
	}
}

func TestDecodeResponseOptionalResponseTo(t *testing.T) {
	r, err := DecodeResponse(`{"status":"ready","message":"up"}`)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}

	if r.ResponseTo != nil {
		t.Fatalf("expected nil response_to, got %q", *r.ResponseTo)
	}
}
