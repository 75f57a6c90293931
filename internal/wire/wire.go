// Package wire defines the two JSON payload shapes exchanged over the
// link and their codecs. A Command travels host to device, a Response
// device to host; either may additionally be sealed into an envelope.
package wire

import (
	"encoding/json"
	"fmt"
)

// Command is one request. Action is a free-form discriminator string, not
// a closed set; Data is an opaque optional payload.
type Command struct {
	Action string  `json:"action"`
	Data   *string `json:"data"`
}

// Response is one reply. ResponseTo is a best-effort echo of the
// triggering action, not a request ID; concurrent in-flight commands
// cannot be matched reliably through it.
type Response struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	ResponseTo *string `json:"response_to"`
}

// EncodeCommand renders c as a single-line JSON object.
func EncodeCommand(c Command) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("wire: encode command: %w", err)
	}

	return string(data), nil
}

// DecodeCommand parses text as a Command. The action field is required;
// data may be absent or null. Invalid JSON or a missing action fails with
// ErrMalformedMessage.
func DecodeCommand(text string) (Command, error) {
	var raw struct {
		Action *string `json:"action"`
		Data   *string `json:"data"`
	}

	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if raw.Action == nil {
		return Command{}, fmt.Errorf("%w: missing action", ErrMalformedMessage)
	}

	return Command{Action: *raw.Action, Data: raw.Data}, nil
}

// EncodeResponse renders r as a single-line JSON object.
func EncodeResponse(r Response) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("wire: encode response: %w", err)
	}

	return string(data), nil
}

// DecodeResponse parses text as a Response. Status and message are
// required; response_to may be absent or null.
func DecodeResponse(text string) (Response, error) {
	var raw struct {
		Status     *string `json:"status"`
		Message    *string `json:"message"`
		ResponseTo *string `json:"response_to"`
	}

	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if raw.Status == nil || raw.Message == nil {
		return Response{}, fmt.Errorf("%w: missing status or message", ErrMalformedMessage)
	}

	return Response{Status: *raw.Status, Message: *raw.Message, ResponseTo: raw.ResponseTo}, nil
}

// StringPtr is a convenience for building optional fields in place.
func StringPtr(s string) *string {
	return &s
}
