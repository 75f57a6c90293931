package wire

import "sealink/internal/envelope"

// EncryptCommand serializes c and seals it into an envelope under the
// system's key.
func EncryptCommand(sys *envelope.System, c Command) (envelope.Message, error) {
	text, err := EncodeCommand(c)
	if err != nil {
		return envelope.Message{}, err
	}

	return sys.Seal(text)
}

// DecryptCommand opens the envelope and parses the plaintext as a
// Command, propagating whichever failure occurs first.
func DecryptCommand(sys *envelope.System, msg envelope.Message) (Command, error) {
	text, err := sys.Open(msg)
	if err != nil {
		return Command{}, err
	}

	return DecodeCommand(text)
}

// EncryptResponse serializes r and seals it into an envelope under the
// system's key.
func EncryptResponse(sys *envelope.System, r Response) (envelope.Message, error) {
	text, err := EncodeResponse(r)
	if err != nil {
		return envelope.Message{}, err
	}

	return sys.Seal(text)
}

// DecryptResponse opens the envelope and parses the plaintext as a
// Response, propagating whichever failure occurs first.
func DecryptResponse(sys *envelope.System, msg envelope.Message) (Response, error) {
	text, err := sys.Open(msg)
	if err != nil {
		return Response{}, err
	}

	return DecodeResponse(text)
}
