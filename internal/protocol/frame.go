package protocol

import (
	"encoding/json"
	"fmt"
)

// EncodeRequest builds a request frame for the given sequence ID.
func EncodeRequest(seq int32, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	frame := []json.RawMessage{
		json.RawMessage(fmt.Sprint(Version)),
		json.RawMessage(fmt.Sprint(MessageTypeRequest)),
		json.RawMessage(fmt.Sprint(seq)),
		body,
	}
	return json.Marshal(frame)
}

// DecodeFrame parses an inbound frame. The payload is left undecoded.
func DecodeFrame(data []byte) (Frame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(parts) < 3 {
		return Frame{}, fmt.Errorf("%w: %d elements", ErrMalformedFrame, len(parts))
	}

	var f Frame
	if err := json.Unmarshal(parts[0], &f.Version); err != nil {
		return Frame{}, fmt.Errorf("%w: version: %v", ErrMalformedFrame, err)
	}
	if f.Version != Version {
		return Frame{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	if err := json.Unmarshal(parts[1], &f.Type); err != nil {
		return Frame{}, fmt.Errorf("%w: message type: %v", ErrMalformedFrame, err)
	}
	if err := json.Unmarshal(parts[2], &f.Seq); err != nil {
		return Frame{}, fmt.Errorf("%w: sequence: %v", ErrMalformedFrame, err)
	}
	if len(parts) > 3 {
		f.Body = parts[3]
	}

	return f, nil
}

// Exception decodes the payload of an exception frame.
func (f Frame) Exception() (Exception, error) {
	var exc Exception
	if len(f.Body) == 0 {
		return exc, fmt.Errorf("%w: exception without payload", ErrMalformedFrame)
	}
	if err := json.Unmarshal(f.Body, &exc); err != nil {
		return exc, fmt.Errorf("decode exception: %w", err)
	}
	return exc, nil
}

// Data decodes the payload of a data frame.
func (f Frame) Data() (DataMessage, error) {
	var msg DataMessage
	if len(f.Body) == 0 {
		return msg, fmt.Errorf("%w: data without payload", ErrMalformedFrame)
	}
	if err := json.Unmarshal(f.Body, &msg); err != nil {
		return msg, fmt.Errorf("decode data: %w", err)
	}
	return msg, nil
}

// InvalidIDs decodes the rejected ids of an InvalidIdentification exception.
func (e Exception) InvalidIDs() ([]NamedObjectID, error) {
	var inv InvalidIdentification
	if err := json.Unmarshal(e.Msg, &inv); err != nil {
		return nil, fmt.Errorf("decode invalid identification: %w", err)
	}
	return inv.Invalid, nil
}
