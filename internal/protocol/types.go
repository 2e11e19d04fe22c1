package protocol

import (
	"encoding/json"
	"errors"
)

// Wire constants.
const (
	Version = 1

	MessageTypeRequest   = 1
	MessageTypeReply     = 2
	MessageTypeException = 3
	MessageTypeData      = 4
)

// Data types carried in data frames.
const (
	DataTypeParameter      = "PARAMETER"
	DataTypeCommandHistory = "CMD_HISTORY"
)

// ExceptionInvalidIdentification is raised by the server when a subscribe
// request names parameters it does not know.
const ExceptionInvalidIdentification = "InvalidIdentification"

// Errors
var (
	ErrMalformedFrame     = errors.New("malformed frame")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

// NamedObjectID identifies a parameter, optionally within a namespace.
type NamedObjectID struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

// Key returns the identity used for set operations on ids. Namespace and
// name are joined with NUL, so a qualified name never collides with a
// namespace-relative one.
func (id NamedObjectID) Key() string {
	if id.Namespace == "" {
		return id.Name
	}
	return id.Namespace + "\x00" + id.Name
}

func (id NamedObjectID) String() string {
	if id.Namespace == "" {
		return id.Name
	}
	return id.Namespace + "/" + id.Name
}

// NamedObjectList is the wire encoding of an id list.
type NamedObjectList struct {
	List []NamedObjectID `json:"list"`
}

// ParameterRequest is the payload of a parameter subscribe/unsubscribe.
type ParameterRequest struct {
	Request string          `json:"request"` // "subscribe" or "unsubscribe"
	Data    NamedObjectList `json:"data"`
}

// CommandHistoryRequest is the payload of a command history subscription.
type CommandHistoryRequest struct {
	CmdHistory string `json:"cmdhistory"`
}

// Frame is a decoded inbound frame.
type Frame struct {
	Version int
	Type    int
	Seq     int32
	Body    json.RawMessage // nil when the frame has no payload
}

// Exception is the payload of an exception frame.
type Exception struct {
	Type string          `json:"et"`
	Msg  json.RawMessage `json:"msg"`
}

// Message returns the exception message when it is a plain string.
func (e Exception) Message() string {
	var s string
	if err := json.Unmarshal(e.Msg, &s); err != nil {
		return string(e.Msg)
	}
	return s
}

// InvalidIdentification lists the ids the server rejected.
type InvalidIdentification struct {
	Invalid []NamedObjectID `json:"invalid"`
}

// DataMessage is the payload of a data frame.
type DataMessage struct {
	Type string          `json:"dt"`
	Data json.RawMessage `json:"data"`
}

// ParameterData is a batch of parameter values pushed by the server.
type ParameterData struct {
	Parameter []ParameterValue `json:"parameter"`
}

// ParameterValue is one sample of a parameter.
type ParameterValue struct {
	ID                NamedObjectID `json:"id"`
	RawValue          *Value        `json:"rawValue,omitempty"`
	EngValue          *Value        `json:"engValue,omitempty"`
	AcquisitionTime   int64         `json:"acquisitionTime"` // Milliseconds since epoch
	GenerationTime    int64         `json:"generationTime"`  // Milliseconds since epoch
	AcquisitionStatus string        `json:"acquisitionStatus,omitempty"`
	MonitoringResult  string        `json:"monitoringResult,omitempty"`
}

// Value is a typed Yamcs value. Only the field matching Type is set.
type Value struct {
	Type         string   `json:"type"` // FLOAT, DOUBLE, UINT32, SINT32, UINT64, SINT64, BINARY, STRING, TIMESTAMP, BOOLEAN
	FloatValue   *float32 `json:"floatValue,omitempty"`
	DoubleValue  *float64 `json:"doubleValue,omitempty"`
	Sint32Value  *int32   `json:"sint32Value,omitempty"`
	Uint32Value  *uint32  `json:"uint32Value,omitempty"`
	Sint64Value  *int64   `json:"sint64Value,omitempty"`
	Uint64Value  *uint64  `json:"uint64Value,omitempty"`
	BinaryValue  []byte   `json:"binaryValue,omitempty"`
	StringValue  *string  `json:"stringValue,omitempty"`
	TimestampVal *int64   `json:"timestampValue,omitempty"`
	BooleanValue *bool    `json:"booleanValue,omitempty"`
}

// CommandHistoryEntry is a command history update.
type CommandHistoryEntry struct {
	CommandID json.RawMessage            `json:"commandId"`
	Attr      []CommandHistoryAttribute `json:"attr"`
}

// CommandHistoryAttribute is one attribute of a command history entry.
type CommandHistoryAttribute struct {
	Name  string `json:"name"`
	Value *Value `json:"value"`
}
