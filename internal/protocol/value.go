package protocol

import (
	"encoding/hex"
	"strconv"
	"time"
)

// Numeric returns the value as float64 for numeric types.
func (v *Value) Numeric() (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch {
	case v.FloatValue != nil:
		return float64(*v.FloatValue), true
	case v.DoubleValue != nil:
		return *v.DoubleValue, true
	case v.Sint32Value != nil:
		return float64(*v.Sint32Value), true
	case v.Uint32Value != nil:
		return float64(*v.Uint32Value), true
	case v.Sint64Value != nil:
		return float64(*v.Sint64Value), true
	case v.Uint64Value != nil:
		return float64(*v.Uint64Value), true
	}
	return 0, false
}

// Text renders the value as a string regardless of type.
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.BooleanValue != nil:
		return strconv.FormatBool(*v.BooleanValue)
	case v.BinaryValue != nil:
		return hex.EncodeToString(v.BinaryValue)
	case v.TimestampVal != nil:
		return time.UnixMilli(*v.TimestampVal).UTC().Format(time.RFC3339Nano)
	case v.Sint64Value != nil:
		return strconv.FormatInt(*v.Sint64Value, 10)
	case v.Uint64Value != nil:
		return strconv.FormatUint(*v.Uint64Value, 10)
	}
	if f, ok := v.Numeric(); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return ""
}
