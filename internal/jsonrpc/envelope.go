// Package jsonrpc defines the wire types for the newline-delimited
// JSON-RPC 2.0 protocol described in spec §4.1-§4.2, plus the standard
// and MCP-specific error code taxonomy.
package jsonrpc

import "encoding/json"

// Version is the fixed protocol version string on every frame.
const Version = "2.0"

// ID is string|integer|null per spec §3. A nil ID marks a notification.
type ID struct {
	value interface{}
	isSet bool
}

// NewID wraps a string or integer id.
func NewID(v interface{}) ID { return ID{value: v, isSet: true} }

// IsNotification reports whether this ID was never set (a notification).
func (i ID) IsNotification() bool { return !i.isSet }

// Value returns the underlying string/int64/nil value.
func (i ID) Value() interface{} { return i.value }

func (i ID) MarshalJSON() ([]byte, error) {
	if !i.isSet {
		return []byte("null"), nil
	}
	return json.Marshal(i.value)
}

func (i *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = ID{}
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch n := v.(type) {
	case float64:
		*i = ID{value: int64(n), isSet: true}
	default:
		*i = ID{value: v, isSet: true}
	}
	return nil
}

// Equal compares two IDs by value.
func (i ID) Equal(other ID) bool {
	if i.isSet != other.isSet {
		return false
	}
	return i.value == other.value
}

// Request is an incoming frame (spec §3's "Request envelope").
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ErrorObject is the error half of a Response.
type ErrorObject struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Response is an outgoing frame; exactly one of Result/Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// Notification is an outgoing frame with no id, used for $/progress.
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// NewResultResponse builds a success response.
func NewResultResponse(id ID, result interface{}) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewErrorResponse builds a failure response.
func NewErrorResponse(id ID, code int, message string, data interface{}) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: &ErrorObject{Code: code, Message: message, Data: data}}
}
