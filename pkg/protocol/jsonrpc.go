package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// JSONRPCVersion is the supported JSON-RPC version
	JSONRPCVersion = "2.0"
)

// ErrorCode represents standard JSON-RPC 2.0 error codes
type ErrorCode int

// Standard error codes as per JSON-RPC 2.0 specification
const (
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603
)

var errorCodeNames = map[ErrorCode]string{
	ParseError:     "parse error",
	InvalidRequest: "invalid request",
	MethodNotFound: "method not found",
	InvalidParams:  "invalid params",
	InternalError:  "internal error",
}

// String names the standard codes. Codes in the reserved -32099..-32000
// range are server errors; anything else is application defined.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	if c >= -32099 && c <= -32000 {
		return "server error"
	}
	return "application error"
}

// Message is one line of a session. Requests carry a correlation id,
// notifications do not.
type Message interface {
	MessageMethod() string
	CorrelationID() (int64, bool)
}

// JSONRPCMessage represents a JSON-RPC 2.0 message
type JSONRPCMessage struct {
	JSONRPC string `json:"jsonrpc"`
}

// Request represents a JSON-RPC 2.0 request. Probe sessions only ever use
// integer ids.
type Request struct {
	JSONRPCMessage
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewRequest creates a new JSON-RPC 2.0 request
func NewRequest(id int64, method string, params interface{}) (*Request, error) {
	paramsJSON, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	return &Request{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Method:         method,
		Params:         paramsJSON,
	}, nil
}

// MessageMethod returns the request method
func (r *Request) MessageMethod() string { return r.Method }

// CorrelationID returns the request id
func (r *Request) CorrelationID() (int64, bool) { return r.ID, true }

// Notification represents a JSON-RPC 2.0 notification
type Notification struct {
	JSONRPCMessage
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewNotification creates a new JSON-RPC 2.0 notification
func NewNotification(method string, params interface{}) (*Notification, error) {
	paramsJSON, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	return &Notification{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		Method:         method,
		Params:         paramsJSON,
	}, nil
}

// MessageMethod returns the notification method
func (n *Notification) MessageMethod() string { return n.Method }

// CorrelationID always reports false: notifications are never answered.
func (n *Notification) CorrelationID() (int64, bool) { return 0, false }

func marshalParams(params interface{}) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	// Arguments are source code symbols and paths; keep <, > and & literal.
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(params); err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Response represents a JSON-RPC 2.0 response as read back from a server.
// ID stays raw because servers are free to echo it as any JSON value.
type Response struct {
	JSONRPCMessage
	ID     json.RawMessage `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// ParseResponse decodes one line of server output. Only the envelope has to
// be a JSON object: id and result stay raw, a jsonrpc member of the wrong
// type is ignored, and an error member that is not an error object is kept
// as its raw text. The returned error is the decoder's, so callers can tell
// non-object lines apart.
func ParseResponse(line []byte) (*Response, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(line, &members); err != nil {
		return nil, err
	}

	resp := &Response{ID: members["id"], Result: members["result"]}
	if raw, ok := members["jsonrpc"]; ok {
		_ = json.Unmarshal(raw, &resp.JSONRPC)
	}
	if raw, ok := members["error"]; ok && !isNull(raw) {
		var rpcErr Error
		if err := json.Unmarshal(raw, &rpcErr); err != nil {
			rpcErr = Error{Message: string(bytes.TrimSpace(raw))}
		}
		resp.Error = &rpcErr
	}
	return resp, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// HasID reports whether the response's id numerically equals target. A
// string id never matches, even when it spells the same digits.
func (r *Response) HasID(target int64) bool {
	raw := bytes.TrimSpace(r.ID)
	if len(raw) == 0 || raw[0] == '"' || isNull(raw) {
		return false
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return false
	}
	if i, err := n.Int64(); err == nil {
		return i == target
	}
	f, err := n.Float64()
	return err == nil && f == float64(target)
}

// Error represents a JSON-RPC 2.0 error object
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("rpc error: code = %d (%s) desc = %s", int(e.Code), e.Code, e.Message)
}
