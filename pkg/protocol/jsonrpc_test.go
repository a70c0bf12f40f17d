package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(1, MethodInitialize, nil)
	require.NoError(t, err)
	assert.Equal(t, JSONRPCVersion, req.JSONRPC)
	assert.Equal(t, int64(1), req.ID)
	assert.Empty(t, req.Params)

	id, ok := req.CorrelationID()
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, MethodInitialize, req.MessageMethod())
}

func TestNewRequestMarshalError(t *testing.T) {
	_, err := NewRequest(1, "bad", map[string]interface{}{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestNotificationHasNoID(t *testing.T) {
	n, err := NewNotification(MethodInitialized, nil)
	require.NoError(t, err)

	_, ok := n.CorrelationID()
	assert.False(t, ok)

	raw, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, string(raw))
}

func TestResponseHasID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"integer", `3`, true},
		{"float with zero fraction", `3.0`, true},
		{"different integer", `4`, false},
		{"string digits", `"3"`, false},
		{"null", `null`, false},
		{"absent", ``, false},
		{"object", `{"n":3}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{ID: json.RawMessage(tt.id)}
			assert.Equal(t, tt.want, resp.HasID(3))
		})
	}
}

func TestErrorImplementsError(t *testing.T) {
	var err error = &Error{Code: MethodNotFound, Message: "no such tool"}
	assert.Equal(t, "rpc error: code = -32601 (method not found) desc = no such tool", err.Error())
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "invalid params", InvalidParams.String())
	assert.Equal(t, "parse error", ParseError.String())
	assert.Equal(t, "server error", ErrorCode(-32001).String())
	assert.Equal(t, "application error", ErrorCode(7).String())
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantID     string
		wantResult string
		wantError  *Error
	}{
		{
			name:       "well formed",
			line:       `{"jsonrpc":"2.0","id":3,"result":{"content":[]}}`,
			wantID:     `3`,
			wantResult: `{"content":[]}`,
		},
		{
			name:       "numeric jsonrpc member",
			line:       `{"jsonrpc":2,"id":3,"result":{}}`,
			wantID:     `3`,
			wantResult: `{}`,
		},
		{
			name:       "string error member",
			line:       `{"jsonrpc":"2.0","id":3,"result":{},"error":"warn"}`,
			wantID:     `3`,
			wantResult: `{}`,
			wantError:  &Error{Message: `"warn"`},
		},
		{
			name:      "error object",
			line:      `{"id":1,"error":{"code":-32602,"message":"bad"}}`,
			wantID:    `1`,
			wantError: &Error{Code: InvalidParams, Message: "bad"},
		},
		{
			name:       "null error",
			line:       `{"id":1,"result":{},"error":null}`,
			wantID:     `1`,
			wantResult: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, string(resp.ID))
			assert.Equal(t, tt.wantResult, string(resp.Result))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestParseResponseRejectsNonObjects(t *testing.T) {
	for _, line := range []string{`{`, `42`, `"text"`, `[{"id":3}]`, `INFO ready`} {
		_, err := ParseResponse([]byte(line))
		require.Error(t, err, line)

		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		assert.True(t, errors.As(err, &syntaxErr) || errors.As(err, &typeErr), line)
	}
}
