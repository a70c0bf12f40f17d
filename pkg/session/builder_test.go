package session

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/protocol"
)

func decodeLines(t *testing.T, blob []byte) []map[string]interface{} {
	t.Helper()
	require.True(t, strings.HasSuffix(string(blob), "\n"))

	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSuffix(string(blob), "\n"), "\n") {
		var obj map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &obj), line)
		out = append(out, obj)
	}
	return out
}

func TestBuild(t *testing.T) {
	args := protocol.NewArguments().
		Set("repoPath", "/repo").
		Set("target_dir", "services/py-mlx-bridge/src").
		Set("symbol_name", "_copy_tokenizer_extras")

	s, err := Build("neurosiphon_find_usages", args)
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	assert.Equal(t, CallToolID, s.Target)
	require.Len(t, s.Messages, 3)

	blob, err := Encode(s)
	require.NoError(t, err)
	msgs := decodeLines(t, blob)
	require.Len(t, msgs, 3)

	assert.Equal(t, "initialize", msgs[0]["method"])
	assert.EqualValues(t, 1, msgs[0]["id"])
	params := msgs[0]["params"].(map[string]interface{})
	assert.Equal(t, "2024-11-05", params["protocolVersion"])
	assert.Equal(t, map[string]interface{}{}, params["capabilities"])
	assert.Equal(t, map[string]interface{}{"name": "mcp-probe", "version": "1"}, params["clientInfo"])

	assert.Equal(t, "notifications/initialized", msgs[1]["method"])
	assert.NotContains(t, msgs[1], "id")

	assert.Equal(t, "tools/call", msgs[2]["method"])
	assert.EqualValues(t, 3, msgs[2]["id"])
	call := msgs[2]["params"].(map[string]interface{})
	assert.Equal(t, "neurosiphon_find_usages", call["name"])
	assert.Equal(t, "_copy_tokenizer_extras", call["arguments"].(map[string]interface{})["symbol_name"])

	for _, msg := range msgs {
		assert.Equal(t, "2.0", msg["jsonrpc"])
	}
}

func TestBuildKeepsArgumentOrder(t *testing.T) {
	args := protocol.NewArguments().Set("target_dir", "src").Set("repoPath", "/repo")
	s, err := Build("neurosiphon_repo_map", args)
	require.NoError(t, err)

	blob, err := Encode(s)
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"arguments":{"target_dir":"src","repoPath":"/repo"}`)
}

func TestBuildOptions(t *testing.T) {
	s, err := Build("tool", nil, WithClientInfo("self-test", "2"), WithProtocolVersion("2025-03-26"))
	require.NoError(t, err)

	blob, err := Encode(s)
	require.NoError(t, err)
	msgs := decodeLines(t, blob)

	params := msgs[0]["params"].(map[string]interface{})
	assert.Equal(t, "2025-03-26", params["protocolVersion"])
	assert.Equal(t, map[string]interface{}{"name": "self-test", "version": "2"}, params["clientInfo"])
	assert.Equal(t, map[string]interface{}{}, msgs[2]["params"].(map[string]interface{})["arguments"])
}

func TestBuildPassesArgumentsThrough(t *testing.T) {
	// No repoPath and an odd value type: the server decides what to do.
	args := protocol.NewArguments().Set("target_dir", 42)
	s, err := Build("neurosiphon_repo_map", args)
	require.NoError(t, err)
	assert.NoError(t, s.Validate())
}

func TestEncodeKeepsHTMLCharacters(t *testing.T) {
	s, err := Build("neurosiphon_find_usages", protocol.NewArguments().Set("symbol_name", "Option<&T>"))
	require.NoError(t, err)

	blob, err := Encode(s)
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"symbol_name":"Option<&T>"`)
	assert.NotContains(t, string(blob), `\u003c`)
}

func TestBuildRejectsEmptyTool(t *testing.T) {
	_, err := Build("", protocol.NewArguments())
	require.Error(t, err)
	assert.True(t, probeerrors.IsCategory(err, probeerrors.CategoryValidation))
}

func TestValidate(t *testing.T) {
	req := func(id int64) protocol.Message {
		r, err := protocol.NewRequest(id, "m", nil)
		require.NoError(t, err)
		return r
	}
	note, err := protocol.NewNotification("n", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		session *Session
		wantErr bool
	}{
		{"valid", &Session{Messages: []protocol.Message{req(1), note, req(3)}, Target: 3}, false},
		{"duplicate id", &Session{Messages: []protocol.Message{req(3), req(3)}, Target: 3}, true},
		{"missing target", &Session{Messages: []protocol.Message{req(1), note}, Target: 3}, true},
		{"empty", &Session{Target: 3}, true},
		{"nil", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, probeerrors.IsCode(err, probeerrors.CodeInvalidSession))
		})
	}
}

func TestEncodeRejectsInvalidSession(t *testing.T) {
	_, err := Encode(&Session{Target: 3})
	assert.Error(t, err)
}
