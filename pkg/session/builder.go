package session

import (
	"fmt"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/protocol"
)

// Correlation ids used by every session. The initialized notification sits
// between them and carries none.
const (
	InitializeID int64 = 1
	CallToolID   int64 = 3
)

const (
	DefaultClientName    = "mcp-probe"
	DefaultClientVersion = "1"
)

// Session is the ordered message sequence for one probe plus the id of the
// request whose response the extractor looks for.
type Session struct {
	Tool     string
	Messages []protocol.Message
	Target   int64
}

type buildOptions struct {
	clientInfo      protocol.ClientInfo
	protocolVersion string
}

// BuildOption customizes the handshake of a built session
type BuildOption func(*buildOptions)

// WithClientInfo sets the client identity sent in initialize
func WithClientInfo(name, version string) BuildOption {
	return func(o *buildOptions) {
		if name != "" {
			o.clientInfo.Name = name
		}
		if version != "" {
			o.clientInfo.Version = version
		}
	}
}

// WithProtocolVersion sets the protocol revision announced in initialize
func WithProtocolVersion(version string) BuildOption {
	return func(o *buildOptions) {
		if version != "" {
			o.protocolVersion = version
		}
	}
}

// Build returns the three-message session that invokes tool with args. Only
// structural problems are rejected here; argument values are passed through
// untouched so the server can report on them.
func Build(tool string, args *protocol.Arguments, opts ...BuildOption) (*Session, error) {
	if tool == "" {
		return nil, probeerrors.ValidationError("tool name cannot be empty")
	}

	options := buildOptions{
		clientInfo: protocol.ClientInfo{
			Name:    DefaultClientName,
			Version: DefaultClientVersion,
		},
		protocolVersion: protocol.ProtocolVersion,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if args == nil {
		args = protocol.NewArguments()
	}

	initialize, err := protocol.NewRequest(InitializeID, protocol.MethodInitialize, &protocol.InitializeParams{
		ProtocolVersion: options.protocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      options.clientInfo,
	})
	if err != nil {
		return nil, probeerrors.EncodeFailed(protocol.MethodInitialize, err)
	}

	initialized, err := protocol.NewNotification(protocol.MethodInitialized, nil)
	if err != nil {
		return nil, probeerrors.EncodeFailed(protocol.MethodInitialized, err)
	}

	call, err := protocol.NewRequest(CallToolID, protocol.MethodCallTool, &protocol.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		return nil, probeerrors.EncodeFailed(protocol.MethodCallTool, err).
			WithContext(&probeerrors.Context{Tool: tool, Component: "Builder", Operation: "build"})
	}

	return &Session{
		Tool:     tool,
		Messages: []protocol.Message{initialize, initialized, call},
		Target:   CallToolID,
	}, nil
}

// Validate checks that exactly one message carries Target and that no
// request id is reused.
func (s *Session) Validate() error {
	if s == nil || len(s.Messages) == 0 {
		return probeerrors.InvalidSession("session has no messages")
	}

	seen := make(map[int64]bool, len(s.Messages))
	for _, msg := range s.Messages {
		id, ok := msg.CorrelationID()
		if !ok {
			continue
		}
		if seen[id] {
			return probeerrors.InvalidSession(fmt.Sprintf("id %d is used by more than one request", id))
		}
		seen[id] = true
	}

	if !seen[s.Target] {
		return probeerrors.InvalidSession(fmt.Sprintf("no request carries target id %d", s.Target))
	}
	return nil
}
