package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
)

// Encode serializes the session as one JSON object per line, in order. The
// result always ends with a newline.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTo(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the encoded session to w
func WriteTo(w io.Writer, s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	writer := bufio.NewWriter(w)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)

	for _, msg := range s.Messages {
		// Encode terminates every value with '\n'
		if err := encoder.Encode(msg); err != nil {
			return probeerrors.EncodeFailed(msg.MessageMethod(), err).
				WithContext(&probeerrors.Context{
					Tool:      s.Tool,
					Component: "Encoder",
					Operation: "write_message",
				})
		}
	}

	if err := writer.Flush(); err != nil {
		return probeerrors.SessionIOError("encoder", "flush", err)
	}
	return nil
}
