package protocol

// CallToolParams defines parameters for calling a tool
type CallToolParams struct {
	Name      string     `json:"name"`
	Arguments *Arguments `json:"arguments"`
}

// CallToolResult is the result object of a tools/call response
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content is one element of a tool result's content list. Text is a pointer
// so an element without a text attribute can be told apart from empty text.
type Content struct {
	Type string  `json:"type,omitempty"`
	Text *string `json:"text,omitempty"`
}
