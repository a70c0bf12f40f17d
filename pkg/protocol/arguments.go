package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Arguments is the ordered key/value mapping passed as tools/call arguments.
// The zero value is not usable; build one with NewArguments.
type Arguments struct {
	m *orderedmap.OrderedMap[string, interface{}]
}

// NewArguments returns an empty argument mapping
func NewArguments() *Arguments {
	return &Arguments{m: orderedmap.New[string, interface{}]()}
}

// Set adds or replaces key and returns the receiver for chaining. Replacing
// an existing key keeps its original position.
func (a *Arguments) Set(key string, value interface{}) *Arguments {
	a.m.Set(key, value)
	return a
}

// Get returns the value stored under key
func (a *Arguments) Get(key string) (interface{}, bool) {
	if a == nil {
		return nil, false
	}
	return a.m.Get(key)
}

// Len returns the number of keys
func (a *Arguments) Len() int {
	if a == nil {
		return 0
	}
	return a.m.Len()
}

// Keys returns the keys in insertion order
func (a *Arguments) Keys() []string {
	if a == nil {
		return nil
	}
	keys := make([]string, 0, a.m.Len())
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Clone returns a copy whose top-level keys can be changed independently.
func (a *Arguments) Clone() *Arguments {
	out := NewArguments()
	if a == nil {
		return out
	}
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		out.m.Set(pair.Key, pair.Value)
	}
	return out
}

// variableRef matches the braced ${name} form only. Bare $name, $1 and $$
// are literal text in tool arguments.
var variableRef = regexp.MustCompile(`\$\{(\w+)\}`)

// Expand returns a copy with ${var} references in top-level string values
// replaced through mapping. Any other '$' is left as written.
func (a *Arguments) Expand(mapping func(string) string) *Arguments {
	out := NewArguments()
	if a == nil {
		return out
	}
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		if s, ok := pair.Value.(string); ok {
			out.m.Set(pair.Key, variableRef.ReplaceAllStringFunc(s, func(ref string) string {
				return mapping(ref[2 : len(ref)-1])
			}))
			continue
		}
		out.m.Set(pair.Key, pair.Value)
	}
	return out
}

// ToMap returns an unordered copy, for consumers that need a plain map.
func (a *Arguments) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, a.Len())
	if a == nil {
		return out
	}
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
// Keys and values are written without HTML escaping.
func (a *Arguments) MarshalJSON() ([]byte, error) {
	if a == nil || a.m == nil {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encode := func(v interface{}) error {
		if err := encoder.Encode(v); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1) // Encode appends '\n'
		return nil
	}

	buf.WriteByte('{')
	for pair, first := a.m.Oldest(), true; pair != nil; pair, first = pair.Next(), false {
		if !first {
			buf.WriteByte(',')
		}
		if err := encode(pair.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encode(pair.Value); err != nil {
			return nil, fmt.Errorf("argument %q: %w", pair.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping its key order
func (a *Arguments) UnmarshalJSON(data []byte) error {
	a.m = orderedmap.New[string, interface{}]()
	return a.m.UnmarshalJSON(data)
}

// UnmarshalYAML decodes a YAML mapping, keeping its key order
func (a *Arguments) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("arguments: expected a mapping at line %d, got %s", node.Line, kindName(node.Kind))
	}

	a.m = orderedmap.New[string, interface{}]()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]

		var value interface{}
		if err := valueNode.Decode(&value); err != nil {
			return fmt.Errorf("arguments: key %q: %w", keyNode.Value, err)
		}
		a.m.Set(keyNode.Value, value)
	}
	return nil
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "mapping"
	}
}
