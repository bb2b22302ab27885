package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeVerse marks a scripture reference block. Its text is canonical and comes
// from the scripture lookup, never from machine translation.
const NodeVerse = "verse"

// Node is one node of a rich-text editor document.
type Node struct {
	Type    string          `json:"type"`
	Attrs   map[string]any  `json:"attrs,omitempty"`
	Content []*Node         `json:"content,omitempty"`
	Text    string          `json:"text,omitempty"`
	Marks   json.RawMessage `json:"marks,omitempty"`
}

func ParseDoc(raw json.RawMessage) (*Node, error) {
	var n Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &n, nil
}

func (n *Node) Marshal() (json.RawMessage, error) {
	return json.Marshal(n)
}

// TranslatableText returns the text nodes outside verse blocks that carry
// more than whitespace, in document order.
func (n *Node) TranslatableText() []*Node {
	var out []*Node
	n.walk(func(c *Node) bool {
		if c.Type == NodeVerse {
			return false
		}
		if c.Type == "text" && strings.TrimSpace(c.Text) != "" {
			out = append(out, c)
		}
		return true
	})
	return out
}

func (n *Node) Verses() []*Node {
	var out []*Node
	n.walk(func(c *Node) bool {
		if c.Type == NodeVerse {
			out = append(out, c)
			return false
		}
		return true
	})
	return out
}

// Reference is the scripture reference of a verse node, e.g. "Romans 8:28".
func (n *Node) Reference() string {
	ref, _ := n.Attrs["reference"].(string)
	return strings.TrimSpace(ref)
}

// SetVerseText replaces the verse body with text, tagged with its language.
func (n *Node) SetVerseText(text, lang string) {
	if n.Attrs == nil {
		n.Attrs = map[string]any{}
	}
	n.Attrs["language"] = lang
	n.Content = []*Node{{Type: "text", Text: text}}
}

func (n *Node) walk(visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for _, c := range n.Content {
		if c != nil {
			c.walk(visit)
		}
	}
}
