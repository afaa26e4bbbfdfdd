package normalize

import (
	"encoding/json"
	"strings"
)

// richTextNode is the subset of Shopify's rich text schema we produce and read
type richTextNode struct {
	Type     string         `json:"type"`
	Value    string         `json:"value,omitempty"`
	Children []richTextNode `json:"children,omitempty"`
}

// RichText wraps plain text in a root/paragraph/text document, one paragraph per
// non-blank line. Empty input yields "".
func RichText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	root := richTextNode{Type: "root"}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		root.Children = append(root.Children, richTextNode{
			Type:     "paragraph",
			Children: []richTextNode{{Type: "text", Value: line}},
		})
	}

	data, err := json.Marshal(root)
	if err != nil {
		return ""
	}
	return string(data)
}

// PlainText flattens a rich text document to whitespace-collapsed text.
// Values that are not rich text JSON are returned with whitespace collapsed.
func PlainText(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}

	var root richTextNode
	if err := json.Unmarshal([]byte(value), &root); err != nil || root.Type == "" {
		return collapse(value)
	}
	return collapse(walk(root))
}

func walk(n richTextNode) string {
	if n.Type == "text" {
		return n.Value
	}
	parts := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		parts = append(parts, walk(c))
	}
	return strings.Join(parts, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
