// Package yamldoc rewrites the fields packwatch owns inside YAML documents
// that other programs also write to.
package yamldoc

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Merge encodes value and applies it on top of the existing document.
//
// Keys present in the encoded value replace their counterparts, nested
// mappings are merged key by key, and the owned top-level keys missing from
// the encoded value (omitempty fields) are removed. Every other key, its
// position and its comments survive. An empty or non-mapping document is
// replaced by the encoded value.
func Merge(existing []byte, value any, owned ...string) ([]byte, error) {
	var updated yaml.Node
	if err := updated.Encode(value); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	if updated.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("encode document: expected a mapping, got kind %d", updated.Kind)
	}

	if len(bytes.TrimSpace(existing)) == 0 {
		return yaml.Marshal(&updated)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(existing, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	root := mappingOf(&doc)
	if root == nil {
		return yaml.Marshal(&updated)
	}

	mergeMapping(root, &updated)

	for _, key := range owned {
		if valueOf(&updated, key) == nil {
			deleteKey(root, key)
		}
	}

	return yaml.Marshal(&doc)
}

func mappingOf(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}

	if n.Kind != yaml.MappingNode {
		return nil
	}

	return n
}

func mergeMapping(dst, src *yaml.Node) {
	for i := 0; i+1 < len(src.Content); i += 2 {
		key, value := src.Content[i], src.Content[i+1]

		current := valueOf(dst, key.Value)
		switch {
		case current == nil:
			dst.Content = append(dst.Content, key, value)
		case current.Kind == yaml.MappingNode && value.Kind == yaml.MappingNode:
			mergeMapping(current, value)
		default:
			// Keep the comments attached to the old value.
			value.HeadComment, value.LineComment, value.FootComment =
				current.HeadComment, current.LineComment, current.FootComment
			*current = *value
		}
	}
}

func valueOf(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}

	return nil
}

func deleteKey(mapping *yaml.Node, key string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content = append(mapping.Content[:i], mapping.Content[i+2:]...)

			return
		}
	}
}
