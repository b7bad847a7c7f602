// Package loader is the external concrete-syntax boundary: it turns
// YAML bytes into the raw surface.Tree the compiler core accepts,
// staying outside internal/surface itself since the core never decodes
// text (spec.md §1/§6).
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"odlc/internal/surface"
)

// Load parses YAML bytes into a surface.Tree. The document must decode
// to a single top-level mapping; anything else is a load-time error
// rather than a MalformedNode compile error, since it means the input
// isn't even shaped like an organization definition.
func Load(data []byte) (surface.Tree, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse organization definition YAML: %w", err)
	}
	tree, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("organization definition must be a single top-level mapping, got %T", doc)
	}
	return tree, nil
}

// LoadFile reads path and parses it with Load.
func LoadFile(path string) (surface.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	tree, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}
