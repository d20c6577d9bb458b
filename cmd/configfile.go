package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// errKeyNotSet is returned by getConfigValue when the file lacks the key.
var errKeyNotSet = errors.New("key not set in config file")

// readConfigDoc parses path, or returns an empty document when it does not
// exist. Comments survive a read/write round trip.
func readConfigDoc(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(bytes.TrimSpace(data)) == 0) {
		return &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse config: top level is not a mapping")
	}
	return &doc, nil
}

func writeConfigDoc(path string, doc *yaml.Node) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// setConfigValues writes dotted keys into the file at path in one pass.
func setConfigValues(path string, pairs ...[2]string) error {
	doc, err := readConfigDoc(path)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := setNodeValue(doc.Content[0], strings.Split(p[0], "."), p[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", p[0], err)
		}
	}
	return writeConfigDoc(path, doc)
}

func getConfigValue(path, key string) (string, error) {
	doc, err := readConfigDoc(path)
	if err != nil {
		return "", err
	}
	node := mappingValue(doc.Content[0], strings.Split(key, "."))
	switch {
	case node == nil:
		return "", fmt.Errorf("%s: %w", key, errKeyNotSet)
	case node.Kind != yaml.ScalarNode:
		return "", fmt.Errorf("%s is a section, not a value", key)
	}
	return node.Value, nil
}

// setNodeValue creates intermediate mappings as needed. A scalar or empty
// section on the way is replaced by a mapping.
func setNodeValue(m *yaml.Node, path []string, value string) error {
	if len(path) == 0 || path[0] == "" {
		return errors.New("empty key")
	}
	for i, part := range path {
		child := mappingValue(m, []string{part})
		last := i == len(path)-1
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
		}
		if last {
			*child = yaml.Node{Kind: yaml.ScalarNode, Value: value, LineComment: child.LineComment}
			return nil
		}
		if child.Kind != yaml.MappingNode {
			*child = yaml.Node{Kind: yaml.MappingNode}
		}
		m = child
	}
	return nil
}

// mappingValue walks path through nested mappings.
func mappingValue(m *yaml.Node, path []string) *yaml.Node {
	for _, part := range path {
		if m == nil || m.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for j := 0; j+1 < len(m.Content); j += 2 {
			if m.Content[j].Value == part {
				next = m.Content[j+1]
				break
			}
		}
		m = next
	}
	return m
}
