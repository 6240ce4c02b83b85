// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

// Package mapping loads copy decks: flat documents mapping keys to the text that should
// appear in the page. Keys keep the order in which they are written.
package mapping

import (
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/mkmik/multierror"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotMapping is returned when the root of a copy deck is not a key/value mapping.
	ErrNotMapping = errors.New("copy deck root is not a mapping")
	// ErrDuplicateKey is returned when a key appears more than once.
	ErrDuplicateKey = errors.New("duplicate key")
)

// An Entry is one key of a copy deck together with its value.
type Entry struct {
	Key   string
	Value *yaml.Node
}

// A Mapping is an ordered list of entries with unique keys.
type Mapping []Entry

// keys returns the keys in order.
func (m Mapping) keys() []string {
	res := make([]string, len(m))
	for i, e := range m {
		res[i] = e.Key
	}
	return res
}

// get returns the value for key.
func (m Mapping) get(key string) (*yaml.Node, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Load reads a copy deck from a file, picking the format from the file extension.
func Load(path string) (Mapping, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseFormat(FormatOf(path), path, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// A Format is a copy deck syntax.
type Format string

// Supported formats.
const (
	YAML    Format = "yaml"
	TOML    Format = "toml"
	Jsonnet Format = "jsonnet"
)

// FormatOf guesses the format of a file from its extension. Anything unknown is YAML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML
	case ".jsonnet", ".libsonnet":
		return Jsonnet
	default:
		return YAML
	}
}

// ParseFormat parses b as a copy deck of the given format.
// The name is only used by formats that can reference other files (Jsonnet imports).
func ParseFormat(f Format, name string, b []byte) (Mapping, error) {
	switch f {
	case TOML:
		return ParseTOML(b)
	case Jsonnet:
		return ParseJsonnet(name, b)
	case YAML, "":
		return Parse(b)
	default:
		return nil, fmt.Errorf("unknown copy deck format %q", f)
	}
}

// Parse parses a YAML copy deck. An empty document yields an empty mapping.
func Parse(b []byte) (Mapping, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	return FromNode(&root)
}

// FromNode builds a Mapping out of a parsed YAML document.
// Merge keys ("<<") are expanded; explicit keys win over merged ones.
func FromNode(root *yaml.Node) (Mapping, error) {
	n := resolve(root)
	if n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == nullTag) {
		return Mapping{}, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %w", n.Line, ErrNotMapping)
	}
	if l := len(n.Content); l%2 != 0 {
		return nil, fmt.Errorf("yaml.Node invariant broken, found %d map content", l)
	}

	var (
		res  Mapping
		seen = map[string]int{}
		errs []error
	)
	for i := 0; i < len(n.Content); i += 2 {
		key, value := resolve(n.Content[i]), n.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			errs = append(errs, fmt.Errorf("line %d: keys must be scalars", key.Line))
			continue
		}
		if key.ShortTag() == mergeTag {
			continue
		}
		if prev, ok := seen[key.Value]; ok {
			errs = append(errs, fmt.Errorf("line %d: %q (first defined at line %d): %w", key.Line, key.Value, prev, ErrDuplicateKey))
			continue
		}
		seen[key.Value] = key.Line
		res = append(res, Entry{Key: key.Value, Value: value})
	}
	if errs != nil {
		return nil, keyErrors(errs)
	}

	merged, err := mergedEntries(n)
	if err != nil {
		return nil, err
	}
	for _, e := range merged {
		if _, ok := seen[e.Key]; !ok {
			seen[e.Key] = 0
			res = append(res, e)
		}
	}
	return res, nil
}

// keyErrors lists the problems found in the keys of a copy deck.
// It matches every sentinel any of its errors matches.
type keyErrors []error

func (e keyErrors) Error() string { return multierror.Join(e).Error() }

func (e keyErrors) Is(target error) bool {
	for _, err := range e {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// mergedEntries returns the entries pulled in by the merge keys of n, in merge order.
func mergedEntries(n *yaml.Node) (Mapping, error) {
	var res Mapping
	for i := 0; i < len(n.Content); i += 2 {
		if resolve(n.Content[i]).ShortTag() != mergeTag {
			continue
		}
		v := resolve(n.Content[i+1])
		sources := []*yaml.Node{v}
		if v.Kind == yaml.SequenceNode {
			sources = v.Content
		}
		for _, s := range sources {
			m, err := FromNode(s)
			if err != nil {
				return nil, fmt.Errorf("merge key at line %d: %w", n.Content[i].Line, err)
			}
			res = append(res, m...)
		}
	}
	return res, nil
}

const (
	strTag   = "!!str"
	intTag   = "!!int"
	floatTag = "!!float"
	boolTag  = "!!bool"
	nullTag  = "!!null"
	mergeTag = "!!merge"
)

// resolve skips document nodes and follows aliases.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) > 0:
			n = n.Content[0]
		case n.Kind == yaml.DocumentNode:
			return nil
		case n.Kind == yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}
