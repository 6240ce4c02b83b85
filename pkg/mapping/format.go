// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package mapping

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// A Formatter renders copy deck values as the text that goes into the page.
// It is the one place that decides how non-string values look.
type Formatter struct {
	// Null is the text for null values (`~`, `null` or a missing value).
	Null string
}

// Format renders a value:
//
//	strings      as is
//	integers     base 10 (0x2A is 42)
//	floats       shortest representation that round-trips (1.0 is 1, .inf is +Inf)
//	booleans     true/false
//	null         f.Null
//	sequences    flow YAML ([a, b])
//	mappings     flow YAML ({a: 1})
//
// Any other scalar (timestamps, binary) is rendered as written.
func (f Formatter) Format(n *yaml.Node) (string, error) {
	n = resolve(n)
	if n == nil || n.Kind == 0 {
		return f.Null, nil
	}

	switch n.Kind {
	case yaml.ScalarNode:
		return f.scalar(n)
	default:
		return flow(n)
	}
}

func (f Formatter) scalar(n *yaml.Node) (string, error) {
	switch n.ShortTag() {
	case nullTag:
		return f.Null, nil
	case intTag:
		var i int64
		if err := n.Decode(&i); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		var u uint64
		if err := n.Decode(&u); err == nil {
			return strconv.FormatUint(u, 10), nil
		}
		// doesn't fit in 64 bits
		return n.Value, nil
	case floatTag:
		var v float64
		if err := n.Decode(&v); err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case boolTag:
		var b bool
		if err := n.Decode(&b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	default:
		return n.Value, nil
	}
}

// flow renders a collection on a single line.
func flow(n *yaml.Node) (string, error) {
	b, err := yaml.Marshal(flowCopy(n))
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(b), "\n"), nil
}

// flowCopy returns a deep copy of n with aliases expanded, flow style
// on collections and comments dropped.
func flowCopy(n *yaml.Node) *yaml.Node {
	n = resolve(n)
	c := &yaml.Node{
		Kind:  n.Kind,
		Tag:   n.Tag,
		Value: n.Value,
		Style: n.Style &^ (yaml.LiteralStyle | yaml.FoldedStyle),
	}
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		c.Style |= yaml.FlowStyle
		for _, e := range n.Content {
			c.Content = append(c.Content, flowCopy(e))
		}
	}
	return c
}

// formatAll renders every value of m with f.
func (f Formatter) formatAll(m Mapping) (map[string]string, error) {
	res := make(map[string]string, len(m))
	for _, e := range m {
		s, err := f.Format(e.Value)
		if err != nil {
			return nil, err
		}
		res[e.Key] = s
	}
	return res, nil
}
