// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package mapping

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/go-jsonnet"
	"github.com/mkmik/argsort"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// ParseTOML parses a TOML copy deck. Top-level keys are ordered as they appear in the source.
func ParseTOML(b []byte) (Mapping, error) {
	t, err := toml.LoadBytes(b)
	if err != nil {
		return nil, err
	}

	keys := t.Keys()
	order := argsort.SortSlice(keys, func(i, j int) bool {
		a, b := t.GetPosition(keys[i]), t.GetPosition(keys[j])
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})

	res := make(Mapping, 0, len(keys))
	for _, i := range order {
		k := keys[i]
		n, err := toNode(tomlValue(t.Get(k)))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		res = append(res, Entry{Key: k, Value: n})
	}
	return res, nil
}

// tomlValue turns go-toml values into plain maps, slices and scalars.
func tomlValue(v interface{}) interface{} {
	switch v := v.(type) {
	case *toml.Tree:
		return tomlValue(v.ToMap())
	case []*toml.Tree:
		res := make([]interface{}, len(v))
		for i, t := range v {
			res[i] = tomlValue(t)
		}
		return res
	case map[string]interface{}:
		res := make(map[string]interface{}, len(v))
		for k, e := range v {
			res[k] = tomlValue(e)
		}
		return res
	case []interface{}:
		res := make([]interface{}, len(v))
		for i, e := range v {
			res[i] = tomlValue(e)
		}
		return res
	case time.Time, string, bool, int64, float64, nil:
		return v
	case fmt.Stringer:
		// toml.LocalDate, toml.LocalTime, toml.LocalDateTime
		return v.String()
	default:
		return v
	}
}

// toNode converts a Go value into the yaml.Node it would be decoded as.
func toNode(v interface{}) (*yaml.Node, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if n := resolve(&doc); n != nil {
		return n, nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: nullTag, Value: "null"}, nil
}

// ParseJsonnet evaluates a Jsonnet copy deck. Imports are resolved relative to the directory of name.
// Keys come out in the order Jsonnet manifests them, which is sorted.
func ParseJsonnet(name string, b []byte) (Mapping, error) {
	vm := jsonnet.MakeVM()
	vm.Importer(&jsonnet.FileImporter{JPaths: []string{filepath.Dir(name)}})
	out, err := vm.EvaluateAnonymousSnippet(name, string(b))
	if err != nil {
		return nil, err
	}
	return Parse([]byte(out))
}
