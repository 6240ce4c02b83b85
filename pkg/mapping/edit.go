// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package mapping

import (
	"fmt"

	"github.com/go-openapi/jsonpointer"
	"github.com/mkmik/multierror"
	yamled "github.com/vmware-labs/go-yaml-edit"
	"github.com/vmware-labs/go-yaml-edit/splice"
	yptr "github.com/vmware-labs/yaml-jsonpointer"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// An Edit is a request to set the value of a top-level key to a string.
type Edit struct {
	Key   string
	Value string
}

// Pointer returns the JSONPointer addressing a top-level key.
func Pointer(key string) string {
	return "/" + jsonpointer.Escape(key)
}

// Update rewrites the values of existing top-level keys of a YAML copy deck in place.
// Comments, key order, indentation and the quoting style of the edited values are preserved.
// Only scalar values can be updated.
func Update(src []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return src, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, err
	}

	var (
		ops  []splice.Op
		errs []error
	)
	for _, e := range edits {
		n, err := yptr.Find(&root, Pointer(e.Key))
		if err != nil {
			errs = append(errs, fmt.Errorf("cannot find key %q: %w", e.Key, err))
			continue
		}
		if n.Kind != yaml.ScalarNode {
			errs = append(errs, fmt.Errorf("key %q at line %d: only scalar values can be updated", e.Key, n.Line))
			continue
		}
		ops = append(ops, yamled.Node(n).With(e.Value))
	}
	if errs != nil {
		return nil, multierror.Join(errs)
	}

	b, _, err := transform.Bytes(yamled.T(ops...), src)
	return b, err
}
