// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transform defines whole-stream rewriters.

Unlike golang.org/x/text/transform, a Transformer here gets to see the full input
(and may seek back in it) before producing any output. This is what in-place editors
that first parse a document and then splice values into it need.
*/
package transform

import (
	"bytes"
	"io"
	"strings"
)

// A Transformer copies r into w, rewriting it along the way.
type Transformer interface {
	Transform(w io.Writer, r io.ReadSeeker) error
}

// Func adapts an ordinary function to the Transformer interface.
type Func func(w io.Writer, r io.ReadSeeker) error

// Transform implements the Transformer interface.
func (f Func) Transform(w io.Writer, r io.ReadSeeker) error { return f(w, r) }

// String returns the result of transforming s and the number of bytes written.
func String(t Transformer, s string) (string, int, error) {
	var out strings.Builder
	r := strings.NewReader(s)
	if err := t.Transform(&out, r); err != nil {
		return "", 0, err
	}
	return out.String(), out.Len(), nil
}

// Bytes returns the result of transforming b and the number of bytes written.
func Bytes(t Transformer, b []byte) ([]byte, int, error) {
	var out bytes.Buffer
	r := bytes.NewReader(b)
	if err := t.Transform(&out, r); err != nil {
		return nil, 0, err
	}
	return out.Bytes(), out.Len(), nil
}
