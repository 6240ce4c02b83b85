// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

/*
Package splice allows to perform simple edits on a byte buffer or a file.

The core operation is: replace the current content of a given selection with a new string.
Deletion is just replacement with an empty string.
Insertion is just replacement at a zero length selection.

Selections are half-open byte ranges in the input. Everything outside the selections
is copied through untouched, so callers that know where a value lives in a document
(e.g. from a tokenizer) can rewrite that value without reformatting the rest.

The edit operation involves one single pass through the input.
*/
package splice

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"

	"golang.org/x/text/transform"
)

// Transformer is a golang.org/x/text/transform.Transformer that buffers the whole
// input and then performs one splicing pass.
type Transformer struct {
	buf  []byte
	done bool
	copy func(w io.Writer, r io.ReadSeeker) error
}

// Transform implements the golang.org/x/text/transform.Transformer interface.
func (t *Transformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if !t.done {
		if !atEOF {
			return 0, 0, transform.ErrShortSrc
		}
		var buf bytes.Buffer
		if err := t.copy(&buf, bytes.NewReader(src)); err != nil {
			return 0, 0, err
		}
		t.buf, t.done = buf.Bytes(), true
	}

	n := copy(dst, t.buf)
	t.buf = t.buf[n:]
	if len(t.buf) > 0 {
		return n, len(src), transform.ErrShortDst
	}
	return n, len(src), nil
}

// Reset implements the golang.org/x/text/transform.Transformer interface.
func (t *Transformer) Reset() {
	t.buf, t.done = nil, false
}

// T returns a transformer that applies ops.
func T(ops ...Op) *Transformer { return &Transformer{copy: Ops(ops).Transform} }

// Ops is a set of edits applied in one pass.
type Ops []Op

// Transform copies r into w applying the edits.
// Unlike T, it streams and has no limit on the input size.
func (t Ops) Transform(w io.Writer, r io.ReadSeeker) error {
	return splice(w, r, t...)
}

// An Op captures a request to replace a selection with a replacement string.
// An idiomatic way to construct an Op instance is to call With or WithFunc on a Selection.
type Op struct {
	Selection
	Replace func(prev string) (string, error)
}

// A Selection selects a range of bytes in the input buffer.
// It's defined to be the range that starts at Start and ends before End.
type Selection struct {
	Start int
	End   int
}

// Span constructs a selection from a start and end byte offset.
func Span(start, end int) Selection { return Selection{start, end} }

// Len returns the number of bytes covered by the selection.
func (s Selection) Len() int { return s.End - s.Start }

// With returns an operation that captures a replacement of the current selection with a desired replacement string.
func (s Selection) With(r string) Op {
	return s.WithFunc(func(string) (string, error) { return r, nil })
}

// WithFunc returns an operation that will call the f callback on the previous value of the selection
// and replace the selection with the return value of the callback.
func (s Selection) WithFunc(f func(prev string) (string, error)) Op {
	return Op{s, f}
}

// splice copies text from r to w while replacing text at the given byte extents.
// The text to be replaced is provided via the Replace callback of each op.
func splice(w io.Writer, r io.Reader, ops ...Op) error {
	wbuf, rbuf := bufio.NewWriter(w), bufio.NewReader(r)

	sorted := make([]Op, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	pos := 0
	var prev bytes.Buffer
	for _, op := range sorted {
		if op.Start < pos {
			return fmt.Errorf("overlapping selection [%d,%d) starts before offset %d", op.Start, op.End, pos)
		}
		if op.End < op.Start {
			return fmt.Errorf("invalid selection [%d,%d)", op.Start, op.End)
		}

		// Copy out the span until the start of the current selection.
		if _, err := io.CopyN(wbuf, rbuf, int64(op.Start-pos)); err != nil {
			return err
		}

		// Consume the old content of the selection, the callback gets to see it.
		if _, err := io.CopyN(&prev, rbuf, int64(op.Len())); err != nil {
			return err
		}

		next, err := op.Replace(prev.String())
		if err != nil {
			return err
		}
		if _, err := wbuf.WriteString(next); err != nil {
			return err
		}
		prev.Reset()

		pos = op.End
	}

	// Copy out the trailing span.
	if _, err := io.Copy(wbuf, rbuf); err != nil {
		return err
	}
	return wbuf.Flush()
}
