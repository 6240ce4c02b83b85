// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package htmled

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"copyset.io/pkg/splice"
	"golang.org/x/net/html"
	"golang.org/x/text/transform"
)

// A Document is an HTML source together with the element tree found in it.
type Document struct {
	src      []byte
	root     *Element
	elements []*Element
}

// Parse reads the whole of r and indexes its elements.
func Parse(r io.Reader) (*Document, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(b)
}

// ParseString is like Parse but takes the source from a string.
func ParseString(s string) (*Document, error) { return ParseBytes([]byte(s)) }

// ParseBytes indexes the elements of an HTML source.
// The Document keeps a reference to src, which must not be modified afterwards.
func ParseBytes(src []byte) (*Document, error) {
	d := &Document{src: src}
	d.root = &Element{doc: d, Content: splice.Span(0, len(src))}

	var (
		z     = html.NewTokenizer(bytes.NewReader(src))
		stack = []*Element{d.root}
		pos   = 0
	)
	top := func() *Element { return stack[len(stack)-1] }

	for {
		tt := z.Next()
		start := pos
		pos += len(z.Raw())
		end := pos

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			if pos != len(src) {
				return nil, fmt.Errorf("tokenizer stopped at offset %d of %d", pos, len(src))
			}
			for len(stack) > 1 {
				top().close(len(src), len(src))
				stack = stack[:len(stack)-1]
			}
			return d, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			for i := impliedClose(tok.DataAtom, stack); i > 0; i = impliedClose(tok.DataAtom, stack) {
				for j := len(stack) - 1; j >= i; j-- {
					stack[j].close(start, start)
				}
				stack = stack[:i]
			}

			e := &Element{
				Name:    tok.Data,
				Attr:    tok.Attr,
				Tag:     splice.Span(start, end),
				Content: splice.Span(end, end),
				atom:    tok.DataAtom,
				doc:     d,
			}
			parent := top()
			e.parent = parent
			parent.children = append(parent.children, e)
			d.elements = append(d.elements, e)

			switch {
			case voidElements[e.atom]:
				e.Void = true
				e.close(end, end)
			case tt == html.SelfClosingTagToken && !rawTokens[e.atom]:
				e.SelfClosing = true
				e.close(end, end)
			default:
				stack = append(stack, e)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			i := len(stack) - 1
			for ; i > 0; i-- {
				if stack[i].Name == string(name) {
					break
				}
			}
			if i == 0 {
				// stray end tag, nothing to close.
				continue
			}
			for j := len(stack) - 1; j > i; j-- {
				stack[j].close(start, start)
			}
			stack[i].close(start, end)
			stack = stack[:i]
		}
	}
}

// FindAll returns every element whose attribute named attr has exactly the given value.
// Attribute names are matched case-insensitively, values are compared byte by byte.
// Elements detached by a previous SetText on one of their ancestors are not returned.
func (d *Document) FindAll(attr, value string) []*Element {
	attr = strings.ToLower(attr)
	var res []*Element
	for _, e := range d.elements {
		if e.detached {
			continue
		}
		if v, ok := e.Lookup(attr); ok && v == value {
			res = append(res, e)
		}
	}
	return res
}

// Modified reports whether any element text has been replaced.
func (d *Document) Modified() bool {
	for _, e := range d.elements {
		if e.Modified() && !e.detached {
			return true
		}
	}
	return false
}

// WriteTo writes the document source with all the edits applied.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := splice.Ops(d.root.edits()).Transform(cw, bytes.NewReader(d.src))
	return cw.n, err
}

// Bytes returns the document source with all the edits applied.
func (d *Document) Bytes() []byte {
	b, _, err := transform.Bytes(splice.T(d.root.edits()...), d.src)
	if err != nil {
		// edits never overlap and always fall within the source.
		panic(err)
	}
	return b
}

// String is like Bytes.
func (d *Document) String() string { return string(d.Bytes()) }

// Normalize re-parses an HTML source with the HTML5 tree builder and renders it back.
// The output is what a DOM-based tool would write: implied html/head/body elements are
// added, attribute values are double quoted and character references are re-escaped.
func Normalize(src []byte) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
