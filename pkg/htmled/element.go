// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package htmled

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"copyset.io/pkg/splice"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrVoidElement is returned when setting the text of an element that can't have content (e.g. <br>).
	ErrVoidElement = errors.New("void element cannot hold text")
	// ErrDetached is returned when editing an element whose ancestor text has been replaced.
	ErrDetached = errors.New("element is no longer part of the document")
)

// An Element is an element found in a Document.
//
// Tag, Content and EndTag are byte extents in the original source. EndTag is empty
// when the end tag was omitted, and Content is empty for void and self-closing elements.
type Element struct {
	Name string
	Attr []nethtml.Attribute

	Tag     splice.Selection
	Content splice.Selection
	EndTag  splice.Selection

	// Void elements (<br>, <img>, ...) never have content.
	Void bool
	// SelfClosing is set for non-void elements written as <x/>.
	SelfClosing bool

	atom     atom.Atom
	doc      *Document
	parent   *Element
	children []*Element
	text     *string
	detached bool
}

// Lookup returns the value of the first attribute named key.
func (e *Element) Lookup(key string) (string, bool) {
	for _, a := range e.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// StartTag returns the start tag as written in the source.
func (e *Element) StartTag() string {
	return string(e.doc.src[e.Tag.Start:e.Tag.End])
}

func (e *Element) String() string { return e.StartTag() }

// Modified reports whether the text of e has been replaced.
func (e *Element) Modified() bool { return e.text != nil }

// SetText replaces all the children of e with a single text node.
func (e *Element) SetText(s string) error {
	if e.Void {
		return fmt.Errorf("<%s>: %w", e.Name, ErrVoidElement)
	}
	if e.detached {
		return fmt.Errorf("<%s>: %w", e.Name, ErrDetached)
	}
	e.text = &s
	for _, c := range e.children {
		c.detach()
	}
	return nil
}

func (e *Element) detach() {
	e.detached = true
	for _, c := range e.children {
		c.detach()
	}
}

// Text returns the text content of e: the concatenation of all its descendant text,
// with character references decoded and comments left out.
func (e *Element) Text() string {
	if e.text != nil {
		return *e.text
	}
	content := e.inner()
	if rawTextElements[e.atom] {
		return content
	}
	if rawTokens[e.atom] {
		return nethtml.UnescapeString(content)
	}

	var (
		b strings.Builder
		z = nethtml.NewTokenizer(strings.NewReader(content))
	)
	for {
		switch z.Next() {
		case nethtml.ErrorToken:
			return b.String()
		case nethtml.TextToken:
			b.Write(z.Text())
		}
	}
}

// inner returns the source of the content of e with the edits of its descendants applied.
func (e *Element) inner() string {
	ops := e.edits()
	for i := range ops {
		ops[i].Start -= e.Content.Start
		ops[i].End -= e.Content.Start
	}
	var buf bytes.Buffer
	if err := splice.Ops(ops).Transform(&buf, bytes.NewReader(e.doc.src[e.Content.Start:e.Content.End])); err != nil {
		panic(err)
	}
	return buf.String()
}

// edits returns the splice operations for the replaced descendants of e.
func (e *Element) edits() []splice.Op {
	var ops []splice.Op
	for _, c := range e.children {
		if c.text != nil {
			ops = append(ops, c.edit())
		} else {
			ops = append(ops, c.edits()...)
		}
	}
	return ops
}

// edit returns the splice operation that installs the replacement text of e.
func (e *Element) edit() splice.Op {
	text := escapeText(e.atom, *e.text)
	if !e.SelfClosing {
		return e.Content.With(text)
	}
	// <x a="b"/> becomes <x a="b">text</x>
	slash := bytes.LastIndexByte(e.doc.src[e.Tag.Start:e.Tag.End], '/')
	return splice.Span(e.Tag.Start+slash, e.Tag.End).With(fmt.Sprintf(">%s</%s>", text, e.Name))
}

// close records where the content of e ends and where its end tag (if any) ends.
func (e *Element) close(contentEnd, tagEnd int) {
	e.Content.End = contentEnd
	e.EndTag = splice.Span(contentEnd, tagEnd)
}
