// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package htmled

import (
	"strings"

	"golang.org/x/net/html/atom"
)

// voidElements can't have content nor an end tag.
var voidElements = atomSet(
	atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
	atom.Input, atom.Keygen, atom.Link, atom.Meta, atom.Param, atom.Source,
	atom.Track, atom.Wbr,
)

// rawTextElements hold unparsed text which is not subject to character escaping.
var rawTextElements = atomSet(
	atom.Iframe, atom.Noembed, atom.Noframes, atom.Noscript, atom.Plaintext,
	atom.Script, atom.Style, atom.Xmp,
)

// rawTokens are the elements after which the tokenizer switches to raw text
// until the matching end tag, even when the start tag is written as self-closing.
var rawTokens = atomSet(
	atom.Iframe, atom.Noembed, atom.Noframes, atom.Noscript, atom.Plaintext,
	atom.Script, atom.Style, atom.Textarea, atom.Title, atom.Xmp,
)

// closesP lists the start tags that implicitly close an open <p>.
var closesP = atomSet(
	atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Details,
	atom.Dialog, atom.Div, atom.Dl, atom.Fieldset, atom.Figcaption, atom.Figure,
	atom.Footer, atom.Form, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
	atom.Header, atom.Hgroup, atom.Hr, atom.Main, atom.Menu, atom.Nav, atom.Ol,
	atom.P, atom.Pre, atom.Section, atom.Table, atom.Ul,
	atom.Li, atom.Dt, atom.Dd,
)

// impliedEnd maps a start tag to the open elements it closes when they are
// the current node.
var impliedEnd = map[atom.Atom]map[atom.Atom]bool{
	atom.Option:   atomSet(atom.Option),
	atom.Optgroup: atomSet(atom.Option, atom.Optgroup),
	atom.Rb:       atomSet(atom.Rb, atom.Rt, atom.Rtc, atom.Rp),
	atom.Rt:       atomSet(atom.Rb, atom.Rt, atom.Rp),
	atom.Rp:       atomSet(atom.Rb, atom.Rt, atom.Rp),
	atom.Td:       atomSet(atom.Td, atom.Th),
	atom.Th:       atomSet(atom.Td, atom.Th),
	atom.Tr:       atomSet(atom.Td, atom.Th, atom.Tr),
	atom.Thead:    atomSet(atom.Td, atom.Th, atom.Tr, atom.Thead, atom.Tbody, atom.Tfoot),
	atom.Tbody:    atomSet(atom.Td, atom.Th, atom.Tr, atom.Thead, atom.Tbody, atom.Tfoot),
	atom.Tfoot:    atomSet(atom.Td, atom.Th, atom.Tr, atom.Thead, atom.Tbody, atom.Tfoot),
}

// specialElements are the HTML5 "special" category: a <li>, <dt> or <dd> start tag
// doesn't look for an open list item past them.
var specialElements = atomSet(
	atom.Address, atom.Applet, atom.Area, atom.Article, atom.Aside, atom.Base,
	atom.Basefont, atom.Bgsound, atom.Blockquote, atom.Body, atom.Br, atom.Button,
	atom.Caption, atom.Center, atom.Col, atom.Colgroup, atom.Dd, atom.Details,
	atom.Dir, atom.Div, atom.Dl, atom.Dt, atom.Embed, atom.Fieldset, atom.Figcaption,
	atom.Figure, atom.Footer, atom.Form, atom.Frame, atom.Frameset, atom.H1, atom.H2,
	atom.H3, atom.H4, atom.H5, atom.H6, atom.Head, atom.Header, atom.Hgroup, atom.Hr,
	atom.Html, atom.Iframe, atom.Img, atom.Input, atom.Keygen, atom.Li, atom.Link,
	atom.Listing, atom.Main, atom.Marquee, atom.Menu, atom.Meta, atom.Nav,
	atom.Noembed, atom.Noframes, atom.Noscript, atom.Object, atom.Ol, atom.P,
	atom.Param, atom.Plaintext, atom.Pre, atom.Script, atom.Section, atom.Select,
	atom.Source, atom.Style, atom.Summary, atom.Table, atom.Tbody, atom.Td,
	atom.Template, atom.Textarea, atom.Tfoot, atom.Th, atom.Thead, atom.Title,
	atom.Tr, atom.Track, atom.Ul, atom.Wbr, atom.Xmp,
)

// listItemScope stops the search for an open list item.
var listItemScope = func() map[atom.Atom]bool {
	m := atomSet()
	for a := range specialElements {
		if a != atom.Address && a != atom.Div && a != atom.P {
			m[a] = true
		}
	}
	return m
}()

// buttonScope stops the search for an open <p>.
var buttonScope = atomSet(
	atom.Applet, atom.Button, atom.Caption, atom.Html, atom.Marquee, atom.Object,
	atom.Table, atom.Td, atom.Template, atom.Th,
)

var (
	liSet   = atomSet(atom.Li)
	dtddSet = atomSet(atom.Dt, atom.Dd)
	pSet    = atomSet(atom.P)
)

// impliedClose returns the position in stack of the open element implicitly ended
// by a start tag a, or 0 if there is none. The elements above it end as well.
// stack[0] is the document root and is never closed.
func impliedClose(a atom.Atom, stack []*Element) int {
	switch {
	case a == atom.Li:
		if i := findOpen(stack, liSet, listItemScope); i > 0 {
			return i
		}
	case a == atom.Dt || a == atom.Dd:
		if i := findOpen(stack, dtddSet, listItemScope); i > 0 {
			return i
		}
	}
	if closesP[a] {
		if i := findOpen(stack, pSet, buttonScope); i > 0 {
			return i
		}
	}
	if top := len(stack) - 1; top > 0 && impliedEnd[a][stack[top].atom] {
		return top
	}
	return 0
}

// findOpen walks stack from the top and returns the position of the first element in
// targets, giving up at the first element in scope.
func findOpen(stack []*Element, targets, scope map[atom.Atom]bool) int {
	for i := len(stack) - 1; i > 0; i-- {
		a := stack[i].atom
		if targets[a] {
			return i
		}
		if scope[a] {
			return 0
		}
	}
	return 0
}

func atomSet(as ...atom.Atom) map[atom.Atom]bool {
	m := make(map[atom.Atom]bool, len(as))
	for _, a := range as {
		m[a] = true
	}
	return m
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeText escapes s for use as the content of an element of kind a.
// Raw text is written as is, except for the sequences that would end it early:
// "</name" becomes "<\/name", and "<!--" becomes "<\!--" in scripts.
func escapeText(a atom.Atom, s string) string {
	if !rawTextElements[a] {
		return textEscaper.Replace(s)
	}

	end := "</" + a.String()
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
		if s[i] != '<' {
			continue
		}
		if rest := s[i:]; len(rest) >= len(end) && strings.EqualFold(rest[:len(end)], end) {
			b.WriteByte('\\')
		} else if a == atom.Script && strings.HasPrefix(rest, "<!--") {
			b.WriteByte('\\')
		}
	}
	return b.String()
}
