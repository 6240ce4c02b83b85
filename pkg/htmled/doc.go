// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

/*
Package htmled implements helpers for in-place editing of HTML sources.

A Document is built by running the golang.org/x/net/html tokenizer over the source
and recording, for every element, the byte extents of its start tag, its content and
its end tag. No tree is rendered back: edits are recorded on elements and spliced into
the original bytes on output, so everything that was not edited comes out exactly as
it went in (attribute quoting, comments, whitespace, character references).

The element tree is reconstructed with a subset of the HTML5 rules: void elements
never have content, a handful of elements (li, p, td, option, ...) are closed
implicitly, stray end tags are ignored and whatever is still open at the end of the
input is closed there.

Setting the text of an element discards all of its children. Descendants of an
element whose text was replaced are detached and are no longer returned by queries.
*/
package htmled
