// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

// Package content replaces the text of the elements of an HTML page with the values
// of a copy deck. Elements are addressed by a marker attribute whose value is a key
// of the copy deck.
package content

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"

	"copyset.io/pkg/htmled"
	"copyset.io/pkg/mapping"
	"copyset.io/pkg/splice/transform"
)

// MarkerAttr is the default marker attribute.
const MarkerAttr = "data-copy-id"

// An Updater applies copy decks to HTML documents.
// The zero value is ready to use: it matches MarkerAttr, renders nulls as empty
// strings and logs nothing.
type Updater struct {
	// Attr is the marker attribute. Defaults to MarkerAttr.
	Attr string
	// Format renders the values of the copy deck.
	Format mapping.Formatter
	// Log receives one line per key searched and one per element found, missed or skipped.
	Log *log.Logger
	// Normalize re-renders the output through the HTML5 tree builder.
	Normalize bool
}

// A Result summarizes what Apply did.
type Result struct {
	// Found holds the number of elements updated for each key, in copy deck order.
	Found []KeyCount
	// Missing holds the keys that matched no element.
	Missing []string
	// Skipped holds the matching elements that cannot hold text.
	Skipped []*htmled.Element
	// Modified is set by Render when at least one element got new text.
	Modified bool
}

// A KeyCount is the number of elements matched by a key.
type KeyCount struct {
	Key   string
	Count int
}

// Updated returns the number of element updates performed.
func (r *Result) Updated() int {
	n := 0
	for _, f := range r.Found {
		n += f.Count
	}
	return n
}

func (u *Updater) attr() string {
	if u.Attr == "" {
		return MarkerAttr
	}
	return u.Attr
}

func (u *Updater) logf(format string, v ...interface{}) {
	if u.Log != nil {
		u.Log.Printf(format, v...)
	}
}

// Apply replaces, for every key of m in order, the text of every element of doc whose
// marker attribute equals the key. Keys matching nothing are logged and skipped.
//
// When several keys match the same element, the last one wins. Elements inside
// an element whose text has been replaced are gone and won't match later keys.
func (u *Updater) Apply(doc *htmled.Document, m mapping.Mapping) (*Result, error) {
	attr := u.attr()
	res := &Result{}
	for _, e := range m {
		value, err := u.Format.Format(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", e.Key, err)
		}
		u.logf("Search: %s = %s", e.Key, value)

		found := doc.FindAll(attr, e.Key)
		if len(found) == 0 {
			u.logf("\tNo element found with %s='%s'", attr, e.Key)
			res.Missing = append(res.Missing, e.Key)
			continue
		}

		n := 0
		for _, el := range found {
			if err := el.SetText(value); errors.Is(err, htmled.ErrVoidElement) {
				u.logf("\tSkipped: <%s> cannot hold text", el.Name)
				res.Skipped = append(res.Skipped, el)
				continue
			} else if err != nil {
				return nil, err
			}
			u.logf("\tFound: %s=%s", attr, e.Key)
			n++
		}
		res.Found = append(res.Found, KeyCount{Key: e.Key, Count: n})
	}
	return res, nil
}

// Render applies m to an HTML source and returns the updated source.
func (u *Updater) Render(src []byte, m mapping.Mapping) ([]byte, *Result, error) {
	doc, err := htmled.ParseBytes(src)
	if err != nil {
		return nil, nil, err
	}
	res, err := u.Apply(doc, m)
	if err != nil {
		return nil, nil, err
	}
	res.Modified = doc.Modified()
	out := src
	if res.Modified {
		out = doc.Bytes()
	}
	if u.Normalize {
		if out, err = htmled.Normalize(out); err != nil {
			return nil, nil, err
		}
	}
	return out, res, nil
}

// Transformer returns a transform.Transformer that applies m to the HTML source it reads.
func (u *Updater) Transformer(m mapping.Mapping) transform.Transformer {
	return transform.Func(func(w io.Writer, r io.ReadSeeker) error {
		src, err := ioutil.ReadAll(r)
		if err != nil {
			return err
		}
		out, _, err := u.Render(src, m)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	})
}
