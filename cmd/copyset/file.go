// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"

	"copyset.io/pkg/mapping"
	"github.com/hashicorp/go-getter"
	"github.com/mattn/go-isatty"
)

// slurpStdin reads the whole standard input, warning the user if it's a terminal.
func slurpStdin(ctx *Context, what string) ([]byte, error) {
	if f, ok := ctx.Stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		fmt.Fprintf(ctx.Stderr, "(reading %s from standard input; hit ctrl-c if this is not what you wanted)\n", what)
	}
	return ioutil.ReadAll(ctx.Stdin)
}

// readHTML reads the HTML file at p, or standard input if p is "-".
func readHTML(ctx *Context, p string) ([]byte, error) {
	if p == "-" {
		return slurpStdin(ctx, "HTML")
	}
	return ioutil.ReadFile(p)
}

// isRemote returns true if src is meant to be downloaded rather than opened.
func isRemote(src string) bool {
	return strings.Contains(src, "://") || strings.Contains(src, "::")
}

// loadDeck loads a copy deck from a file, a remote source or standard input ("-", always YAML).
func loadDeck(ctx *Context, src string) (mapping.Mapping, error) {
	switch {
	case src == "-":
		b, err := slurpStdin(ctx, "copy deck")
		if err != nil {
			return nil, err
		}
		return mapping.Parse(b)
	case isRemote(src):
		return fetchDeck(src)
	default:
		return mapping.Load(src)
	}
}

// fetchDeck downloads a copy deck with go-getter and loads it.
// The downloaded file keeps the extension of the source so its format can be detected.
func fetchDeck(src string) (mapping.Mapping, error) {
	dir, err := ioutil.TempDir("", "copyset")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, "deck"+remoteExt(src))
	opt := func(c *getter.Client) (err error) {
		c.Pwd, err = os.Getwd()
		return
	}
	if err := getter.GetFile(dst, src, opt); err != nil {
		return nil, fmt.Errorf("fetching %q: %w", src, err)
	}

	m, err := mapping.Load(dst)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return m, nil
}

// remoteExt returns the file extension of a go-getter source, ignoring
// forced getters ("git::"), query strings and subdirectories ("//").
func remoteExt(src string) string {
	if i := strings.LastIndex(src, "::"); i >= 0 {
		src = src[i+2:]
	}
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	if i := strings.Index(src, "://"); i >= 0 {
		src = src[i+3:]
	}
	return path.Ext(src)
}
