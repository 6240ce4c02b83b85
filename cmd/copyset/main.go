// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"

	"copyset.io/pkg/content"
	"copyset.io/pkg/htmled"
	"copyset.io/pkg/mapping"
	"copyset.io/pkg/splice/atomicfile"
	"github.com/alecthomas/kong"
	"github.com/mkmik/multierror"
)

// Context holds the standard streams commands read from and write to.
type Context struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type CLI struct {
	Set  SetCmd  `cmd:"" default:"withargs" help:"Replace the text of the marked elements of an HTML file with the values of a copy deck (default command)."`
	Pull PullCmd `cmd:"" help:"Update the values of a YAML copy deck with the text currently found in an HTML file."`

	Version kong.VersionFlag `name:"version" help:"Print version information and quit"`
}

type CommonFlags struct {
	HTML string `arg:"" name:"html" help:"HTML file. Use - for standard input."`
	Deck string `arg:"" name:"yaml" help:"Copy deck (YAML, TOML or Jsonnet). Use - for standard input. Remote sources (https://..., git::..., s3::...) are fetched first."`

	Attr  string `name:"attr" default:"${marker}" help:"Marker attribute whose value is a copy deck key."`
	Quiet bool   `name:"quiet" short:"q" help:"Don't log the keys being searched."`
}

// logger returns the progress logger. Progress goes to stderr when the document is written to stdout.
func (c *CommonFlags) logger(ctx *Context, toStdout bool) *log.Logger {
	if c.Quiet {
		return nil
	}
	w := ctx.Stdout
	if toStdout {
		w = ctx.Stderr
	}
	return log.New(w, "", 0)
}

func (c *CommonFlags) Validate() error {
	if c.HTML == "-" && c.Deck == "-" {
		return fmt.Errorf("html and yaml cannot both be read from standard input")
	}
	return nil
}

type SetCmd struct {
	CommonFlags

	Null      string `name:"null" help:"Text used for null values."`
	Stdout    bool   `name:"stdout" help:"Output to stdout and never update files in-place."`
	Normalize bool   `name:"normalize" help:"Re-render the whole document through an HTML5 parser."`
}

func (s *SetCmd) Run(ctx *Context) error {
	// the copy deck is loaded first so that a broken deck never touches the page.
	m, err := loadDeck(ctx, s.Deck)
	if err != nil {
		return err
	}

	toStdout := s.Stdout || s.HTML == "-"
	u := &content.Updater{
		Attr:      s.Attr,
		Format:    mapping.Formatter{Null: s.Null},
		Log:       s.logger(ctx, toStdout),
		Normalize: s.Normalize,
	}

	if !toStdout {
		return atomicfile.Transform(u.Transformer(m), s.HTML)
	}

	src, err := readHTML(ctx, s.HTML)
	if err != nil {
		return err
	}
	out, _, err := u.Render(src, m)
	if err != nil {
		return err
	}
	_, err = ctx.Stdout.Write(out)
	return err
}

type PullCmd struct {
	CommonFlags
}

func (p *PullCmd) Run(ctx *Context) error {
	if p.Deck == "-" || isRemote(p.Deck) {
		return fmt.Errorf("pull needs a local copy deck, got %q", p.Deck)
	}
	if f := mapping.FormatOf(p.Deck); f != mapping.YAML {
		return fmt.Errorf("pull only supports YAML copy decks, %q is %s", p.Deck, f)
	}

	b, err := ioutil.ReadFile(p.Deck)
	if err != nil {
		return err
	}
	m, err := mapping.Parse(b)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Deck, err)
	}

	src, err := readHTML(ctx, p.HTML)
	if err != nil {
		return err
	}
	doc, err := htmled.ParseBytes(src)
	if err != nil {
		return err
	}

	edits, err := pullEdits(doc, m, p.attr(), p.logger(ctx, false))
	if err != nil {
		return err
	}
	if len(edits) == 0 {
		return nil
	}

	out, err := mapping.Update(b, edits)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(p.Deck, out, 0644)
}

func (c *CommonFlags) attr() string {
	if c.Attr == "" {
		return content.MarkerAttr
	}
	return c.Attr
}

// pullEdits returns the edits that bring the values of m in line with the text of the elements of doc.
// Keys without elements are left alone. All the elements marked with a key must agree on the text.
func pullEdits(doc *htmled.Document, m mapping.Mapping, attr string, l *log.Logger) ([]mapping.Edit, error) {
	var (
		edits []mapping.Edit
		errs  []error
		f     mapping.Formatter
	)
	for _, e := range m {
		found := doc.FindAll(attr, e.Key)
		if len(found) == 0 {
			continue
		}
		texts := make([]string, len(found))
		for i, el := range found {
			texts[i] = el.Text()
		}
		if !allSame(len(texts), func(i, j int) bool { return texts[i] == texts[j] }) {
			errs = append(errs, fmt.Errorf("elements with %s=%q have different texts (%q)", attr, e.Key, texts))
			continue
		}

		cur, err := f.Format(e.Value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if cur == texts[0] {
			continue
		}
		if l != nil {
			l.Printf("Pull: %s = %s", e.Key, texts[0])
		}
		edits = append(edits, mapping.Edit{Key: e.Key, Value: texts[0]})
	}
	if errs != nil {
		return nil, multierror.Join(errs)
	}
	return edits, nil
}

var vars = kong.Vars{
	"version": "0.0.1",
	"marker":  content.MarkerAttr,
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("copyset"),
		kong.Description("Fill the marked elements of an HTML page with the text of a copy deck."),
		kong.UsageOnError(),
		vars,
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	)
	err := ctx.Run(&Context{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr})
	ctx.FatalIfErrorf(err)
}
