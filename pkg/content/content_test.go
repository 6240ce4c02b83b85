// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package content_test

import (
	"bytes"
	"fmt"
	"log"
	"reflect"
	"strings"
	"testing"

	"copyset.io/pkg/content"
	"copyset.io/pkg/htmled"
	"copyset.io/pkg/mapping"
	"copyset.io/pkg/splice/transform"
)

func ExampleUpdater_Apply() {
	doc, err := htmled.ParseString(`<h1 data-copy-id="title">Lorem</h1>
<p>Items: <span data-copy-id="count">0</span></p>`)
	if err != nil {
		log.Fatal(err)
	}
	m, err := mapping.Parse([]byte("title: Hello\ncount: 42\n"))
	if err != nil {
		log.Fatal(err)
	}

	var u content.Updater
	if _, err := u.Apply(doc, m); err != nil {
		log.Fatal(err)
	}
	fmt.Println(doc)
	// Output:
	// <h1 data-copy-id="title">Hello</h1>
	// <p>Items: <span data-copy-id="count">42</span></p>
}

func mustParse(t *testing.T, deck string) mapping.Mapping {
	t.Helper()
	m, err := mapping.Parse([]byte(deck))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func render(t *testing.T, u *content.Updater, src, deck string) string {
	t.Helper()
	out, _, err := u.Render([]byte(src), mustParse(t, deck))
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestApply(t *testing.T) {
	testCases := []struct {
		src  string
		deck string
		want string
	}{
		{
			`<span data-copy-id="title"></span>`,
			`title: "Hello"`,
			`<span data-copy-id="title">Hello</span>`,
		},
		{
			`<b data-copy-id="count">many</b>`,
			`count: 42`,
			`<b data-copy-id="count">42</b>`,
		},
		{
			`<p data-copy-id="missing">keep</p>`,
			`missing_key: "x"`,
			`<p data-copy-id="missing">keep</p>`,
		},
		// same id on two elements
		{
			`<p data-copy-id="a">1</p><div><p data-copy-id=a>2</p></div>`,
			`a: both`,
			`<p data-copy-id="a">both</p><div><p data-copy-id=a>both</p></div>`,
		},
		// destructive replace of nested markup
		{
			`<div data-copy-id="body"><p>one</p><!-- c --><p>two</p></div>`,
			`body: flat`,
			`<div data-copy-id="body">flat</div>`,
		},
		// inner element replaced first, then its ancestor
		{
			`<div data-copy-id="outer"><p data-copy-id="inner">x</p></div>`,
			"inner: in\nouter: out\n",
			`<div data-copy-id="outer">out</div>`,
		},
		// ancestor replaced first, inner element is gone
		{
			`<div data-copy-id="outer"><p data-copy-id="inner">x</p></div>`,
			"outer: out\ninner: in\n",
			`<div data-copy-id="outer">out</div>`,
		},
		// siblings
		{
			`<ul><li data-copy-id="one">1<li data-copy-id="two">2</ul>`,
			"one: uno\ntwo: dos\n",
			`<ul><li data-copy-id="one">uno<li data-copy-id="two">dos</ul>`,
		},
		{
			`<p data-copy-id="t">x</p>`,
			`t: "a < b & c"`,
			`<p data-copy-id="t">a &lt; b &amp; c</p>`,
		},
		{
			`<script data-copy-id="js">old()</script>`,
			`js: "if (a < b) go()"`,
			`<script data-copy-id="js">if (a < b) go()</script>`,
		},
		{
			`<span data-copy-id="t"/>!`,
			`t: filled`,
			`<span data-copy-id="t">filled</span>!`,
		},
		{
			`<p data-copy-id="t">x</p>`,
			"t:\n",
			`<p data-copy-id="t"></p>`,
		},
		{
			`<p data-copy-id="t">x</p>`,
			"t: [1, {a: b}]\n",
			`<p data-copy-id="t">[1, {a: b}]</p>`,
		},
		{
			`<p data-copy-id="t">x</p>`,
			"t: 1.50\n",
			`<p data-copy-id="t">1.5</p>`,
		},
		{
			`<p data-copy-id="t">x</p>`,
			"t: yes\n",
			`<p data-copy-id="t">yes</p>`,
		},
		{
			`<p data-copy-id="t">x</p>`,
			"t: false\n",
			`<p data-copy-id="t">false</p>`,
		},
		// keys are case sensitive
		{
			`<p data-copy-id="Title">x</p>`,
			"title: y\n",
			`<p data-copy-id="Title">x</p>`,
		},
		{
			`<img data-copy-id="t" src="a.png"><p data-copy-id="t">x</p>`,
			"t: y\n",
			`<img data-copy-id="t" src="a.png"><p data-copy-id="t">y</p>`,
		},
	}
	for i, tc := range testCases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			if got, want := render(t, &content.Updater{}, tc.src, tc.deck), tc.want; got != want {
				t.Errorf("got: %q, want: %q", got, want)
			}
		})
	}
}

const page = `<!DOCTYPE html>
<html lang=en>
<head>
  <meta charset="utf-8">
  <title data-copy-id='page.title'>Page</title>
  <!-- <span data-copy-id="title">commented out</span> -->
</head>
<body class = "home">
  <h1 data-copy-id="title">Lorem &amp; ipsum</h1>
  <p data-copy-id="intro">Some <em>rich</em> text<br>
  <P DATA-COPY-ID="count">0</P>
  <footer><span data-copy-id="title"></span></footer>
</body>
</html>
`

func TestEmptyMappingUnchanged(t *testing.T) {
	for i, deck := range []string{"", "{}", "# nothing\n", "missing: 1\n"} {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			if got, want := render(t, &content.Updater{}, page, deck), page; got != want {
				t.Errorf("got:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestOnlyMatchedElementsChange(t *testing.T) {
	got := render(t, &content.Updater{}, page, "title: Hello\ncount: 42\npage.title: Home\n")
	want := strings.NewReplacer(
		`<h1 data-copy-id="title">Lorem &amp; ipsum</h1>`, `<h1 data-copy-id="title">Hello</h1>`,
		`<span data-copy-id="title"></span></footer>`, `<span data-copy-id="title">Hello</span></footer>`,
		`<P DATA-COPY-ID="count">0</P>`, `<P DATA-COPY-ID="count">42</P>`,
		`<title data-copy-id='page.title'>Page</title>`, `<title data-copy-id='page.title'>Home</title>`,
	).Replace(page)
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestImpliedEndTag(t *testing.T) {
	// <p> is implicitly closed by the next <p>, its content doesn't include the rest of the page.
	got := render(t, &content.Updater{}, page, "intro: Plain\n")
	want := strings.Replace(page, "Some <em>rich</em> text<br>\n  ", "Plain", 1)
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestIdempotent(t *testing.T) {
	deck := "title: Hello\ncount: 42\nintro: Some <em>text</em>\nnothing: ~\n"
	first := render(t, &content.Updater{}, page, deck)
	second := render(t, &content.Updater{}, first, deck)
	if got, want := second, first; got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRawTextIdempotent(t *testing.T) {
	src := `<script data-copy-id="js">old()</script><style data-copy-id="css"></style><p>tail</p>`
	deck := "js: \"a()</script><b>x</b>\"\ncss: \"p{}</style><i>\"\n"

	first := render(t, &content.Updater{}, src, deck)
	want := `<script data-copy-id="js">a()<\/script><b>x</b></script><style data-copy-id="css">p{}<\/style><i></style><p>tail</p>`
	if got := first; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
	if got, want := render(t, &content.Updater{}, first, deck), first; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}

	doc, err := htmled.ParseString(first)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"js", "css"} {
		if got, want := len(doc.FindAll(content.MarkerAttr, key)), 1; got != want {
			t.Errorf("%s: got: %d, want: %d", key, got, want)
		}
	}
}

func TestLastWriteWins(t *testing.T) {
	src := `<p data-copy-id="a" class="x">0</p>`
	doc, err := htmled.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	u := content.Updater{Attr: "class"}
	if _, err := u.Apply(doc, mustParse(t, "x: first\n")); err != nil {
		t.Fatal(err)
	}
	u.Attr = ""
	if _, err := u.Apply(doc, mustParse(t, "a: second\n")); err != nil {
		t.Fatal(err)
	}
	if got, want := doc.String(), `<p data-copy-id="a" class="x">second</p>`; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	u := content.Updater{Log: log.New(&buf, "", 0)}
	src := `<h1 data-copy-id="title"></h1><p data-copy-id="title"></p><br data-copy-id="count">`
	doc, err := htmled.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	res, err := u.Apply(doc, mustParse(t, "title: Hello\ncount: 42\nmissing_key: x\n"))
	if err != nil {
		t.Fatal(err)
	}

	want := `Search: title = Hello
	Found: data-copy-id=title
	Found: data-copy-id=title
Search: count = 42
	Skipped: <br> cannot hold text
Search: missing_key = x
	No element found with data-copy-id='missing_key'
`
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	if got, want := res.Found, []content.KeyCount{{"title", 2}, {"count", 0}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got: %v, want: %v", got, want)
	}
	if got, want := res.Missing, []string{"missing_key"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got: %q, want: %q", got, want)
	}
	if got, want := len(res.Skipped), 1; got != want {
		t.Fatalf("got: %d, want: %d", got, want)
	}
	if got, want := res.Skipped[0].Name, "br"; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
	if got, want := res.Updated(), 2; got != want {
		t.Errorf("got: %d, want: %d", got, want)
	}
}

func TestCustomMarker(t *testing.T) {
	u := content.Updater{Attr: "data-i18n"}
	got := render(t, &u, `<p data-i18n="greet">x</p><p data-copy-id="greet">y</p>`, "greet: Hi\n")
	if want := `<p data-i18n="greet">Hi</p><p data-copy-id="greet">y</p>`; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
}

func TestNull(t *testing.T) {
	u := content.Updater{Format: mapping.Formatter{Null: "None"}}
	got := render(t, &u, `<p data-copy-id="a">x</p><p data-copy-id="b">y</p>`, "a: ~\nb: null\n")
	if want := `<p data-copy-id="a">None</p><p data-copy-id="b">None</p>`; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
}

func TestNormalize(t *testing.T) {
	u := content.Updater{Normalize: true}
	got := render(t, &u, `<p data-copy-id=t>x`, "t: y\n")
	if want := `<html><head></head><body><p data-copy-id="t">y</p></body></html>`; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
}

func TestRenderModified(t *testing.T) {
	testCases := []struct {
		deck string
		want bool
	}{
		{"", false},
		{"missing_key: x\n", false},
		{"logo: x\n", false},
		{"title: Hello\n", true},
		{"title: Lorem\n", true},
	}
	for i, tc := range testCases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			src := `<h1 data-copy-id="title">Lorem</h1><img data-copy-id="logo">`
			_, res, err := (&content.Updater{}).Render([]byte(src), mustParse(t, tc.deck))
			if err != nil {
				t.Fatal(err)
			}
			if got, want := res.Modified, tc.want; got != want {
				t.Errorf("got: %v, want: %v", got, want)
			}
		})
	}
}

func TestTransformer(t *testing.T) {
	u := content.Updater{}
	got, _, err := transform.String(u.Transformer(mustParse(t, "t: y\n")), `<p data-copy-id="t">x</p>`)
	if err != nil {
		t.Fatal(err)
	}
	if want := `<p data-copy-id="t">y</p>`; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
}
