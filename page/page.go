// Package page discovers NiceHTML fragments declared in an HTML document.
package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/wippyai/nicehtml"
	"github.com/wippyai/nicehtml/errors"
	"github.com/wippyai/nicehtml/fetch"
)

// Defaults for Options.
const (
	DefaultElement    = "script"
	DefaultType       = "text/nicehtml"
	DefaultSourceAttr = "src"
)

// Options selects fragment elements. Empty fields fall back to defaults.
type Options struct {
	Element    string
	Type       string
	SourceAttr string
}

func (o Options) withDefaults() Options {
	if o.Element == "" {
		o.Element = DefaultElement
	}
	if o.Type == "" {
		o.Type = DefaultType
	}
	if o.SourceAttr == "" {
		o.SourceAttr = DefaultSourceAttr
	}
	o.Element = strings.ToLower(o.Element)
	o.Type = strings.ToLower(strings.TrimSpace(o.Type))
	return o
}

// Document is a loaded page together with its fragments.
type Document struct {
	URL       *url.URL
	Fragments []nicehtml.Fragment
}

// Open loads the page at location (path or URL) and discovers its fragments.
func Open(ctx context.Context, client *http.Client, location string, opts Options) (*Document, error) {
	u, err := fetch.Location(location)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscover, errors.KindInvalidInput, err, "page location")
	}

	doc, err := fetch.Get(ctx, client, u.String())
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscover, errors.KindFetch, err, "load page")
	}

	r, err := charset.NewReader(bytes.NewReader(doc.Body), doc.ContentType)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscover, errors.KindInvalidData, err, "detect page encoding")
	}

	fragments, err := Discover(r, doc.URL, opts)
	if err != nil {
		return nil, err
	}
	return &Document{URL: doc.URL, Fragments: fragments}, nil
}

// Discover parses r and returns the fragments in document order.
// Remote sources are resolved against base, or against the document's
// first <base href> when present. No I/O other than reading r happens.
func Discover(r io.Reader, base *url.URL, opts Options) ([]nicehtml.Fragment, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscover, errors.KindInvalidData, err, "parse page")
	}
	opts = opts.withDefaults()

	if href, ok := findBase(root); ok {
		b, err := url.Parse(href)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDiscover, errors.KindInvalidData, err,
				fmt.Sprintf("base href %q", href))
		}
		if base != nil {
			b = base.ResolveReference(b)
		}
		base = b
	}

	var (
		fragments []nicehtml.Fragment
		walkErr   error
	)
	walk(root, func(n *html.Node) bool {
		if walkErr != nil {
			return false
		}
		if n.Type != html.ElementNode || n.Data != opts.Element {
			return true
		}
		typ, _ := attr(n, "type")
		if strings.ToLower(strings.TrimSpace(typ)) != opts.Type {
			return true
		}

		f := nicehtml.Fragment{Index: len(fragments)}
		if src, _ := attr(n, opts.SourceAttr); strings.TrimSpace(src) != "" {
			loc, err := resolve(base, strings.TrimSpace(src))
			if err != nil {
				walkErr = errors.New(errors.PhaseDiscover, errors.KindInvalidData).
					Path(errors.FragmentPath(f.Index)...).
					Source(src).
					Cause(err).
					Build()
				return false
			}
			f.Origin = nicehtml.OriginRemote
			f.Source = loc
		} else {
			f.Origin = nicehtml.OriginInline
			f.Content = text(n)
		}
		fragments = append(fragments, f)
		// fragment content is opaque
		return false
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return fragments, nil
}

func resolve(base *url.URL, src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	return u.String(), nil
}

// walk visits nodes depth first in document order. Returning false from fn
// skips the node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findBase(root *html.Node) (string, bool) {
	var (
		href  string
		found bool
	)
	walk(root, func(n *html.Node) bool {
		if found {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Base {
			href, found = attr(n, "href")
		}
		return !found
	})
	return href, found
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func text(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
