package checker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/khanhnv2901/walletscan/internal/domain/scan"
	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

// Getter issues GET requests and returns the status code and body.
type Getter interface {
	Get(ctx context.Context, target string) (int, string, error)
}

// Document is a fetched root page and the scripts it references.
type Document struct {
	URL     string
	Status  int
	Scripts []scan.ScriptReference
}

// Fetcher retrieves the root document and enumerates its script elements.
type Fetcher struct {
	Client Getter
}

// Fetch downloads target and extracts its scripts. A non-200 response or a
// transport failure is returned as ErrRootFetch along with the reason line the
// result should carry.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*Document, string, error) {
	status, body, err := f.Client.Get(ctx, target)
	if err != nil {
		reason := fmt.Sprintf("Could not fetch website content: %v", err)
		return nil, reason, fmt.Errorf("%w: %v", scanerrors.ErrRootFetch, err)
	}
	if status != http.StatusOK {
		reason := fmt.Sprintf("Website returned status code %d", status)
		return nil, reason, fmt.Errorf("%w: status %d", scanerrors.ErrRootFetch, status)
	}

	base, err := url.Parse(target)
	if err != nil {
		reason := fmt.Sprintf("Could not fetch website content: %v", err)
		return nil, reason, fmt.Errorf("%w: %v", scanerrors.ErrRootFetch, err)
	}

	return &Document{
		URL:     target,
		Status:  status,
		Scripts: ExtractScripts(body, base),
	}, "", nil
}

// ExtractScripts walks the parsed document and returns every inline and
// external script in document order. Script elements are numbered 1..n; an
// element with both text and a src attribute yields two references sharing
// that number.
func ExtractScripts(body string, base *url.URL) []scan.ScriptReference {
	// html.Parse only fails on reader errors, never on malformed markup.
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var refs []scan.ScriptReference
	index := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script {
			index++
			if text := scriptText(n); text != "" {
				refs = append(refs, scan.NewInlineScript(index, text))
			}
			if src, ok := attr(n, "src"); ok && strings.TrimSpace(src) != "" {
				refs = append(refs, scan.NewExternalScript(index, resolveScriptURL(strings.TrimSpace(src), base)))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return refs
}

func scriptText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func resolveScriptURL(src string, base *url.URL) string {
	if base == nil {
		return src
	}
	resolved, err := base.Parse(src)
	if err != nil {
		return src
	}
	return resolved.String()
}
