package expand

import (
	"bytes"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// writePreview stages the hover preview for id. Previews are only written
// by the emit pass.
func (x *Expander) writePreview(c *markup.Call, id, content string) error {
	if !x.st.Emitting() {
		return nil
	}
	snippet, err := stripIDs(content)
	if err != nil {
		return fail(ErrOutputIO, c, x.st.PreviewPath(id), err)
	}
	path := x.st.BuildPath(x.st.PreviewPath(id))
	x.logger.Debug("staging preview", "id", id, "path", path)
	x.st.Outbox.Write(path, snippet, c.Trace())
	return nil
}

// stripIDs removes id attributes from an HTML fragment so that a preview
// embedded in a page does not duplicate the page's anchors.
func stripIDs(fragment string) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", err
	}

	var strip func(n *html.Node)
	strip = func(n *html.Node) {
		if n.Type == html.ElementNode {
			kept := n.Attr[:0]
			for _, a := range n.Attr {
				if a.Key != "id" {
					kept = append(kept, a)
				}
			}
			n.Attr = kept
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			strip(child)
		}
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		strip(n)
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
