package convert

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// HTMLText sends the visible text of every chunk, one text node per line.
// Script and style contents are skipped. Each chunk is parsed on its own,
// so markup split across chunks is read as text.
//
//	Bytes ----> | htmltext |----> Text
type HTMLText struct {
	converter
}

// NewHTMLText returns an HTML to text converter.
func NewHTMLText() *HTMLText {
	h := &HTMLText{}
	h.converter = newConverter("htmltext", h.extract)
	return h
}

func (h *HTMLText) extract(chunk []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(chunk))
	if err != nil {
		return "", err
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
				return
			}
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				lines = append(lines, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(lines) == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n") + "\n", nil
}
