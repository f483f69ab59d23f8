package readme

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
)

// Legacy element ids
const (
	TitleMarker        = "tjidtitle"
	TechnologiesMarker = "tjidtechs"
	LinksMarker        = "tjidlinks"
)

func parseMarkers(text string) (domain.Metadata, error) {
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("failed to parse README markup: %w", err)
	}

	meta := domain.Metadata{Source: domain.MetadataSourceNone}

	if n := findByID(doc, TitleMarker); n != nil {
		meta.Title = textContent(n)
		meta.Source = domain.MetadataSourceMarkers
	}

	if n := findByID(doc, TechnologiesMarker); n != nil {
		meta.Technologies = strings.Split(textContent(n), ",")
		meta.Source = domain.MetadataSourceMarkers
	}

	if n := findByID(doc, LinksMarker); n != nil {
		forEachElement(n, func(li *html.Node) {
			if li != n && li.DataAtom == atom.Li {
				meta.Links = append(meta.Links, textContent(li))
			}
		})
		meta.Source = domain.MetadataSourceMarkers
	}

	return meta, nil
}

// findByID returns the first element in document order with the given id
func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	forEachElement(root, func(n *html.Node) {
		if found != nil {
			return
		}
		for _, attr := range n.Attr {
			if attr.Namespace == "" && attr.Key == "id" && attr.Val == id {
				found = n
				return
			}
		}
	})
	return found
}

// forEachElement visits every element node under root in document order
func forEachElement(root *html.Node, fn func(*html.Node)) {
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			fn(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(root)
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.TrimSpace(sb.String())
}
