package ars

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Table is a table as rows of trimmed cell text
type Table [][]string

// Document is the minimal view of a page the extractors need
type Document interface {
	// Texts returns every text node, in document order
	Texts() []string

	// Tables returns every table, in document order
	Tables() []Table
}

// HTMLDocument is a Document backed by a parsed HTML page
type HTMLDocument struct {
	doc *goquery.Document
}

// NewHTMLDocument parses the page, decoding it from the charset
// declared by the content type (or the page itself) into UTF-8
func NewHTMLDocument(body []byte, contentType string) (*HTMLDocument, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("unable to detect page charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to construct query doc: %w", err)
	}

	return &HTMLDocument{
		doc: doc,
	}, nil
}

func (d *HTMLDocument) Texts() []string {
	var (
		out  []string
		walk func(n *html.Node)
	)

	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range d.doc.Nodes {
		walk(n)
	}

	return out
}

func (d *HTMLDocument) Tables() []Table {
	var out []Table

	d.doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows Table

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			texts := make([]string, 0, cells.Length())

			cells.Each(func(_ int, cell *goquery.Selection) {
				texts = append(texts, strings.TrimSpace(cell.Text()))
			})

			rows = append(rows, texts)
		})

		out = append(out, rows)
	})

	return out
}

// StaticDocument is a Document over already extracted content
type StaticDocument struct {
	Text  []string
	Table []Table
}

func (d *StaticDocument) Texts() []string {
	return d.Text
}

func (d *StaticDocument) Tables() []Table {
	return d.Table
}
