// Package parser extracts raw survey rows from a results listing page.
//
// Records span up to three table rows: a main row with the university, program,
// date and decision, an optional metadata row (term, GPA, origin) and an optional
// comment row. RowCursor walks the rows and yields one record at a time.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

const (
	resultMarker       = "/result/"
	universitySelector = "td .tw-font-medium"
)

var metadataRe = regexp.MustCompile(`(?i)(Fall|Spring)\s*\d{4}|GPA\s*\d|American|International`)

// Parser turns listing HTML into raw entries.
type Parser struct {
	origin *url.URL
}

// New builds a Parser that resolves relative result links against siteURL.
// Only the scheme and host of siteURL are used.
func New(siteURL string) (*Parser, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	return &Parser{origin: &url.URL{Scheme: u.Scheme, Host: u.Host}}, nil
}

// Parse returns every record found in body, in document order. Empty or malformed
// input yields an empty slice.
func (p *Parser) Parse(body []byte) []survey.RawEntry {
	entries := []survey.RawEntry{}
	if len(bytes.TrimSpace(body)) == 0 {
		return entries
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return entries
	}
	cursor := p.NewCursor(doc)
	for {
		entry, ok := cursor.Next()
		if !ok {
			return entries
		}
		entries = append(entries, entry)
	}
}

// RowCursor scans table rows and assembles one record per call to Next.
type RowCursor struct {
	parser *Parser
	rows   []*goquery.Selection
	pos    int
}

// NewCursor positions a cursor on the first body row of doc.
func (p *Parser) NewCursor(doc *goquery.Document) *RowCursor {
	var rows []*goquery.Selection
	doc.Find("tbody tr").Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, s)
	})
	return &RowCursor{parser: p, rows: rows}
}

// Pos returns the index of the next unread row.
func (c *RowCursor) Pos() int {
	return c.pos
}

// Next returns the next record. Rows without a university cue are skipped. After a
// main row, at most one metadata row and then at most one comment row are consumed.
func (c *RowCursor) Next() (survey.RawEntry, bool) {
	for c.pos < len(c.rows) {
		row := c.rows[c.pos]
		c.pos++
		entry, ok := c.parser.mainRow(row)
		if !ok {
			continue
		}
		if meta, ok := c.peek(metadataText); ok {
			entry.MetaRaw = meta
			c.pos++
		}
		if comments, ok := c.peek(commentText); ok {
			entry.CommentsRaw = comments
			c.pos++
		}
		return entry, true
	}
	return survey.RawEntry{}, false
}

func (c *RowCursor) peek(extract func(*goquery.Selection) (string, bool)) (string, bool) {
	if c.pos >= len(c.rows) {
		return "", false
	}
	return extract(c.rows[c.pos])
}

func (p *Parser) mainRow(row *goquery.Selection) (survey.RawEntry, bool) {
	if !hasUniversityCell(row) {
		return survey.RawEntry{}, false
	}
	cells := row.ChildrenFiltered("td")
	program, degree := programAndDegree(cells)
	return survey.RawEntry{
		UniversityRaw: cellText(cells, 0),
		ProgramRaw:    program,
		DegreeRaw:     degree,
		DateAddedRaw:  cellText(cells, 2),
		StatusRaw:     cellText(cells, 3),
		URLRaw:        p.resultURL(row),
	}, true
}

func hasUniversityCell(row *goquery.Selection) bool {
	if row.Find(universitySelector).Length() > 0 {
		return true
	}
	first := row.Find("td").First()
	return first.Length() > 0 && nodeText(first, "") != ""
}

func cellText(cells *goquery.Selection, i int) string {
	if i >= cells.Length() {
		return ""
	}
	return nodeText(cells.Eq(i), " ")
}

func programAndDegree(cells *goquery.Selection) (program, degree string) {
	if cells.Length() < 2 {
		return "", ""
	}
	column := cells.Eq(1)
	spans := column.Find("span")
	if spans.Length() > 0 {
		program = nodeText(spans.First(), "")
		if spans.Length() >= 2 {
			degree = nodeText(spans.Last(), "")
		}
	} else {
		program = nodeText(column, " ")
	}
	if degree == "" {
		degree = inferDegree(column, program)
	}
	return program, degree
}

// inferDegree returns whatever column text remains after the program prefix.
func inferDegree(column *goquery.Selection, program string) string {
	full := nodeText(column, " ")
	if program == "" || !strings.HasPrefix(full, program) {
		return ""
	}
	return strings.TrimSpace(full[len(program):])
}

func (p *Parser) resultURL(row *goquery.Selection) string {
	var found string
	row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !strings.Contains(href, resultMarker) {
			return true
		}
		found = p.resolve(href)
		return found == ""
	})
	return found
}

func (p *Parser) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if p.origin == nil || p.origin.Host == "" {
		return ""
	}
	return p.origin.ResolveReference(ref).String()
}

// metadataText reports whether row carries term/GPA/origin details.
func metadataText(row *goquery.Selection) (string, bool) {
	text := nodeText(row, " | ")
	if !metadataRe.MatchString(text) {
		return "", false
	}
	return text, true
}

// commentText reports whether row carries a free-text comment paragraph.
func commentText(row *goquery.Selection) (string, bool) {
	para := row.Find("p").First()
	if para.Length() == 0 || nodeText(para, "") == "" {
		return "", false
	}
	return nodeText(para, " "), true
}

// nodeText joins the trimmed, non-empty text nodes under s with sep.
func nodeText(s *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}
