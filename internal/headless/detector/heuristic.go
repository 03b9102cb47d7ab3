// Package detector decides when a listing page fetched over plain HTTP must be
// fetched again through headless Chrome.
package detector

import (
	"bytes"

	"github.com/JakeFAU/gradcafe-crawler/internal/crawler"
)

const defaultThreshold = 2048

// Heuristic promotes pages that look like a client-rendered shell.
type Heuristic struct {
	// BodyLengthThreshold bounds the script-density check to small documents.
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector. A zero threshold uses 2 KiB.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte(`id="__next"`),
	[]byte(`id="__nuxt"`),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

// ShouldPromote reports whether resp needs a headless fetch. Only 200 responses are
// considered, and a page that already carries result rows never is.
func (h *Heuristic) ShouldPromote(resp crawler.FetchResponse) bool {
	if resp.StatusCode != 200 {
		return false
	}
	body := bytes.ToLower(resp.Body)
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if hasResultRows(body) {
		return false
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return len(body) < h.BodyLengthThreshold && scriptShare(body) >= 25
}

func hasResultRows(body []byte) bool {
	return bytes.Contains(body, []byte("<tr")) && bytes.Contains(body, []byte("/result/"))
}

// scriptShare is the percentage of body covered by <script> elements. body must be
// lowercased. An unterminated script counts to the end of the document.
func scriptShare(body []byte) int {
	open, closing := []byte("<script"), []byte("</script>")
	covered := 0
	for pos := 0; pos < len(body); {
		i := bytes.Index(body[pos:], open)
		if i < 0 {
			break
		}
		start := pos + i
		j := bytes.Index(body[start:], closing)
		if j < 0 {
			covered += len(body) - start
			break
		}
		end := start + j + len(closing)
		covered += end - start
		pos = end
	}
	return covered * 100 / len(body)
}
