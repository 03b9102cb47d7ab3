package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/gradcafe-crawler/internal/crawler"
)

func ok(body string) crawler.FetchResponse {
	return crawler.FetchResponse{StatusCode: 200, Body: []byte(body)}
}

func TestHeuristicShouldPromoteEmptyBody(t *testing.T) {
	t.Parallel()

	require.True(t, NewHeuristic(100).ShouldPromote(ok("  \n")))
}

func TestHeuristicShouldPromoteSPAMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.True(t, h.ShouldPromote(ok(`<div id="__next"></div>`)))
	require.True(t, h.ShouldPromote(ok(`<DIV ID="app"></DIV>`)))
}

func TestHeuristicShouldPromoteScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	require.True(t, h.ShouldPromote(ok(`<html><script>var a=1;</script><p>t</p></html>`)))
	require.True(t, h.ShouldPromote(ok(`<html><p>t</p><script src="x.js">`)))
}

func TestHeuristicKeepsServerRenderedRows(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	body := `<div id="app"><table><tr><td><a href="/result/1">See more</a></td></tr></table></div>`
	require.False(t, h.ShouldPromote(ok(body)))
}

func TestHeuristicKeepsPlainEmptyListing(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	require.False(t, h.ShouldPromote(ok(`<html><body><table><tbody></tbody></table></body></html>`)))
	large := `<html><body><p>` + strings.Repeat("no results ", 400) + `</p><script>x()</script></body></html>`
	require.False(t, h.ShouldPromote(ok(large)))
}

func TestHeuristicIgnoresNon200(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.False(t, h.ShouldPromote(crawler.FetchResponse{StatusCode: 404, Body: []byte("not found")}))
}

func TestScriptShare(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, scriptShare([]byte("<p>plain</p>")))
	require.Equal(t, 100, scriptShare([]byte("<script>a</script>")))
}
