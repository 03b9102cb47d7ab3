package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

const site = "https://www.thegradcafe.com/survey/"

const mainRowHTML = `<tr>
  <td><div class="tw-font-medium">Example University</div></td>
  <td><span>Computer Science</span><span>Masters</span></td>
  <td>January 10, 2024</td>
  <td>Accepted on 11 Apr</td>
  <td><a href="/survey/?q=cs">Filter</a><a href="/result/12345">See more</a></td>
</tr>`

const metaRowHTML = `<tr><td colspan="5"><div>Fall 2025</div><div>GPA 3.80</div><div>International</div></td></tr>`

const commentRowHTML = `<tr><td colspan="5"><p>GRE: 322 (V: 160) AW 4.5</p></td></tr>`

func page(rows ...string) []byte {
	return []byte("<html><body><table><thead><tr><th>School</th></tr></thead><tbody>" +
		strings.Join(rows, "\n") + "</tbody></table></body></html>")
}

func newParser(t *testing.T) *Parser {
	t.Helper()
	p, err := New(site)
	require.NoError(t, err)
	return p
}

func TestParseMainMetaAndCommentRows(t *testing.T) {
	t.Parallel()

	entries := newParser(t).Parse(page(mainRowHTML, metaRowHTML, commentRowHTML))

	require.Len(t, entries, 1)
	assert.Equal(t, survey.RawEntry{
		UniversityRaw: "Example University",
		ProgramRaw:    "Computer Science",
		DegreeRaw:     "Masters",
		DateAddedRaw:  "January 10, 2024",
		StatusRaw:     "Accepted on 11 Apr",
		URLRaw:        "https://www.thegradcafe.com/result/12345",
		MetaRaw:       "Fall 2025 | GPA 3.80 | International",
		CommentsRaw:   "GRE: 322 (V: 160) AW 4.5",
	}, entries[0])
}

func TestParseEmptyAndMalformedInput(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	assert.Empty(t, p.Parse(nil))
	assert.Empty(t, p.Parse([]byte("   ")))
	assert.Empty(t, p.Parse([]byte("<html><body><p>No results</p></body></html>")))
	assert.Empty(t, p.Parse([]byte("<table><tbody><tr><td></td></tr></tbody>")))
	assert.NotNil(t, p.Parse(nil))
}

func TestParseSkipsRowsWithoutUniversity(t *testing.T) {
	t.Parallel()

	ad := `<tr><td></td><td>Sponsored</td></tr>`
	entries := newParser(t).Parse(page(ad, mainRowHTML, ad))

	require.Len(t, entries, 1)
	assert.Equal(t, "Example University", entries[0].UniversityRaw)
	assert.Empty(t, entries[0].MetaRaw)
	assert.Empty(t, entries[0].CommentsRaw)
}

func TestParseCommentWithoutMetadata(t *testing.T) {
	t.Parallel()

	entries := newParser(t).Parse(page(mainRowHTML, commentRowHTML))

	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].MetaRaw)
	assert.Equal(t, "GRE: 322 (V: 160) AW 4.5", entries[0].CommentsRaw)
}

func TestParseConsecutiveMainRows(t *testing.T) {
	t.Parallel()

	second := `<tr><td>Other College</td><td>History PhD</td><td>February 1, 2024</td><td>Rejected</td>` +
		`<td><a href="https://www.thegradcafe.com/result/999">x</a></td></tr>`
	entries := newParser(t).Parse(page(second, mainRowHTML, metaRowHTML))

	require.Len(t, entries, 2)
	assert.Equal(t, "Other College", entries[0].UniversityRaw)
	assert.Equal(t, "History PhD", entries[0].ProgramRaw)
	assert.Empty(t, entries[0].DegreeRaw)
	assert.Equal(t, "https://www.thegradcafe.com/result/999", entries[0].URLRaw)
	assert.Empty(t, entries[0].MetaRaw)
	assert.Equal(t, "Fall 2025 | GPA 3.80 | International", entries[1].MetaRaw)
}

func TestParseMissingLinkAndCells(t *testing.T) {
	t.Parallel()

	row := `<tr><td>Lonely University</td></tr>`
	entries := newParser(t).Parse(page(row))

	require.Len(t, entries, 1)
	assert.Equal(t, survey.RawEntry{UniversityRaw: "Lonely University"}, entries[0])
}

func TestParseInfersDegreeFromColumnSuffix(t *testing.T) {
	t.Parallel()

	row := `<tr><td>Some University</td><td><span>Mathematics</span> PhD</td><td></td><td></td></tr>`
	entries := newParser(t).Parse(page(row))

	require.Len(t, entries, 1)
	assert.Equal(t, "Mathematics", entries[0].ProgramRaw)
	assert.Equal(t, "PhD", entries[0].DegreeRaw)
}

func TestRowCursorAdvancesOneRecordAtATime(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(
		page(mainRowHTML, metaRowHTML, commentRowHTML, mainRowHTML, commentRowHTML),
	)))
	require.NoError(t, err)

	cursor := newParser(t).NewCursor(doc)
	require.Equal(t, 0, cursor.Pos())

	first, ok := cursor.Next()
	require.True(t, ok)
	assert.NotEmpty(t, first.MetaRaw)
	assert.Equal(t, 3, cursor.Pos())

	second, ok := cursor.Next()
	require.True(t, ok)
	assert.Empty(t, second.MetaRaw)
	assert.NotEmpty(t, second.CommentsRaw)
	assert.Equal(t, 5, cursor.Pos())

	_, ok = cursor.Next()
	assert.False(t, ok)
}

func TestMetadataAndCommentDetectors(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page(metaRowHTML, commentRowHTML))))
	require.NoError(t, err)
	rows := doc.Find("tbody tr")

	meta, ok := metadataText(rows.Eq(0))
	assert.True(t, ok)
	assert.Equal(t, "Fall 2025 | GPA 3.80 | International", meta)

	_, ok = commentText(rows.Eq(0))
	assert.False(t, ok)

	comment, ok := commentText(rows.Eq(1))
	assert.True(t, ok)
	assert.Equal(t, "GRE: 322 (V: 160) AW 4.5", comment)
}

func TestNewRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := New("://bad")
	assert.Error(t, err)
}
