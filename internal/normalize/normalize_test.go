package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantStatus string
		wantDate   string
	}{
		{"accepted with date", "Accepted on 11 Apr", "Accepted", "11 Apr"},
		{"wait listed with space", "Wait listed on 17 Apr", "Waitlisted", "17 Apr"},
		{"wait-listed hyphen", "wait-listed on 2 Mar", "Waitlisted", "2 Mar"},
		{"lower case decision", "rejected on 3 Feb, 2025", "Rejected", "3 Feb, 2025"},
		{"interview without date", "Interview", "Interview", ""},
		{"unrecognised passes through", "Some Other Note", "Some Other Note", ""},
		{"unrecognised keeps date", "Other on 5 May", "Other on 5 May", "5 May"},
		{"surrounding whitespace", "   Withdrawn   ", "Withdrawn", ""},
		{"empty", "", "", ""},
		{"blank", "   ", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, date := ParseStatus(tt.raw)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantDate, date)
		})
	}
}

func TestMetadataExtractors(t *testing.T) {
	t.Parallel()

	meta := "Fall 2025 | GPA 3.80 | International"
	assert.Equal(t, "Fall 2025", ExtractTerm(meta))
	assert.Equal(t, "International", ExtractOrigin(meta))
	assert.Equal(t, "3.80", ExtractGPA(meta))
}

func TestExtractTerm(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Spring 2026", ExtractTerm("spring2026"))
	assert.Equal(t, "Winter 2024", ExtractTerm("WINTER 2024 | American"))
	assert.Equal(t, "", ExtractTerm("Autumn 2025"))
	assert.Equal(t, "", ExtractTerm("Fall 25"))
}

func TestExtractOriginPrefersAmerican(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "American", ExtractOrigin("International | american"))
	assert.Equal(t, "International", ExtractOrigin("INTERNATIONAL"))
	assert.Equal(t, "", ExtractOrigin("Americanized"))
	assert.Equal(t, "", ExtractOrigin(""))
}

func TestExtractGPA(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "3.9", ExtractGPA("GPA: 3.9"))
	assert.Equal(t, "3.75", ExtractGPA("gpa 3.75 overall"))
	assert.Equal(t, "4.00", ExtractGPA("GPA::4.00"))
	assert.Equal(t, "", ExtractGPA("GPA unknown"))
	assert.Equal(t, "", ExtractGPA("3.80"))
}

func TestGREExtractors(t *testing.T) {
	t.Parallel()

	text := "GRE: 322 (V: 160) AW 4.5"
	assert.Equal(t, "322", ExtractGRE(text))
	assert.Equal(t, "160", ExtractGREVerbal(text))
	assert.Equal(t, "4.5", ExtractGREWriting(text))
}

func TestGREExtractorVariants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", ExtractGRE("GRE 3220"))
	assert.Equal(t, "330", ExtractGRE("gre330"))
	assert.Equal(t, "165", ExtractGREVerbal("Verbal: 165, Quant: 170"))
	assert.Equal(t, "158", ExtractGREVerbal("scores 158 V / 167 Q"))
	assert.Equal(t, "5.0", ExtractGREWriting("Analytical Writing: 5.0"))
	assert.Equal(t, "4", ExtractGREWriting("AWA 4"))
	assert.Equal(t, "", ExtractGREWriting("no writing score"))
}

func TestGREVerbalAboveTotalIsNotRejected(t *testing.T) {
	t.Parallel()

	text := "GRE 150 V: 165"
	assert.Equal(t, "150", ExtractGRE(text))
	assert.Equal(t, "165", ExtractGREVerbal(text))
}

func TestNormalizeDegree(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Masters", NormalizeDegree("Computer Science", "Masters"))
	assert.Equal(t, "Phd", NormalizeDegree("Physics", " PhD "))
	assert.Equal(t, "Mfa", NormalizeDegree("Creative Writing MFA", ""))
	assert.Equal(t, "Phd", NormalizeDegree("Chemistry PhD", ""))
	assert.Equal(t, "M.S.", NormalizeDegree("Statistics", "m.s."))
	assert.Equal(t, "", NormalizeDegree("History", ""))
}

func TestTitleCase(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"M.S.":        "M.S.",
		"m.a.":        "M.A.",
		"PhD":         "Phd",
		"masters":     "Masters",
		"fall 2025":   "Fall 2025",
		"2nd round":   "2Nd Round",
		"ACCEPTED":    "Accepted",
		"":            "",
		" wait-list ": " Wait-List ",
	}
	for in, want := range tests {
		assert.Equal(t, want, TitleCase(in), in)
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", CleanText("  a \n\t b  c  "))
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "", CleanText(" \n "))
}
