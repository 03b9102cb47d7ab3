// Package normalize maps free-text fragments from survey rows to typed-by-convention
// fields. Every function is pure and total: when nothing matches it returns "".
// Extraction is heuristic; ambiguous text may be misread.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	waitlistedRe = regexp.MustCompile(`(?i)wait[\s-]*listed`)
	statusRe     = regexp.MustCompile(`(?i)\b(Accepted|Rejected|Waitlisted|Interview|Withdrawn)\b`)
	statusDateRe = regexp.MustCompile(`(?i)\bon\s+([\w\s,]+)`)

	termRe          = regexp.MustCompile(`(?i)(Fall|Spring|Summer|Winter)\s*(\d{4})`)
	americanRe      = regexp.MustCompile(`(?i)\bAmerican\b`)
	internationalRe = regexp.MustCompile(`(?i)\bInternational\b`)

	gpaColonRe = regexp.MustCompile(`(?i)GPA\s*:*\s*([0-9]\.\d{1,2})`)
	gpaBareRe  = regexp.MustCompile(`(?i)GPA\s*([0-9]\.\d{1,2})`)

	greTotalRe      = regexp.MustCompile(`(?i)\bGRE[:\s]*([0-9]{3})\b`)
	greVerbalRe     = regexp.MustCompile(`(?i)(?:V[:\s]*|Verbal[:\s]*)([0-9]{2,3})`)
	greVerbalSufRe  = regexp.MustCompile(`(?i)\b([0-9]{2,3})\s*V\b`)
	greWritingRe    = regexp.MustCompile(`(?i)(?:AW|AWA|Analytical Writing)[:\s]*([0-9]\.?\d?)`)
	degreeProgramRe = regexp.MustCompile(`(?i)(Masters|PhD|MFA|MS|MA)\b`)
)

// CleanText collapses whitespace runs (including non-breaking spaces) and trims.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}

// TitleCase upper-cases the first letter of every run of letters and lower-cases the
// rest, so "PhD" becomes "Phd" and "m.s." becomes "M.S.".
func TitleCase(s string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	b.Grow(len(s))
	start := -1
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) && start < 0:
			start = i
		case !unicode.IsLetter(r) && start >= 0:
			b.WriteString(caser.String(s[start:i]))
			start = -1
			b.WriteRune(r)
		case !unicode.IsLetter(r):
			b.WriteRune(r)
		}
	}
	if start >= 0 {
		b.WriteString(caser.String(s[start:]))
	}
	return b.String()
}

// ParseStatus splits raw status text into a decision and the date it was reported.
// Recognised decisions are returned title-cased; anything else passes through verbatim.
// The two extractions are independent.
func ParseStatus(raw string) (status, statusDate string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	unified := waitlistedRe.ReplaceAllString(raw, "Waitlisted")

	status = unified
	if m := statusRe.FindStringSubmatch(unified); m != nil {
		status = TitleCase(m[1])
	}
	if m := statusDateRe.FindStringSubmatch(unified); m != nil {
		statusDate = strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(status), statusDate
}

// ExtractTerm returns "<Season> <year>" for the first season/year pair in text.
func ExtractTerm(text string) string {
	m := termRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return TitleCase(m[1]) + " " + m[2]
}

// ExtractOrigin returns "American" or "International". American wins when both appear.
func ExtractOrigin(text string) string {
	switch {
	case americanRe.MatchString(text):
		return "American"
	case internationalRe.MatchString(text):
		return "International"
	default:
		return ""
	}
}

// ExtractGPA returns the first GPA value such as "3.80".
func ExtractGPA(text string) string {
	if m := gpaColonRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := gpaBareRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ExtractGRE returns a standalone three-digit overall GRE score.
func ExtractGRE(text string) string {
	if m := greTotalRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ExtractGREVerbal prefers "V: 160"/"Verbal: 160" and falls back to "160 V".
func ExtractGREVerbal(text string) string {
	if m := greVerbalRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := greVerbalSufRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ExtractGREWriting returns the analytical writing score, e.g. "4.5".
func ExtractGREWriting(text string) string {
	if m := greWritingRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// NormalizeDegree title-cases the explicit degree, falling back to a degree token in
// the program text.
func NormalizeDegree(program, degree string) string {
	if d := CleanText(degree); d != "" {
		return TitleCase(d)
	}
	if m := degreeProgramRe.FindStringSubmatch(program); m != nil {
		return TitleCase(m[1])
	}
	return ""
}
