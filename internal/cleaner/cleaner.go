// Package cleaner turns scraped survey rows into canonical entries.
package cleaner

import (
	"strings"

	"github.com/JakeFAU/gradcafe-crawler/internal/normalize"
	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

// Clean normalizes one raw row. It never fails: any subfield that cannot be
// recognised is left as "".
func Clean(raw survey.RawEntry) survey.Entry {
	comments := normalize.CleanText(raw.CommentsRaw)
	meta := raw.MetaRaw
	combined := strings.TrimSpace(comments + " " + meta)

	status, statusDate := normalize.ParseStatus(raw.StatusRaw)

	gpa := normalize.ExtractGPA(meta)
	if gpa == "" {
		gpa = normalize.ExtractGPA(combined)
	}

	return survey.Entry{
		Program:    normalize.CleanText(raw.ProgramRaw),
		University: normalize.CleanText(raw.UniversityRaw),
		Comments:   comments,
		DateAdded:  normalize.CleanText(raw.DateAddedRaw),
		URL:        normalize.CleanText(raw.URLRaw),
		Status:     status,
		StatusDate: statusDate,
		Term:       normalize.ExtractTerm(meta),
		Origin:     normalize.ExtractOrigin(meta),
		GRE:        normalize.ExtractGRE(combined),
		GREVerbal:  normalize.ExtractGREVerbal(combined),
		GREWriting: normalize.ExtractGREWriting(combined),
		GPA:        gpa,
		Degree:     normalize.NormalizeDegree(raw.ProgramRaw, raw.DegreeRaw),
	}
}

// CleanAll cleans rows in order.
func CleanAll(raws []survey.RawEntry) survey.Dataset {
	out := make(survey.Dataset, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Clean(raw))
	}
	return out
}
