// Package survey defines the admissions-result records shared across the pipeline.
package survey

// RawEntry is one admissions-result row as scraped. Every field is unvalidated text.
type RawEntry struct {
	UniversityRaw string `json:"university_raw"`
	ProgramRaw    string `json:"program_raw"`
	DegreeRaw     string `json:"degree_raw"`
	DateAddedRaw  string `json:"date_added_raw"`
	StatusRaw     string `json:"status_raw"`
	URLRaw        string `json:"url_raw"`
	MetaRaw       string `json:"meta_raw"`
	CommentsRaw   string `json:"comments_raw"`
}

// Canonical snapshot keys. New keys may be added; existing keys are never repurposed.
const (
	KeyProgram    = "program"
	KeyUniversity = "university"
	KeyComments   = "comments"
	KeyDateAdded  = "date_added"
	KeyURL        = "url"
	KeyStatus     = "status"
	KeyStatusDate = "status_date"
	KeyTerm       = "term"
	KeyOrigin     = "US/International"
	KeyGRE        = "GRE"
	KeyGREVerbal  = "GRE V"
	KeyGREWriting = "GRE AW"
	KeyGPA        = "GPA"
	KeyDegree     = "Degree"

	// Enrichment keys written by the external program/university normalization step.
	KeyLLMProgram    = "llm-generated-program"
	KeyLLMUniversity = "llm-generated-university"
)

// CanonicalKeys lists the canonical keys in snapshot order.
var CanonicalKeys = []string{
	KeyProgram,
	KeyUniversity,
	KeyComments,
	KeyDateAdded,
	KeyURL,
	KeyStatus,
	KeyStatusDate,
	KeyTerm,
	KeyOrigin,
	KeyGRE,
	KeyGREVerbal,
	KeyGREWriting,
	KeyGPA,
	KeyDegree,
}

// Entry is a cleaned record in the stable output schema. All values are strings and
// default to "". Keys outside the canonical set are carried in Extra so snapshots
// written by newer schema versions survive a load/save cycle.
type Entry struct {
	Program    string
	University string
	Comments   string
	DateAdded  string
	URL        string
	Status     string
	StatusDate string
	Term       string
	Origin     string
	GRE        string
	GREVerbal  string
	GREWriting string
	GPA        string
	Degree     string

	Extra map[string]string
}

// Dataset is the ordered, append-only list of cleaned entries.
type Dataset []Entry

// URLSet holds identifiers of entries that are already persisted.
type URLSet map[string]struct{}

// Contains reports whether url is known.
func (s URLSet) Contains(url string) bool {
	_, ok := s[url]
	return ok
}

// KnownURLs returns the set of non-empty entry URLs.
func (d Dataset) KnownURLs() URLSet {
	set := make(URLSet, len(d))
	for _, e := range d {
		if e.URL == "" {
			continue
		}
		set[e.URL] = struct{}{}
	}
	return set
}

// Merge returns existing followed by fresh, without reordering or deduplication.
func Merge(existing, fresh Dataset) Dataset {
	out := make(Dataset, 0, len(existing)+len(fresh))
	out = append(out, existing...)
	return append(out, fresh...)
}
