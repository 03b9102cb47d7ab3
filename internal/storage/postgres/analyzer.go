package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoResults is the answer text for an empty or NULL result.
const NoResults = "No results found."

// Question is one canned analysis query.
type Question struct {
	Text string
	// SQL contains a single %[1]s verb for the table name.
	SQL string
}

// Answer is a formatted query result.
type Answer struct {
	Label  string
	Answer string
}

// Questions are the fixed analysis queries, in display order.
var Questions = []Question{
	{
		Text: "How many entries applied for Fall 2025?",
		SQL: `SELECT COUNT(*)
FROM %[1]s
WHERE term ILIKE '%%Fall 2025%%'`,
	},
	{
		Text: "Percentage of entries from international students (to 2 decimal places)",
		SQL: `SELECT ROUND(
	100.0 * COUNT(*) FILTER (WHERE us_or_international ILIKE '%%International%%')
	/ NULLIF(COUNT(*), 0),
	2
)::float8 AS pct_international
FROM %[1]s`,
	},
	{
		Text: "Average GPA, GRE, GRE V, GRE AW of applicants who provided them",
		SQL: `SELECT
	ROUND(AVG(gpa)::numeric, 2)::float8 AS avg_gpa,
	ROUND(AVG(gre)::numeric, 2)::float8 AS avg_gre,
	ROUND(AVG(gre_v)::numeric, 2)::float8 AS avg_gre_v,
	ROUND(AVG(gre_aw)::numeric, 2)::float8 AS avg_gre_aw
FROM %[1]s`,
	},
	{
		Text: "Average GPA of American students in Fall 2025",
		SQL: `SELECT ROUND(AVG(gpa)::numeric, 2)::float8 AS avg_gpa
FROM %[1]s
WHERE term ILIKE '%%Fall 2025%%'
  AND us_or_international ILIKE '%%American%%'`,
	},
	{
		Text: "Percent of Fall 2025 entries that are Acceptances",
		SQL: `SELECT ROUND(
	100.0 * COUNT(*) FILTER (WHERE status ILIKE '%%Accept%%')
	/ NULLIF(COUNT(*), 0),
	2
)::float8 AS pct_acceptances
FROM %[1]s
WHERE term ILIKE '%%Fall 2025%%'`,
	},
	{
		Text: "Average GPA of Fall 2025 Acceptances",
		SQL: `SELECT ROUND(AVG(gpa)::numeric, 2)::float8 AS avg_gpa
FROM %[1]s
WHERE term ILIKE '%%Fall 2025%%'
  AND status ILIKE '%%Accept%%'`,
	},
	{
		Text: "How many entries for JHU MS CS applicants",
		SQL: `SELECT COUNT(*)
FROM %[1]s
WHERE llm_generated_university ILIKE '%%Johns Hopkins%%'
  AND llm_generated_program ILIKE '%%Computer Science%%'
  AND degree ILIKE '%%Master%%'`,
	},
	{
		Text: "How many 2025 PhD CS acceptances at Georgetown",
		SQL: `SELECT COUNT(*)
FROM %[1]s
WHERE llm_generated_university ILIKE '%%Georgetown%%'
  AND llm_generated_program ILIKE '%%Computer Science%%'
  AND degree ILIKE '%%PhD%%'
  AND term ILIKE '%%2025%%'
  AND status ILIKE '%%Accept%%'`,
	},
	{
		Text: "Which university has the most applicants overall?",
		SQL: `SELECT llm_generated_university, COUNT(*) AS num_apps
FROM %[1]s
GROUP BY llm_generated_university
ORDER BY num_apps DESC
LIMIT 1`,
	},
	{
		Text: "What is the most common program applicants apply to?",
		SQL: `SELECT llm_generated_program, COUNT(*) AS num_apps
FROM %[1]s
GROUP BY llm_generated_program
ORDER BY num_apps DESC
LIMIT 1`,
	},
}

// Analyzer answers the fixed questions against the applicants table.
type Analyzer struct {
	pool  pgxIface
	table string
}

// NewAnalyzer builds an Analyzer over an existing pool.
func NewAnalyzer(pool pgxIface, table string) (*Analyzer, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Analyzer{pool: pool, table: table}, nil
}

// Answers runs every question in order. The first failing query aborts the run.
func (a *Analyzer) Answers(ctx context.Context) ([]Answer, error) {
	answers := make([]Answer, 0, len(Questions))
	for i, q := range Questions {
		rows, err := a.run(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		answers = append(answers, Answer{
			Label:  fmt.Sprintf("%d. %s", i+1, q.Text),
			Answer: FormatRows(rows),
		})
	}
	return answers, nil
}

func (a *Analyzer) run(ctx context.Context, q Question) ([][]any, error) {
	rows, err := a.pool.Query(ctx, fmt.Sprintf(q.SQL, a.table))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// FormatRows renders a result set as answer text.
func FormatRows(rows [][]any) string {
	if len(rows) == 0 || len(rows[0]) == 0 || rows[0][0] == nil {
		return NoResults
	}
	if len(rows) == 1 && len(rows[0]) == 1 {
		return formatValue(rows[0][0])
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		values := make([]string, 0, len(row))
		for _, v := range row {
			values = append(values, formatValue(v))
		}
		lines = append(lines, strings.Join(values, " | "))
	}
	return strings.Join(lines, "\n")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(time.DateOnly)
	default:
		return fmt.Sprint(val)
	}
}
