// Package postgres loads the dataset into Postgres and runs the fixed analysis queries.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

// DefaultTable is the applicants table name.
const DefaultTable = "applicants"

// DateLayout is the format of date_added values in the snapshot.
const DateLayout = "January 2, 2006"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// insertColumns is the column order used by Reload.
var insertColumns = []string{
	"program",
	"university",
	"comments",
	"date_added",
	"url",
	"status",
	"status_date",
	"term",
	"us_or_international",
	"gpa",
	"gre",
	"gre_v",
	"gre_aw",
	"degree",
	"llm_generated_program",
	"llm_generated_university",
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxIface is the subset of *pgxpool.Pool used here; pgxmock satisfies it in tests.
type pgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// ApplicantStore owns the applicants table.
type ApplicantStore struct {
	pool  pgxIface
	table string
}

// NewPool opens a connection pool from cfg.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// NewApplicantStore builds a store over an existing pool.
func NewApplicantStore(pool pgxIface, table string) (*ApplicantStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &ApplicantStore{pool: pool, table: table}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *ApplicantStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the applicants table when it does not exist.
func (s *ApplicantStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	p_id SERIAL PRIMARY KEY,
	program TEXT,
	university TEXT,
	comments TEXT,
	date_added DATE,
	url TEXT,
	status TEXT,
	status_date TEXT,
	term TEXT,
	us_or_international TEXT,
	gpa FLOAT,
	gre FLOAT,
	gre_v FLOAT,
	gre_aw FLOAT,
	degree TEXT,
	llm_generated_program TEXT,
	llm_generated_university TEXT
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// Reload replaces the table contents with dataset inside one transaction. On error the
// previous contents stay in place.
func (s *ApplicantStore) Reload(ctx context.Context, dataset survey.Dataset) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reload: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", s.table)); err != nil {
		return fmt.Errorf("truncate %s: %w", s.table, err)
	}
	insert := s.insertStatement()
	for i, entry := range dataset {
		if _, err = tx.Exec(ctx, insert, RowArgs(entry)...); err != nil {
			return fmt.Errorf("insert entry %d: %w", i, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reload: %w", err)
	}
	return nil
}

func (s *ApplicantStore) insertStatement() string {
	placeholders := make([]string, len(insertColumns))
	for i := range insertColumns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(insertColumns, ", "), strings.Join(placeholders, ", "))
}

// Count returns the number of rows in the table.
func (s *ApplicantStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return n, nil
}

// RowArgs converts an entry into insert arguments in column order. Unparseable dates
// and numbers become NULL.
func RowArgs(e survey.Entry) []any {
	return []any{
		e.Program,
		e.University,
		e.Comments,
		parseDate(e.DateAdded),
		e.URL,
		e.Status,
		e.StatusDate,
		e.Term,
		e.Origin,
		parseFloat(e.GPA),
		parseFloat(e.GRE),
		parseFloat(e.GREVerbal),
		parseFloat(e.GREWriting),
		e.Degree,
		e.Get(survey.KeyLLMProgram),
		e.Get(survey.KeyLLMUniversity),
	}
}

func parseDate(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil
	}
	return t
}

func parseFloat(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return v
}
