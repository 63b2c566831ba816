// Package index exports the cross-reference registry of a build to a SQLite
// database, so that external tools can resolve identifiers and terms without
// re-running the build.
package index

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNoBuilds is returned by lookups on an index that holds no build yet.
var ErrNoBuilds = errors.New("index holds no builds")

// Build describes one recorded build.
type Build struct {
	ID         string
	Entrypoint string
	Domain     string
	StartedAt  time.Time
	Duration   time.Duration
}

// Identifier is one row of the identifier table.
type Identifier struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	URL       string `json:"url"`
	Label     string `json:"label,omitempty"`
	Numbering string `json:"numbering,omitempty"`
	Title     string `json:"title,omitempty"`
}

// Term is one row of the term table.
type Term struct {
	Term     string `json:"term"`
	Singular string `json:"singular"`
	Plural   string `json:"plural"`
	Href     string `json:"href"`
	Preview  string `json:"preview,omitempty"`
}

// Store is an open index database.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewBuildID returns a fresh build identifier.
func NewBuildID() string {
	return uuid.New().String()
}

// Open opens or creates the index at path and migrates it to the current
// schema. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	// One connection: the foreign key pragma is per connection, and every
	// connection to ":memory:" would get its own empty database.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("opened index", "path", path)
	return &Store{db: db, path: path, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Version returns the schema version.
func (s *Store) Version() (int64, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersion(s.db)
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record writes a build with everything its registry holds, in one
// transaction.
func (s *Store) Record(ctx context.Context, b Build, reg *registry.Registry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO builds (id, entrypoint, domain, started_at, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Entrypoint, b.Domain, b.StartedAt.UnixMilli(), b.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}

	ids := reg.IDs()
	for _, id := range ids {
		row := Describe(reg, b.Domain, id)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO identifiers (build_id, id, kind, file, url, label, numbering, title)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, row.ID, row.Kind, row.File, row.URL,
			nullString(row.Label), nullString(row.Numbering), nullString(row.Title),
		)
		if err != nil {
			return fmt.Errorf("failed to record identifier %q: %w", id, err)
		}
	}

	terms := reg.Terms()
	for _, term := range terms {
		info, _ := reg.Term(term)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO terms (build_id, term, singular, plural, href, preview) VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID, term, info.Singular, info.Plural, info.Href, info.Preview,
		)
		if err != nil {
			return fmt.Errorf("failed to record term %q: %w", term, err)
		}
	}

	for i, entry := range reg.Nav().Outline() {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO outline (build_id, position, id, depth) VALUES (?, ?, ?, ?)`,
			b.ID, i, entry.ID, entry.Depth,
		)
		if err != nil {
			return fmt.Errorf("failed to record outline: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	s.logger.Debug("recorded build", "build_id", b.ID, "identifiers", len(ids), "terms", len(terms))
	return nil
}

// Describe flattens what the registry knows about an identifier.
func Describe(reg *registry.Registry, domain, id string) Identifier {
	info, _ := reg.ID(id)
	row := Identifier{
		ID:   id,
		Kind: info.Kind.String(),
		File: info.File,
		URL:  domain + info.File + "#" + id,
	}
	switch info.Kind {
	case registry.KindSection:
		if s, ok := reg.Section(id); ok {
			row.Label, row.Numbering, row.Title = s.Label, s.Numbering, s.Title
		}
	case registry.KindBox:
		if b, ok := reg.Box(id); ok {
			row.Label, row.Numbering = b.Label, b.Numbering
		}
	case registry.KindCase:
		if n, ok := reg.Case(id); ok {
			row.Label, row.Numbering = "Case", n
		}
	}
	return row
}

// Latest returns the most recently started build.
func (s *Store) Latest(ctx context.Context) (*Build, error) {
	b := &Build{}
	var started, duration int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, entrypoint, domain, started_at, duration_ms FROM builds
		 WHERE id = (SELECT id FROM latest_build)`,
	).Scan(&b.ID, &b.Entrypoint, &b.Domain, &started, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoBuilds
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest build: %w", err)
	}
	b.StartedAt = time.UnixMilli(started).UTC()
	b.Duration = time.Duration(duration) * time.Millisecond
	return b, nil
}

// Identifiers lists the identifiers of a build, sorted by id.
func (s *Store) Identifiers(ctx context.Context, buildID string) ([]Identifier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, file, url, label, numbering, title FROM identifiers
		 WHERE build_id = ? ORDER BY id`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query identifiers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Identifier
	for rows.Next() {
		var row Identifier
		var label, numbering, title sql.NullString
		if err := rows.Scan(&row.ID, &row.Kind, &row.File, &row.URL, &label, &numbering, &title); err != nil {
			return nil, fmt.Errorf("failed to scan identifier: %w", err)
		}
		row.Label, row.Numbering, row.Title = label.String, numbering.String, title.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// Terms lists the defined terms of a build, sorted by term.
func (s *Store) Terms(ctx context.Context, buildID string) ([]Term, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT term, singular, plural, href, preview FROM terms
		 WHERE build_id = ? ORDER BY term`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Term
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.Term, &t.Singular, &t.Plural, &t.Href, &t.Preview); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Prune deletes all but the keep most recent builds.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM builds WHERE id NOT IN (
		   SELECT id FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?
		 )`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune builds: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
