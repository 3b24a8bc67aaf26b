package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/deployhook/pkg/core"
)

// SQLStore implements core.Store on database/sql for both supported dialects.
// Queries are written with "?" placeholders and rebound per dialect.
type SQLStore struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

// NewWithDB wraps an already opened database. It does not run migrations.
func NewWithDB(db *sql.DB, dialect string, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLStore{db: db, dialect: dialect, logger: logger}
}

// Dialect returns the store's SQL dialect name.
func (s *SQLStore) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ListRepos returns all repos ordered by ID.
func (s *SQLStore) ListRepos(ctx context.Context) ([]core.Repo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, name, branch, app, created_at FROM repos ORDER BY id`))
	if err != nil {
		return nil, fmt.Errorf("failed to list repos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	repos := []core.Repo{}
	for rows.Next() {
		repo, err := scanRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repo: %w", err)
		}
		repos = append(repos, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repos: %w", err)
	}

	return repos, nil
}

// CreateRepo inserts r after normalizing it, filling in ID and CreatedAt.
func (s *SQLStore) CreateRepo(ctx context.Context, r *core.Repo) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	r.Normalize()
	if err := r.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)

	s.logger.Debug("creating repo",
		slog.String("name", r.Name),
		slog.String("branch", r.Branch),
		slog.String("app", r.App))

	err := s.db.QueryRowContext(ctx,
		s.rebind(`INSERT INTO repos (name, branch, app, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		r.Name, r.Branch, r.App, now,
	).Scan(&r.ID)
	if err != nil {
		if s.isUniqueViolation(err) {
			return fmt.Errorf("%w: %s (%s)", core.ErrRepoExists, r.Name, r.Branch)
		}
		return fmt.Errorf("failed to create repo: %w", err)
	}

	r.CreatedAt = &now
	return nil
}

// GetRepo looks a repo up by full name and branch.
func (s *SQLStore) GetRepo(ctx context.Context, name, branch string) (*core.Repo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, branch, app, created_at FROM repos WHERE name = ? AND branch = ?`),
		name, branch,
	)
	repo, err := scanRepo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s (%s)", core.ErrRepoNotFound, name, branch)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repo: %w", err)
	}
	return &repo, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRepo(s scanner) (core.Repo, error) {
	var (
		r         core.Repo
		createdAt sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.Name, &r.Branch, &r.App, &createdAt); err != nil {
		return r, err
	}
	if createdAt.Valid {
		t := createdAt.Time.UTC()
		r.CreatedAt = &t
	}
	return r, nil
}

func (s *SQLStore) isUniqueViolation(err error) bool {
	if s.dialect == DriverPostgres {
		return isPostgresUniqueViolation(err)
	}
	return isSQLiteUniqueViolation(err)
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
