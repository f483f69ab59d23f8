package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
	apperrors "github.com/kurihiro0119/github-portfolio/internal/errors"
	"github.com/kurihiro0119/github-portfolio/internal/storage"
)

// sqliteStorage implements the Storage interface for SQLite
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		html_url TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		technologies TEXT NOT NULL,
		links TEXT NOT NULL,
		status TEXT NOT NULL,
		degraded_reason TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner, name)
	);

	CREATE INDEX IF NOT EXISTS idx_projects_owner_position ON projects(owner, position);

	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		status TEXT NOT NULL,
		project_count INTEGER NOT NULL DEFAULT 0,
		degraded_count INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_builds_owner_started ON builds(owner, started_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveProjects replaces the project snapshot of an owner
func (s *sqliteStorage) SaveProjects(ctx context.Context, owner string, projects []*domain.Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE owner = ?`, owner); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO projects (owner, name, position, html_url, title, description, technologies, links, status, degraded_reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, p := range projects {
		techs, err := storage.EncodeList(p.Technologies)
		if err != nil {
			return err
		}
		links, err := storage.EncodeList(p.Links)
		if err != nil {
			return err
		}

		_, err = stmt.ExecContext(ctx,
			owner,
			p.Name,
			i,
			p.HTMLURL,
			p.Title,
			p.Description,
			techs,
			links,
			string(p.Status),
			p.DegradedReason,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to save project %s: %w", p.Name, err)
		}
	}

	return tx.Commit()
}

// GetProjects retrieves the project snapshot of an owner in saved order
func (s *sqliteStorage) GetProjects(ctx context.Context, owner string) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, html_url, title, description, technologies, links, status, degraded_reason
		FROM projects
		WHERE owner = ?
		ORDER BY position
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []*domain.Project{}
	for rows.Next() {
		var p domain.Project
		var description sql.NullString
		var techs, links, status string

		if err := rows.Scan(&p.Name, &p.HTMLURL, &p.Title, &description, &techs, &links, &status, &p.DegradedReason); err != nil {
			return nil, err
		}
		if description.Valid {
			p.Description = &description.String
		}
		if p.Technologies, err = storage.DecodeList(techs); err != nil {
			return nil, err
		}
		if p.Links, err = storage.DecodeList(links); err != nil {
			return nil, err
		}
		p.Status = domain.ProjectStatus(status)

		projects = append(projects, &p)
	}

	return projects, rows.Err()
}

// SaveBuild inserts or updates a build record
func (s *sqliteStorage) SaveBuild(ctx context.Context, build *domain.Build) error {
	query := `
		INSERT INTO builds (id, owner, status, project_count, degraded_count, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			project_count = excluded.project_count,
			degraded_count = excluded.degraded_count,
			error = excluded.error,
			finished_at = excluded.finished_at
	`
	_, err := s.db.ExecContext(ctx, query,
		build.ID,
		build.Owner,
		string(build.Status),
		build.ProjectCount,
		build.DegradedCount,
		build.Error,
		build.StartedAt.UTC(),
		utcOrNil(build.FinishedAt),
	)
	return err
}

// GetLatestBuild retrieves the most recently started build of an owner
func (s *sqliteStorage) GetLatestBuild(ctx context.Context, owner string) (*domain.Build, error) {
	var b domain.Build
	var status string
	var finishedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, status, project_count, degraded_count, error, started_at, finished_at
		FROM builds
		WHERE owner = ?
		ORDER BY started_at DESC
		LIMIT 1
	`, owner).Scan(&b.ID, &b.Owner, &status, &b.ProjectCount, &b.DegradedCount, &b.Error, &b.StartedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("build for " + owner)
	}
	if err != nil {
		return nil, err
	}

	b.Status = domain.BuildStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		b.FinishedAt = &t
	}
	return &b, nil
}

// Close closes the database connection
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

func utcOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
