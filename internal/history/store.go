package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	_ "modernc.org/sqlite"
)

// Store manages the release ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the ledger location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a release row and returns it with its assigned ID.
func (s *Store) Record(ctx context.Context, rel Release) (*Release, error) {
	if rel.BuildID == "" || rel.Target == "" || rel.Version == "" {
		return nil, errors.New("record release: build id, target and version are required")
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now()
	}
	rel.CreatedAt = rel.CreatedAt.UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO releases (
            build_id, target, version, manifest_version, archive_path,
            status, size_bytes, sha256, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rel.BuildID,
		rel.Target,
		rel.Version,
		rel.ManifestVersion,
		rel.ArchivePath,
		string(rel.Status),
		rel.SizeBytes,
		nullableString(rel.SHA256),
		nullableString(rel.ErrorMessage),
		rel.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert release: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	rel.ID = id
	return &rel, nil
}

// List returns releases newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Release, error) {
	query := `SELECT ` + releaseColumns + ` FROM releases`
	var args []any
	if t := strings.TrimSpace(filter.Target); t != "" {
		query += ` WHERE target = ?`
		args = append(args, t)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer rows.Close()

	var out []*Release
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releases: %w", err)
	}
	return out, nil
}

// Latest returns the highest packaged version recorded for target, or nil when
// the target has never been packaged successfully.
func (s *Store) Latest(ctx context.Context, target string) (*Release, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE target = ? AND status = ?`,
		target, string(StatusPackaged),
	)
	if err != nil {
		return nil, fmt.Errorf("query latest release: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		rel     *Release
		version *semver.Version
	}
	var candidates []candidate
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(rel.Version)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{rel: rel, version: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releases: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].version.GreaterThan(candidates[j].version)
	})
	return candidates[0].rel, nil
}

// timestampLayout is fixed-width so created_at sorts lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const releaseColumns = `id, build_id, target, version, manifest_version, archive_path,
    status, size_bytes, sha256, error_message, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRelease(row scanner) (*Release, error) {
	var (
		rel       Release
		status    string
		sha       sql.NullString
		errMsg    sql.NullString
		createdAt string
	)
	if err := row.Scan(
		&rel.ID,
		&rel.BuildID,
		&rel.Target,
		&rel.Version,
		&rel.ManifestVersion,
		&rel.ArchivePath,
		&status,
		&rel.SizeBytes,
		&sha,
		&errMsg,
		&createdAt,
	); err != nil {
		return nil, fmt.Errorf("scan release: %w", err)
	}
	rel.Status = Status(status)
	rel.SHA256 = sha.String
	rel.ErrorMessage = errMsg.String
	ts, err := time.Parse(timestampLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	rel.CreatedAt = ts
	return &rel, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
