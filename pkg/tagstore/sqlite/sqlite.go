// Package sqlite is a DICOM database on SQLite: one row per imported
// instance and one row per (instance, tag) value.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jpfielding/cornertext.go/pkg/dicom"
	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
	"github.com/jpfielding/cornertext.go/pkg/tagstore"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Instance is the index row for one imported DICOM instance
type Instance struct {
	SOPInstanceUID    string
	SeriesInstanceUID string
	StudyInstanceUID  string
	Path              string
	ImportID          string
}

// Store implements tagstore.BatchStore
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

var _ tagstore.BatchStore = (*Store)(nil)

// Open opens (or creates) the database at path and applies migrations
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	slog.Debug("tag store opened", slog.String("path", path))
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	// m.Close would close db as well; only the source needs releasing
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the database; IsOpen reports false afterwards
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *Store) IsOpen() bool {
	return s != nil && s.db != nil && !s.closed.Load()
}

func (s *Store) InstanceValue(instanceUID string, t tag.Tag) (string, error) {
	if !s.IsOpen() {
		return "", tagstore.ErrClosed
	}
	var v string
	err := s.db.QueryRow(
		`SELECT value FROM tags WHERE sop_instance_uid = ? AND tag = ?`,
		instanceUID, t.Code(),
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query %s %s: %w", instanceUID, t.Code(), err)
	}
	return v, nil
}

func (s *Store) InstanceValues(instanceUID string, tags []tag.Tag) (map[tag.Tag]string, error) {
	if !s.IsOpen() {
		return nil, tagstore.ErrClosed
	}
	want := make(map[string]tag.Tag, len(tags))
	for _, t := range tags {
		want[t.Code()] = t
	}

	rows, err := s.db.Query(`SELECT tag, value FROM tags WHERE sop_instance_uid = ?`, instanceUID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", instanceUID, err)
	}
	defer rows.Close()

	out := make(map[tag.Tag]string, len(tags))
	for rows.Next() {
		var code, v string
		if err := rows.Scan(&code, &v); err != nil {
			return nil, err
		}
		if t, ok := want[code]; ok {
			out[t] = v
		}
	}
	return out, rows.Err()
}

// RecordImport registers an import run so instances can reference it
func (s *Store) RecordImport(ctx context.Context, id, root string) error {
	if !s.IsOpen() {
		return tagstore.ErrClosed
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO imports (id, root) VALUES (?, ?)`, id, root)
	if err != nil {
		return fmt.Errorf("record import %s: %w", id, err)
	}
	return nil
}

// Import upserts ds and its annotation tags. Tags absent from ds are removed
// so a re-import reflects the file on disk.
func (s *Store) Import(ctx context.Context, ds *dicom.Dataset, path, importID string) (string, error) {
	if !s.IsOpen() {
		return "", tagstore.ErrClosed
	}
	uid := ds.SOPInstanceUID()
	if uid == "" {
		return "", fmt.Errorf("%s: no SOP Instance UID", path)
	}

	var imp any
	if importID != "" {
		imp = importID
	}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO instances (sop_instance_uid, series_instance_uid, study_instance_uid, path, import_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(sop_instance_uid) DO UPDATE SET
				series_instance_uid = excluded.series_instance_uid,
				study_instance_uid  = excluded.study_instance_uid,
				path                = excluded.path,
				import_id           = excluded.import_id`,
			uid, ds.Text(tag.SeriesInstanceUID), ds.Text(tag.StudyInstanceUID), path, imp,
		); err != nil {
			return fmt.Errorf("upsert instance: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE sop_instance_uid = ?`, uid); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		for _, t := range tag.Annotation {
			if _, ok := ds.FindElement(t); !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tags (sop_instance_uid, tag, value) VALUES (?, ?, ?)`,
				uid, t.Code(), ds.Text(t),
			); err != nil {
				return fmt.Errorf("insert tag %s: %w", t.Code(), err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return uid, nil
}

// Instance returns the index row for uid or tagstore.ErrNotFound
func (s *Store) Instance(ctx context.Context, uid string) (Instance, error) {
	if !s.IsOpen() {
		return Instance{}, tagstore.ErrClosed
	}
	var in Instance
	var imp sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT sop_instance_uid, series_instance_uid, study_instance_uid, path, import_id
		FROM instances WHERE sop_instance_uid = ?`, uid,
	).Scan(&in.SOPInstanceUID, &in.SeriesInstanceUID, &in.StudyInstanceUID, &in.Path, &imp)
	if errors.Is(err, sql.ErrNoRows) {
		return Instance{}, fmt.Errorf("%s: %w", uid, tagstore.ErrNotFound)
	}
	if err != nil {
		return Instance{}, err
	}
	in.ImportID = imp.String
	return in, nil
}

// Instances lists every indexed instance ordered by series then UID
func (s *Store) Instances(ctx context.Context) ([]Instance, error) {
	if !s.IsOpen() {
		return nil, tagstore.ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sop_instance_uid, series_instance_uid, study_instance_uid, path, import_id
		FROM instances ORDER BY series_instance_uid, sop_instance_uid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Instance
	for rows.Next() {
		var in Instance
		var imp sql.NullString
		if err := rows.Scan(&in.SOPInstanceUID, &in.SeriesInstanceUID, &in.StudyInstanceUID, &in.Path, &imp); err != nil {
			return nil, err
		}
		in.ImportID = imp.String
		out = append(out, in)
	}
	return out, rows.Err()
}

// withTx runs fn in a transaction
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
