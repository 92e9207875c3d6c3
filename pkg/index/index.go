// Package index imports DICOM headers found under a directory into a tag store.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/jpfielding/cornertext.go/pkg/dicom"
)

// DefaultPattern selects files by extension anywhere below the root
const DefaultPattern = "**/*.dcm"

// Importer persists parsed headers; *sqlite.Store satisfies it
type Importer interface {
	RecordImport(ctx context.Context, id, root string) error
	Import(ctx context.Context, ds *dicom.Dataset, path, importID string) (string, error)
}

// Indexer walks Root and imports every file matching Pattern
type Indexer struct {
	Root    string
	Pattern string
	Store   Importer
	// OnImport, when set, is called after each successful import
	OnImport func(path, instanceUID string)
}

// Summary counts the outcome of a run
type Summary struct {
	RunID    string
	Imported int
	Skipped  int // matched but not DICOM or without an instance UID
	Failed   int
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run", s.RunID),
		slog.Int("imported", s.Imported),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
	)
}

// New validates pattern (DefaultPattern when empty) and returns an indexer
func New(root, pattern string, store Importer) (*Indexer, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid include pattern %q", pattern)
	}
	return &Indexer{Root: root, Pattern: pattern, Store: store}, nil
}

// Matches reports whether path, absolute or relative to Root, is included
func (ix *Indexer) Matches(path string) bool {
	rel, err := filepath.Rel(ix.Root, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(ix.Pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// Run imports everything below Root under a fresh run id
func (ix *Indexer) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	if err := ix.Store.RecordImport(ctx, sum.RunID, ix.Root); err != nil {
		return sum, err
	}
	err := filepath.WalkDir(ix.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("walk", slog.String("path", path), slog.Any("err", err))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !ix.Matches(path) {
			return nil
		}
		switch _, err := ix.ImportFile(ctx, sum.RunID, path); {
		case err == nil:
			sum.Imported++
		case errors.Is(err, ErrSkipped):
			sum.Skipped++
		default:
			sum.Failed++
			slog.Warn("import failed", slog.String("path", path), slog.Any("err", err))
		}
		return nil
	})
	slog.Info("index run", slog.Any("summary", sum))
	return sum, err
}

// ErrSkipped marks files that are not importable DICOM instances
var ErrSkipped = errors.New("not an importable instance")

// ImportFile parses path and imports it under runID
func (ix *Indexer) ImportFile(ctx context.Context, runID, path string) (string, error) {
	ds, err := dicom.ReadFile(path)
	if errors.Is(err, dicom.ErrNotDICOM) {
		slog.Debug("skipping non DICOM file", slog.String("path", path))
		return "", fmt.Errorf("%s: %w", path, ErrSkipped)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if ds.SOPInstanceUID() == "" {
		slog.Debug("skipping instance without UID", slog.String("path", path))
		return "", fmt.Errorf("%s: no SOP Instance UID: %w", path, ErrSkipped)
	}
	uid, err := ix.Store.Import(ctx, ds, path, runID)
	if err != nil {
		return "", err
	}
	slog.Debug("imported", slog.String("path", path), slog.String("uid", uid))
	if ix.OnImport != nil {
		ix.OnImport(path, uid)
	}
	return uid, nil
}
