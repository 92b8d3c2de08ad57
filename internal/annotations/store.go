// Package annotations owns the CSV-backed annotation record set. The
// file on disk is the single source of truth: every operation re-reads
// or rewrites it, so records survive restarts and no cache can go stale.
package annotations

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/iamkucuk/photo-annotation-tool/internal/sanitize"
)

// fieldNames is the fixed column order of the store file. The header is
// the first line of the file and must match exactly on read.
var fieldNames = []string{"image_name", "description", "tags", "labels", "timestamp"}

// ErrCorruptStore is returned when the store file exists but its header
// does not match the expected field set. No partial data is returned in
// that case; an operator should look at the file.
var ErrCorruptStore = errors.New("annotation store header mismatch")

// ValidationError reports a record that failed a save precondition.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Record is one annotation row. Timestamp is assigned by the store at
// write time, never by the caller.
type Record struct {
	ImageName   string `json:"image_name"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
	Labels      string `json:"labels"`
	Timestamp   string `json:"timestamp"`
}

// Store manages one exclusively-owned CSV file. Writers serialize on the
// store's lock; readers share it. Each store instance owns its path, so
// tests and callers inject isolated files instead of sharing a global.
type Store struct {
	path string
	mu   sync.RWMutex
}

// NewStore creates the parent directory if needed and returns a store
// for the given file path. The file itself is created lazily by the
// first write.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create annotation directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Initialize writes the header line if the file does not exist yet.
// Write operations call this implicitly; it is idempotent.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureHeader()
}

// Save validates, sanitizes, timestamps and appends one record.
// Append-only: saving the same image again adds a row; latest-wins is a
// read-side concern resolved by file order.
func (s *Store) Save(rec Record) error {
	imageName := strings.TrimSpace(rec.ImageName)
	description := sanitize.Field(rec.Description)
	if imageName == "" {
		return &ValidationError{Reason: "image_name is required"}
	}
	if description == "" {
		return &ValidationError{Reason: "description is required"}
	}

	row := []string{
		imageName,
		description,
		sanitize.Field(rec.Tags),
		sanitize.Field(rec.Labels),
		time.Now().Format(time.RFC3339),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureHeader(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open annotation store: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to append annotation: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to append annotation: %w", err)
	}
	return nil
}

// ReadAll returns every record in file order. A missing file is an empty
// store, not an error.
func (s *Store) ReadAll() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readAllLocked()
}

// ReadForImage filters ReadAll by exact image name match, preserving
// file order.
func (s *Store) ReadForImage(imageName string) ([]Record, error) {
	all, err := s.ReadAll()
	if err != nil {
		return nil, err
	}

	matched := make([]Record, 0)
	for _, rec := range all {
		if rec.ImageName == imageName {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// DeleteForImage rewrites the store retaining only rows whose image name
// differs, and reports how many rows were dropped. The rewrite goes to a
// temp file in the same directory and replaces the store atomically, so
// concurrent readers see either the old or the new complete content and
// a failed rewrite leaves the previous file intact.
func (s *Store) DeleteForImage(imageName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAllLocked()
	if err != nil {
		return 0, err
	}

	kept := all[:0]
	for _, rec := range all {
		if rec.ImageName != imageName {
			kept = append(kept, rec)
		}
	}
	removed := len(all) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := s.rewrite(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// WriteCSV streams the header and all records in storage order, with
// RFC 4180 quoting.
func (s *Store) WriteCSV(out io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.readAllLocked()
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)
	if err := w.Write(fieldNames); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, rec := range all {
		if err := w.Write(rec.row()); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	return nil
}

func (rec Record) row() []string {
	return []string{rec.ImageName, rec.Description, rec.Tags, rec.Labels, rec.Timestamp}
}

// ensureHeader creates the file with its header line when absent.
// Callers must hold the write lock.
func (s *Store) ensureHeader() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat annotation store: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create annotation store: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(fieldNames); err != nil {
		return fmt.Errorf("failed to write annotation header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write annotation header: %w", err)
	}
	return nil
}

// readAllLocked parses the whole file. Callers must hold at least the
// read lock.
func (s *Store) readAllLocked() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to open annotation store: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err == io.EOF {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if !headerMatches(header) {
		return nil, fmt.Errorf("%w: got %q", ErrCorruptStore, strings.Join(header, ","))
	}

	records := make([]Record, 0)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse annotation store: %w", err)
		}
		records = append(records, Record{
			ImageName:   row[0],
			Description: row[1],
			Tags:        row[2],
			Labels:      row[3],
			Timestamp:   row[4],
		})
	}
	return records, nil
}

// rewrite replaces the store file with header plus the given records via
// temp file and atomic rename. Callers must hold the write lock.
func (s *Store) rewrite(records []Record) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".annotations-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp annotation file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(fieldNames); err != nil {
		cleanup()
		return fmt.Errorf("failed to write annotation header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec.row()); err != nil {
			cleanup()
			return fmt.Errorf("failed to write annotation row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		cleanup()
		return fmt.Errorf("failed to flush annotation rows: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp annotation file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp annotation file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace annotation store: %w", err)
	}
	return nil
}

func headerMatches(header []string) bool {
	if len(header) != len(fieldNames) {
		return false
	}
	for i, name := range fieldNames {
		if strings.TrimSpace(header[i]) != name {
			return false
		}
	}
	return true
}
