// Package imagestore owns the upload directory and its derived
// thumbnails: validation, persistence, listing and best-effort removal
// of image files.
package imagestore

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamkucuk/photo-annotation-tool/internal/sanitize"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const thumbnailDirName = "thumbnails"

// collisionAttempts bounds the numeric suffix search before falling back
// to a uuid suffix.
const collisionAttempts = 1000

// allowedExtensions maps accepted extensions to the format name reported
// by image.DecodeConfig for matching content.
var allowedExtensions = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".bmp":  "bmp",
	".webp": "webp",
}

// Entry describes one stored image and its optional thumbnail.
type Entry struct {
	Filename      string `json:"filename"`
	Path          string `json:"path"`
	ThumbnailPath string `json:"thumbnail,omitempty"`
}

// Metadata describes a stored image file as decoded from disk.
type Metadata struct {
	Filename   string    `json:"filename"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Format     string    `json:"format"`
	FileSize   int64     `json:"file_size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// DeleteReport lists what a Delete call actually removed and any per-path
// failures. Partial failure is data, not an error.
type DeleteReport struct {
	DeletedPaths []string `json:"deleted_paths"`
	Errors       []string `json:"errors,omitempty"`
}

// Config tunes a Store. Zero values fall back to defaults.
type Config struct {
	MaxFileSize      int64 // bytes, default 10 MiB
	ThumbnailMaxPx   int   // bounding box edge, default 200
	ThumbnailQuality int   // JPEG quality, default 85
}

// Store manages one exclusively-owned image directory plus its
// thumbnails subdirectory.
type Store struct {
	absBase      string
	thumbDir     string
	maxFileSize  int64
	thumbMaxPx   int
	thumbQuality int
}

// New creates the upload and thumbnail directories and returns a store
// rooted at baseDir.
func New(baseDir string, cfg Config) (*Store, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image directory %q: %w", baseDir, err)
	}

	thumbDir := filepath.Join(absBase, thumbnailDirName)
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directories under %q: %w", absBase, err)
	}

	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 << 20
	}
	if cfg.ThumbnailMaxPx <= 0 {
		cfg.ThumbnailMaxPx = 200
	}
	if cfg.ThumbnailQuality <= 0 {
		cfg.ThumbnailQuality = 85
	}

	return &Store{
		absBase:      absBase,
		thumbDir:     thumbDir,
		maxFileSize:  cfg.MaxFileSize,
		thumbMaxPx:   cfg.ThumbnailMaxPx,
		thumbQuality: cfg.ThumbnailQuality,
	}, nil
}

// BasePath returns the absolute upload directory.
func (s *Store) BasePath() string {
	return s.absBase
}

// MaxFileSize returns the configured upload size limit in bytes.
func (s *Store) MaxFileSize() int64 {
	return s.maxFileSize
}

// Validate checks a candidate upload without writing anything: the name
// must be present, the extension allowed, the size within the limit and
// the content must decode as an image of the declared type.
func (s *Store) Validate(filename string, content []byte) error {
	if strings.TrimSpace(filename) == "" {
		return &ValidationError{Field: "filename", Reason: "no filename provided"}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	wantFormat, ok := allowedExtensions[ext]
	if !ok {
		return &ValidationError{
			Field:  "extension",
			Reason: fmt.Sprintf("file extension %q is not allowed", ext),
		}
	}

	if int64(len(content)) > s.maxFileSize {
		return &ValidationError{
			Field:  "size",
			Reason: fmt.Sprintf("file size %d bytes exceeds maximum of %d bytes", len(content), s.maxFileSize),
		}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptContent, err)
	}
	if format != wantFormat {
		return fmt.Errorf("%w: content is %s but extension is %s", ErrCorruptContent, format, ext)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: zero-sized image", ErrCorruptContent)
	}

	return nil
}

// Store validates and persists an upload, deriving a thumbnail alongside.
// Thumbnail failure does not fail the upload; the returned entry simply
// has no thumbnail path.
func (s *Store) Store(filename string, content []byte) (*Entry, error) {
	if err := s.Validate(filename, content); err != nil {
		return nil, err
	}

	base := sanitize.Filename(filename)
	if base == "" {
		return nil, &ValidationError{
			Field:  "filename",
			Reason: fmt.Sprintf("filename %q has no usable characters", filename),
		}
	}
	// Sanitization can swallow the dot of an extension-only stem
	// ("日本語.jpg" folds to "jpg"); re-attach the declared extension so
	// the stored name stays listable.
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(base))]; !ok {
		base += strings.ToLower(filepath.Ext(filename))
	}

	name, f, err := s.createUnique(base)
	if err != nil {
		return nil, fmt.Errorf("failed to create image file: %w", err)
	}

	path := filepath.Join(s.absBase, name)
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write image file %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close image file %q: %w", name, err)
	}

	entry := &Entry{Filename: name, Path: path}
	if thumbPath, err := s.deriveThumbnail(name, content); err == nil {
		entry.ThumbnailPath = thumbPath
	}
	return entry, nil
}

// createUnique opens the first free target path derived from base,
// suffixing _1, _2, ... before the extension on collision. O_EXCL makes
// the reservation race-free between concurrent uploads.
func (s *Store) createUnique(base string) (string, *os.File, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	name := base
	for i := 0; ; i++ {
		if i > 0 && i <= collisionAttempts {
			name = fmt.Sprintf("%s_%d%s", stem, i, ext)
		} else if i > collisionAttempts {
			name = fmt.Sprintf("%s_%s%s", stem, uuid.NewString(), ext)
		}

		path := filepath.Join(s.absBase, name)
		if !strings.HasPrefix(path, s.absBase+string(os.PathSeparator)) {
			return "", nil, fmt.Errorf("invalid target path for %q", base)
		}

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return name, f, nil
		}
		if !os.IsExist(err) {
			return "", nil, err
		}
	}
}

// List enumerates stored images sorted by filename, pairing each with its
// thumbnail when one exists by naming convention.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.absBase)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		name := d.Name()
		if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}

		entry := Entry{
			Filename: name,
			Path:     filepath.Join(s.absBase, name),
		}
		thumbPath := s.thumbnailPath(name)
		if _, err := os.Stat(thumbPath); err == nil {
			entry.ThumbnailPath = thumbPath
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })
	return entries, nil
}

// Metadata probes one stored image for its decoded dimensions and file
// attributes.
func (s *Store) Metadata(filename string) (*Metadata, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("failed to open image %q: %w", filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat image %q: %w", filename, err)
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptContent, err)
	}

	return &Metadata{
		Filename:   filename,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Format:     format,
		FileSize:   info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}

// Delete removes the original file and its thumbnail. Each removal is
// attempted independently; missing files are skipped and filesystem
// errors are collected into the report instead of aborting.
func (s *Store) Delete(filename string) DeleteReport {
	var report DeleteReport

	path, err := s.resolve(filename)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}

	for _, target := range []string{path, s.thumbnailPath(filename)} {
		if _, err := os.Stat(target); err != nil {
			if !os.IsNotExist(err) {
				report.Errors = append(report.Errors, fmt.Sprintf("failed to stat %s: %v", target, err))
			}
			continue
		}
		if err := os.Remove(target); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("failed to delete %s: %v", target, err))
			continue
		}
		report.DeletedPaths = append(report.DeletedPaths, target)
	}

	return report
}

// thumbnailPath returns the conventional thumbnail location for a stored
// image name.
func (s *Store) thumbnailPath(filename string) string {
	return filepath.Join(s.thumbDir, "thumb_"+filename)
}

// resolve maps a stored filename to its absolute path, rejecting anything
// that would escape the upload directory.
func (s *Store) resolve(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		return "", fmt.Errorf("invalid image filename: %q", filename)
	}
	path := filepath.Join(s.absBase, filename)
	if !strings.HasPrefix(path, s.absBase+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid image filename: %q", filename)
	}
	return path, nil
}
