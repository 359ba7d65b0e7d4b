package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"filesorter/internal/models"
)

const (
	DefaultChunkSize = 1 << 20
	requestDirPrefix = "req-"
	fallbackName     = "upload"
)

// TempStore writes request batches into per-request directories under a
// shared transient root.
type TempStore struct {
	baseDir   string
	chunkSize int
}

// Batch is the set of files written for one request.
type Batch struct {
	Dir   string
	Files []models.TempFile
}

// NewTempStore creates baseDir if needed.
func NewTempStore(baseDir string, chunkSize int) (*TempStore, error) {
	if baseDir == "" {
		return nil, errors.New("upload dir must be configured")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &TempStore{baseDir: baseDir, chunkSize: chunkSize}, nil
}

func (s *TempStore) BaseDir() string {
	return s.baseDir
}

// Save streams every upload to disk in chunkSize pieces. On failure the
// partially written batch is still returned so the caller can clean it up.
func (s *TempStore) Save(ctx context.Context, files []models.UploadedFile) (*Batch, error) {
	dir, err := os.MkdirTemp(s.baseDir, requestDirPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create request dir: %w", err)
	}
	batch := &Batch{Dir: dir, Files: make([]models.TempFile, 0, len(files))}
	buf := make([]byte, s.chunkSize)
	for _, upload := range files {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		stored, err := s.write(dir, upload, buf)
		if stored.StoredPath != "" {
			batch.Files = append(batch.Files, stored)
		}
		if err != nil {
			return batch, fmt.Errorf("save %s: %w", upload.FileName, err)
		}
	}
	return batch, nil
}

func (s *TempStore) write(dir string, upload models.UploadedFile, buf []byte) (models.TempFile, error) {
	if upload.Open == nil {
		return models.TempFile{}, errors.New("upload has no content")
	}
	name := cleanFileName(upload.FileName)
	dest, file, err := createUnique(dir, name)
	if err != nil {
		return models.TempFile{}, err
	}
	stored := models.TempFile{
		FileName:   name,
		StoredPath: dest,
		CreatedAt:  time.Now(),
	}

	src, err := upload.Open()
	if err != nil {
		file.Close()
		return stored, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	n, err := copyChunked(file, src, buf)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	stored.Size = n
	if err != nil {
		return stored, err
	}
	stored.MimeType = DetectMIME(dest)
	return stored, nil
}

func copyChunked(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write chunk: %w", err)
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("read chunk: %w", rerr)
		}
	}
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return fallbackName
	}
	return name
}

// createUnique opens dir/name exclusively, falling back to "name (n).ext" when
// the same name already appears in the batch.
func createUnique(dir, name string) (string, *os.File, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for idx := 1; idx <= 1000; idx++ {
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return path, f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", nil, fmt.Errorf("create %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s (%d)%s", base, idx, ext)
	}
	return "", nil, fmt.Errorf("no free name for %s", name)
}

// DetectMIME resolves a media type from the extension, then from content.
func DetectMIME(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return stripParams(ct)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return stripParams(mt.String())
}

func stripParams(ct string) string {
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ct
}

// Cleanup removes every file in the batch and the request directory. Safe to
// call more than once and on a nil batch.
func (s *TempStore) Cleanup(batch *Batch) error {
	if batch == nil {
		return nil
	}
	var errs []error
	for _, f := range batch.Files {
		if err := os.Remove(f.StoredPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if batch.Dir != "" {
		if err := os.RemoveAll(batch.Dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunSweeper periodically removes request directories older than ttl until
// ctx ends. They are only left behind when a process dies between Save and
// Cleanup.
func (s *TempStore) RunSweeper(ctx context.Context, interval, ttl time.Duration) error {
	if interval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n, err := s.SweepStale(time.Now(), ttl); err != nil {
				slog.Warn("sweep temp uploads", slog.Any("err", err))
			} else if n > 0 {
				slog.Info("swept stale uploads", slog.Int("dirs", n))
			}
		}
	}
}

// SweepStale removes request directories last modified before now-ttl.
func (s *TempStore) SweepStale(now time.Time, ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-ttl)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), requestDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("remove stale upload dir", slog.String("dir", path), slog.Any("err", err))
			continue
		}
		removed++
	}
	return removed, nil
}
