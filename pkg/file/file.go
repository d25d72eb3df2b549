// Package file stores uploaded artifacts, currently lead import CSVs, on
// S3-compatible object storage or the local filesystem.
package file

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidConfig  = errors.New("file: invalid storage configuration")
	ErrInvalidPath    = errors.New("file: invalid storage path")
	ErrSaveFailed     = errors.New("file: failed to save")
	ErrDeleteFailed   = errors.New("file: failed to delete")
	ErrNotCSV         = errors.New("file: not a CSV file")
	ErrFileUnreadable = errors.New("file: failed to read upload")
)

// File is stored object metadata.
type File struct {
	Path        string
	Size        int64
	ContentType string
}

// Storage persists uploaded files.
type Storage interface {
	// Save writes the reader's contents at path and returns metadata.
	Save(ctx context.Context, r io.Reader, path, contentType string) (*File, error)
	// Delete removes the object at path. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, path string) error
	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) bool
	// URL returns the public URL for path.
	URL(path string) string
}

// ValidateCSV checks an upload really is CSV before it is parsed or
// archived. Content sniffing runs first, extension is the fallback because
// http.DetectContentType reports most CSVs as text/plain.
func ValidateCSV(fh *multipart.FileHeader) error {
	if fh == nil {
		return ErrFileUnreadable
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Join(ErrFileUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return errors.Join(ErrFileUnreadable, err)
	}

	contentType := http.DetectContentType(buf[:n])
	switch {
	case strings.HasPrefix(contentType, "text/csv"),
		strings.HasPrefix(contentType, "text/plain"),
		strings.HasPrefix(contentType, "application/csv"):
		return nil
	}
	if strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		return nil
	}
	return ErrNotCSV
}

// cleanPath normalizes a storage path and rejects traversal outside the
// storage root. Paths carrying ".." segments are refused outright instead
// of being normalized.
func cleanPath(path string) (string, error) {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+path)), "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
