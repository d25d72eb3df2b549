package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage on the local filesystem. Every path is
// confined to the base directory.
type LocalStorage struct {
	baseDir string
	baseURL string
}

// LocalConfig is the environment-driven local storage setup.
type LocalConfig struct {
	BaseDir string `env:"FILE_STORAGE_DIR" envDefault:"./tmp/files"`
	BaseURL string `env:"FILE_STORAGE_URL" envDefault:"/files"`
}

// NewLocalStorage resolves and creates the base directory.
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	if cfg.BaseDir == "" {
		return nil, ErrInvalidConfig
	}
	abs, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return &LocalStorage{
		baseDir: abs,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

func (s *LocalStorage) Save(ctx context.Context, r io.Reader, path, contentType string) (*File, error) {
	rel, err := cleanPath(path)
	if err != nil {
		return nil, err
	}

	full := filepath.Join(s.baseDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, errors.Join(ErrSaveFailed, err)
	}

	dst, err := os.Create(full)
	if err != nil {
		return nil, errors.Join(ErrSaveFailed, err)
	}
	defer func() { _ = dst.Close() }()

	size, err := io.Copy(dst, r)
	if err != nil {
		_ = os.Remove(full)
		return nil, errors.Join(ErrSaveFailed, err)
	}
	return &File{Path: rel, Size: size, ContentType: contentType}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	rel, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
		return errors.Join(ErrDeleteFailed, err)
	}
	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, path string) bool {
	rel, err := cleanPath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(s.baseDir, filepath.FromSlash(rel)))
	return err == nil
}

func (s *LocalStorage) URL(path string) string {
	rel, err := cleanPath(path)
	if err != nil {
		return ""
	}
	return s.baseURL + "/" + rel
}
