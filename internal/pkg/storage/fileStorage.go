package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideRoot = errors.New("path escapes storage root")

type FileStorage interface {
	Save(path string, data io.Reader) (int64, error)
	Get(path string) (io.ReadCloser, error)
	Delete(path string) error
	DeleteAll(path string) error
	Exists(path string) bool
	Root() string
	Cleanup() error
}

type fileStorage struct {
	basePath string
}

// NewFileStorage creates a private directory under parentDir (the system
// temp dir when empty). Cleanup removes it, so nothing outlives the process.
func NewFileStorage(parentDir string) (FileStorage, error) {
	if parentDir != "" {
		if err := os.MkdirAll(parentDir, 0755); err != nil {
			return nil, err
		}
	}

	dir, err := os.MkdirTemp(parentDir, "wallcraft-*")
	if err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &fileStorage{basePath: dir}, nil
}

func (s *fileStorage) Save(path string, data io.Reader) (int64, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return 0, err
	}

	// Создаем директорию если нужно
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return 0, err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return io.Copy(file, data)
}

func (s *fileStorage) Get(path string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

func (s *fileStorage) Delete(path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(fullPath)
}

// DeleteAll removes path and everything below it. Missing paths are fine.
func (s *fileStorage) DeleteAll(path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if fullPath == filepath.Clean(s.basePath) {
		return fmt.Errorf("%w: refusing to delete root", ErrOutsideRoot)
	}
	return os.RemoveAll(fullPath)
}

func (s *fileStorage) Exists(path string) bool {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return !os.IsNotExist(err)
}

func (s *fileStorage) Root() string {
	return s.basePath
}

func (s *fileStorage) Cleanup() error {
	return os.RemoveAll(s.basePath)
}

func (s *fileStorage) resolve(path string) (string, error) {
	root := filepath.Clean(s.basePath)
	fullPath := filepath.Join(root, path)
	if fullPath != root && !strings.HasPrefix(fullPath, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return fullPath, nil
}
