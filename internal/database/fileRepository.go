package database

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/ds124wfegd/wallcraft/internal/pkg/storage"
)

type fileRepository struct {
	storage storage.FileStorage
}

func NewFileRepository(storage storage.FileStorage) FileRepository {
	return &fileRepository{storage: storage}
}

func (r *fileRepository) SaveBlob(id string, data io.Reader) (int64, error) {
	return r.storage.Save(r.blobPath(id), data)
}

func (r *fileRepository) OpenBlob(id string) (io.ReadCloser, error) {
	rc, err := r.storage.Get(r.blobPath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: blob %s", entity.ErrImageNotFound, id)
	}
	return rc, err
}

// SaveOutput stores a rendered JPEG and returns its file name.
func (r *fileRepository) SaveOutput(imageID string, seq uint64, data []byte) (string, error) {
	file := OutputFileName(seq)
	if _, err := r.storage.Save(r.outputPath(imageID, file), bytes.NewReader(data)); err != nil {
		return "", err
	}
	return file, nil
}

func (r *fileRepository) OpenOutput(imageID, file string) (io.ReadCloser, error) {
	if filepath.Base(file) != file {
		return nil, fmt.Errorf("%w: output %s", entity.ErrInvalidInput, file)
	}
	rc, err := r.storage.Get(r.outputPath(imageID, file))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: output %s/%s", entity.ErrImageNotFound, imageID, file)
	}
	return rc, err
}

func (r *fileRepository) DeleteOutput(imageID, file string) error {
	err := r.storage.Delete(r.outputPath(imageID, file))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DeleteImage drops the uploaded bytes and every rendered output of id.
func (r *fileRepository) DeleteImage(id string) error {
	if err := r.storage.Delete(r.blobPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return r.storage.DeleteAll(filepath.Join("renders", id))
}

func OutputFileName(seq uint64) string {
	return fmt.Sprintf("%d.jpg", seq)
}

func (r *fileRepository) blobPath(id string) string {
	return filepath.Join("blobs", id)
}

func (r *fileRepository) outputPath(imageID, file string) string {
	return filepath.Join("renders", imageID, file)
}
