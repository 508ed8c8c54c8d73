package database

import (
	"io"

	"github.com/ds124wfegd/wallcraft/internal/entity"
)

// GalleryRepository holds the source images of the process. Reads never
// block on writers.
type GalleryRepository interface {
	List() []entity.Image
	Get(id string) (entity.Image, error)
	Count() int
	Add(image entity.Image) error
	Update(id string, fn func(image *entity.Image) error) (entity.Image, error)
	Remove(id string) (entity.Image, error)

	// BeginRender takes the next render sequence number of an image and
	// returns the image as it is at that moment.
	BeginRender(id string) (uint64, entity.Image, error)
	// CompleteRender commits result unless a newer one is already committed.
	// It returns the result it superseded, if any.
	CompleteRender(id string, result entity.RenderResult) (committed bool, superseded *entity.RenderResult, err error)
}

// FileRepository stores uploaded bytes and rendered outputs.
type FileRepository interface {
	SaveBlob(id string, data io.Reader) (int64, error)
	OpenBlob(id string) (io.ReadCloser, error)
	SaveOutput(imageID string, seq uint64, data []byte) (string, error)
	OpenOutput(imageID, file string) (io.ReadCloser, error)
	DeleteOutput(imageID, file string) error
	DeleteImage(id string) error
}
