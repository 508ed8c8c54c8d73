package service

import (
	"context"
	"io"
	"time"

	"github.com/ds124wfegd/wallcraft/internal/database"
	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/ds124wfegd/wallcraft/internal/pkg/compositor"
	"github.com/ds124wfegd/wallcraft/internal/pkg/kafka"
)

type GalleryService interface {
	List() []entity.Image
	Get(id string) (entity.Image, error)
	Upload(name string, data io.Reader) (entity.Image, error)
	AddRandom(req entity.RandomImageRequest, resolution string) (entity.Image, error)
	Generate(req entity.GenerateRequest, resolution string) (entity.Image, error)
	UpdateSpec(id string, patch entity.RenderSpecPatch) (entity.Image, error)
	Enhance(id string) (entity.Image, error)
	Remove(id string) error
	OpenSource(id string) (io.ReadCloser, error)
	Options() entity.OptionsResponse
}

type RenderService interface {
	Render(ctx context.Context, id, resolution string) (entity.RenderCompleted, error)
	Enqueue(id, resolution string) error
	HandleMessage(ctx context.Context, data []byte) error
	Download(ctx context.Context, id, resolution string) (*Download, error)
	OpenOutput(id, file string) (io.ReadCloser, error)
}

// Renderer is the compositing pipeline.
type Renderer interface {
	Render(ctx context.Context, opener compositor.SourceOpener, img entity.Image, resolution string) compositor.Output
}

type GalleryOptions struct {
	DefaultResolution string
	RandomBaseURL     string
	RandomMaxID       int
	MaxUploadSize     int64
	// MaxPixels bounds width*height of uploads; <= 0 means the compositor default.
	MaxPixels int
	Limit     int
}

type RenderOptions struct {
	DefaultResolution string
	RequestsTopic     string
	CompletedTopic    string
	RenderTimeout     time.Duration
}

type Service struct {
	GalleryService
	RenderService
}

func NewService(gallery database.GalleryRepository, files database.FileRepository, renderer Renderer,
	opener compositor.SourceOpener, producer kafka.Producer, galleryOpts GalleryOptions, renderOpts RenderOptions) *Service {
	return &Service{
		GalleryService: NewGalleryService(gallery, files, galleryOpts),
		RenderService:  NewRenderService(gallery, files, renderer, opener, producer, renderOpts),
	}
}
