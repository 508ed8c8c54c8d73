package transport

import (
	"github.com/ds124wfegd/wallcraft/internal/pkg/source"
	"github.com/ds124wfegd/wallcraft/internal/service"
)

// ImageService is everything the HTTP layer needs from the service layer.
type ImageService interface {
	service.GalleryService
	service.RenderService
}

type ImageHandler struct {
	service     ImageService
	placeholder source.PlaceholderRenderer
}

func NewImageHandler(service ImageService, placeholder source.PlaceholderRenderer) *ImageHandler {
	return &ImageHandler{service: service, placeholder: placeholder}
}
