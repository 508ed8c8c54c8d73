package entity

import "errors"

var (
	// Render pipeline errors. These never reach the caller of a render: they are
	// recorded on a degraded RenderResult instead.
	ErrDecode  = errors.New("source image cannot be decoded")
	ErrEncode  = errors.New("canvas cannot be encoded")
	ErrTimeout = errors.New("render step timed out")

	// Gallery errors
	ErrImageNotFound   = errors.New("image not found")
	ErrGalleryFull     = errors.New("gallery is full")
	ErrInvalidNumber   = errors.New("number is out of range")
	ErrPromptRequired  = errors.New("prompt is required")
	ErrUnknownStyle    = errors.New("unknown generation style")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrNotBlob         = errors.New("image has no uploaded blob")
	ErrInvalidInput    = errors.New("invalid input")
)
