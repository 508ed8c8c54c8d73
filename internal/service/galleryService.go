package service

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/wallcraft/internal/database"
	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/ds124wfegd/wallcraft/internal/pkg/compositor"
	"github.com/ds124wfegd/wallcraft/internal/pkg/source"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	sniffLen        = 512
	generatedPrefix = "Generated: "
	maxPromptName   = 30
)

type galleryService struct {
	gallery database.GalleryRepository
	files   database.FileRepository
	opts    GalleryOptions
}

func NewGalleryService(gallery database.GalleryRepository, files database.FileRepository, opts GalleryOptions) GalleryService {
	if opts.DefaultResolution == "" {
		opts.DefaultResolution = compositor.DefaultResolutionName
	}
	if opts.RandomMaxID <= 0 {
		opts.RandomMaxID = 1084
	}
	if opts.RandomBaseURL == "" {
		opts.RandomBaseURL = "https://picsum.photos"
	}
	return &galleryService{gallery: gallery, files: files, opts: opts}
}

func (s *galleryService) List() []entity.Image {
	return s.gallery.List()
}

func (s *galleryService) Get(id string) (entity.Image, error) {
	return s.gallery.Get(id)
}

// Upload stores the bytes of an uploaded file and adds it to the gallery.
func (s *galleryService) Upload(name string, data io.Reader) (entity.Image, error) {
	if s.full() {
		return entity.Image{}, entity.ErrGalleryFull
	}
	if !source.IsValidImageName(name) {
		return entity.Image{}, fmt.Errorf("%w: %s", entity.ErrUnsupportedType, name)
	}

	// Проверяем содержимое, а не только расширение
	br := bufio.NewReaderSize(data, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return entity.Image{}, err
	}
	if _, err := source.DetectImageType(head); err != nil {
		return entity.Image{}, err
	}

	var body io.Reader = br
	if s.opts.MaxUploadSize > 0 {
		body = io.LimitReader(br, s.opts.MaxUploadSize+1)
	}

	id := uuid.New().String()
	size, err := s.files.SaveBlob(id, body)
	if err != nil {
		return entity.Image{}, err
	}
	if s.opts.MaxUploadSize > 0 && size > s.opts.MaxUploadSize {
		s.dropBlob(id)
		return entity.Image{}, fmt.Errorf("%w: file exceeds %d bytes", entity.ErrInvalidInput, s.opts.MaxUploadSize)
	}

	dominant, err := s.inspect(id)
	if err != nil {
		s.dropBlob(id)
		return entity.Image{}, err
	}

	img := entity.Image{
		ID:            id,
		Ref:           source.BlobRef(id),
		Name:          name,
		Size:          size,
		Kind:          entity.KindUpload,
		DominantColor: dominant,
		Spec:          entity.DefaultRenderSpec(),
		CreatedAt:     time.Now(),
	}

	if err := s.gallery.Add(img); err != nil {
		s.dropBlob(id)
		return entity.Image{}, err
	}

	logrus.WithFields(logrus.Fields{
		"image_id": id,
		"name":     name,
		"size":     size,
	}).Info("image uploaded")
	return img, nil
}

// AddRandom adds picture number from the random image service, fetched at
// the user's resolution.
func (s *galleryService) AddRandom(req entity.RandomImageRequest, resolution string) (entity.Image, error) {
	if req.Number < 1 || req.Number > s.opts.RandomMaxID {
		return entity.Image{}, fmt.Errorf("%w: must be between 1 and %d", entity.ErrInvalidNumber, s.opts.RandomMaxID)
	}
	if s.full() {
		return entity.Image{}, entity.ErrGalleryFull
	}

	name := fmt.Sprintf("Random Image %d", req.Number)
	if req.Grayscale {
		name += " (Grayscale)"
	}

	img := entity.Image{
		ID:        uuid.New().String(),
		Ref:       source.RandomRef(s.opts.RandomBaseURL, req.Number, s.resolution(resolution), req.Grayscale),
		Name:      name,
		Kind:      entity.KindRandom,
		Spec:      entity.DefaultRenderSpec(),
		CreatedAt: time.Now(),
	}
	if err := s.gallery.Add(img); err != nil {
		return entity.Image{}, err
	}
	return img, nil
}

// Generate adds a placeholder image standing in for a generated wallpaper.
func (s *galleryService) Generate(req entity.GenerateRequest, resolution string) (entity.Image, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return entity.Image{}, entity.ErrPromptRequired
	}
	if !slices.Contains(entity.GenerationStyles, req.Style) {
		return entity.Image{}, fmt.Errorf("%w: %q", entity.ErrUnknownStyle, req.Style)
	}
	if s.full() {
		return entity.Image{}, entity.ErrGalleryFull
	}

	img := entity.Image{
		ID:        uuid.New().String(),
		Ref:       source.PlaceholderRef(s.resolution(resolution), req.Style+" "+prompt),
		Name:      generatedName(prompt),
		Kind:      entity.KindGenerated,
		Spec:      entity.DefaultRenderSpec(),
		CreatedAt: time.Now(),
	}
	if err := s.gallery.Add(img); err != nil {
		return entity.Image{}, err
	}
	return img, nil
}

func (s *galleryService) UpdateSpec(id string, patch entity.RenderSpecPatch) (entity.Image, error) {
	if err := patch.Validate(); err != nil {
		return entity.Image{}, err
	}
	return s.gallery.Update(id, func(img *entity.Image) error {
		img.Spec = img.Spec.Merge(patch)
		return nil
	})
}

func (s *galleryService) Enhance(id string) (entity.Image, error) {
	return s.gallery.Update(id, func(img *entity.Image) error {
		img.Spec.Adjustments = img.Spec.Adjustments.AutoEnhanced()
		return nil
	})
}

// Remove drops the image and releases its blob and rendered outputs.
func (s *galleryService) Remove(id string) error {
	if _, err := s.gallery.Remove(id); err != nil {
		return err
	}
	if err := s.files.DeleteImage(id); err != nil {
		logrus.WithFields(logrus.Fields{
			"image_id": id,
			"error":    err,
		}).Warn("failed to release image files")
	}
	return nil
}

// OpenSource returns the uploaded bytes of a blob-backed image.
func (s *galleryService) OpenSource(id string) (io.ReadCloser, error) {
	img, err := s.gallery.Get(id)
	if err != nil {
		return nil, err
	}
	blobID, ok := source.ParseBlobRef(img.Ref)
	if !ok {
		return nil, entity.ErrNotBlob
	}
	return s.files.OpenBlob(blobID)
}

func (s *galleryService) Options() entity.OptionsResponse {
	return entity.OptionsResponse{
		Resolutions:      compositor.ResolutionNames(),
		DefaultRes:       s.opts.DefaultResolution,
		CropModes:        entity.CropModes,
		Filters:          entity.FilterPresets,
		Gradients:        entity.GradientOverlays,
		FontFamilies:     compositor.FontFamilies,
		GenerationStyles: entity.GenerationStyles,
	}
}

// full fails fast before any bytes are stored; Add enforces the limit anyway.
func (s *galleryService) full() bool {
	return s.opts.Limit > 0 && s.gallery.Count() >= s.opts.Limit
}

func (s *galleryService) resolution(name string) compositor.Resolution {
	if name == "" {
		name = s.opts.DefaultResolution
	}
	return compositor.ResolveResolution(name)
}

// inspect rejects a stored upload whose header claims more pixels than
// allowed and returns its dominant colour. Pictures that cannot be decoded
// are kept with no colour; their renders degrade to the source.
func (s *galleryService) inspect(id string) (string, error) {
	rc, err := s.files.OpenBlob(id)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	if _, err := compositor.CheckPixels(bytes.NewReader(data), s.opts.MaxPixels); err != nil {
		if errors.Is(err, compositor.ErrTooManyPixels) {
			return "", fmt.Errorf("%w: %w", entity.ErrInvalidInput, err)
		}
		logrus.WithFields(logrus.Fields{
			"image_id": id,
			"error":    err,
		}).Warn("uploaded image cannot be decoded")
		return "", nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"image_id": id,
			"error":    err,
		}).Warn("uploaded image cannot be decoded")
		return "", nil
	}
	return dominantcolor.Hex(dominantcolor.Find(imaging.Fit(img, 256, 256, imaging.Box))), nil
}

func (s *galleryService) dropBlob(id string) {
	if err := s.files.DeleteImage(id); err != nil {
		logrus.WithError(err).Warn("failed to drop blob")
	}
}

func generatedName(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > maxPromptName {
		return generatedPrefix + string(runes[:maxPromptName]) + "..."
	}
	return generatedPrefix + prompt
}
