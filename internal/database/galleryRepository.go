package database

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ds124wfegd/wallcraft/internal/entity"
)

// snapshot is immutable once published.
type snapshot struct {
	order  []string
	images map[string]entity.Image
}

type memoryGalleryRepository struct {
	limit int

	mu      sync.Mutex // serialises writers
	current atomic.Pointer[snapshot]
}

// NewGalleryRepository keeps at most limit images (no limit when <= 0).
func NewGalleryRepository(limit int) GalleryRepository {
	r := &memoryGalleryRepository{limit: limit}
	r.current.Store(&snapshot{images: map[string]entity.Image{}})
	return r
}

func (r *memoryGalleryRepository) List() []entity.Image {
	s := r.current.Load()
	out := make([]entity.Image, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.images[id])
	}
	return out
}

func (r *memoryGalleryRepository) Get(id string) (entity.Image, error) {
	img, ok := r.current.Load().images[id]
	if !ok {
		return entity.Image{}, fmt.Errorf("%w: %s", entity.ErrImageNotFound, id)
	}
	return img, nil
}

func (r *memoryGalleryRepository) Count() int {
	return len(r.current.Load().order)
}

func (r *memoryGalleryRepository) Add(image entity.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.current.Load()
	if _, ok := s.images[image.ID]; ok {
		return fmt.Errorf("%w: duplicate id %s", entity.ErrInvalidInput, image.ID)
	}
	if r.limit > 0 && len(s.order) >= r.limit {
		return entity.ErrGalleryFull
	}

	next := s.clone()
	next.order = append(next.order, image.ID)
	next.images[image.ID] = image
	r.current.Store(next)
	return nil
}

func (r *memoryGalleryRepository) Update(id string, fn func(image *entity.Image) error) (entity.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.current.Load()
	img, ok := s.images[id]
	if !ok {
		return entity.Image{}, fmt.Errorf("%w: %s", entity.ErrImageNotFound, id)
	}
	if err := fn(&img); err != nil {
		return entity.Image{}, err
	}
	img.ID = id

	next := s.clone()
	next.images[id] = img
	r.current.Store(next)
	return img, nil
}

func (r *memoryGalleryRepository) Remove(id string) (entity.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.current.Load()
	img, ok := s.images[id]
	if !ok {
		return entity.Image{}, fmt.Errorf("%w: %s", entity.ErrImageNotFound, id)
	}

	next := &snapshot{
		order:  make([]string, 0, len(s.order)),
		images: make(map[string]entity.Image, len(s.images)),
	}
	for _, other := range s.order {
		if other == id {
			continue
		}
		next.order = append(next.order, other)
		next.images[other] = s.images[other]
	}
	r.current.Store(next)
	return img, nil
}

func (r *memoryGalleryRepository) BeginRender(id string) (uint64, entity.Image, error) {
	var seq uint64
	img, err := r.Update(id, func(image *entity.Image) error {
		image.RenderSeq++
		seq = image.RenderSeq
		return nil
	})
	return seq, img, err
}

func (r *memoryGalleryRepository) CompleteRender(id string, result entity.RenderResult) (bool, *entity.RenderResult, error) {
	var (
		committed  bool
		superseded *entity.RenderResult
	)
	_, err := r.Update(id, func(image *entity.Image) error {
		if image.Processed != nil && image.Processed.Seq >= result.Seq {
			return nil
		}
		superseded = image.Processed
		res := result
		image.Processed = &res
		committed = true
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return committed, superseded, nil
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		order:  make([]string, len(s.order), len(s.order)+1),
		images: make(map[string]entity.Image, len(s.images)+1),
	}
	copy(next.order, s.order)
	for id, img := range s.images {
		next.images[id] = img
	}
	return next
}
