package database

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImage(id string) entity.Image {
	return entity.Image{ID: id, Name: id, Spec: entity.DefaultRenderSpec()}
}

func TestGalleryAddListRemove(t *testing.T) {
	repo := NewGalleryRepository(0)

	require.NoError(t, repo.Add(newImage("a")))
	require.NoError(t, repo.Add(newImage("b")))
	require.NoError(t, repo.Add(newImage("c")))

	ids := func() []string {
		var out []string
		for _, img := range repo.List() {
			out = append(out, img.ID)
		}
		return out
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids())

	removed, err := repo.Remove("b")
	require.NoError(t, err)
	assert.Equal(t, "b", removed.ID)
	assert.Equal(t, []string{"a", "c"}, ids())
	assert.Equal(t, 2, repo.Count())

	_, err = repo.Remove("b")
	assert.ErrorIs(t, err, entity.ErrImageNotFound)
	_, err = repo.Get("b")
	assert.ErrorIs(t, err, entity.ErrImageNotFound)
}

func TestGalleryLimit(t *testing.T) {
	repo := NewGalleryRepository(2)

	require.NoError(t, repo.Add(newImage("a")))
	require.NoError(t, repo.Add(newImage("b")))
	assert.ErrorIs(t, repo.Add(newImage("c")), entity.ErrGalleryFull)

	_, err := repo.Remove("a")
	require.NoError(t, err)
	assert.NoError(t, repo.Add(newImage("c")))
}

func TestGalleryRejectsDuplicate(t *testing.T) {
	repo := NewGalleryRepository(0)
	require.NoError(t, repo.Add(newImage("a")))
	assert.ErrorIs(t, repo.Add(newImage("a")), entity.ErrInvalidInput)
}

func TestGalleryListIsSnapshot(t *testing.T) {
	repo := NewGalleryRepository(0)
	require.NoError(t, repo.Add(newImage("a")))

	before := repo.List()
	_, err := repo.Update("a", func(img *entity.Image) error {
		img.Name = "renamed"
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "a", before[0].Name)
	got, err := repo.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}

func TestGalleryUpdateError(t *testing.T) {
	repo := NewGalleryRepository(0)
	require.NoError(t, repo.Add(newImage("a")))

	boom := errors.New("boom")
	_, err := repo.Update("a", func(img *entity.Image) error {
		img.Name = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := repo.Get("a")
	assert.Equal(t, "a", got.Name)
}

func TestGalleryRenderSequencing(t *testing.T) {
	repo := NewGalleryRepository(0)
	require.NoError(t, repo.Add(newImage("a")))

	seq1, _, err := repo.BeginRender("a")
	require.NoError(t, err)
	seq2, _, err := repo.BeginRender("a")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq1)
	assert.Equal(t, uint64(2), seq2)

	// the newer render finishes first
	committed, superseded, err := repo.CompleteRender("a", entity.RenderResult{ImageID: "a", Seq: seq2, Ref: "/renders/a/2.jpg"})
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Nil(t, superseded)

	// the older one is stale
	committed, superseded, err = repo.CompleteRender("a", entity.RenderResult{ImageID: "a", Seq: seq1, Ref: "/renders/a/1.jpg"})
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Nil(t, superseded)

	got, _ := repo.Get("a")
	require.NotNil(t, got.Processed)
	assert.Equal(t, seq2, got.Processed.Seq)

	seq3, _, err := repo.BeginRender("a")
	require.NoError(t, err)
	committed, superseded, err = repo.CompleteRender("a", entity.RenderResult{ImageID: "a", Seq: seq3, Ref: "/renders/a/3.jpg"})
	require.NoError(t, err)
	assert.True(t, committed)
	require.NotNil(t, superseded)
	assert.Equal(t, "/renders/a/2.jpg", superseded.Ref)
}

func TestGalleryConcurrentRenders(t *testing.T) {
	repo := NewGalleryRepository(0)
	require.NoError(t, repo.Add(newImage("a")))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, _, err := repo.BeginRender("a")
			if err != nil {
				t.Error(err)
				return
			}
			_, _, _ = repo.CompleteRender("a", entity.RenderResult{ImageID: "a", Seq: seq, Ref: fmt.Sprint(seq)})
			_ = repo.List()
		}()
	}
	wg.Wait()

	got, _ := repo.Get("a")
	assert.Equal(t, uint64(n), got.RenderSeq)
	require.NotNil(t, got.Processed)
	assert.Equal(t, uint64(n), got.Processed.Seq)
}
