package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapBlobs map[string][]byte

func (m mapBlobs) OpenBlob(id string) (io.ReadCloser, error) {
	data, ok := m[id]
	if !ok {
		return nil, entity.ErrImageNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type stubPlaceholder struct {
	width, height int
	query         string
}

func (s *stubPlaceholder) Render(width, height int, query string) ([]byte, error) {
	s.width, s.height, s.query = width, height, query
	return []byte("placeholder"), nil
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestOpenerBlob(t *testing.T) {
	o := NewOpener(mapBlobs{"one": []byte("bytes")}, nil, nil, 0)

	rc, err := o.Open(context.Background(), "blob:one")
	require.NoError(t, err)
	assert.Equal(t, "bytes", readAll(t, rc))

	_, err = o.Open(context.Background(), "blob:missing")
	assert.ErrorIs(t, err, entity.ErrImageNotFound)
}

func TestOpenerPlaceholder(t *testing.T) {
	stub := &stubPlaceholder{}
	o := NewOpener(nil, stub, nil, 0)

	rc, err := o.Open(context.Background(), "/placeholder?height=900&width=1440&query=Nature+lake")
	require.NoError(t, err)
	assert.Equal(t, "placeholder", readAll(t, rc))
	assert.Equal(t, 1440, stub.width)
	assert.Equal(t, 900, stub.height)
	assert.Equal(t, "Nature lake", stub.query)
}

func TestOpenerRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/id/1/10/10":
			_, _ = w.Write([]byte("remote image"))
		case "/big":
			_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := NewOpener(nil, nil, srv.Client(), 32)

	t.Run("ok", func(t *testing.T) {
		rc, err := o.Open(context.Background(), srv.URL+"/id/1/10/10")
		require.NoError(t, err)
		assert.Equal(t, "remote image", readAll(t, rc))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := o.Open(context.Background(), srv.URL+"/nope")
		assert.ErrorContains(t, err, "unexpected status 404")
	})

	t.Run("too large", func(t *testing.T) {
		_, err := o.Open(context.Background(), srv.URL+"/big")
		assert.ErrorContains(t, err, "exceeds 32 bytes")
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := o.Open(ctx, srv.URL+"/slow")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestOpenerUnsupported(t *testing.T) {
	o := NewOpener(nil, nil, nil, 0)

	_, err := o.Open(context.Background(), "ftp://host/file.jpg")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = o.Open(context.Background(), "blob:one")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}
