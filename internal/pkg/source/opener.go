package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ds124wfegd/wallcraft/internal/entity"
)

// BlobReader opens uploaded bytes by blob id.
type BlobReader interface {
	OpenBlob(id string) (io.ReadCloser, error)
}

// PlaceholderRenderer draws the generation stub image for a query.
type PlaceholderRenderer interface {
	Render(width, height int, query string) ([]byte, error)
}

// Opener resolves every kind of source reference to encoded image bytes.
type Opener struct {
	blobs       BlobReader
	placeholder PlaceholderRenderer
	client      *http.Client
	maxBytes    int64
}

func NewOpener(blobs BlobReader, placeholder PlaceholderRenderer, client *http.Client, maxBytes int64) *Opener {
	if client == nil {
		client = http.DefaultClient
	}
	return &Opener{
		blobs:       blobs,
		placeholder: placeholder,
		client:      client,
		maxBytes:    maxBytes,
	}
}

func (o *Opener) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if id, ok := ParseBlobRef(ref); ok {
		if o.blobs == nil {
			return nil, fmt.Errorf("%w: no blob storage for %q", entity.ErrInvalidInput, ref)
		}
		return o.blobs.OpenBlob(id)
	}

	if w, h, query, ok := ParsePlaceholderRef(ref); ok {
		if o.placeholder == nil {
			return nil, fmt.Errorf("%w: no placeholder renderer for %q", entity.ErrInvalidInput, ref)
		}
		data, err := o.placeholder.Render(w, h, query)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	if IsRemote(ref) {
		return o.fetch(ctx, ref)
	}

	return nil, fmt.Errorf("%w: unsupported source reference %q", entity.ErrInvalidInput, ref)
}

func (o *Opener) fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", ref, resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if o.maxBytes > 0 {
		body = io.LimitReader(resp.Body, o.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if o.maxBytes > 0 && int64(len(data)) > o.maxBytes {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", ref, o.maxBytes)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}
