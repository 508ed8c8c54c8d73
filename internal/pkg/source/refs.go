package source

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ds124wfegd/wallcraft/internal/pkg/compositor"
)

const (
	blobScheme      = "blob:"
	PlaceholderPath = "/placeholder"
)

func BlobRef(id string) string {
	return blobScheme + id
}

// ParseBlobRef returns the blob id of a "blob:<id>" reference.
func ParseBlobRef(ref string) (string, bool) {
	id, ok := strings.CutPrefix(ref, blobScheme)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// RandomRef builds the image-service URL of picture number at the given
// resolution: <base>/id/<N>/<W>/<H>[?grayscale].
func RandomRef(baseURL string, number int, res compositor.Resolution, grayscale bool) string {
	ref := fmt.Sprintf("%s/id/%d/%d/%d", strings.TrimRight(baseURL, "/"), number, res.Width, res.Height)
	if grayscale {
		ref += "?grayscale"
	}
	return ref
}

// PlaceholderRef builds the placeholder URL used by the generation stub.
func PlaceholderRef(res compositor.Resolution, query string) string {
	return fmt.Sprintf("%s?height=%d&width=%d&query=%s",
		PlaceholderPath, res.Height, res.Width, url.QueryEscape(query))
}

// ParsePlaceholderRef is the inverse of PlaceholderRef. Missing or invalid
// dimensions fall back to the default resolution.
func ParsePlaceholderRef(ref string) (width, height int, query string, ok bool) {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() || u.Path != PlaceholderPath {
		return 0, 0, "", false
	}

	def := compositor.ResolveResolution(compositor.DefaultResolutionName)
	values := u.Query()
	return positive(values.Get("width"), def.Width), positive(values.Get("height"), def.Height), values.Get("query"), true
}

// IsRemote reports whether ref is an absolute http(s) URL.
func IsRemote(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func positive(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
