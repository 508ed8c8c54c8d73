package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/gabriel-vasile/mimetype"
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsValidImageName checks the upload file extension.
func IsValidImageName(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// DetectImageType sniffs the content type from the leading bytes and
// rejects anything that is not a supported raster image.
func DetectImageType(head []byte) (string, error) {
	mtype := mimetype.Detect(head).String()
	if !allowedTypes[mtype] {
		return "", fmt.Errorf("%w: %s", entity.ErrUnsupportedType, mtype)
	}
	return mtype, nil
}
