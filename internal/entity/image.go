package entity

import "time"

type ImageKind string

const (
	KindUpload    ImageKind = "upload"
	KindRandom    ImageKind = "random"
	KindGenerated ImageKind = "generated"
)

var GenerationStyles = []string{
	"Abstract",
	"Nature",
	"Minimalist",
	"Geometric",
	"Space",
	"Cyberpunk",
	"Watercolor",
	"Digital Art",
	"Photography",
	"Artistic",
}

// Image is a gallery entry: a source reference plus its per-image render spec.
// Ref is one of "blob:<id>", a remote http(s) URL or a "/placeholder?..." URL.
type Image struct {
	ID            string        `json:"id"`
	Ref           string        `json:"ref"`
	Name          string        `json:"name"`
	Size          int64         `json:"size"`
	Kind          ImageKind     `json:"kind"`
	DominantColor string        `json:"dominant_color,omitempty"`
	Spec          RenderSpec    `json:"spec"`
	Processed     *RenderResult `json:"processed,omitempty"`
	RenderSeq     uint64        `json:"render_seq"`
	CreatedAt     time.Time     `json:"created_at"`
}

// DownloadName is the attachment file name of the rendered wallpaper.
func (i Image) DownloadName() string {
	return "wallpaper_" + i.Name
}

type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type RandomImageRequest struct {
	Number    int  `json:"number"`
	Grayscale bool `json:"grayscale"`
}

type GenerateRequest struct {
	Style  string `json:"style"`
	Prompt string `json:"prompt"`
}

type RenderRequest struct {
	Resolution string `json:"resolution"`
}

type OptionsResponse struct {
	Resolutions      []string          `json:"resolutions"`
	DefaultRes       string            `json:"default_resolution"`
	CropModes        []CropMode        `json:"crop_modes"`
	Filters          []FilterPreset    `json:"filters"`
	Gradients        []GradientOverlay `json:"gradients"`
	FontFamilies     []string          `json:"font_families"`
	GenerationStyles []string          `json:"generation_styles"`
}
