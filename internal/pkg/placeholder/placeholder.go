// Placeholder images for the generation stub: a deterministic two-colour
// gradient picked from the query plus the query itself as a caption.
package placeholder

import (
	"bytes"
	"hash/fnv"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/wallcraft/internal/pkg/compositor"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	MaxSide        = 4096
	maxCaptionRune = 60
)

type Renderer struct {
	fonts *compositor.FontManager
}

func NewRenderer(fonts *compositor.FontManager) *Renderer {
	return &Renderer{fonts: fonts}
}

// Palette returns the two gradient colours for query. The same query always
// yields the same pair.
func Palette(query string) (colorful.Color, colorful.Color) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	sum := h.Sum32()

	hue := float64(sum%360)
	shift := 40 + float64((sum>>9)%100)
	from := colorful.Hsv(hue, 0.65, 0.85)
	to := colorful.Hsv(math.Mod(hue+shift, 360), 0.75, 0.45)
	return from, to
}

// Image draws the placeholder at width x height (each clamped to 1..MaxSide).
func (r *Renderer) Image(width, height int, query string) *image.NRGBA {
	width = min(max(width, 1), MaxSide)
	height = min(max(height, 1), MaxSide)

	from, to := Palette(query)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	// vertical blend in HCL keeps the midpoint saturated
	for y := 0; y < height; y++ {
		t := 0.0
		if height > 1 {
			t = float64(y) / float64(height-1)
		}
		cr, cg, cb := from.BlendHcl(to, t).Clamped().RGB255()
		c := color.NRGBA{R: cr, G: cg, B: cb, A: 255}
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < len(row); x += 4 {
			row[x], row[x+1], row[x+2], row[x+3] = c.R, c.G, c.B, c.A
		}
	}

	caption := captionFor(query)
	if caption == "" || r.fonts == nil {
		return img
	}

	pass := &compositor.TextPass{
		Text:    caption,
		Size:    math.Max(12, float64(min(width, height))/16),
		AnchorX: float64(width) / 2,
		AnchorY: float64(height) / 2,
		Alpha:   0.9,
		Paints: []compositor.TextPaint{
			{Kind: compositor.PaintStroke, Color: "#000000", Width: 2},
			{Kind: compositor.PaintFill, Color: "#ffffff"},
		},
	}
	if withText, err := compositor.DrawText(img, pass, r.fonts); err == nil {
		img = withText
	}
	return img
}

// Render encodes Image as PNG.
func (r *Renderer) Render(width, height int, query string) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, r.Image(width, height, query), imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func captionFor(query string) string {
	caption := []rune(strings.TrimSpace(query))
	if len(caption) > maxCaptionRune {
		return string(caption[:maxCaptionRune]) + "..."
	}
	return string(caption)
}
