package compositor

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/wallcraft/internal/entity"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	gradientAlpha = 0.3
	gradientSteps = 256
)

// GradientPass is a full-canvas diagonal gradient from the top-left corner
// (From) to the bottom-right corner (To).
type GradientPass struct {
	Kind  entity.GradientOverlay `json:"kind"`
	From  string                 `json:"from"`
	To    string                 `json:"to"`
	Alpha float64                `json:"alpha"`
}

// NewGradientPass returns nil for none and for unknown kinds.
func NewGradientPass(kind entity.GradientOverlay) *GradientPass {
	stops, ok := gradientStops[kind]
	if !ok {
		return nil
	}
	return &GradientPass{Kind: kind, From: stops[0], To: stops[1], Alpha: gradientAlpha}
}

// DrawGradient blends the gradient over canvas in place.
func DrawGradient(canvas *image.NRGBA, pass *GradientPass) {
	if pass == nil {
		return
	}
	ramp := gradientRamp(pass.From, pass.To, gradientSteps)
	if ramp == nil {
		return
	}

	b := canvas.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	norm := w*w + h*h
	if norm == 0 {
		return
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// projection of the pixel centre on the (0,0)->(w,h) axis
			px, py := float64(x-b.Min.X)+0.5, float64(y-b.Min.Y)+0.5
			t := unit((px*w + py*h) / norm)
			c := ramp[int(math.Round(t*float64(gradientSteps-1)))]
			blendOver(canvas, x, y, c.R, c.G, c.B, pass.Alpha)
		}
	}
}

type PaintKind string

const (
	PaintStroke PaintKind = "stroke"
	PaintFill   PaintKind = "fill"
)

// TextPaint is one pass of a text overlay. Passes are painted in order.
type TextPaint struct {
	Kind  PaintKind `json:"kind"`
	Color string    `json:"color"`
	Width int       `json:"width,omitempty"`
}

// TextPass is a single line of text centred on (AnchorX, AnchorY) in canvas
// pixels and rotated clockwise by Rotation degrees about that point.
type TextPass struct {
	Text     string      `json:"text"`
	Family   string      `json:"family"`
	Size     float64     `json:"size"`
	AnchorX  float64     `json:"anchor_x"`
	AnchorY  float64     `json:"anchor_y"`
	Rotation float64     `json:"rotation"`
	Alpha    float64     `json:"alpha"`
	Paints   []TextPaint `json:"paints"`
}

// NewTextPass resolves overlay against a w x h canvas. Nil or empty text
// yields nil. Size and stroke width are clamped to the overlay limits.
func NewTextPass(overlay *entity.TextOverlay, w, h int) *TextPass {
	if !overlay.Visible() {
		return nil
	}

	size := float64(overlay.FontSize)
	if size <= 0 {
		size = float64(entity.DefaultTextOverlay().FontSize)
	}

	pass := &TextPass{
		Text:     truncateRunes(overlay.Text, maxTextRunes),
		Family:   overlay.FontFamily,
		Size:     math.Min(size, entity.MaxFontSize),
		AnchorX:  overlay.X / 100 * float64(w),
		AnchorY:  overlay.Y / 100 * float64(h),
		Rotation: overlay.Rotation,
		Alpha:    unit(overlay.Opacity / 100),
	}
	if overlay.StrokeWidth > 0 {
		pass.Paints = append(pass.Paints, TextPaint{
			Kind:  PaintStroke,
			Color: overlay.StrokeColor,
			Width: min(overlay.StrokeWidth, entity.MaxStrokeWidth),
		})
	}
	pass.Paints = append(pass.Paints, TextPaint{Kind: PaintFill, Color: overlay.Color})
	return pass
}

const maxTextRunes = 200

// DrawText renders pass onto canvas and returns the result.
func DrawText(canvas *image.NRGBA, pass *TextPass, fonts *FontManager) (*image.NRGBA, error) {
	if pass == nil || pass.Text == "" || pass.Alpha <= 0 {
		return canvas, nil
	}

	size := math.Max(1, math.Min(pass.Size, entity.MaxFontSize))
	face, err := fonts.Face(pass.Family, size)
	if err != nil {
		return canvas, err
	}
	defer face.Close()

	layer := textLayer(face, pass, reach(canvas.Bounds(), pass.AnchorX, pass.AnchorY))
	if pass.Rotation != 0 {
		// imaging rotates counter-clockwise
		layer = imaging.Rotate(layer, -pass.Rotation, color.Transparent)
	}

	lb := layer.Bounds()
	pos := image.Pt(
		int(math.Round(pass.AnchorX-float64(lb.Dx())/2)),
		int(math.Round(pass.AnchorY-float64(lb.Dy())/2)),
	)
	return imaging.Overlay(canvas, layer, pos, pass.Alpha), nil
}

// reach is the distance from (x,y) to the farthest canvas corner: text
// farther than that from its anchor never lands on the canvas, whatever
// the rotation.
func reach(b image.Rectangle, x, y float64) int {
	d := 0.0
	for _, c := range []image.Point{b.Min, {b.Max.X, b.Min.Y}, {b.Min.X, b.Max.Y}, b.Max} {
		d = math.Max(d, math.Hypot(float64(c.X)-x, float64(c.Y)-y))
	}
	return int(math.Ceil(d)) + 1
}

// textLayer paints every pass of the text on a transparent layer whose
// centre is the centre of the text box. The layer is at most 2*reach wide;
// text beyond that is cut off.
func textLayer(face font.Face, pass *TextPass, reach int) *image.NRGBA {
	radius := 0.0
	for _, p := range pass.Paints {
		if p.Kind == PaintStroke && p.Width > 0 {
			radius = math.Max(radius, strokeRadius(p.Width))
		}
	}

	metrics := face.Metrics()
	ascent, descent := metrics.Ascent.Ceil(), metrics.Descent.Ceil()
	advance := font.MeasureString(face, pass.Text).Ceil()

	visible := advance
	if reach > 0 && advance > 2*reach {
		visible = 2 * reach
	}
	shift := (advance - visible) / 2

	pad := int(math.Ceil(radius)) + 2
	w, h := visible+2*pad, ascent+descent+2*pad
	layer := image.NewNRGBA(image.Rect(0, 0, w, h))

	glyphs := image.NewAlpha(layer.Bounds())
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(pad-shift, pad+ascent),
	}
	d.DrawString(pass.Text)

	for _, p := range pass.Paints {
		mask := glyphs
		if p.Kind == PaintStroke {
			if p.Width <= 0 {
				continue
			}
			mask = strokeMask(glyphs, strokeRadius(p.Width))
		}
		draw.DrawMask(layer, layer.Bounds(), image.NewUniform(ParseColor(p.Color)), image.Point{}, mask, image.Point{}, draw.Over)
	}
	return layer
}

// strokeRadius is how far a stroke of the given width reaches outside the
// glyph edge: half the width, at least one pixel.
func strokeRadius(width int) float64 {
	return math.Max(1, float64(min(width, entity.MaxStrokeWidth))/2)
}

// strokeMask grows the glyph coverage by radius: a pixel at distance d
// from the nearest glyph pixel gets coverage radius+0.5-d, so the outline
// stays antialiased. The cost is linear in the mask area.
func strokeMask(glyphs *image.Alpha, radius float64) *image.Alpha {
	b := glyphs.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewAlpha(b)
	if w == 0 || h == 0 {
		return out
	}

	dist := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if glyphs.Pix[y*glyphs.Stride+x] >= 128 {
				dist[y*w+x] = 0
			} else {
				dist[y*w+x] = farAway
			}
		}
	}
	squaredDistance(dist, w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := unit(radius + 0.5 - math.Sqrt(dist[y*w+x]))
			g := float64(glyphs.Pix[y*glyphs.Stride+x]) / 255
			out.Pix[y*out.Stride+x] = uint8(math.Round(math.Max(a, g) * 255))
		}
	}
	return out
}

const farAway = 1e20

// squaredDistance replaces every cell of grid (0 on glyph pixels, farAway
// elsewhere) with the squared euclidean distance to the nearest glyph pixel.
// Felzenszwalb-Huttenlocher: one 1-D pass over columns, then over rows.
func squaredDistance(grid []float64, w, h int) {
	n := max(w, h)
	f := make([]float64, n)
	d := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			f[y] = grid[y*w+x]
		}
		distance1D(f[:h], d[:h], v, z)
		for y := 0; y < h; y++ {
			grid[y*w+x] = d[y]
		}
	}
	for y := 0; y < h; y++ {
		row := grid[y*w : (y+1)*w]
		copy(f, row)
		distance1D(f[:w], d[:w], v, z)
		copy(row, d[:w])
	}
}

// distance1D computes d[q] = min over p of (q-p)^2 + f[p] with the lower
// envelope of parabolas.
func distance1D(f, d []float64, v []int, z []float64) {
	n := len(f)
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)

	for q := 1; q < n; q++ {
		s := intersect(f, q, v[k])
		for s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}

func intersect(f []float64, q, p int) float64 {
	fq, fp := float64(q), float64(p)
	return ((f[q] + fq*fq) - (f[p] + fp*fp)) / (2*fq - 2*fp)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// VignettePass is a radial darkening centred on the canvas: transparent at
// the centre, OuterAlpha black from Radius outwards.
type VignettePass struct {
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	Radius     float64 `json:"radius"`
	OuterAlpha float64 `json:"outer_alpha"`
}

// NewVignettePass returns nil when vignette (0..100) is not positive.
func NewVignettePass(vignette float64, w, h int) *VignettePass {
	if !(vignette > 0) || w <= 0 || h <= 0 {
		return nil
	}
	return &VignettePass{
		CenterX:    float64(w) / 2,
		CenterY:    float64(h) / 2,
		Radius:     float64(max(w, h)) / 2,
		OuterAlpha: unit(vignette / 100),
	}
}

func DrawVignette(canvas *image.NRGBA, pass *VignettePass) {
	if pass == nil || pass.Radius <= 0 {
		return
	}

	b := canvas.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		dy := float64(y-b.Min.Y) + 0.5 - pass.CenterY
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x-b.Min.X) + 0.5 - pass.CenterX
			t := math.Min(1, math.Hypot(dx, dy)/pass.Radius)
			blendOver(canvas, x, y, 0, 0, 0, pass.OuterAlpha*t)
		}
	}
}

// blendOver composites an (r,g,b) source of coverage a over the pixel at
// (x,y) with the source-over operator.
func blendOver(dst *image.NRGBA, x, y int, r, g, b uint8, a float64) {
	if a <= 0 {
		return
	}
	i := dst.PixOffset(x, y)
	p := dst.Pix[i : i+4 : i+4]

	da := float64(p[3]) / 255
	outA := a + da*(1-a)
	if outA == 0 {
		return
	}
	mix := func(s, d uint8) uint8 {
		v := (float64(s)*a + float64(d)*da*(1-a)) / outA
		return uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	p[0] = mix(r, p[0])
	p[1] = mix(g, p[1])
	p[2] = mix(b, p[2])
	p[3] = uint8(math.Round(outA * 255))
}
