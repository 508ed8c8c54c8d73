package entity

import (
	"fmt"
	"math"
	"slices"
	"time"
)

type CropMode string

const (
	CropFill    CropMode = "fill"
	CropFit     CropMode = "fit"
	CropStretch CropMode = "stretch"
	CropCenter  CropMode = "center"
	CropTile    CropMode = "tile"
)

var CropModes = []CropMode{CropFill, CropFit, CropStretch, CropCenter, CropTile}

type FilterPreset string

const (
	FilterNone      FilterPreset = "none"
	FilterVintage   FilterPreset = "vintage"
	FilterSepia     FilterPreset = "sepia"
	FilterNeon      FilterPreset = "neon"
	FilterDark      FilterPreset = "dark"
	FilterCool      FilterPreset = "cool"
	FilterWarm      FilterPreset = "warm"
	FilterGrayscale FilterPreset = "grayscale"
)

var FilterPresets = []FilterPreset{
	FilterNone, FilterVintage, FilterSepia, FilterNeon,
	FilterDark, FilterCool, FilterWarm, FilterGrayscale,
}

type GradientOverlay string

const (
	GradientNone   GradientOverlay = "none"
	GradientSunset GradientOverlay = "sunset"
	GradientOcean  GradientOverlay = "ocean"
	GradientForest GradientOverlay = "forest"
	GradientPurple GradientOverlay = "purple"
	GradientFire   GradientOverlay = "fire"
)

var GradientOverlays = []GradientOverlay{
	GradientNone, GradientSunset, GradientOcean, GradientForest, GradientPurple, GradientFire,
}

// Adjustments are percentage (or degree, or pixel) intensities of the base
// image filters. Values are user input and may be out of range; renderers
// work from Clamped().
type Adjustments struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Sharpness  float64 `json:"sharpness"`
	Hue        float64 `json:"hue"`
	Blur       float64 `json:"blur"`
	Vignette   float64 `json:"vignette"`
	Opacity    float64 `json:"opacity"`
}

func DefaultAdjustments() Adjustments {
	return Adjustments{
		Brightness: 100,
		Contrast:   100,
		Saturation: 100,
		Sharpness:  100,
		Hue:        0,
		Blur:       0,
		Vignette:   0,
		Opacity:    100,
	}
}

func (a Adjustments) WithBrightness(v float64) Adjustments {
	a.Brightness = v
	return a
}

func (a Adjustments) WithContrast(v float64) Adjustments {
	a.Contrast = v
	return a
}

func (a Adjustments) WithSaturation(v float64) Adjustments {
	a.Saturation = v
	return a
}

func (a Adjustments) WithSharpness(v float64) Adjustments {
	a.Sharpness = v
	return a
}

func (a Adjustments) WithHue(v float64) Adjustments {
	a.Hue = v
	return a
}

func (a Adjustments) WithBlur(v float64) Adjustments {
	a.Blur = v
	return a
}

func (a Adjustments) WithVignette(v float64) Adjustments {
	a.Vignette = v
	return a
}

func (a Adjustments) WithOpacity(v float64) Adjustments {
	a.Opacity = v
	return a
}

// AutoEnhanced returns the one-click enhancement used by the gallery.
func (a Adjustments) AutoEnhanced() Adjustments {
	return a.WithBrightness(110).WithContrast(115).WithSaturation(105).WithSharpness(110)
}

// Clamped limits every field to its UI range. NaN falls back to the default.
func (a Adjustments) Clamped() Adjustments {
	d := DefaultAdjustments()
	return Adjustments{
		Brightness: clamp(a.Brightness, 0, 200, d.Brightness),
		Contrast:   clamp(a.Contrast, 0, 200, d.Contrast),
		Saturation: clamp(a.Saturation, 0, 200, d.Saturation),
		Sharpness:  clamp(a.Sharpness, 0, 200, d.Sharpness),
		Hue:        clamp(a.Hue, -180, 180, d.Hue),
		Blur:       clamp(a.Blur, 0, 20, d.Blur),
		Vignette:   clamp(a.Vignette, 0, 100, d.Vignette),
		Opacity:    clamp(a.Opacity, 0, 100, d.Opacity),
	}
}

// AdjustmentsPatch is a partial update; nil fields are left unchanged.
type AdjustmentsPatch struct {
	Brightness *float64 `json:"brightness,omitempty"`
	Contrast   *float64 `json:"contrast,omitempty"`
	Saturation *float64 `json:"saturation,omitempty"`
	Sharpness  *float64 `json:"sharpness,omitempty"`
	Hue        *float64 `json:"hue,omitempty"`
	Blur       *float64 `json:"blur,omitempty"`
	Vignette   *float64 `json:"vignette,omitempty"`
	Opacity    *float64 `json:"opacity,omitempty"`
}

func (a Adjustments) Merge(p AdjustmentsPatch) Adjustments {
	if p.Brightness != nil {
		a = a.WithBrightness(*p.Brightness)
	}
	if p.Contrast != nil {
		a = a.WithContrast(*p.Contrast)
	}
	if p.Saturation != nil {
		a = a.WithSaturation(*p.Saturation)
	}
	if p.Sharpness != nil {
		a = a.WithSharpness(*p.Sharpness)
	}
	if p.Hue != nil {
		a = a.WithHue(*p.Hue)
	}
	if p.Blur != nil {
		a = a.WithBlur(*p.Blur)
	}
	if p.Vignette != nil {
		a = a.WithVignette(*p.Vignette)
	}
	if p.Opacity != nil {
		a = a.WithOpacity(*p.Opacity)
	}
	return a
}

// TextOverlay is a single line of text positioned in percent of the canvas.
type TextOverlay struct {
	Text        string  `json:"text"`
	FontSize    int     `json:"font_size"`
	FontFamily  string  `json:"font_family"`
	Color       string  `json:"color"`
	StrokeColor string  `json:"stroke_color"`
	StrokeWidth int     `json:"stroke_width"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Rotation    float64 `json:"rotation"`
	Opacity     float64 `json:"opacity"`
}

func DefaultTextOverlay() TextOverlay {
	return TextOverlay{
		FontSize:    48,
		FontFamily:  "Arial",
		Color:       "#ffffff",
		StrokeColor: "#000000",
		StrokeWidth: 2,
		X:           50,
		Y:           80,
		Rotation:    0,
		Opacity:     100,
	}
}

// Visible reports whether the overlay has anything to draw.
func (t *TextOverlay) Visible() bool {
	return t != nil && t.Text != ""
}

type TextOverlayPatch struct {
	Text        *string  `json:"text,omitempty"`
	FontSize    *int     `json:"font_size,omitempty"`
	FontFamily  *string  `json:"font_family,omitempty"`
	Color       *string  `json:"color,omitempty"`
	StrokeColor *string  `json:"stroke_color,omitempty"`
	StrokeWidth *int     `json:"stroke_width,omitempty"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Rotation    *float64 `json:"rotation,omitempty"`
	Opacity     *float64 `json:"opacity,omitempty"`
}

// Merge applies p on top of t. A nil receiver starts from the editor defaults.
// The result is nil once the text is empty.
func (t *TextOverlay) Merge(p TextOverlayPatch) *TextOverlay {
	out := DefaultTextOverlay()
	if t != nil {
		out = *t
	}
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.FontSize != nil {
		out.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		out.FontFamily = *p.FontFamily
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	if p.StrokeColor != nil {
		out.StrokeColor = *p.StrokeColor
	}
	if p.StrokeWidth != nil {
		out.StrokeWidth = max(*p.StrokeWidth, 0)
	}
	if p.X != nil {
		out.X = *p.X
	}
	if p.Y != nil {
		out.Y = *p.Y
	}
	if p.Rotation != nil {
		out.Rotation = *p.Rotation
	}
	if p.Opacity != nil {
		out.Opacity = *p.Opacity
	}
	if out.Text == "" {
		return nil
	}
	return &out
}

// RenderSpec is everything the compositor needs besides the pixels and the
// target resolution.
type RenderSpec struct {
	CropMode        CropMode        `json:"crop_mode"`
	Filter          FilterPreset    `json:"filter"`
	Adjustments     Adjustments     `json:"adjustments"`
	TextOverlay     *TextOverlay    `json:"text_overlay,omitempty"`
	GradientOverlay GradientOverlay `json:"gradient_overlay"`
}

func DefaultRenderSpec() RenderSpec {
	return RenderSpec{
		CropMode:        CropFill,
		Filter:          FilterNone,
		Adjustments:     DefaultAdjustments(),
		GradientOverlay: GradientNone,
	}
}

type RenderSpecPatch struct {
	CropMode        *CropMode         `json:"crop_mode,omitempty"`
	Filter          *FilterPreset     `json:"filter,omitempty"`
	Adjustments     *AdjustmentsPatch `json:"adjustments,omitempty"`
	TextOverlay     *TextOverlayPatch `json:"text_overlay,omitempty"`
	GradientOverlay *GradientOverlay  `json:"gradient_overlay,omitempty"`
}

// Text overlay limits in pixels.
const (
	MaxFontSize    = 512
	MaxStrokeWidth = 64
)

// Validate rejects enum values outside the offered sets and text sizes
// outside the limits above.
func (p RenderSpecPatch) Validate() error {
	if p.CropMode != nil && !slices.Contains(CropModes, *p.CropMode) {
		return fmt.Errorf("%w: crop mode %q", ErrInvalidInput, *p.CropMode)
	}
	if p.Filter != nil && !slices.Contains(FilterPresets, *p.Filter) {
		return fmt.Errorf("%w: filter %q", ErrInvalidInput, *p.Filter)
	}
	if p.GradientOverlay != nil && !slices.Contains(GradientOverlays, *p.GradientOverlay) {
		return fmt.Errorf("%w: gradient overlay %q", ErrInvalidInput, *p.GradientOverlay)
	}
	if t := p.TextOverlay; t != nil {
		if t.FontSize != nil && (*t.FontSize <= 0 || *t.FontSize > MaxFontSize) {
			return fmt.Errorf("%w: font size %d, want 1..%d", ErrInvalidInput, *t.FontSize, MaxFontSize)
		}
		if t.StrokeWidth != nil && (*t.StrokeWidth < 0 || *t.StrokeWidth > MaxStrokeWidth) {
			return fmt.Errorf("%w: stroke width %d, want 0..%d", ErrInvalidInput, *t.StrokeWidth, MaxStrokeWidth)
		}
	}
	return nil
}

func (s RenderSpec) Merge(p RenderSpecPatch) RenderSpec {
	if p.CropMode != nil {
		s.CropMode = *p.CropMode
	}
	if p.Filter != nil {
		s.Filter = *p.Filter
	}
	if p.Adjustments != nil {
		s.Adjustments = s.Adjustments.Merge(*p.Adjustments)
	}
	if p.TextOverlay != nil {
		s.TextOverlay = s.TextOverlay.Merge(*p.TextOverlay)
	}
	if p.GradientOverlay != nil {
		s.GradientOverlay = *p.GradientOverlay
	}
	return s
}

// RenderResult is a produced (or degraded) wallpaper. When Degraded is set,
// Ref is the unprocessed source reference and Reason says why.
type RenderResult struct {
	ImageID     string    `json:"image_id"`
	Seq         uint64    `json:"seq"`
	Ref         string    `json:"ref"`
	ContentType string    `json:"content_type,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Degraded    bool      `json:"degraded"`
	Reason      string    `json:"reason,omitempty"`
	RenderedAt  time.Time `json:"rendered_at"`
}

func clamp(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return math.Max(lo, math.Min(hi, v))
}
