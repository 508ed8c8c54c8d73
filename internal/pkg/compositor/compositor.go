package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	ContentTypeJPEG    = "image/jpeg"
	DefaultJPEGQuality = 90
	// DefaultMaxPixels bounds width*height of any decoded source.
	DefaultMaxPixels = 50_000_000
)

var ErrTooManyPixels = errors.New("image exceeds pixel limit")

type Options struct {
	DecodeTimeout time.Duration
	// EncodeTimeout bounds composition plus JPEG encoding.
	EncodeTimeout time.Duration
	JPEGQuality   int
	FontsDir      string
	MaxPixels     int
}

// SourceOpener resolves a source reference (blob id, URL, placeholder) to
// its encoded bytes.
type SourceOpener interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Plan is the declarative description of one render: everything that will
// be drawn on the canvas, in order.
type Plan struct {
	Resolution Resolution      `json:"resolution"`
	CropMode   entity.CropMode `json:"crop_mode"`
	Rect       DrawRect        `json:"rect"`
	Tile       bool            `json:"tile"`
	Sharpness  float64         `json:"sharpness"`
	Filters    []FilterOp      `json:"filters"`
	Gradient   *GradientPass   `json:"gradient,omitempty"`
	Text       *TextPass       `json:"text,omitempty"`
	Vignette   *VignettePass   `json:"vignette,omitempty"`
}

// Output is the result of Render. A non-nil Err marks a degraded render:
// Data is empty and callers fall back to the source reference.
type Output struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Plan        Plan
	Err         error
}

func (o Output) Degraded() bool {
	return o.Err != nil
}

type Compositor struct {
	opts  Options
	fonts *FontManager
}

func New(opts Options) (*Compositor, error) {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if opts.DecodeTimeout <= 0 {
		opts.DecodeTimeout = 15 * time.Second
	}
	if opts.EncodeTimeout <= 0 {
		opts.EncodeTimeout = 30 * time.Second
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}

	fonts, err := NewFontManager(opts.FontsDir)
	if err != nil {
		return nil, err
	}
	return &Compositor{opts: opts, fonts: fonts}, nil
}

// Fonts is the face cache shared with other text renderers.
func (c *Compositor) Fonts() *FontManager {
	return c.fonts
}

// Plan resolves spec against a srcW x srcH source and the target resolution.
// Adjustments are clamped first, so any spec yields a drawable plan.
func (c *Compositor) Plan(spec entity.RenderSpec, srcW, srcH int, res Resolution) Plan {
	adj := spec.Adjustments.Clamped()
	rect := ComputeDrawRect(srcW, srcH, res.Width, res.Height, spec.CropMode)

	return Plan{
		Resolution: res,
		CropMode:   spec.CropMode,
		Rect:       rect,
		Tile:       spec.CropMode == entity.CropTile && !rect.Empty(),
		Sharpness:  adj.Sharpness,
		Filters:    BuildFilterChain(adj, spec.Filter),
		Gradient:   NewGradientPass(spec.GradientOverlay),
		Text:       NewTextPass(spec.TextOverlay, res.Width, res.Height),
		Vignette:   NewVignettePass(adj.Vignette, res.Width, res.Height),
	}
}

// Compose draws plan on a fresh opaque black canvas of the plan resolution.
// src may be nil, in which case only the overlays are drawn.
func (c *Compositor) Compose(src image.Image, plan Plan) *image.NRGBA {
	canvas, _ := c.compose(context.Background(), src, plan)
	return canvas
}

// compose stops between drawing stages once ctx is done.
func (c *Compositor) compose(ctx context.Context, src image.Image, plan Plan) (*image.NRGBA, error) {
	res := plan.Resolution
	canvas := imaging.New(res.Width, res.Height, color.NRGBA{A: 255})

	if src != nil && !plan.Rect.Empty() {
		if plan.Tile {
			canvas = drawTiled(canvas, src, plan)
		} else {
			canvas = drawScaled(canvas, src, plan)
		}
	}
	if err := ctx.Err(); err != nil {
		return canvas, err
	}

	DrawGradient(canvas, plan.Gradient)

	if plan.Text != nil {
		withText, err := DrawText(canvas, plan.Text, c.fonts)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"font_family": plan.Text.Family,
				"error":       err,
			}).Warn("text overlay skipped")
		} else {
			canvas = withText
		}
	}
	if err := ctx.Err(); err != nil {
		return canvas, err
	}

	DrawVignette(canvas, plan.Vignette)
	return canvas, ctx.Err()
}

// CheckPixels reads the image header from r and rejects pictures larger
// than maxPixels. maxPixels <= 0 means DefaultMaxPixels.
func CheckPixels(r io.Reader, maxPixels int) (image.Config, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return cfg, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return cfg, fmt.Errorf("%w: %dx%d, limit %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}
	return cfg, nil
}

// Render runs the whole pipeline for img at the named resolution. It never
// returns an error: failures come back as a degraded Output whose Err wraps
// entity.ErrDecode, entity.ErrEncode or entity.ErrTimeout.
func (c *Compositor) Render(ctx context.Context, opener SourceOpener, img entity.Image, resolution string) Output {
	res := ResolveResolution(resolution)

	src, err := c.decode(ctx, opener, img.Ref)
	if err != nil {
		return Output{Plan: c.Plan(img.Spec, 0, 0, res), Err: err}
	}

	b := src.Bounds()
	plan := c.Plan(img.Spec, b.Dx(), b.Dy(), res)

	data, err := c.encode(ctx, src, plan)
	if err != nil {
		return Output{Plan: plan, Err: err}
	}

	return Output{
		Data:        data,
		ContentType: ContentTypeJPEG,
		Width:       res.Width,
		Height:      res.Height,
		Plan:        plan,
	}
}

type decoded struct {
	img image.Image
	err error
}

func (c *Compositor) decode(ctx context.Context, opener SourceOpener, ref string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.DecodeTimeout)
	defer cancel()

	done := make(chan decoded, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- decoded{err: fmt.Errorf("%w: panic: %v", entity.ErrDecode, r)}
			}
		}()

		rc, err := opener.Open(ctx, ref)
		if err != nil {
			done <- decoded{err: classify(entity.ErrDecode, err)}
			return
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			done <- decoded{err: classify(entity.ErrDecode, err)}
			return
		}
		if _, err := CheckPixels(bytes.NewReader(data), c.opts.MaxPixels); err != nil {
			done <- decoded{err: classify(entity.ErrDecode, err)}
			return
		}

		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			done <- decoded{err: classify(entity.ErrDecode, err)}
			return
		}
		done <- decoded{img: img}
	}()

	select {
	case d := <-done:
		return d.img, d.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: decode: %w", entity.ErrTimeout, ctx.Err())
	}
}

type encoded struct {
	data []byte
	err  error
}

func (c *Compositor) encode(ctx context.Context, src image.Image, plan Plan) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.EncodeTimeout)
	defer cancel()

	done := make(chan encoded, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- encoded{err: fmt.Errorf("%w: panic: %v", entity.ErrEncode, r)}
			}
		}()

		canvas, err := c.compose(ctx, src, plan)
		if err != nil {
			done <- encoded{err: fmt.Errorf("%w: compose: %w", entity.ErrTimeout, err)}
			return
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(c.opts.JPEGQuality)); err != nil {
			done <- encoded{err: fmt.Errorf("%w: %w", entity.ErrEncode, err)}
			return
		}
		done <- encoded{data: buf.Bytes()}
	}()

	select {
	case e := <-done:
		return e.data, e.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: encode: %w", entity.ErrTimeout, ctx.Err())
	}
}

// classify wraps err with kind unless it is a deadline, which is a timeout.
func classify(kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, entity.ErrTimeout) {
		return fmt.Errorf("%w: %w", entity.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// drawScaled scales src into plan.Rect and draws it. Only the part of the
// source that can reach the canvas (plus a margin for the blur kernels) is
// resized and filtered. The part is padded with transparent pixels so that
// blur spreads past the edges of the rect.
func drawScaled(canvas *image.NRGBA, src image.Image, plan Plan) *image.NRGBA {
	r := plan.Rect
	x, y := int(math.Round(r.X)), int(math.Round(r.Y))
	w, h := max(1, int(math.Round(r.W))), max(1, int(math.Round(r.H)))

	margin := kernelMargin(plan)
	cb := canvas.Bounds()
	visible := image.Rect(-x, -y, -x+cb.Dx(), -y+cb.Dy()).Inset(-margin).Intersect(image.Rect(0, 0, w, h))
	if visible.Empty() {
		return canvas
	}

	part := scaledRegion(src, w, h, visible)
	padded := image.NewNRGBA(image.Rect(0, 0, part.Bounds().Dx()+2*margin, part.Bounds().Dy()+2*margin))
	draw.Draw(padded, part.Bounds().Add(image.Pt(margin, margin)), part, image.Point{}, draw.Src)

	part = applySharpness(padded, plan.Sharpness)
	part = ApplyFilterChain(part, plan.Filters)

	return imaging.Overlay(canvas, part, image.Pt(x+visible.Min.X-margin, y+visible.Min.Y-margin), 1)
}

// scaledRegion returns the visible rectangle of src scaled to w x h without
// resizing the rest of src.
func scaledRegion(src image.Image, w, h int, visible image.Rectangle) *image.NRGBA {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return imaging.Crop(src, visible.Add(b.Min))
	}

	sx, sy := float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy())
	// source pixels a Lanczos kernel reaches at this scale
	padX := int(math.Ceil(lanczosSupport*math.Max(1, 1/sx))) + 1
	padY := int(math.Ceil(lanczosSupport*math.Max(1, 1/sy))) + 1

	region := image.Rect(
		int(math.Floor(float64(visible.Min.X)/sx))-padX,
		int(math.Floor(float64(visible.Min.Y)/sy))-padY,
		int(math.Ceil(float64(visible.Max.X)/sx))+padX,
		int(math.Ceil(float64(visible.Max.Y)/sy))+padY,
	).Intersect(image.Rect(0, 0, b.Dx(), b.Dy()))

	// scaled position of the region, rounded the same way at both ends
	at := image.Rect(
		int(math.Round(float64(region.Min.X)*sx)),
		int(math.Round(float64(region.Min.Y)*sy)),
		int(math.Round(float64(region.Max.X)*sx)),
		int(math.Round(float64(region.Max.Y)*sy)),
	)
	scaled := imaging.Resize(imaging.Crop(src, region.Add(b.Min)), max(1, at.Dx()), max(1, at.Dy()), imaging.Lanczos)
	return imaging.Crop(scaled, visible.Sub(at.Min))
}

const lanczosSupport = 3.0

// drawTiled repeats the filtered source at native size from the canvas
// origin until the canvas is covered. A source larger than the canvas never
// repeats, so only its top-left corner is filtered.
func drawTiled(canvas *image.NRGBA, src image.Image, plan Plan) *image.NRGBA {
	cb := canvas.Bounds()
	sb := src.Bounds()
	margin := kernelMargin(plan)
	cellRect := image.Rect(0, 0, sb.Dx(), sb.Dy())
	if sb.Dx() > cb.Dx()+margin {
		cellRect.Max.X = cb.Dx() + margin
	}
	if sb.Dy() > cb.Dy()+margin {
		cellRect.Max.Y = cb.Dy() + margin
	}

	cell := applySharpness(imaging.Crop(src, cellRect.Add(sb.Min)), plan.Sharpness)
	cell = ApplyFilterChain(cell, plan.Filters)

	layer := image.NewNRGBA(image.Rect(0, 0, cb.Dx(), cb.Dy()))
	cw, ch := cell.Bounds().Dx(), cell.Bounds().Dy()
	if cw == 0 || ch == 0 {
		return canvas
	}

	for y := 0; y < cb.Dy(); y++ {
		srcRow := cell.Pix[(y%ch)*cell.Stride : (y%ch)*cell.Stride+cw*4]
		dstRow := layer.Pix[y*layer.Stride : y*layer.Stride+cb.Dx()*4]
		for off := 0; off < len(dstRow); off += len(srcRow) {
			copy(dstRow[off:], srcRow)
		}
	}

	return imaging.Overlay(canvas, layer, image.Pt(0, 0), 1)
}

func kernelMargin(plan Plan) int {
	sigma := 0.0
	for _, op := range plan.Filters {
		if op.Kind == OpBlur && op.Amount > 0 {
			sigma += op.Amount
		}
	}
	sigma += math.Abs(plan.Sharpness-100) / 50
	return int(math.Ceil(sigma*3)) + 1
}
