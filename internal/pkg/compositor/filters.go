package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/wallcraft/internal/entity"
)

type FilterKind string

const (
	OpBrightness FilterKind = "brightness"
	OpContrast   FilterKind = "contrast"
	OpSaturate   FilterKind = "saturate"
	OpHueRotate  FilterKind = "hue-rotate"
	OpBlur       FilterKind = "blur"
	OpOpacity    FilterKind = "opacity"
	OpSepia      FilterKind = "sepia"
	OpGrayscale  FilterKind = "grayscale"
)

// FilterOp is one step of a filter chain. Amount is a ratio (1 = unchanged)
// for every kind except hue-rotate (degrees) and blur (pixels, gaussian sigma).
type FilterOp struct {
	Kind   FilterKind `json:"kind"`
	Amount float64    `json:"amount"`
}

func (op FilterOp) String() string {
	amount := strconv.FormatFloat(op.Amount, 'f', -1, 64)
	switch op.Kind {
	case OpHueRotate:
		return fmt.Sprintf("%s(%sdeg)", op.Kind, amount)
	case OpBlur:
		return fmt.Sprintf("%s(%spx)", op.Kind, amount)
	default:
		return fmt.Sprintf("%s(%s)", op.Kind, amount)
	}
}

var presetOps = map[entity.FilterPreset][]FilterOp{
	entity.FilterVintage: {
		{Kind: OpSepia, Amount: 0.5},
		{Kind: OpContrast, Amount: 1.2},
		{Kind: OpBrightness, Amount: 1.1},
	},
	entity.FilterSepia: {
		{Kind: OpSepia, Amount: 1},
	},
	entity.FilterNeon: {
		{Kind: OpSaturate, Amount: 2},
		{Kind: OpContrast, Amount: 1.5},
		{Kind: OpBrightness, Amount: 1.2},
	},
	entity.FilterDark: {
		{Kind: OpBrightness, Amount: 0.7},
		{Kind: OpContrast, Amount: 1.3},
	},
	entity.FilterCool: {
		{Kind: OpHueRotate, Amount: 180},
		{Kind: OpSaturate, Amount: 1.2},
	},
	entity.FilterWarm: {
		{Kind: OpHueRotate, Amount: 30},
		{Kind: OpSaturate, Amount: 1.1},
	},
	entity.FilterGrayscale: {
		{Kind: OpGrayscale, Amount: 1},
	},
}

// BuildFilterChain returns the base adjustment ops in their fixed order
// followed by the extra ops of preset. Unknown presets add nothing.
func BuildFilterChain(adj entity.Adjustments, preset entity.FilterPreset) []FilterOp {
	chain := []FilterOp{
		{Kind: OpBrightness, Amount: adj.Brightness / 100},
		{Kind: OpContrast, Amount: adj.Contrast / 100},
		{Kind: OpSaturate, Amount: adj.Saturation / 100},
		{Kind: OpHueRotate, Amount: adj.Hue},
		{Kind: OpBlur, Amount: adj.Blur},
		{Kind: OpOpacity, Amount: adj.Opacity / 100},
	}
	return append(chain, presetOps[preset]...)
}

// normalized clamps Amount the way CSS filter functions do.
func (op FilterOp) normalized() FilterOp {
	if math.IsNaN(op.Amount) || math.IsInf(op.Amount, 0) {
		op.Amount = identityAmount(op.Kind)
		return op
	}
	switch op.Kind {
	case OpOpacity, OpSepia, OpGrayscale:
		op.Amount = math.Max(0, math.Min(1, op.Amount))
	case OpHueRotate:
		op.Amount = math.Mod(op.Amount, 360)
	default:
		op.Amount = math.Max(0, op.Amount)
	}
	return op
}

func identityAmount(kind FilterKind) float64 {
	switch kind {
	case OpHueRotate, OpBlur, OpSepia, OpGrayscale:
		return 0
	default:
		return 1
	}
}

func (op FilterOp) isIdentity() bool {
	return op.Amount == identityAmount(op.Kind)
}

// ApplyFilterChain runs ops left to right over img. Consecutive color ops are
// fused into a single per-pixel pass; blur breaks the run.
func ApplyFilterChain(img image.Image, ops []FilterOp) *image.NRGBA {
	out := imaging.Clone(img)

	var run []pixelFunc
	flush := func() {
		if len(run) == 0 {
			return
		}
		fns := run
		out = imaging.AdjustFunc(out, func(c color.NRGBA) color.NRGBA {
			px := fromNRGBA(c)
			for _, fn := range fns {
				px = fn(px).clamped()
			}
			return px.toNRGBA()
		})
		run = nil
	}

	for _, op := range ops {
		op = op.normalized()
		if op.isIdentity() {
			continue
		}
		if op.Kind == OpBlur {
			flush()
			out = imaging.Blur(out, op.Amount)
			continue
		}
		if fn := op.pixelFunc(); fn != nil {
			run = append(run, fn)
		}
	}
	flush()

	return out
}

// applySharpness realises the sharpness adjustment (100 = unchanged): an
// unsharp mask above 100, a soft gaussian below.
func applySharpness(img *image.NRGBA, sharpness float64) *image.NRGBA {
	switch {
	case sharpness > 100:
		return imaging.Sharpen(img, (sharpness-100)/50)
	case sharpness < 100:
		return imaging.Blur(img, (100-sharpness)/50)
	default:
		return img
	}
}

type pixel struct {
	r, g, b, a float64
}

type pixelFunc func(pixel) pixel

func fromNRGBA(c color.NRGBA) pixel {
	return pixel{
		r: float64(c.R) / 255,
		g: float64(c.G) / 255,
		b: float64(c.B) / 255,
		a: float64(c.A) / 255,
	}
}

func (p pixel) clamped() pixel {
	return pixel{r: unit(p.r), g: unit(p.g), b: unit(p.b), a: unit(p.a)}
}

func (p pixel) toNRGBA() color.NRGBA {
	return color.NRGBA{
		R: uint8(math.Round(p.r * 255)),
		G: uint8(math.Round(p.g * 255)),
		B: uint8(math.Round(p.b * 255)),
		A: uint8(math.Round(p.a * 255)),
	}
}

func unit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// colorMatrix is a 3x3 RGB transform in row-major order.
type colorMatrix [9]float64

func (m colorMatrix) apply(p pixel) pixel {
	return pixel{
		r: m[0]*p.r + m[1]*p.g + m[2]*p.b,
		g: m[3]*p.r + m[4]*p.g + m[5]*p.b,
		b: m[6]*p.r + m[7]*p.g + m[8]*p.b,
		a: p.a,
	}
}

func (op FilterOp) pixelFunc() pixelFunc {
	v := op.Amount
	switch op.Kind {
	case OpBrightness:
		return func(p pixel) pixel {
			return pixel{r: p.r * v, g: p.g * v, b: p.b * v, a: p.a}
		}
	case OpContrast:
		return func(p pixel) pixel {
			return pixel{
				r: (p.r-0.5)*v + 0.5,
				g: (p.g-0.5)*v + 0.5,
				b: (p.b-0.5)*v + 0.5,
				a: p.a,
			}
		}
	case OpOpacity:
		return func(p pixel) pixel {
			p.a *= v
			return p
		}
	case OpSaturate:
		return saturateMatrix(v).apply
	case OpHueRotate:
		return hueRotateMatrix(v).apply
	case OpSepia:
		return sepiaMatrix(v).apply
	case OpGrayscale:
		return grayscaleMatrix(v).apply
	default:
		return nil
	}
}

// The matrices below are the ones defined by W3C Filter Effects for the
// CSS filter functions of the same name.

func saturateMatrix(s float64) colorMatrix {
	return colorMatrix{
		0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s,
	}
}

func hueRotateMatrix(deg float64) colorMatrix {
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return colorMatrix{
		0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928,
		0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283,
		0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072,
	}
}

func sepiaMatrix(amount float64) colorMatrix {
	k := 1 - amount
	return colorMatrix{
		0.393 + 0.607*k, 0.769 - 0.769*k, 0.189 - 0.189*k,
		0.349 - 0.349*k, 0.686 + 0.314*k, 0.168 - 0.168*k,
		0.272 - 0.272*k, 0.534 - 0.534*k, 0.131 + 0.869*k,
	}
}

func grayscaleMatrix(amount float64) colorMatrix {
	k := 1 - amount
	return colorMatrix{
		0.2126 + 0.7874*k, 0.7152 - 0.7152*k, 0.0722 - 0.0722*k,
		0.2126 - 0.2126*k, 0.7152 + 0.2848*k, 0.0722 - 0.0722*k,
		0.2126 - 0.2126*k, 0.7152 - 0.7152*k, 0.0722 + 0.9278*k,
	}
}
