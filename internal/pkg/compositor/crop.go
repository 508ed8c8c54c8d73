package compositor

import (
	"math"

	"github.com/ds124wfegd/wallcraft/internal/entity"
)

// DrawRect is where the scaled source lands on the canvas. Offsets may be
// negative (fill crops the overflow).
type DrawRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Empty reports a degenerate rect; nothing is drawn for it.
func (r DrawRect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// ComputeDrawRect places a srcW x srcH image on a dstW x dstH canvas.
//
// For tile the rect is the first cell at native size anchored at the origin;
// the compositor repeats it across the canvas. Unknown modes stretch.
// Non-positive dimensions (an undecoded source) give an empty rect.
func ComputeDrawRect(srcW, srcH, dstW, dstH int, mode entity.CropMode) DrawRect {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return DrawRect{}
	}

	sw, sh := float64(srcW), float64(srcH)
	tw, th := float64(dstW), float64(dstH)

	switch mode {
	case entity.CropFill:
		scale := math.Max(tw/sw, th/sh)
		return centered(sw*scale, sh*scale, tw, th)
	case entity.CropFit:
		scale := math.Min(tw/sw, th/sh)
		return centered(sw*scale, sh*scale, tw, th)
	case entity.CropCenter:
		return centered(sw, sh, tw, th)
	case entity.CropTile:
		return DrawRect{X: 0, Y: 0, W: sw, H: sh}
	default:
		return DrawRect{X: 0, Y: 0, W: tw, H: th}
	}
}

func centered(w, h, tw, th float64) DrawRect {
	return DrawRect{
		X: (tw - w) / 2,
		Y: (th - h) / 2,
		W: w,
		H: h,
	}
}
