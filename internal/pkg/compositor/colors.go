package compositor

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/lucasb-eyer/go-colorful"
)

var white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa. Anything else is white.
func ParseColor(s string) color.NRGBA {
	s = strings.TrimSpace(s)
	alpha := uint8(255)

	if len(s) == 9 && s[0] == '#' {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return white
		}
		alpha = uint8(a)
		s = s[:7]
	}

	if len(s) != 4 && len(s) != 7 {
		return white
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return white
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}
}

// gradientStops are the two diagonal stops of each gradient overlay.
var gradientStops = map[entity.GradientOverlay][2]string{
	entity.GradientSunset: {"#ff7e5f", "#feb47b"},
	entity.GradientOcean:  {"#2e3192", "#1bffff"},
	entity.GradientForest: {"#134e5e", "#71b280"},
	entity.GradientPurple: {"#8e2de2", "#4a00e0"},
	entity.GradientFire:   {"#f12711", "#f5af19"},
}

// gradientRamp samples the straight RGB blend between two hex stops.
func gradientRamp(from, to string, steps int) []color.NRGBA {
	c0, err0 := colorful.Hex(from)
	c1, err1 := colorful.Hex(to)
	if err0 != nil || err1 != nil || steps < 2 {
		return nil
	}

	ramp := make([]color.NRGBA, steps)
	for i := range ramp {
		t := float64(i) / float64(steps-1)
		r, g, b := c0.BlendRgb(c1, t).Clamped().RGB255()
		ramp[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return ramp
}
