package compositor

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainStrings(ops []FilterOp) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

func TestBuildFilterChain(t *testing.T) {
	base := []string{
		"brightness(1)",
		"contrast(1)",
		"saturate(1)",
		"hue-rotate(0deg)",
		"blur(0px)",
		"opacity(1)",
	}

	tests := []struct {
		name   string
		preset entity.FilterPreset
		extra  []string
	}{
		{name: "none", preset: entity.FilterNone},
		{name: "vintage", preset: entity.FilterVintage, extra: []string{"sepia(0.5)", "contrast(1.2)", "brightness(1.1)"}},
		{name: "sepia", preset: entity.FilterSepia, extra: []string{"sepia(1)"}},
		{name: "neon", preset: entity.FilterNeon, extra: []string{"saturate(2)", "contrast(1.5)", "brightness(1.2)"}},
		{name: "dark", preset: entity.FilterDark, extra: []string{"brightness(0.7)", "contrast(1.3)"}},
		{name: "cool", preset: entity.FilterCool, extra: []string{"hue-rotate(180deg)", "saturate(1.2)"}},
		{name: "warm", preset: entity.FilterWarm, extra: []string{"hue-rotate(30deg)", "saturate(1.1)"}},
		{name: "grayscale", preset: entity.FilterGrayscale, extra: []string{"grayscale(1)"}},
		{name: "unknown adds nothing", preset: entity.FilterPreset("lomo")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFilterChain(entity.DefaultAdjustments(), tt.preset)
			assert.Equal(t, append(append([]string{}, base...), tt.extra...), chainStrings(got))
		})
	}
}

func TestBuildFilterChainAdjustments(t *testing.T) {
	adj := entity.DefaultAdjustments().
		WithBrightness(110).
		WithContrast(50).
		WithSaturation(150).
		WithHue(-45).
		WithBlur(2.5).
		WithOpacity(80)

	got := BuildFilterChain(adj, entity.FilterNone)

	assert.Equal(t, []string{
		"brightness(1.1)",
		"contrast(0.5)",
		"saturate(1.5)",
		"hue-rotate(-45deg)",
		"blur(2.5px)",
		"opacity(0.8)",
	}, chainStrings(got))
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

func TestApplyFilterChain(t *testing.T) {
	src := color.NRGBA{R: 200, G: 50, B: 10, A: 255}

	tests := []struct {
		name  string
		ops   []FilterOp
		check func(t *testing.T, c color.NRGBA)
	}{
		{
			name: "identity chain leaves pixels untouched",
			ops:  BuildFilterChain(entity.DefaultAdjustments(), entity.FilterNone),
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, src, c)
			},
		},
		{
			name: "brightness zero is black",
			ops:  []FilterOp{{Kind: OpBrightness, Amount: 0}},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, color.NRGBA{A: 255}, c)
			},
		},
		{
			name: "negative amount clamps to zero",
			ops:  []FilterOp{{Kind: OpBrightness, Amount: -3}},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, color.NRGBA{A: 255}, c)
			},
		},
		{
			name: "contrast zero is mid gray",
			ops:  []FilterOp{{Kind: OpContrast, Amount: 0}},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, c)
			},
		},
		{
			name: "opacity scales alpha only",
			ops:  []FilterOp{{Kind: OpOpacity, Amount: 0.5}},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, uint8(128), c.A)
				assert.Equal(t, src.R, c.R)
			},
		},
		{
			name: "opacity above one clamps",
			ops:  []FilterOp{{Kind: OpOpacity, Amount: 4}},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, src, c)
			},
		},
		{
			name: "grayscale equalises channels",
			ops:  []FilterOp{{Kind: OpGrayscale, Amount: 1}},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, c.R, c.G)
				assert.Equal(t, c.G, c.B)
			},
		},
		{
			name: "saturate zero equalises channels",
			ops:  []FilterOp{{Kind: OpSaturate, Amount: 0}},
			check: func(t *testing.T, c color.NRGBA) {
				assert.InDelta(t, int(c.R), int(c.G), 1)
				assert.InDelta(t, int(c.G), int(c.B), 1)
			},
		},
		{
			name: "full turn hue rotate is identity",
			ops:  []FilterOp{{Kind: OpHueRotate, Amount: 360}},
			check: func(t *testing.T, c color.NRGBA) {
				assert.Equal(t, src, c)
			},
		},
		{
			name: "brightness then contrast is order dependent",
			ops: []FilterOp{
				{Kind: OpBrightness, Amount: 2},
				{Kind: OpContrast, Amount: 2},
			},
			check: func(t *testing.T, c color.NRGBA) {
				// 200*2 clamps to 255 before contrast pushes it further
				assert.Equal(t, uint8(255), c.R)
				// 50/255*2 = 0.392 -> (0.392-0.5)*2+0.5 = 0.284
				assert.InDelta(t, 72, int(c.G), 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ApplyFilterChain(solid(4, 4, src), tt.ops)
			require.Equal(t, 4, out.Bounds().Dx())
			tt.check(t, out.NRGBAAt(1, 1))
		})
	}
}

func TestApplyFilterChainSepiaOnWhite(t *testing.T) {
	out := ApplyFilterChain(solid(2, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 255}), []FilterOp{
		{Kind: OpSepia, Amount: 1},
	})

	c := out.NRGBAAt(0, 0)
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(255), c.G)
	assert.InDelta(t, 239, int(c.B), 1)
}

func TestApplyFilterChainDoesNotMutateInput(t *testing.T) {
	src := solid(3, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	_ = ApplyFilterChain(src, []FilterOp{{Kind: OpBrightness, Amount: 2}})

	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, src.NRGBAAt(1, 1))
}

func TestApplyFilterChainBlur(t *testing.T) {
	// белый квадрат в центре чёрного поля
	src := solid(21, 21, color.NRGBA{A: 255})
	for y := 8; y < 13; y++ {
		for x := 8; x < 13; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	out := ApplyFilterChain(src, []FilterOp{{Kind: OpBlur, Amount: 2}})

	edge := out.NRGBAAt(6, 10)
	assert.Greater(t, edge.R, uint8(0))
	assert.Less(t, out.NRGBAAt(10, 10).R, uint8(255))
}

func TestApplySharpness(t *testing.T) {
	src := solid(5, 5, color.NRGBA{R: 90, G: 90, B: 90, A: 255})

	assert.Same(t, src, applySharpness(src, 100))
	assert.NotSame(t, src, applySharpness(src, 150))
	assert.NotSame(t, src, applySharpness(src, 50))
}
