package placeholder

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/ds124wfegd/wallcraft/internal/pkg/compositor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaletteIsDeterministic(t *testing.T) {
	a1, b1 := Palette("Space nebula")
	a2, b2 := Palette("  space NEBULA ")
	assert.Equal(t, a1.Hex(), a2.Hex())
	assert.Equal(t, b1.Hex(), b2.Hex())

	c1, _ := Palette("Nature forest")
	assert.NotEqual(t, a1.Hex(), c1.Hex())
}

func TestRender(t *testing.T) {
	fonts, err := compositor.NewFontManager("")
	require.NoError(t, err)
	r := NewRenderer(fonts)

	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{name: "wallpaper size", width: 640, height: 360, wantW: 640, wantH: 360},
		{name: "zero clamps to one", width: 0, height: 10, wantW: 1, wantH: 10},
		{name: "oversized clamps", width: MaxSide * 2, height: 8, wantW: MaxSide, wantH: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := r.Render(tt.width, tt.height, "Abstract waves")
			require.NoError(t, err)

			cfg, err := png.DecodeConfig(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
		})
	}
}

func TestImageGradientUsesPalette(t *testing.T) {
	r := NewRenderer(nil)
	img := r.Image(4, 100, "Minimalist")

	from, to := Palette("Minimalist")
	fr, fg, fb := from.RGB255()
	tr, tg, tb := to.RGB255()

	top := img.NRGBAAt(0, 0)
	bottom := img.NRGBAAt(0, 99)
	assert.InDelta(t, int(fr), int(top.R), 1)
	assert.InDelta(t, int(fg), int(top.G), 1)
	assert.InDelta(t, int(fb), int(top.B), 1)
	assert.InDelta(t, int(tr), int(bottom.R), 1)
	assert.InDelta(t, int(tg), int(bottom.G), 1)
	assert.InDelta(t, int(tb), int(bottom.B), 1)
}

func TestCaptionFor(t *testing.T) {
	assert.Equal(t, "short", captionFor("  short "))
	long := strings.Repeat("ж", 80)
	assert.Equal(t, strings.Repeat("ж", 60)+"...", captionFor(long))
}
