package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustmentsWithLeavesReceiverUntouched(t *testing.T) {
	base := DefaultAdjustments()
	changed := base.WithBrightness(150).WithHue(-30)

	assert.Equal(t, 100.0, base.Brightness)
	assert.Equal(t, 0.0, base.Hue)
	assert.Equal(t, 150.0, changed.Brightness)
	assert.Equal(t, -30.0, changed.Hue)
}

func TestAdjustmentsClamped(t *testing.T) {
	tests := []struct {
		name string
		in   Adjustments
		want Adjustments
	}{
		{
			name: "defaults stay",
			in:   DefaultAdjustments(),
			want: DefaultAdjustments(),
		},
		{
			name: "over range",
			in: Adjustments{
				Brightness: 900, Contrast: 201, Saturation: 500, Sharpness: 300,
				Hue: 720, Blur: 99, Vignette: 150, Opacity: 101,
			},
			want: Adjustments{
				Brightness: 200, Contrast: 200, Saturation: 200, Sharpness: 200,
				Hue: 180, Blur: 20, Vignette: 100, Opacity: 100,
			},
		},
		{
			name: "under range",
			in: Adjustments{
				Brightness: -1, Contrast: -50, Saturation: -2, Sharpness: -3,
				Hue: -400, Blur: -1, Vignette: -10, Opacity: -5,
			},
			want: Adjustments{Hue: -180},
		},
		{
			name: "nan falls back to default",
			in:   DefaultAdjustments().WithBrightness(math.NaN()).WithBlur(math.NaN()),
			want: DefaultAdjustments(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Clamped())
		})
	}
}

func TestAutoEnhanced(t *testing.T) {
	got := DefaultAdjustments().WithBlur(3).AutoEnhanced()

	assert.Equal(t, 110.0, got.Brightness)
	assert.Equal(t, 115.0, got.Contrast)
	assert.Equal(t, 105.0, got.Saturation)
	assert.Equal(t, 110.0, got.Sharpness)
	assert.Equal(t, 3.0, got.Blur)
}

func TestTextOverlayMerge(t *testing.T) {
	text := "Hello"
	size := 72
	empty := ""

	var none *TextOverlay
	got := none.Merge(TextOverlayPatch{Text: &text})
	require.NotNil(t, got)
	assert.Equal(t, "Hello", got.Text)
	assert.Equal(t, 48, got.FontSize)
	assert.Equal(t, 80.0, got.Y)

	got = got.Merge(TextOverlayPatch{FontSize: &size})
	require.NotNil(t, got)
	assert.Equal(t, 72, got.FontSize)
	assert.Equal(t, "Hello", got.Text)

	assert.Nil(t, got.Merge(TextOverlayPatch{Text: &empty}))
	assert.Nil(t, none.Merge(TextOverlayPatch{FontSize: &size}))
}

func TestRenderSpecMerge(t *testing.T) {
	crop := CropFit
	filter := FilterNeon
	vignette := 40.0
	gradient := GradientOcean

	spec := DefaultRenderSpec().Merge(RenderSpecPatch{
		CropMode:        &crop,
		Filter:          &filter,
		Adjustments:     &AdjustmentsPatch{Vignette: &vignette},
		GradientOverlay: &gradient,
	})

	assert.Equal(t, CropFit, spec.CropMode)
	assert.Equal(t, FilterNeon, spec.Filter)
	assert.Equal(t, 40.0, spec.Adjustments.Vignette)
	assert.Equal(t, 100.0, spec.Adjustments.Brightness)
	assert.Equal(t, GradientOcean, spec.GradientOverlay)
	assert.Nil(t, spec.TextOverlay)
}

func TestRenderSpecPatchValidate(t *testing.T) {
	crop := CropTile
	badCrop := CropMode("zoom")
	badFilter := FilterPreset("lomo")
	badGradient := GradientOverlay("rainbow")
	zero := 0
	maxSize, hugeSize := MaxFontSize, 30000
	maxStroke, hugeStroke, negStroke := MaxStrokeWidth, 300, -1

	tests := []struct {
		name    string
		patch   RenderSpecPatch
		wantErr bool
	}{
		{name: "empty", patch: RenderSpecPatch{}},
		{name: "known crop", patch: RenderSpecPatch{CropMode: &crop}},
		{name: "unknown crop", patch: RenderSpecPatch{CropMode: &badCrop}, wantErr: true},
		{name: "unknown filter", patch: RenderSpecPatch{Filter: &badFilter}, wantErr: true},
		{name: "unknown gradient", patch: RenderSpecPatch{GradientOverlay: &badGradient}, wantErr: true},
		{name: "zero font size", patch: RenderSpecPatch{TextOverlay: &TextOverlayPatch{FontSize: &zero}}, wantErr: true},
		{name: "largest font size", patch: RenderSpecPatch{TextOverlay: &TextOverlayPatch{FontSize: &maxSize}}},
		{name: "huge font size", patch: RenderSpecPatch{TextOverlay: &TextOverlayPatch{FontSize: &hugeSize}}, wantErr: true},
		{name: "no stroke", patch: RenderSpecPatch{TextOverlay: &TextOverlayPatch{StrokeWidth: &zero}}},
		{name: "widest stroke", patch: RenderSpecPatch{TextOverlay: &TextOverlayPatch{StrokeWidth: &maxStroke}}},
		{name: "huge stroke", patch: RenderSpecPatch{TextOverlay: &TextOverlayPatch{StrokeWidth: &hugeStroke}}, wantErr: true},
		{name: "negative stroke", patch: RenderSpecPatch{TextOverlay: &TextOverlayPatch{StrokeWidth: &negStroke}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "wallpaper_beach.jpg", Image{Name: "beach.jpg"}.DownloadName())
}
