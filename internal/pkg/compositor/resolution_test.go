package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveResolution(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		width  int
		height int
	}{
		{name: "full hd", input: "1920x1080", width: 1920, height: 1080},
		{name: "qhd", input: "2560x1440", width: 2560, height: 1440},
		{name: "4k", input: "3840x2160", width: 3840, height: 2160},
		{name: "laptop", input: "1366x768", width: 1366, height: 768},
		{name: "macbook", input: "1440x900", width: 1440, height: 900},
		{name: "unknown falls back", input: "800x600", width: 1920, height: 1080},
		{name: "empty falls back", input: "", width: 1920, height: 1080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveResolution(tt.input)
			assert.Equal(t, tt.width, res.Width)
			assert.Equal(t, tt.height, res.Height)
		})
	}
}

func TestResolutionNames(t *testing.T) {
	names := ResolutionNames()

	assert.Len(t, names, len(Resolutions))
	assert.IsIncreasing(t, names)
	for _, name := range names {
		assert.True(t, IsKnownResolution(name))
	}
	assert.False(t, IsKnownResolution("1x1"))
}
