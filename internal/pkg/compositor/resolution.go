package compositor

import "sort"

// Resolution is a target display mode in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

const DefaultResolutionName = "1920x1080"

// Resolutions maps the selectable display modes to their dimensions.
var Resolutions = map[string]Resolution{
	"1920x1080": {1920, 1080},
	"2560x1440": {2560, 1440},
	"3840x2160": {3840, 2160},
	"1366x768":  {1366, 768},
	"1440x900":  {1440, 900},
}

// ResolveResolution returns the dimensions for name, or 1920x1080 for any
// name that is not in the table.
func ResolveResolution(name string) Resolution {
	if res, ok := Resolutions[name]; ok {
		return res
	}
	return Resolutions[DefaultResolutionName]
}

// IsKnownResolution reports whether name is one of the selectable modes.
func IsKnownResolution(name string) bool {
	_, ok := Resolutions[name]
	return ok
}

func ResolutionNames() []string {
	names := make([]string, 0, len(Resolutions))
	for name := range Resolutions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
