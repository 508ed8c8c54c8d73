package compositor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"
)

// FontFamilies are the families offered by the text overlay editor.
var FontFamilies = []string{
	"Arial",
	"Helvetica",
	"Times New Roman",
	"Georgia",
	"Verdana",
	"Comic Sans MS",
	"Impact",
	"Trebuchet MS",
	"Courier New",
	"Brush Script MT",
}

// FontManager resolves bold faces by family name. Families are looked up as
// TTF/OTF files under dir; missing ones fall back to the embedded Go Bold
// (or Go Mono Bold for monospace families).
type FontManager struct {
	dir string

	mu     sync.Mutex
	parsed map[string]*opentype.Font
}

func NewFontManager(dir string) (*FontManager, error) {
	fm := &FontManager{
		dir:    dir,
		parsed: make(map[string]*opentype.Font),
	}

	// embedded fallbacks must always parse
	for _, key := range []string{fallbackSans, fallbackMono} {
		if _, err := fm.embedded(key); err != nil {
			return nil, err
		}
	}
	return fm, nil
}

const (
	fallbackSans = "\x00gobold"
	fallbackMono = "\x00gomonobold"
)

// Face returns a new face of family at size px. Faces are not safe for
// concurrent use, so every caller gets its own.
func (fm *FontManager) Face(family string, size float64) (font.Face, error) {
	f, err := fm.lookup(family)
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

func (fm *FontManager) lookup(family string) (*opentype.Font, error) {
	key := strings.ToLower(strings.TrimSpace(family))

	fm.mu.Lock()
	if f, ok := fm.parsed[key]; ok {
		fm.mu.Unlock()
		return f, nil
	}
	fm.mu.Unlock()

	if f := fm.fromDir(family); f != nil {
		fm.store(key, f)
		return f, nil
	}

	fallback := fallbackSans
	if isMonospace(key) {
		fallback = fallbackMono
	}
	f, err := fm.embedded(fallback)
	if err != nil {
		return nil, err
	}
	if family != "" {
		logrus.WithField("font_family", family).Debug("font not found, using embedded bold face")
	}
	fm.store(key, f)
	return f, nil
}

func (fm *FontManager) fromDir(family string) *opentype.Font {
	if fm.dir == "" || family == "" {
		return nil
	}

	for _, name := range fontFileCandidates(family) {
		data, err := os.ReadFile(filepath.Join(fm.dir, name))
		if err != nil {
			continue
		}
		f, err := opentype.Parse(data)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"font_file": name,
				"error":     err,
			}).Warn("could not parse font file")
			continue
		}
		return f
	}
	return nil
}

func (fm *FontManager) embedded(key string) (*opentype.Font, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if f, ok := fm.parsed[key]; ok {
		return f, nil
	}

	data := gobold.TTF
	if key == fallbackMono {
		data = gomonobold.TTF
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded font: %w", err)
	}
	fm.parsed[key] = f
	return f, nil
}

func (fm *FontManager) store(key string, f *opentype.Font) {
	fm.mu.Lock()
	fm.parsed[key] = f
	fm.mu.Unlock()
}

// fontFileCandidates lists the file names tried for a family, bold variants
// first: "Times New Roman" -> "Times New Roman Bold.ttf", "TimesNewRoman-Bold.ttf", ...
func fontFileCandidates(family string) []string {
	family = strings.TrimSpace(family)
	compact := strings.ReplaceAll(family, " ", "")

	var stems []string
	for _, base := range []string{family, compact} {
		stems = append(stems, base+" Bold", base+"-Bold", base+"Bold", base)
	}

	out := make([]string, 0, len(stems)*2)
	for _, stem := range stems {
		out = append(out, stem+".ttf", stem+".otf")
	}
	return out
}

func isMonospace(family string) bool {
	return strings.Contains(family, "courier") || strings.Contains(family, "mono")
}
