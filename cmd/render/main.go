// render composes one wallpaper from a local file or URL without the server.
//
//	render -in photo.jpg -o out.jpg -resolution 2560x1440 -crop fill -filter vintage -gradient sunset -text "Hi" -vignette 40
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/ds124wfegd/wallcraft/internal/pkg/compositor"
	"github.com/ds124wfegd/wallcraft/internal/pkg/placeholder"
	"github.com/ds124wfegd/wallcraft/internal/pkg/source"
	"github.com/sirupsen/logrus"
)

// localFiles serves blob refs straight from the file system.
type localFiles struct{}

func (localFiles) OpenBlob(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

type options struct {
	in, out, resolution string
	quality             int
	fontsDir            string
	timeout             time.Duration
	patch               entity.RenderSpecPatch
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)

	opts := &options{}
	fs.StringVar(&opts.in, "in", "", "source image file or http(s) URL")
	fs.StringVar(&opts.out, "o", "wallpaper.jpg", "output JPEG file")
	fs.StringVar(&opts.resolution, "resolution", compositor.DefaultResolutionName, "target resolution")
	fs.IntVar(&opts.quality, "quality", compositor.DefaultJPEGQuality, "JPEG quality")
	fs.StringVar(&opts.fontsDir, "fonts", "", "directory with TTF/OTF font files")
	fs.DurationVar(&opts.timeout, "timeout", time.Minute, "overall render timeout")

	def := entity.DefaultRenderSpec()
	adj := def.Adjustments
	text := entity.DefaultTextOverlay()

	crop := fs.String("crop", string(def.CropMode), "crop mode: fill, fit, stretch, center, tile")
	filter := fs.String("filter", string(def.Filter), "filter preset")
	gradient := fs.String("gradient", string(def.GradientOverlay), "gradient overlay")

	a := entity.AdjustmentsPatch{
		Brightness: fs.Float64("brightness", adj.Brightness, "brightness 0..200"),
		Contrast:   fs.Float64("contrast", adj.Contrast, "contrast 0..200"),
		Saturation: fs.Float64("saturation", adj.Saturation, "saturation 0..200"),
		Sharpness:  fs.Float64("sharpness", adj.Sharpness, "sharpness 0..200"),
		Hue:        fs.Float64("hue", adj.Hue, "hue rotation -180..180"),
		Blur:       fs.Float64("blur", adj.Blur, "blur 0..20"),
		Vignette:   fs.Float64("vignette", adj.Vignette, "vignette 0..100"),
		Opacity:    fs.Float64("opacity", adj.Opacity, "opacity 0..100"),
	}

	t := entity.TextOverlayPatch{
		Text:        fs.String("text", "", "overlay text"),
		FontSize:    fs.Int("font-size", text.FontSize, "font size in px"),
		FontFamily:  fs.String("font", text.FontFamily, "font family"),
		Color:       fs.String("color", text.Color, "text color"),
		StrokeColor: fs.String("stroke-color", text.StrokeColor, "text stroke color"),
		StrokeWidth: fs.Int("stroke-width", text.StrokeWidth, "text stroke width"),
		X:           fs.Float64("x", text.X, "text centre x, percent of width"),
		Y:           fs.Float64("y", text.Y, "text centre y, percent of height"),
		Rotation:    fs.Float64("rotation", text.Rotation, "text rotation in degrees"),
		Opacity:     fs.Float64("text-opacity", text.Opacity, "text opacity 0..100"),
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.in == "" {
		return nil, errors.New("-in is required")
	}
	if !compositor.IsKnownResolution(opts.resolution) {
		return nil, fmt.Errorf("unknown resolution %q", opts.resolution)
	}

	cm := entity.CropMode(*crop)
	fp := entity.FilterPreset(*filter)
	gr := entity.GradientOverlay(*gradient)
	opts.patch = entity.RenderSpecPatch{
		CropMode:        &cm,
		Filter:          &fp,
		Adjustments:     &a,
		GradientOverlay: &gr,
	}
	if *t.Text != "" {
		opts.patch.TextOverlay = &t
	}
	if err := opts.patch.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	comp, err := compositor.New(compositor.Options{
		JPEGQuality: opts.quality,
		FontsDir:    opts.fontsDir,
	})
	if err != nil {
		return err
	}
	opener := source.NewOpener(localFiles{}, placeholder.NewRenderer(comp.Fonts()), &http.Client{Timeout: opts.timeout}, 0)

	ref := opts.in
	if !source.IsRemote(ref) {
		ref = source.BlobRef(opts.in)
	}
	img := entity.Image{
		ID:   opts.in,
		Ref:  ref,
		Spec: entity.DefaultRenderSpec().Merge(opts.patch),
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	start := time.Now()
	out := comp.Render(ctx, opener, img, opts.resolution)
	if out.Degraded() {
		return fmt.Errorf("render degraded: %w", out.Err)
	}

	if err := os.WriteFile(opts.out, out.Data, 0644); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"in":       opts.in,
		"out":      opts.out,
		"width":    out.Width,
		"height":   out.Height,
		"bytes":    len(out.Data),
		"duration": time.Since(start),
	}).Info("wallpaper written")
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logrus.Fatal(err)
	}
}
