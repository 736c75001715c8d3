// Command volrender renders a synthetic volume dataset to a PNG and
// prints an intensity histogram summary. It exercises the full pipeline:
// GPU when one is available, the deterministic software fallback
// otherwise.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"image/png"
	"log"
	"math"
	"os"

	"github.com/gogpu/volren"
	"github.com/gogpu/volren/analysis"
	"github.com/gogpu/volren/render"
)

func main() {
	var (
		size    = flag.Int("size", 128, "synthetic volume edge length in voxels")
		width   = flag.Int("width", 512, "image width")
		height  = flag.Int("height", 512, "image height")
		output  = flag.String("output", "volume.png", "output file")
		center  = flag.Float64("window-center", 300, "intensity window center")
		wwidth  = flag.Float64("window-width", 700, "intensity window width")
		mode    = flag.String("compositing", "blend", "compositing: blend, max, min, average")
		presets = flag.String("presets", "", "YAML preset file; applies the first preset")
		sigma   = flag.Float64("blur", 0, "Gaussian blur sigma in voxels, 0 to skip")
		bins    = flag.Int("bins", 16, "histogram bin count")
		cpu     = flag.Bool("cpu", false, "force the software renderer")
	)
	flag.Parse()

	d := syntheticVolume(*size)

	if *sigma > 0 {
		eng := analysis.New(nil)
		blurred, err := eng.GaussianFilter(context.Background(), d, *sigma)
		if err != nil {
			log.Fatalf("Blur failed: %v", err)
		}
		d = blurred
	}

	c := render.New(render.Options{DisableGPU: *cpu})
	defer c.Close()

	if *presets != "" {
		f, err := os.Open(*presets)
		if err != nil {
			log.Fatalf("Failed to open presets: %v", err)
		}
		list, err := render.LoadPresets(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("Failed to load presets: %v", err)
		}
		if len(list) == 0 {
			log.Fatal("Preset file is empty")
		}
		if err := c.ApplyPreset(list[0]); err != nil {
			log.Fatalf("Failed to apply preset: %v", err)
		}
		log.Printf("Applied preset %q", list[0].Name)
	} else {
		c.Send(
			render.SetWindow(volren.Window{Center: *center, Width: *wwidth}),
			render.SetCompositing(parseMode(*mode)),
			render.SetLighting(true),
		)
	}

	req := &volren.RenderRequest{Width: *width, Height: *height}
	res, err := c.RenderImage(context.Background(), d, req)
	if err != nil {
		log.Fatalf("Render failed: %v", err)
	}
	path := "software fallback"
	if res.GPU {
		path = "GPU"
	} else if cause := c.LastSnapshot().FallbackCause; cause != "" {
		path = fmt.Sprintf("software fallback (%s)", cause)
	}
	log.Printf("Rendered %dx%d via %s", res.Image.Width, res.Image.Height, path)

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	if err := png.Encode(f, res.Image.RGBA()); err != nil {
		log.Fatalf("Failed to encode PNG: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close output: %v", err)
	}
	log.Printf("Saved %s", *output)

	printHistogram(d, *bins)
}

// syntheticVolume builds a phantom: a dense sphere inside a medium shell
// over a faint gradient background, in signed 16-bit samples.
func syntheticVolume(n int) *volren.VolumeDataset {
	data := make([]byte, n*n*n*2)
	half := float64(n) / 2
	i := 0
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				dx := float64(x) + 0.5 - half
				dy := float64(y) + 0.5 - half
				dz := float64(z) + 0.5 - half
				r := math.Sqrt(dx*dx+dy*dy+dz*dz) / half
				var v int16
				switch {
				case r < 0.35:
					v = 900
				case r < 0.6:
					v = 350
				default:
					v = int16(50 * float64(z) / float64(n))
				}
				binary.LittleEndian.PutUint16(data[i:], uint16(v))
				i += 2
			}
		}
	}
	return &volren.VolumeDataset{
		Data:    data,
		Width:   n, Height: n, Depth: n,
		Spacing:      [3]float32{1, 1, 1},
		Format:       volren.PixelFormatInt16,
		IntensityMin: -1000,
		IntensityMax: 1000,
	}
}

func parseMode(s string) volren.CompositingMode {
	switch s {
	case "blend":
		return volren.CompositingBlend
	case "max":
		return volren.CompositingMaxIntensity
	case "min":
		return volren.CompositingMinIntensity
	case "average":
		return volren.CompositingAverage
	default:
		log.Fatalf("Unknown compositing mode %q", s)
		return 0
	}
}

func printHistogram(d *volren.VolumeDataset, bins int) {
	eng := analysis.New(nil)
	h, err := eng.Histogram(context.Background(), d, bins, 0, 0)
	if err != nil {
		log.Fatalf("Histogram failed: %v", err)
	}
	edges := analysis.BinEdges(h)
	total := h.Total()
	fmt.Printf("Histogram over [%.0f, %.0f], %d bins, %.0f voxels:\n", h.Min, h.Max, bins, total)
	for i, count := range h.Bins {
		bar := int(count / total * 60)
		fmt.Printf("  %8.1f %s %.0f\n", edges[i], stars(bar), count)
	}
}

func stars(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '*'
	}
	return string(b)
}
