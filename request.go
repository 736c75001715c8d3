package volren

import "fmt"

// CompositingMode selects the volumetric accumulation strategy.
type CompositingMode uint8

const (
	// CompositingBlend is front-to-back alpha blending.
	CompositingBlend CompositingMode = iota

	// CompositingMaxIntensity is maximum intensity projection.
	CompositingMaxIntensity

	// CompositingMinIntensity is minimum intensity projection.
	CompositingMinIntensity

	// CompositingAverage averages samples along the ray.
	CompositingAverage
)

// String returns a human-readable name for the mode.
func (m CompositingMode) String() string {
	switch m {
	case CompositingBlend:
		return "Blend"
	case CompositingMaxIntensity:
		return "MaxIntensity"
	case CompositingMinIntensity:
		return "MinIntensity"
	case CompositingAverage:
		return "Average"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// Window is an intensity window (center and width, Hounsfield-style).
// Values at or below center-width/2 map to 0, values at or above
// center+width/2 map to 1.
type Window struct {
	Center float64 `yaml:"center"`
	Width  float64 `yaml:"width"`
}

// WindowFromRange builds a window covering [lo, hi].
func WindowFromRange(lo, hi float64) Window {
	return Window{Center: (lo + hi) / 2, Width: hi - lo}
}

// Lo returns the lower window bound.
func (w Window) Lo() float64 { return w.Center - w.Width/2 }

// Hi returns the upper window bound.
func (w Window) Hi() float64 { return w.Center + w.Width/2 }

// Apply maps an intensity to [0, 1] with clamping. A degenerate width acts
// as a step function at the center.
func (w Window) Apply(v float64) float64 {
	if w.Width <= 0 {
		if v < w.Center {
			return 0
		}
		return 1
	}
	t := (v - w.Lo()) / w.Width
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// RenderRequest describes one render call: the viewport, camera and the
// per-call transient overrides. Overrides are the highest-precedence
// parameter layer; nil fields leave the coordinator's persistent settings
// in effect.
type RenderRequest struct {
	// Width and Height are the viewport dimensions in pixels.
	Width, Height int

	// Camera is a row-major orientation matrix (right, up, forward).
	Camera [3][3]float32

	// Compositing overrides the accumulation strategy for this call.
	Compositing *CompositingMode

	// SamplingDistance overrides the ray-march step for this call.
	SamplingDistance *float64

	// Window overrides the intensity window for this call.
	Window *Window

	// Lighting overrides the lighting toggle for this call.
	Lighting *bool
}

// Validate checks the viewport dimensions.
func (r *RenderRequest) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidDimensions, r.Width, r.Height)
	}
	return nil
}

// RenderMetadata records the resolved state a render executed with.
type RenderMetadata struct {
	// Window is the fully resolved intensity window.
	Window Window

	// Compositing is the resolved accumulation strategy.
	Compositing CompositingMode

	// Dataset identifies the rendered dataset.
	Dataset DatasetIdentity

	// Preset names the applied preset, empty when none.
	Preset string
}

// RenderResult is the outcome of one render call.
//
// GPU distinguishes the rendered-on-GPU and CPU-fallback variants; both carry
// a valid Image of exactly the requested viewport dimensions.
type RenderResult struct {
	// Image is the displayable output. Never nil on a nil error.
	Image *Image

	// GPU is true when the compute pipeline produced the image, false when
	// the software fallback did.
	GPU bool

	// TextureHandle is an opaque handle to the GPU output texture, nil on
	// the fallback path. Valid until the next render on the same coordinator.
	TextureHandle any

	// Meta records the resolved parameters.
	Meta RenderMetadata
}

// HistogramResult is an intensity distribution: ordered bin counts plus the
// intensity range they cover.
type HistogramResult struct {
	// Bins holds the per-bin counts, lowest intensity first. Counts are
	// float64 so a normalized histogram can share the type.
	Bins []float64

	// Min and Max bound the covered intensity range.
	Min, Max float64
}

// Total returns the sum of all bin counts.
func (h HistogramResult) Total() float64 {
	var sum float64
	for _, b := range h.Bins {
		sum += b
	}
	return sum
}
