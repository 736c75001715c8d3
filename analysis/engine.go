package analysis

import (
	"errors"
	"log/slog"

	"github.com/gogpu/volren"
	"github.com/gogpu/volren/internal/gpu"
)

// Analysis errors.
var (
	// ErrUnsupportedPixelFormat is returned when a dataset's pixel format
	// has no float-conversion mapping for the Gaussian filter pipeline.
	ErrUnsupportedPixelFormat = errors.New("analysis: unsupported pixel format")
)

// Engine runs volumetric analysis routines. A nil device restricts every
// routine to its CPU path; with a device, routines whose dataset format
// the hardware can consume run on the GPU.
type Engine struct {
	dev gpu.Device
}

// New returns an engine. dev may be nil for CPU-only operation.
func New(dev gpu.Device) *Engine {
	return &Engine{dev: dev}
}

// GPU reports whether the engine has a device.
func (e *Engine) GPU() bool { return e != nil && e.dev != nil }

func slogger() *slog.Logger { return volren.Logger() }

func validateDataset(d *volren.VolumeDataset) error {
	if d == nil {
		return volren.ErrInvalidDimensions
	}
	return d.Validate()
}
