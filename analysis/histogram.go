package analysis

import (
	"context"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"gonum.org/v1/gonum/floats"

	"github.com/gogpu/volren"
	"github.com/gogpu/volren/internal/gpu"
	"github.com/gogpu/volren/internal/parallel"
)

const histogramWorkgroup = 16

// Histogram computes the intensity distribution of a dataset over
// [lo, hi] with binCount bins. When hi <= lo the dataset's intrinsic
// intensity range is used.
//
// The GPU path runs only for formats the hardware histogram primitive
// can consume directly; signed 16-bit data needs a reinterpretation the
// primitive cannot do and routes to the CPU path. A GPU failure also
// degrades to the CPU path rather than erroring. Both paths produce the
// same totals: sum of bins equals the voxel count.
func (e *Engine) Histogram(ctx context.Context, d *volren.VolumeDataset, binCount int, lo, hi float64) (volren.HistogramResult, error) {
	if err := validateDataset(d); err != nil {
		return volren.HistogramResult{}, err
	}
	if binCount <= 0 {
		return volren.HistogramResult{}, fmt.Errorf("analysis: bin count %d", binCount)
	}
	if hi <= lo {
		lo, hi = d.IntensityMin, d.IntensityMax
	}
	if e.GPU() && d.Format.HardwareHistogram() {
		h, err := e.gpuHistogram(ctx, d, binCount, lo, hi)
		if err == nil {
			return h, nil
		}
		if ctx.Err() != nil {
			return volren.HistogramResult{}, err
		}
		slogger().Warn("analysis: GPU histogram failed, using CPU path", "err", err)
	}
	return cpuHistogram(d, binCount, lo, hi), nil
}

// Normalize scales bin counts in place so they sum to one. A histogram
// with no counts is left unchanged.
func Normalize(h *volren.HistogramResult) {
	total := floats.Sum(h.Bins)
	if total > 0 {
		floats.Scale(1/total, h.Bins)
	}
}

// BinEdges returns the binCount+1 intensity values bounding each bin.
func BinEdges(h volren.HistogramResult) []float64 {
	return floats.Span(make([]float64, len(h.Bins)+1), h.Min, h.Max)
}

// cpuHistogram iterates voxels with the format-specific numeric binding,
// clamps each sample to [lo, hi] and maps it linearly to a bin. Slices
// count into per-slice partial bins that are summed at the end.
func cpuHistogram(d *volren.VolumeDataset, binCount int, lo, hi float64) volren.HistogramResult {
	scale := float64(binCount) / (hi - lo + 1)
	signed := d.Format == volren.PixelFormatInt16

	partial := make([][]float64, d.Depth)
	parallel.For(d.Depth, func(z int) {
		bins := make([]float64, binCount)
		data := d.Slice(z)
		for i := 0; i+1 < len(data); i += 2 {
			raw := uint16(data[i]) | uint16(data[i+1])<<8
			var v float64
			if signed {
				v = float64(int16(raw))
			} else {
				v = float64(raw)
			}
			if v < lo {
				v = lo
			} else if v > hi {
				v = hi
			}
			idx := int((v - lo) * scale)
			if idx >= binCount {
				idx = binCount - 1
			}
			bins[idx]++
		}
		partial[z] = bins
	})

	bins := make([]float64, binCount)
	for _, p := range partial {
		floats.Add(bins, p)
	}
	return volren.HistogramResult{Bins: bins, Min: lo, Max: hi}
}

// histInfo mirrors the HistInfo uniform in the histogram kernel.
type histInfo struct {
	MinValue    float32
	InvBinWidth float32
	BinCount    uint32
	_           uint32
}

// gpuHistogram uploads the dataset as layers of a 2-D array texture, one
// slice per layer, and accumulates counts into a shared atomic buffer.
func (e *Engine) gpuHistogram(ctx context.Context, d *volren.VolumeDataset, binCount int, lo, hi float64) (volren.HistogramResult, error) {
	pipeline, err := e.dev.CreatePipeline(&gpu.PipelineDescriptor{
		Label:      "analysis-histogram",
		WGSL:       gpu.HistogramWGSL,
		EntryPoint: "histogram",
	})
	if err != nil {
		return volren.HistogramResult{}, err
	}
	defer pipeline.Destroy()

	tex, err := e.dev.CreateTexture(&gpu.TextureDescriptor{
		Label:  "analysis-hist-slices",
		Width:  d.Width,
		Height: d.Height,
		Depth:  d.Depth,
		Array:  true,
		Format: gputypes.TextureFormatR16Uint,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return volren.HistogramResult{}, err
	}
	defer tex.Destroy()
	for z := 0; z < d.Depth; z++ {
		if err := tex.Upload(z, d.Slice(z), d.Width*d.Format.BytesPerVoxel()); err != nil {
			return volren.HistogramResult{}, err
		}
	}

	binBuf, err := e.dev.CreateBuffer(&gpu.BufferDescriptor{
		Label: "analysis-hist-bins",
		Size:  uint64(binCount) * 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return volren.HistogramResult{}, err
	}
	defer binBuf.Destroy()
	if err := binBuf.Upload(make([]byte, binCount*4)); err != nil {
		return volren.HistogramResult{}, err
	}

	info := histInfo{
		MinValue:    float32(lo),
		InvBinWidth: float32(float64(binCount) / (hi - lo + 1)),
		BinCount:    uint32(binCount),
	}
	infoBuf, err := e.dev.CreateBuffer(&gpu.BufferDescriptor{
		Label: "analysis-hist-info",
		Size:  uint64(unsafe.Sizeof(info)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return volren.HistogramResult{}, err
	}
	defer infoBuf.Destroy()
	infoBytes := unsafe.Slice((*byte)(unsafe.Pointer(&info)), unsafe.Sizeof(info))
	if err := infoBuf.Upload(infoBytes); err != nil {
		return volren.HistogramResult{}, err
	}

	enc, err := e.dev.Begin("analysis-histogram")
	if err != nil {
		return volren.HistogramResult{}, err
	}
	enc.SetPipeline(pipeline)
	enc.BindTexture(0, tex)
	enc.BindBuffer(1, binBuf)
	enc.BindBuffer(2, infoBuf)
	gx := (d.Width + histogramWorkgroup - 1) / histogramWorkgroup
	gy := (d.Height + histogramWorkgroup - 1) / histogramWorkgroup
	if err := enc.Dispatch(gx, gy, d.Depth); err != nil {
		return volren.HistogramResult{}, err
	}
	if err := enc.Submit(ctx); err != nil {
		return volren.HistogramResult{}, err
	}

	raw := make([]byte, binCount*4)
	if err := binBuf.Read(ctx, raw); err != nil {
		return volren.HistogramResult{}, err
	}
	bins := make([]float64, binCount)
	for i := range bins {
		bins[i] = float64(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return volren.HistogramResult{Bins: bins, Min: lo, Max: hi}, nil
}
