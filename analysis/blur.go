package analysis

import (
	"context"
	"fmt"
	"math"
	"unsafe"

	"github.com/gogpu/gputypes"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gogpu/volren"
	"github.com/gogpu/volren/internal/gpu"
	"github.com/gogpu/volren/internal/parallel"
)

// GaussianFilter smooths the dataset in-plane with a separable Gaussian
// of the given sigma and returns a new dataset; the input is never
// mutated. sigma <= 0 returns an unmodified copy.
//
// The pipeline runs in a strict order: extract Z slices, convert each to
// float, blur horizontally then vertically, convert back to the source
// integer format, and reassemble by explicit Z index. Formats without a
// float mapping fail with ErrUnsupportedPixelFormat.
func (e *Engine) GaussianFilter(ctx context.Context, d *volren.VolumeDataset, sigma float64) (*volren.VolumeDataset, error) {
	if err := validateDataset(d); err != nil {
		return nil, err
	}
	if !d.Format.FloatConvertible() {
		return nil, fmt.Errorf("%w: %s has no float mapping", ErrUnsupportedPixelFormat, d.Format)
	}
	out := *d
	out.Data = append([]byte(nil), d.Data...)
	if sigma <= 0 {
		return &out, nil
	}

	weights := gaussianKernel(sigma)

	// Stage 1-2: slice by explicit Z and convert to float.
	sliceLen := d.Width * d.Height
	volume := make([]float32, sliceLen*d.Depth)
	parallel.For(d.Depth, func(z int) {
		sliceToFloat(d, z, volume[z*sliceLen:(z+1)*sliceLen])
	})

	// Stage 3-4: horizontal then vertical pass over every slice.
	blurred, err := e.blur(ctx, d, volume, weights)
	if err != nil {
		return nil, err
	}

	// Stage 5-6: convert back and reassemble, again by explicit Z.
	parallel.For(d.Depth, func(z int) {
		floatToSlice(&out, z, blurred[z*sliceLen:(z+1)*sliceLen])
	})
	return &out, nil
}

// gaussianKernel samples a normal distribution at integer offsets out to
// three sigma and normalizes the weights to sum to one.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	n := distuv.Normal{Mu: 0, Sigma: sigma}
	w := make([]float64, 2*radius+1)
	for i := range w {
		w[i] = n.Prob(float64(i - radius))
	}
	floats.Scale(1/floats.Sum(w), w)
	return w
}

func (e *Engine) blur(ctx context.Context, d *volren.VolumeDataset, volume []float32, weights []float64) ([]float32, error) {
	if e.GPU() {
		out, err := e.gpuBlur(ctx, d, volume, weights)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		slogger().Warn("analysis: GPU blur failed, using CPU path", "err", err)
	}
	return cpuBlur(d, volume, weights), nil
}

// cpuBlur applies the two in-plane passes, one slice per work item.
// Border samples clamp to the nearest edge voxel, matching the GPU
// kernel.
func cpuBlur(d *volren.VolumeDataset, volume []float32, weights []float64) []float32 {
	radius := len(weights) / 2
	sliceLen := d.Width * d.Height
	tmp := make([]float32, len(volume))
	out := make([]float32, len(volume))

	parallel.For(d.Depth, func(z int) {
		src := volume[z*sliceLen : (z+1)*sliceLen]
		mid := tmp[z*sliceLen : (z+1)*sliceLen]
		dst := out[z*sliceLen : (z+1)*sliceLen]

		for y := 0; y < d.Height; y++ {
			row := y * d.Width
			for x := 0; x < d.Width; x++ {
				var sum float64
				for k := -radius; k <= radius; k++ {
					c := clampInt(x+k, 0, d.Width-1)
					sum += float64(src[row+c]) * weights[k+radius]
				}
				mid[row+x] = float32(sum)
			}
		}
		for y := 0; y < d.Height; y++ {
			for x := 0; x < d.Width; x++ {
				var sum float64
				for k := -radius; k <= radius; k++ {
					c := clampInt(y+k, 0, d.Height-1)
					sum += float64(mid[c*d.Width+x]) * weights[k+radius]
				}
				dst[y*d.Width+x] = float32(sum)
			}
		}
	})
	return out
}

// blurInfo mirrors the BlurInfo uniform in the blur kernel.
type blurInfo struct {
	Width  uint32
	Height uint32
	Depth  uint32
	Axis   uint32
	Radius uint32
	_      uint32
	_      uint32
	_      uint32
}

// gpuBlur runs the two in-plane passes as separate dispatches, swapping
// source and destination buffers between them.
func (e *Engine) gpuBlur(ctx context.Context, d *volren.VolumeDataset, volume []float32, weights []float64) ([]float32, error) {
	pipeline, err := e.dev.CreatePipeline(&gpu.PipelineDescriptor{
		Label:      "analysis-blur",
		WGSL:       gpu.BlurWGSL,
		EntryPoint: "blur_axis",
	})
	if err != nil {
		return nil, err
	}
	defer pipeline.Destroy()

	byteLen := uint64(len(volume)) * 4
	bufA, err := e.dev.CreateBuffer(&gpu.BufferDescriptor{
		Label: "analysis-blur-a",
		Size:  byteLen,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}
	defer bufA.Destroy()
	bufB, err := e.dev.CreateBuffer(&gpu.BufferDescriptor{
		Label: "analysis-blur-b",
		Size:  byteLen,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}
	defer bufB.Destroy()
	if err := bufA.Upload(f32Bytes(volume)); err != nil {
		return nil, err
	}

	w32 := make([]float32, len(weights))
	for i, w := range weights {
		w32[i] = float32(w)
	}
	weightBuf, err := e.dev.CreateBuffer(&gpu.BufferDescriptor{
		Label: "analysis-blur-weights",
		Size:  uint64(len(w32)) * 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer weightBuf.Destroy()
	if err := weightBuf.Upload(f32Bytes(w32)); err != nil {
		return nil, err
	}

	src, dst := bufA, bufB
	for axis := uint32(0); axis < 2; axis++ {
		info := blurInfo{
			Width:  uint32(d.Width),
			Height: uint32(d.Height),
			Depth:  uint32(d.Depth),
			Axis:   axis,
			Radius: uint32(len(weights) / 2),
		}
		infoBuf, err := e.dev.CreateBuffer(&gpu.BufferDescriptor{
			Label: "analysis-blur-info",
			Size:  uint64(unsafe.Sizeof(info)),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		infoBytes := unsafe.Slice((*byte)(unsafe.Pointer(&info)), unsafe.Sizeof(info))
		if err := infoBuf.Upload(infoBytes); err != nil {
			infoBuf.Destroy()
			return nil, err
		}

		enc, err := e.dev.Begin("analysis-blur")
		if err != nil {
			infoBuf.Destroy()
			return nil, err
		}
		enc.SetPipeline(pipeline)
		enc.BindBuffer(0, src)
		enc.BindBuffer(1, dst)
		enc.BindBuffer(2, weightBuf)
		enc.BindBuffer(3, infoBuf)
		gx := (d.Width + 7) / 8
		gy := (d.Height + 7) / 8
		gz := (d.Depth + 3) / 4
		if err := enc.Dispatch(gx, gy, gz); err != nil {
			infoBuf.Destroy()
			return nil, err
		}
		if err := enc.Submit(ctx); err != nil {
			infoBuf.Destroy()
			return nil, err
		}
		infoBuf.Destroy()
		src, dst = dst, src
	}

	// After the final swap, src holds the last pass' output.
	raw := make([]byte, byteLen)
	if err := src.Read(ctx, raw); err != nil {
		return nil, err
	}
	out := make([]float32, len(volume))
	copy(f32Bytes(out), raw)
	return out, nil
}

// sliceToFloat converts one Z slice to float samples with the dataset's
// numeric binding.
func sliceToFloat(d *volren.VolumeDataset, z int, dst []float32) {
	slice := d.Slice(z)
	signed := d.Format == volren.PixelFormatInt16
	for i := range dst {
		raw := uint16(slice[i*2]) | uint16(slice[i*2+1])<<8
		if signed {
			dst[i] = float32(int16(raw))
		} else {
			dst[i] = float32(raw)
		}
	}
}

// floatToSlice converts float samples back into the dataset's integer
// format with rounding and range clamping.
func floatToSlice(d *volren.VolumeDataset, z int, src []float32) {
	slice := d.Slice(z)
	signed := d.Format == volren.PixelFormatInt16
	for i, v := range src {
		r := math.Round(float64(v))
		var raw uint16
		if signed {
			if r < math.MinInt16 {
				r = math.MinInt16
			} else if r > math.MaxInt16 {
				r = math.MaxInt16
			}
			raw = uint16(int16(r))
		} else {
			if r < 0 {
				r = 0
			} else if r > math.MaxUint16 {
				r = math.MaxUint16
			}
			raw = uint16(r)
		}
		slice[i*2] = byte(raw)
		slice[i*2+1] = byte(raw >> 8)
	}
}

func f32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
