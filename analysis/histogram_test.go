package analysis

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/gogpu/volren"
	"github.com/gogpu/volren/internal/gpu"
)

func randomDataset(t *testing.T, format volren.PixelFormat, n int, seed int64) *volren.VolumeDataset {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, n*n*n*2)
	for i := 0; i < len(data); i += 2 {
		binary.LittleEndian.PutUint16(data[i:], uint16(rng.Intn(4096)))
	}
	d := &volren.VolumeDataset{
		Data:    data,
		Width:   n, Height: n, Depth: n,
		Spacing:      [3]float32{1, 1, 1},
		Format:       format,
		IntensityMin: 0,
		IntensityMax: 4095,
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return d
}

func TestHistogramTotalEqualsVoxelCount(t *testing.T) {
	e := New(nil)
	for _, format := range []volren.PixelFormat{volren.PixelFormatInt16, volren.PixelFormatUint16} {
		d := randomDataset(t, format, 8, 1)
		h, err := e.Histogram(context.Background(), d, 64, 0, 0)
		if err != nil {
			t.Fatalf("%s: Histogram: %v", format, err)
		}
		if got, want := h.Total(), float64(d.VoxelCount()); math.Abs(got-want) > 1e-9 {
			t.Errorf("%s: total %v, want %v", format, got, want)
		}
		if h.Min != 0 || h.Max != 4095 {
			t.Errorf("%s: range [%v,%v], want dataset range [0,4095]", format, h.Min, h.Max)
		}
	}
}

func TestHistogramClampsOutOfRangeSamples(t *testing.T) {
	d := randomDataset(t, volren.PixelFormatUint16, 4, 2)
	h, err := New(nil).Histogram(context.Background(), d, 16, 1000, 2000)
	if err != nil {
		t.Fatalf("Histogram: %v", err)
	}
	// Clamping means nothing is dropped: total still equals voxel count.
	if got, want := h.Total(), float64(d.VoxelCount()); got != want {
		t.Errorf("total %v, want %v", got, want)
	}
}

func TestHistogramRejectsBadBinCount(t *testing.T) {
	d := randomDataset(t, volren.PixelFormatUint16, 4, 3)
	if _, err := New(nil).Histogram(context.Background(), d, 0, 0, 0); err == nil {
		t.Fatal("accepted zero bin count")
	}
}

func TestHistogramSignedFormatRoutesToCPU(t *testing.T) {
	dev := gpu.NewMemDevice()
	e := New(dev)
	d := randomDataset(t, volren.PixelFormatInt16, 4, 4)
	if _, err := e.Histogram(context.Background(), d, 16, 0, 0); err != nil {
		t.Fatalf("Histogram: %v", err)
	}
	if dev.Dispatches != 0 {
		t.Errorf("signed 16-bit data dispatched %d GPU kernels, want CPU path", dev.Dispatches)
	}
}

// emulateHistogramDispatch makes MemDevice behave like the histogram
// kernel: it reads the uploaded slice layers and accumulates counts into
// the bin buffer.
func emulateHistogramDispatch(e *gpu.MemEncoder, gx, gy, gz int) {
	tex := e.Texture(0)
	bins := e.Buffer(1).Bytes()
	info := e.Buffer(2).Bytes()
	minValue := math.Float32frombits(binary.LittleEndian.Uint32(info[0:]))
	invBinWidth := math.Float32frombits(binary.LittleEndian.Uint32(info[4:]))
	binCount := binary.LittleEndian.Uint32(info[8:])

	for z := 0; z < tex.Depth(); z++ {
		layer := tex.Layer(z)
		for i := 0; i+1 < len(layer); i += 2 {
			raw := binary.LittleEndian.Uint16(layer[i:])
			v := (float32(raw) - minValue) * invBinWidth
			if v < 0 {
				v = 0
			}
			bin := uint32(v)
			if bin >= binCount {
				bin = binCount - 1
			}
			count := binary.LittleEndian.Uint32(bins[bin*4:])
			binary.LittleEndian.PutUint32(bins[bin*4:], count+1)
		}
	}
}

func TestHistogramGPUAgreesWithCPU(t *testing.T) {
	dev := gpu.NewMemDevice()
	dev.OnDispatch = emulateHistogramDispatch

	d := randomDataset(t, volren.PixelFormatUint16, 8, 5)
	gpuH, err := New(dev).Histogram(context.Background(), d, 64, 0, 0)
	if err != nil {
		t.Fatalf("GPU Histogram: %v", err)
	}
	if dev.Dispatches == 0 {
		t.Fatal("GPU path not taken for unsigned 16-bit data")
	}
	cpuH, err := New(nil).Histogram(context.Background(), d, 64, 0, 0)
	if err != nil {
		t.Fatalf("CPU Histogram: %v", err)
	}
	if got, want := gpuH.Total(), float64(d.VoxelCount()); math.Abs(got-want) > 1e-9 {
		t.Errorf("GPU total %v, want %v", got, want)
	}
	for i := range cpuH.Bins {
		if math.Abs(gpuH.Bins[i]-cpuH.Bins[i]) > 1e-9 {
			t.Fatalf("bin %d: GPU %v, CPU %v", i, gpuH.Bins[i], cpuH.Bins[i])
		}
	}
}

func TestHistogramGPUFailureDegradesToCPU(t *testing.T) {
	dev := gpu.NewMemDevice()
	dev.FailSubmit = true

	d := randomDataset(t, volren.PixelFormatUint16, 4, 6)
	h, err := New(dev).Histogram(context.Background(), d, 16, 0, 0)
	if err != nil {
		t.Fatalf("Histogram: %v", err)
	}
	if got, want := h.Total(), float64(d.VoxelCount()); got != want {
		t.Errorf("total %v, want %v after CPU degradation", got, want)
	}
}

func TestNormalize(t *testing.T) {
	h := volren.HistogramResult{Bins: []float64{1, 3}, Min: 0, Max: 1}
	Normalize(&h)
	if math.Abs(h.Total()-1) > 1e-12 {
		t.Errorf("normalized total %v, want 1", h.Total())
	}
	if h.Bins[1] != 0.75 {
		t.Errorf("bin 1 = %v, want 0.75", h.Bins[1])
	}

	empty := volren.HistogramResult{Bins: []float64{0, 0}}
	Normalize(&empty)
	if empty.Total() != 0 {
		t.Error("empty histogram changed by Normalize")
	}
}

func TestBinEdges(t *testing.T) {
	h := volren.HistogramResult{Bins: make([]float64, 4), Min: 0, Max: 8}
	edges := BinEdges(h)
	if len(edges) != 5 {
		t.Fatalf("got %d edges, want 5", len(edges))
	}
	if edges[0] != 0 || edges[4] != 8 || edges[2] != 4 {
		t.Errorf("edges %v, want [0 2 4 6 8]", edges)
	}
}
