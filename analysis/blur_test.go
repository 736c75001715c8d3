package analysis

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/volren"
)

func impulseDataset(n int, value uint16) *volren.VolumeDataset {
	data := make([]byte, n*n*n*2)
	c := n / 2
	idx := ((c*n+c)*n + c) * 2
	binary.LittleEndian.PutUint16(data[idx:], value)
	return &volren.VolumeDataset{
		Data:    data,
		Width:   n, Height: n, Depth: n,
		Spacing:      [3]float32{1, 1, 1},
		Format:       volren.PixelFormatUint16,
		IntensityMax: float64(value),
	}
}

func TestGaussianFilterSigmaZeroIsIdentity(t *testing.T) {
	d := randomDataset(t, volren.PixelFormatInt16, 6, 7)
	out, err := New(nil).GaussianFilter(context.Background(), d, 0)
	if err != nil {
		t.Fatalf("GaussianFilter: %v", err)
	}
	if !bytes.Equal(out.Data, d.Data) {
		t.Error("sigma 0 modified voxel data")
	}
	if &out.Data[0] == &d.Data[0] {
		t.Error("output aliases input buffer")
	}
}

func TestGaussianFilterDoesNotMutateInput(t *testing.T) {
	d := impulseDataset(9, 1000)
	before := append([]byte(nil), d.Data...)
	if _, err := New(nil).GaussianFilter(context.Background(), d, 1.5); err != nil {
		t.Fatalf("GaussianFilter: %v", err)
	}
	if !bytes.Equal(d.Data, before) {
		t.Error("input dataset mutated")
	}
}

func TestGaussianFilterSpreadsImpulseInPlane(t *testing.T) {
	const n = 9
	d := impulseDataset(n, 1000)
	out, err := New(nil).GaussianFilter(context.Background(), d, 1)
	if err != nil {
		t.Fatalf("GaussianFilter: %v", err)
	}
	c := n / 2
	center := out.VoxelAt(c, c, c)
	if center >= 1000 || center <= 0 {
		t.Errorf("center %v, want spread below impulse value", center)
	}
	// In-plane neighbors receive equal energy by symmetry.
	left, right := out.VoxelAt(c-1, c, c), out.VoxelAt(c+1, c, c)
	up, down := out.VoxelAt(c, c-1, c), out.VoxelAt(c, c+1, c)
	if left != right || up != down || left != up {
		t.Errorf("asymmetric spread: left %v right %v up %v down %v", left, right, up, down)
	}
	if left <= 0 {
		t.Error("neighbors received no energy")
	}
	// The blur is per slice: adjacent Z slices stay untouched.
	if v := out.VoxelAt(c, c, c-1); v != 0 {
		t.Errorf("slice z-1 received %v, want 0 for in-plane blur", v)
	}
	// Energy is conserved within rounding.
	var total float64
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				total += out.VoxelAt(x, y, z)
			}
		}
	}
	if math.Abs(total-1000) > float64(n*n) {
		t.Errorf("total energy %v, want about 1000", total)
	}
}

func TestGaussianFilterSliceOrderPreserved(t *testing.T) {
	// Give every slice a distinct uniform value; a uniform plane is a
	// fixed point of the in-plane blur, so any reordering of slices
	// during disassembly or reassembly shows up directly.
	const n = 6
	data := make([]byte, n*n*n*2)
	for z := 0; z < n; z++ {
		for i := 0; i < n*n; i++ {
			binary.LittleEndian.PutUint16(data[(z*n*n+i)*2:], uint16(100*(z+1)))
		}
	}
	d := &volren.VolumeDataset{
		Data:    data,
		Width:   n, Height: n, Depth: n,
		Spacing:      [3]float32{1, 1, 1},
		Format:       volren.PixelFormatUint16,
		IntensityMax: 600,
	}
	out, err := New(nil).GaussianFilter(context.Background(), d, 1.2)
	if err != nil {
		t.Fatalf("GaussianFilter: %v", err)
	}
	for z := 0; z < n; z++ {
		if got, want := out.VoxelAt(0, 0, z), float64(100*(z+1)); got != want {
			t.Fatalf("slice %d holds %v, want %v: Z order not preserved", z, got, want)
		}
	}
}

func TestGaussianFilterUnsupportedFormat(t *testing.T) {
	d := randomDataset(t, volren.PixelFormatUint16, 4, 8)
	d.Format = volren.PixelFormat(99)
	_, err := New(nil).GaussianFilter(context.Background(), d, 1)
	if !errors.Is(err, ErrUnsupportedPixelFormat) {
		t.Fatalf("got %v, want ErrUnsupportedPixelFormat", err)
	}
}

func TestGaussianKernelNormalized(t *testing.T) {
	for _, sigma := range []float64{0.5, 1, 2.5} {
		w := gaussianKernel(sigma)
		if len(w)%2 != 1 {
			t.Errorf("sigma %v: even kernel length %d", sigma, len(w))
		}
		var sum float64
		for _, v := range w {
			sum += v
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("sigma %v: kernel sum %v, want 1", sigma, sum)
		}
	}
}
