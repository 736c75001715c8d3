package volren

import "sort"

// ControlPoint maps one intensity to a color and opacity.
type ControlPoint struct {
	// Intensity is the voxel intensity this point anchors.
	Intensity float64

	// R, G, B, A are the 8-bit color and opacity at Intensity.
	R, G, B, A uint8
}

// TransferFunction maps voxel intensity to color and opacity through ordered
// control points. It is compiled into a GPU lookup texture by the coordinator;
// the compiled texture is cached by value equality, so two functions with the
// same range and points share one texture.
type TransferFunction struct {
	// IntensityMin and IntensityMax bound the domain the lookup covers.
	IntensityMin, IntensityMax float64

	// Points are the control points. They need not be pre-sorted; Resolve
	// sorts a copy by intensity.
	Points []ControlPoint
}

// Equal reports value equality, the cache key relation for compiled lookup
// textures.
func (tf TransferFunction) Equal(other TransferFunction) bool {
	if tf.IntensityMin != other.IntensityMin || tf.IntensityMax != other.IntensityMax {
		return false
	}
	if len(tf.Points) != len(other.Points) {
		return false
	}
	for i := range tf.Points {
		if tf.Points[i] != other.Points[i] {
			return false
		}
	}
	return true
}

// Resolve bakes the transfer function into an RGBA8 lookup table of the given
// width. Entries between control points are piecewise-linearly interpolated;
// entries outside the outermost points clamp to them. An empty function
// resolves to an opaque grayscale ramp.
//
// The caller's Points slice is not mutated.
func (tf TransferFunction) Resolve(width int) []byte {
	if width <= 0 {
		width = 256
	}
	out := make([]byte, width*4)

	if len(tf.Points) == 0 {
		for i := 0; i < width; i++ {
			v := uint8(i * 255 / (width - 1))
			out[i*4+0] = v
			out[i*4+1] = v
			out[i*4+2] = v
			out[i*4+3] = 255
		}
		return out
	}

	points := make([]ControlPoint, len(tf.Points))
	copy(points, tf.Points)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Intensity < points[j].Intensity
	})

	lo, hi := tf.IntensityMin, tf.IntensityMax
	if hi <= lo {
		lo = points[0].Intensity
		hi = points[len(points)-1].Intensity
		if hi <= lo {
			hi = lo + 1
		}
	}

	for i := 0; i < width; i++ {
		intensity := lo + (hi-lo)*float64(i)/float64(width-1)
		r, g, b, a := sampleControlPoints(points, intensity)
		out[i*4+0] = r
		out[i*4+1] = g
		out[i*4+2] = b
		out[i*4+3] = a
	}
	return out
}

// sampleControlPoints interpolates sorted control points at the intensity.
func sampleControlPoints(points []ControlPoint, intensity float64) (r, g, b, a uint8) {
	first := points[0]
	if intensity <= first.Intensity {
		return first.R, first.G, first.B, first.A
	}
	last := points[len(points)-1]
	if intensity >= last.Intensity {
		return last.R, last.G, last.B, last.A
	}
	for i := 1; i < len(points); i++ {
		p0, p1 := points[i-1], points[i]
		if intensity > p1.Intensity {
			continue
		}
		span := p1.Intensity - p0.Intensity
		t := 0.0
		if span > 0 {
			t = (intensity - p0.Intensity) / span
		}
		return lerp8(p0.R, p1.R, t), lerp8(p0.G, p1.G, t), lerp8(p0.B, p1.B, t), lerp8(p0.A, p1.A, t)
	}
	return last.R, last.G, last.B, last.A
}

// lerp8 linearly interpolates two 8-bit channels.
func lerp8(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
