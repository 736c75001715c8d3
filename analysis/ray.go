package analysis

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/volren"
)

// rayEpsilon is the parallel-axis threshold for the slab test.
const rayEpsilon = 1e-6

// Ray is a view ray with a unit direction.
type Ray struct {
	Origin    [3]float32
	Direction [3]float32
}

// NewRay builds a ray, normalizing the direction. A degenerate
// near-zero-length direction falls back to +Z rather than producing NaN.
func NewRay(origin, direction [3]float32) Ray {
	len2 := direction[0]*direction[0] + direction[1]*direction[1] + direction[2]*direction[2]
	if len2 < rayEpsilon*rayEpsilon {
		return Ray{Origin: origin, Direction: [3]float32{0, 0, 1}}
	}
	inv := 1 / math32.Sqrt(len2)
	return Ray{
		Origin:    origin,
		Direction: [3]float32{direction[0] * inv, direction[1] * inv, direction[2] * inv},
	}
}

// RayCastingSample is a ray together with its box intersection distances.
type RayCastingSample struct {
	Ray Ray

	// Entry and Exit are distances along the ray to the dataset bounding
	// box, with Entry clamped to zero when the origin lies inside.
	Entry, Exit float32
}

// IntersectRays intersects each ray against the dataset's physical
// bounding box (origin at zero, extent = dimensions times spacing) using
// the slab method. Rays that miss the box are excluded from the result;
// the call never fails.
func IntersectRays(d *volren.VolumeDataset, rays []Ray) []RayCastingSample {
	boxMax := [3]float32{
		float32(d.Width) * d.Spacing[0],
		float32(d.Height) * d.Spacing[1],
		float32(d.Depth) * d.Spacing[2],
	}
	samples := make([]RayCastingSample, 0, len(rays))
	for _, r := range rays {
		entry, exit, ok := intersectBox(r, boxMax)
		if !ok {
			continue
		}
		samples = append(samples, RayCastingSample{Ray: r, Entry: entry, Exit: exit})
	}
	return samples
}

func intersectBox(r Ray, boxMax [3]float32) (entry, exit float32, ok bool) {
	entry = math32.Inf(-1)
	exit = math32.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o := r.Origin[axis]
		dir := r.Direction[axis]
		if math32.Abs(dir) <= rayEpsilon {
			// Parallel to this axis' slabs: the origin must already lie
			// between them or the ray misses entirely.
			if o < 0 || o > boxMax[axis] {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / dir
		t0 := (0 - o) * inv
		t1 := (boxMax[axis] - o) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		entry = math32.Max(entry, t0)
		exit = math32.Min(exit, t1)
		if exit < entry {
			return 0, 0, false
		}
	}
	// The origin may sit inside the box; the visible segment starts at it.
	if entry < 0 {
		entry = 0
	}
	if exit < entry {
		return 0, 0, false
	}
	return entry, exit, true
}
