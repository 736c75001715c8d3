package gpu

import "fmt"

// Slot identifies a resource position in the raymarch kernel's bind group.
// Slot numbers are stable: the WGSL kernel declares them explicitly, and
// ValidateLayout compares the parsed declarations against this table when
// an ArgumentEncoder is constructed.
type Slot int

const (
	// SlotVolume is the 3D intensity texture.
	SlotVolume Slot = iota
	// SlotParams is the raymarch uniform buffer.
	SlotParams
	// SlotOutput is the RGBA8 output storage texture.
	SlotOutput
	// SlotToneCurve0 through SlotToneCurve3 hold per-channel tone curve
	// sample buffers.
	SlotToneCurve0
	SlotToneCurve1
	SlotToneCurve2
	SlotToneCurve3
	// SlotOptions is the render option bitfield uniform.
	SlotOptions
	// SlotCamera is the camera orientation uniform.
	SlotCamera
	// SlotViewport is the viewport size uniform.
	SlotViewport
	// SlotSampler is the volume sampler.
	SlotSampler
	// SlotPoints and SlotPointCount carry the clip point set.
	SlotPoints
	SlotPointCount
	// SlotRawOutput is the legacy raw intensity output buffer, kept in
	// lockstep with SlotOutput by EnsureOutput.
	SlotRawOutput
	// SlotTransfer0 through SlotTransfer3 hold per-channel transfer
	// function lookup textures.
	SlotTransfer0
	SlotTransfer1
	SlotTransfer2
	SlotTransfer3

	slotCount
)

// SlotCount is the number of bindings in the raymarch kernel contract.
const SlotCount = int(slotCount)

var slotNames = [slotCount]string{
	"volume", "params", "output",
	"tone_curve0", "tone_curve1", "tone_curve2", "tone_curve3",
	"options", "camera", "viewport", "sampler",
	"points", "point_count", "raw_output",
	"transfer0", "transfer1", "transfer2", "transfer3",
}

func (s Slot) String() string {
	if s < 0 || s >= slotCount {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

// Kind returns the binding kind the kernel expects at this slot.
func (s Slot) Kind() BindingKind {
	switch s {
	case SlotVolume:
		return BindingTexture3D
	case SlotOutput:
		return BindingStorageTexture2D
	case SlotSampler:
		return BindingSampler
	case SlotToneCurve0, SlotToneCurve1, SlotToneCurve2, SlotToneCurve3,
		SlotPoints, SlotRawOutput:
		return BindingStorage
	case SlotTransfer0, SlotTransfer1, SlotTransfer2, SlotTransfer3:
		return BindingTexture2D
	default:
		return BindingUniform
	}
}

// KernelLayout returns the full binding contract of the raymarch kernel,
// one declaration per slot in binding order.
func KernelLayout() []BindingDecl {
	decls := make([]BindingDecl, SlotCount)
	for i := range decls {
		decls[i] = BindingDecl{Binding: i, Kind: Slot(i).Kind()}
	}
	return decls
}

// ValidateLayout compares a parsed kernel layout against the host slot
// table. Any divergence is fatal: continuing with a mismatched layout
// would bind resources to the wrong kernel variables.
func ValidateLayout(parsed []BindingDecl) error {
	want := KernelLayout()
	if len(parsed) != len(want) {
		return fmt.Errorf("%w: kernel declares %d bindings, host expects %d",
			ErrLayoutMismatch, len(parsed), len(want))
	}
	for i, d := range parsed {
		if d.Binding != want[i].Binding || d.Kind != want[i].Kind {
			return fmt.Errorf("%w: binding %d is %s, host expects %s",
				ErrLayoutMismatch, d.Binding, d.Kind, want[i].Kind)
		}
	}
	return nil
}
