package gpu

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
)

// ArgumentEncoder manages the resources bound to the raymarch kernel.
//
// It tracks state at two levels. Each slot carries a dirty flag that
// records whether its resource must be re-bound on the next dispatch.
// Uniform and storage slots additionally keep a byte snapshot of the
// last uploaded value, so encoding an unchanged value is a no-op: no
// upload, no dirty flag, no rebind.
type ArgumentEncoder struct {
	dev      Device
	pipeline Pipeline
	slots    [SlotCount]slotState

	output  Texture
	raw     Buffer
	outW    int
	outH    int
	uploads uint64
	binds   uint64
}

type slotState struct {
	buffer   Buffer // owned, created lazily for value slots
	texture  Texture
	sampler  Sampler
	snapshot []byte
	dirty    bool // needs rebind on the next Bind
	force    bool // next encode must upload even if the value is unchanged
	set      bool
}

// EncoderState reports counters and per-slot dirty state for diagnostics.
type EncoderState struct {
	Uploads uint64
	Binds   uint64
	Dirty   []Slot
	Width   int
	Height  int
}

// NewArgumentEncoder builds an encoder for the given pipeline. The
// pipeline's parsed binding layout is validated against the host slot
// table; a mismatch is fatal and returns ErrLayoutMismatch.
func NewArgumentEncoder(dev Device, pipeline Pipeline) (*ArgumentEncoder, error) {
	if err := ValidateLayout(pipeline.Bindings()); err != nil {
		return nil, err
	}
	return &ArgumentEncoder{dev: dev, pipeline: pipeline}, nil
}

// EncodeBytes uploads raw bytes to a uniform or storage slot. The upload
// is skipped when the bytes match the slot's last snapshot and the slot
// has not been explicitly marked dirty.
func (e *ArgumentEncoder) EncodeBytes(slot Slot, data []byte) error {
	kind := slot.Kind()
	if kind != BindingUniform && kind != BindingStorage {
		return fmt.Errorf("gpu: slot %s holds a %s, not a buffer", slot, kind)
	}
	st := &e.slots[slot]
	if st.set && !st.force && bytes.Equal(st.snapshot, data) {
		return nil
	}
	if st.buffer == nil || st.buffer.Size() < uint64(len(data)) {
		if st.buffer != nil {
			st.buffer.Destroy()
		}
		usage := gputypes.BufferUsageCopyDst
		if kind == BindingUniform {
			usage |= gputypes.BufferUsageUniform
		} else {
			usage |= gputypes.BufferUsageStorage
		}
		buf, err := e.dev.CreateBuffer(&BufferDescriptor{
			Label: "volren-" + slot.String(),
			Size:  uint64(len(data)),
			Usage: usage,
		})
		if err != nil {
			return fmt.Errorf("gpu: slot %s: %w", slot, err)
		}
		st.buffer = buf
	}
	if err := st.buffer.Upload(data); err != nil {
		return fmt.Errorf("gpu: slot %s upload: %w", slot, err)
	}
	st.snapshot = append(st.snapshot[:0], data...)
	st.dirty = true
	st.force = false
	st.set = true
	e.uploads++
	return nil
}

// EncodeValue uploads a fixed-size value to a uniform or storage slot,
// with the same snapshot-based skip as EncodeBytes. T must not contain
// pointers; the value is copied byte for byte into GPU memory.
func EncodeValue[T any](e *ArgumentEncoder, slot Slot, v T) error {
	size := unsafe.Sizeof(v)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	return e.EncodeBytes(slot, data)
}

// EncodeTexture binds a texture to a texture slot. Textures are owned by
// the caller; the encoder only re-binds when the texture changes.
func (e *ArgumentEncoder) EncodeTexture(slot Slot, tex Texture) error {
	kind := slot.Kind()
	switch kind {
	case BindingTexture2D, BindingTexture2DArray, BindingTexture3D, BindingStorageTexture2D:
	default:
		return fmt.Errorf("gpu: slot %s holds a %s, not a texture", slot, kind)
	}
	st := &e.slots[slot]
	if st.set && !st.force && st.texture == tex {
		return nil
	}
	st.texture = tex
	st.dirty = true
	st.force = false
	st.set = true
	return nil
}

// EncodeSampler configures the volume sampler slot. The sampler is owned
// by the encoder and recreated only when the filter mode changes.
func (e *ArgumentEncoder) EncodeSampler(filter FilterMode) error {
	st := &e.slots[SlotSampler]
	if st.sampler != nil && st.sampler.Filter() == filter && !st.force {
		return nil
	}
	if st.sampler != nil {
		st.sampler.Destroy()
	}
	s, err := e.dev.CreateSampler(&SamplerDescriptor{Label: "volren-sampler", Filter: filter})
	if err != nil {
		return fmt.Errorf("gpu: sampler: %w", err)
	}
	st.sampler = s
	st.dirty = true
	st.force = false
	st.set = true
	return nil
}

// MarkDirty forces a slot to re-upload and re-bind on its next encode,
// bypassing the snapshot comparison. Used when a cached texture was
// regenerated in place and the handle alone cannot reveal the change.
func (e *ArgumentEncoder) MarkDirty(slot Slot) {
	e.slots[slot].dirty = true
	e.slots[slot].force = true
}

// EnsureOutput makes sure the output texture and the legacy raw output
// buffer exist and match the viewport. Both are recreated together so a
// kernel writing to either always sees consistent dimensions.
func (e *ArgumentEncoder) EnsureOutput(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: output %dx%d", ErrSizeMismatch, width, height)
	}
	if e.output != nil && e.outW == width && e.outH == height {
		return nil
	}
	if e.output != nil {
		e.output.Destroy()
		e.output = nil
	}
	if e.raw != nil {
		e.raw.Destroy()
		e.raw = nil
	}
	tex, err := e.dev.CreateTexture(&TextureDescriptor{
		Label:  "volren-output",
		Width:  width,
		Height: height,
		Depth:  1,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageStorageBinding | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("gpu: output texture: %w", err)
	}
	raw, err := e.dev.CreateBuffer(&BufferDescriptor{
		Label: "volren-raw-output",
		Size:  uint64(width) * uint64(height) * 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		tex.Destroy()
		return fmt.Errorf("gpu: raw output buffer: %w", err)
	}
	e.output = tex
	e.raw = raw
	e.outW = width
	e.outH = height
	e.slots[SlotOutput] = slotState{texture: tex, dirty: true, set: true}
	e.slots[SlotRawOutput] = slotState{buffer: raw, dirty: true, set: true}
	return nil
}

// Output returns the current output texture, or nil before EnsureOutput.
func (e *ArgumentEncoder) Output() Texture { return e.output }

// Bind applies the encoded resources to a command encoder and clears all
// dirty flags. Every populated slot is bound; slots that were dirty since
// the previous Bind are counted toward the rebind counter.
func (e *ArgumentEncoder) Bind(enc Encoder) error {
	enc.SetPipeline(e.pipeline)
	for i := range e.slots {
		st := &e.slots[i]
		if !st.set {
			continue
		}
		slot := Slot(i)
		switch {
		case st.sampler != nil:
			enc.BindSampler(i, st.sampler)
		case st.texture != nil:
			enc.BindTexture(i, st.texture)
		case st.buffer != nil:
			enc.BindBuffer(i, st.buffer)
		default:
			return fmt.Errorf("gpu: slot %s marked set but holds no resource", slot)
		}
		if st.dirty {
			e.binds++
			st.dirty = false
		}
	}
	return nil
}

// State returns a snapshot of the encoder's counters and dirty slots.
func (e *ArgumentEncoder) State() EncoderState {
	s := EncoderState{Uploads: e.uploads, Binds: e.binds, Width: e.outW, Height: e.outH}
	for i := range e.slots {
		if e.slots[i].dirty {
			s.Dirty = append(s.Dirty, Slot(i))
		}
	}
	return s
}

// Destroy releases encoder-owned resources. Caller-owned textures bound
// via EncodeTexture are left untouched.
func (e *ArgumentEncoder) Destroy() {
	for i := range e.slots {
		st := &e.slots[i]
		if st.buffer != nil {
			st.buffer.Destroy()
		}
		if st.sampler != nil {
			st.sampler.Destroy()
		}
		e.slots[i] = slotState{}
	}
	if e.output != nil {
		e.output.Destroy()
	}
	e.output = nil
	e.raw = nil
	e.outW, e.outH = 0, 0
}
