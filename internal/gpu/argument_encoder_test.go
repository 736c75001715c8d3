package gpu

import (
	"errors"
	"testing"
)

func newTestEncoder(t *testing.T) (*MemDevice, *ArgumentEncoder) {
	t.Helper()
	dev := NewMemDevice()
	pipeline, err := dev.CreatePipeline(&PipelineDescriptor{
		Label:      "raymarch",
		WGSL:       RaymarchWGSL,
		EntryPoint: "raymarch",
	})
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	enc, err := NewArgumentEncoder(dev, pipeline)
	if err != nil {
		t.Fatalf("NewArgumentEncoder: %v", err)
	}
	return dev, enc
}

func TestNewArgumentEncoderRejectsBadLayout(t *testing.T) {
	dev := NewMemDevice()
	pipeline, err := dev.CreatePipeline(&PipelineDescriptor{
		Label:      "bad",
		WGSL:       `@group(0) @binding(0) var<uniform> a : A;`,
		EntryPoint: "main",
	})
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	if _, err := NewArgumentEncoder(dev, pipeline); !errors.Is(err, ErrLayoutMismatch) {
		t.Fatalf("got %v, want ErrLayoutMismatch", err)
	}
}

func TestEncodeValueSkipsUnchangedUploads(t *testing.T) {
	dev, enc := newTestEncoder(t)

	type camera struct{ Right, Up, Forward [4]float32 }
	cam := camera{Right: [4]float32{1, 0, 0, 0}}

	if err := EncodeValue(enc, SlotCamera, cam); err != nil {
		t.Fatalf("first encode: %v", err)
	}
	uploads := dev.Uploads
	if uploads != 1 {
		t.Fatalf("got %d uploads after first encode, want 1", uploads)
	}

	// Same value again: no upload, no dirty flag.
	if err := EncodeValue(enc, SlotCamera, cam); err != nil {
		t.Fatalf("second encode: %v", err)
	}
	mustBind(t, dev, enc)
	if err := EncodeValue(enc, SlotCamera, cam); err != nil {
		t.Fatalf("third encode: %v", err)
	}
	if dev.Uploads != uploads {
		t.Errorf("unchanged value re-uploaded: %d uploads, want %d", dev.Uploads, uploads)
	}
	if st := enc.State(); len(st.Dirty) != 0 {
		t.Errorf("unchanged value left dirty slots: %v", st.Dirty)
	}

	// Changed value uploads again.
	cam.Forward = [4]float32{0, 0, 1, 0}
	if err := EncodeValue(enc, SlotCamera, cam); err != nil {
		t.Fatalf("changed encode: %v", err)
	}
	if dev.Uploads != uploads+1 {
		t.Errorf("changed value: got %d uploads, want %d", dev.Uploads, uploads+1)
	}
}

func TestMarkDirtyForcesReupload(t *testing.T) {
	dev, enc := newTestEncoder(t)

	if err := enc.EncodeBytes(SlotParams, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	uploads := dev.Uploads

	enc.MarkDirty(SlotParams)
	if err := enc.EncodeBytes(SlotParams, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if dev.Uploads != uploads+1 {
		t.Errorf("MarkDirty did not force re-upload: %d uploads, want %d", dev.Uploads, uploads+1)
	}
}

func TestEncodeBytesGrowsBuffer(t *testing.T) {
	dev, enc := newTestEncoder(t)

	if err := enc.EncodeBytes(SlotPoints, make([]byte, 16)); err != nil {
		t.Fatalf("small encode: %v", err)
	}
	if err := enc.EncodeBytes(SlotPoints, make([]byte, 64)); err != nil {
		t.Fatalf("large encode: %v", err)
	}
	if dev.BuffersCreated != 2 {
		t.Errorf("got %d buffers, want 2 (original plus grown)", dev.BuffersCreated)
	}
}

func TestEncodeKindChecks(t *testing.T) {
	_, enc := newTestEncoder(t)

	if err := enc.EncodeBytes(SlotVolume, []byte{0}); err == nil {
		t.Error("EncodeBytes accepted a texture slot")
	}
	dev := NewMemDevice()
	tex, err := dev.CreateTexture(&TextureDescriptor{Label: "t", Width: 1, Height: 1, Depth: 1})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	if err := enc.EncodeTexture(SlotParams, tex); err == nil {
		t.Error("EncodeTexture accepted a buffer slot")
	}
}

func TestEnsureOutputRecreatesOnResize(t *testing.T) {
	dev, enc := newTestEncoder(t)

	if err := enc.EnsureOutput(64, 64); err != nil {
		t.Fatalf("EnsureOutput: %v", err)
	}
	textures := dev.TexturesCreated
	buffers := dev.BuffersCreated

	// Same size is a no-op.
	if err := enc.EnsureOutput(64, 64); err != nil {
		t.Fatalf("EnsureOutput same size: %v", err)
	}
	if dev.TexturesCreated != textures || dev.BuffersCreated != buffers {
		t.Error("EnsureOutput recreated resources for unchanged viewport")
	}

	// Resize recreates the texture and raw buffer together.
	old := enc.Output().(*MemTexture)
	if err := enc.EnsureOutput(128, 96); err != nil {
		t.Fatalf("EnsureOutput resize: %v", err)
	}
	if dev.TexturesCreated != textures+1 || dev.BuffersCreated != buffers+1 {
		t.Errorf("resize created %d textures / %d buffers, want one more of each",
			dev.TexturesCreated-textures, dev.BuffersCreated-buffers)
	}
	if !old.Destroyed() {
		t.Error("old output texture not destroyed on resize")
	}
	if st := enc.State(); st.Width != 128 || st.Height != 96 {
		t.Errorf("state reports %dx%d, want 128x96", st.Width, st.Height)
	}
}

func TestEnsureOutputRejectsBadDimensions(t *testing.T) {
	_, enc := newTestEncoder(t)
	if err := enc.EnsureOutput(0, 64); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("got %v, want ErrSizeMismatch", err)
	}
}

func TestEncodeSamplerReusedAcrossEncodes(t *testing.T) {
	dev, enc := newTestEncoder(t)

	if err := enc.EncodeSampler(FilterLinear); err != nil {
		t.Fatalf("EncodeSampler: %v", err)
	}
	mustBind(t, dev, enc)
	if err := enc.EncodeSampler(FilterLinear); err != nil {
		t.Fatalf("EncodeSampler repeat: %v", err)
	}
	if dev.SamplersCreated != 1 {
		t.Errorf("got %d samplers, want 1", dev.SamplersCreated)
	}
	if err := enc.EncodeSampler(FilterNearest); err != nil {
		t.Fatalf("EncodeSampler new filter: %v", err)
	}
	if dev.SamplersCreated != 2 {
		t.Errorf("got %d samplers after filter change, want 2", dev.SamplersCreated)
	}
}

// mustBind runs a full bind pass so dirty flags clear the way they do
// between real dispatches.
func mustBind(t *testing.T, dev *MemDevice, enc *ArgumentEncoder) {
	t.Helper()
	rec, err := dev.Begin("test")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := enc.Bind(rec); err != nil {
		t.Fatalf("Bind: %v", err)
	}
}
