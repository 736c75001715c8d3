//go:build !nogpu

package gpu

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// submitTimeout bounds a single fence wait. Raymarch dispatches finish in
// milliseconds; anything near this limit means a hung queue.
const submitTimeout = 5 * time.Second

// readbackAlign is the required row alignment for texture-to-buffer copies.
const readbackAlign = 256

// Open acquires a GPU device through the HAL Vulkan backend. It returns
// ErrDeviceUnavailable when no backend is registered or no usable adapter
// exists, which callers treat as the signal to render on the CPU.
func Open() (Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not registered", ErrDeviceUnavailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %v", ErrDeviceUnavailable, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w: no adapters", ErrDeviceUnavailable)
	}
	selected := adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("%w: open adapter: %v", ErrDeviceUnavailable, err)
	}
	slogger().Info("gpu: device opened", "adapter", selected.Info.Name)
	return &halDevice{
		device: openDev.Device,
		queue:  openDev.Queue,
		name:   selected.Info.Name,
		owned:  true,
	}, nil
}

// FromProvider wraps an externally owned device. The provider must expose
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue;
// gpucontext.HalProvider satisfies this.
func FromProvider(provider any) (Device, error) {
	hp, ok := provider.(interface {
		HalDevice() any
		HalQueue() any
	})
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL handles", ErrDeviceUnavailable)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrDeviceUnavailable)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrDeviceUnavailable)
	}
	slogger().Info("gpu: using shared device")
	return &halDevice{device: device, queue: queue, name: "shared"}, nil
}

type halDevice struct {
	device hal.Device
	queue  hal.Queue
	name   string
	owned  bool
}

func (d *halDevice) Name() string { return d.name }

func (d *halDevice) Destroy() {
	// Shared devices belong to the provider; only self-acquired devices
	// are torn down here. The HAL frees device resources with the
	// instance, so nothing further is required.
	d.device = nil
	d.queue = nil
}

// readBuffer copies a host-visible buffer into dst. The HAL exposes
// readback through MapBuffer/UnmapBuffer; the caller must have observed
// submission completion before calling this.
func (d *halDevice) readBuffer(buf hal.Buffer, offset uint64, dst []byte) error {
	mapping, err := d.device.MapBuffer(buf, offset, uint64(len(dst)))
	if err != nil {
		return err
	}
	copy(dst, unsafe.Slice((*byte)(mapping.Ptr), len(dst)))
	return d.device.UnmapBuffer(buf)
}

func (d *halDevice) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: buffer %q: %v", ErrResourceCreation, desc.Label, err)
	}
	return &halBuffer{dev: d, buf: buf, size: desc.Size, usage: desc.Usage}, nil
}

func (d *halDevice) CreateTexture(desc *TextureDescriptor) (Texture, error) {
	dim := gputypes.TextureDimension2D
	viewDim := gputypes.TextureViewDimension2D
	depth := uint32(desc.Depth)
	if desc.Array {
		viewDim = gputypes.TextureViewDimension2DArray
	} else if desc.Depth > 1 {
		dim = gputypes.TextureDimension3D
		viewDim = gputypes.TextureViewDimension3D
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: depth,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     dim,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: texture %q: %v", ErrResourceCreation, desc.Label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         desc.Label + "_view",
		Format:        desc.Format,
		Dimension:     viewDim,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("%w: texture view %q: %v", ErrResourceCreation, desc.Label, err)
	}
	return &halTexture{dev: d, tex: tex, view: view, desc: *desc}, nil
}

func (d *halDevice) CreateSampler(desc *SamplerDescriptor) (Sampler, error) {
	filter := gputypes.FilterModeLinear
	if desc.Filter == FilterNearest {
		filter = gputypes.FilterModeNearest
	}
	s, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: sampler %q: %v", ErrResourceCreation, desc.Label, err)
	}
	return &halSampler{dev: d, sampler: s, filter: desc.Filter}, nil
}

func (d *halDevice) CreatePipeline(desc *PipelineDescriptor) (Pipeline, error) {
	decls, err := ParseBindings(desc.WGSL)
	if err != nil {
		return nil, err
	}
	entries := make([]gputypes.BindGroupLayoutEntry, len(decls))
	for i, decl := range decls {
		entries[i] = layoutEntry(decl)
	}
	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bind group layout %q: %v", ErrResourceCreation, desc.Label, err)
	}
	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		d.device.DestroyBindGroupLayout(bindLayout)
		return nil, fmt.Errorf("%w: pipeline layout %q: %v", ErrResourceCreation, desc.Label, err)
	}
	spirv, err := compileWGSL(desc.WGSL)
	if err != nil {
		d.device.DestroyPipelineLayout(pipeLayout)
		d.device.DestroyBindGroupLayout(bindLayout)
		return nil, fmt.Errorf("%w: compile %q: %v", ErrResourceCreation, desc.Label, err)
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label + "_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		d.device.DestroyPipelineLayout(pipeLayout)
		d.device.DestroyBindGroupLayout(bindLayout)
		return nil, fmt.Errorf("%w: shader module %q: %v", ErrResourceCreation, desc.Label, err)
	}
	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: pipeLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		d.device.DestroyShaderModule(module)
		d.device.DestroyPipelineLayout(pipeLayout)
		d.device.DestroyBindGroupLayout(bindLayout)
		return nil, fmt.Errorf("%w: compute pipeline %q: %v", ErrResourceCreation, desc.Label, err)
	}
	return &halPipeline{
		dev:        d,
		decls:      decls,
		module:     module,
		bindLayout: bindLayout,
		pipeLayout: pipeLayout,
		pipeline:   pipeline,
	}, nil
}

func (d *halDevice) Begin(label string) (Encoder, error) {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("%w: command encoder: %v", ErrSubmission, err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("%w: begin encoding: %v", ErrSubmission, err)
	}
	return &halEncoder{dev: d, enc: enc, entries: map[int]gputypes.BindGroupEntry{}}, nil
}

// compileWGSL compiles WGSL to little-endian SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

func layoutEntry(decl BindingDecl) gputypes.BindGroupLayoutEntry {
	entry := gputypes.BindGroupLayoutEntry{
		Binding:    uint32(decl.Binding),
		Visibility: gputypes.ShaderStageCompute,
	}
	switch decl.Kind {
	case BindingUniform:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	case BindingStorage:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
	case BindingTexture2D:
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case BindingTexture2DArray:
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeUint,
			ViewDimension: gputypes.TextureViewDimension2DArray,
		}
	case BindingTexture3D:
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension3D,
		}
	case BindingStorageTexture2D:
		entry.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessReadWrite,
			Format:        gputypes.TextureFormatRGBA8Unorm,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case BindingSampler:
		entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	}
	return entry
}

type halBuffer struct {
	dev   *halDevice
	buf   hal.Buffer
	size  uint64
	usage gputypes.BufferUsage
}

func (b *halBuffer) Size() uint64 { return b.size }

func (b *halBuffer) Upload(data []byte) error {
	if uint64(len(data)) > b.size {
		return fmt.Errorf("%w: upload %d bytes into %d byte buffer", ErrSizeMismatch, len(data), b.size)
	}
	b.dev.queue.WriteBuffer(b.buf, 0, data)
	return nil
}

// Read copies the buffer into a staging buffer and reads it back. The
// copy goes through its own submission so callers can read outside a
// render encoder.
func (b *halBuffer) Read(ctx context.Context, dst []byte) error {
	if uint64(len(dst)) > b.size {
		return fmt.Errorf("%w: read %d bytes from %d byte buffer", ErrSizeMismatch, len(dst), b.size)
	}
	staging, err := b.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "volren-staging",
		Size:  b.size,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	if err != nil {
		return fmt.Errorf("%w: staging buffer: %v", ErrResourceCreation, err)
	}
	defer b.dev.device.DestroyBuffer(staging)

	enc, err := b.dev.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "volren-readback"})
	if err != nil {
		return fmt.Errorf("%w: command encoder: %v", ErrSubmission, err)
	}
	if err := enc.BeginEncoding("volren-readback"); err != nil {
		return fmt.Errorf("%w: begin encoding: %v", ErrSubmission, err)
	}
	enc.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: uint64(len(dst))},
	})
	cmdBuf, err := enc.EndEncoding()
	if err != nil {
		enc.DiscardEncoding()
		return fmt.Errorf("%w: end encoding: %v", ErrSubmission, err)
	}
	defer b.dev.device.FreeCommandBuffer(cmdBuf)
	if err := submitAndWait(ctx, b.dev, cmdBuf); err != nil {
		return err
	}
	if err := b.dev.readBuffer(staging, 0, dst); err != nil {
		return fmt.Errorf("%w: read buffer: %v", ErrSubmission, err)
	}
	return nil
}

func (b *halBuffer) Destroy() {
	if b.buf != nil {
		b.dev.device.DestroyBuffer(b.buf)
		b.buf = nil
	}
}

func (b *halBuffer) handle() uintptr { return b.buf.NativeHandle() }

type halTexture struct {
	dev  *halDevice
	tex  hal.Texture
	view hal.TextureView
	desc TextureDescriptor
}

func (t *halTexture) Width() int                     { return t.desc.Width }
func (t *halTexture) Height() int                    { return t.desc.Height }
func (t *halTexture) Depth() int                     { return t.desc.Depth }
func (t *halTexture) Format() gputypes.TextureFormat { return t.desc.Format }

// Upload writes one layer (or depth slice) of the texture.
func (t *halTexture) Upload(layer int, data []byte, bytesPerRow int) error {
	t.dev.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{Z: uint32(layer)},
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(bytesPerRow),
			RowsPerImage: uint32(t.desc.Height),
		},
		&hal.Extent3D{
			Width:              uint32(t.desc.Width),
			Height:             uint32(t.desc.Height),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// Read copies the first layer into dst as tightly packed rows. The HAL
// requires 256-byte row alignment for texture copies, so the copy goes
// through a padded staging buffer and rows are repacked on the way out.
func (t *halTexture) Read(ctx context.Context, dst []byte, bytesPerRow int) error {
	paddedRow := (bytesPerRow + readbackAlign - 1) / readbackAlign * readbackAlign
	stagingSize := uint64(paddedRow) * uint64(t.desc.Height)
	staging, err := t.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "volren-tex-staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	if err != nil {
		return fmt.Errorf("%w: staging buffer: %v", ErrResourceCreation, err)
	}
	defer t.dev.device.DestroyBuffer(staging)

	enc, err := t.dev.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "volren-tex-readback"})
	if err != nil {
		return fmt.Errorf("%w: command encoder: %v", ErrSubmission, err)
	}
	if err := enc.BeginEncoding("volren-tex-readback"); err != nil {
		return fmt.Errorf("%w: begin encoding: %v", ErrSubmission, err)
	}
	enc.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(paddedRow),
			RowsPerImage: uint32(t.desc.Height),
		},
		TextureBase: hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size: hal.Extent3D{
			Width:              uint32(t.desc.Width),
			Height:             uint32(t.desc.Height),
			DepthOrArrayLayers: 1,
		},
	}})
	cmdBuf, err := enc.EndEncoding()
	if err != nil {
		enc.DiscardEncoding()
		return fmt.Errorf("%w: end encoding: %v", ErrSubmission, err)
	}
	defer t.dev.device.FreeCommandBuffer(cmdBuf)
	if err := submitAndWait(ctx, t.dev, cmdBuf); err != nil {
		return err
	}

	if paddedRow == bytesPerRow {
		return t.dev.readBuffer(staging, 0, dst)
	}
	padded := make([]byte, stagingSize)
	if err := t.dev.readBuffer(staging, 0, padded); err != nil {
		return fmt.Errorf("%w: read buffer: %v", ErrSubmission, err)
	}
	for y := 0; y < t.desc.Height; y++ {
		copy(dst[y*bytesPerRow:(y+1)*bytesPerRow], padded[y*paddedRow:])
	}
	return nil
}

func (t *halTexture) Destroy() {
	if t.view != nil {
		t.dev.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.dev.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

type halSampler struct {
	dev     *halDevice
	sampler hal.Sampler
	filter  FilterMode
}

func (s *halSampler) Filter() FilterMode { return s.filter }

func (s *halSampler) Destroy() {
	if s.sampler != nil {
		s.dev.device.DestroySampler(s.sampler)
		s.sampler = nil
	}
}

type halPipeline struct {
	dev        *halDevice
	decls      []BindingDecl
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

func (p *halPipeline) Bindings() []BindingDecl { return p.decls }

func (p *halPipeline) Destroy() {
	d := p.dev.device
	if p.pipeline != nil {
		d.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		d.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		d.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.module != nil {
		d.DestroyShaderModule(p.module)
		p.module = nil
	}
}

// halEncoder batches bindings and dispatches into one command buffer.
// Bind group creation is deferred to the first Dispatch after a binding
// change so repeated dispatches reuse the same group.
type halEncoder struct {
	dev        *halDevice
	enc        hal.CommandEncoder
	pipeline   *halPipeline
	entries    map[int]gputypes.BindGroupEntry
	group      hal.BindGroup
	groupStale bool
	groups     []hal.BindGroup
}

func (e *halEncoder) SetPipeline(p Pipeline) {
	e.pipeline = p.(*halPipeline)
	e.groupStale = true
}

func (e *halEncoder) BindBuffer(slot int, b Buffer) {
	hb := b.(*halBuffer)
	e.entries[slot] = gputypes.BindGroupEntry{
		Binding: uint32(slot),
		Resource: gputypes.BufferBinding{
			Buffer: hb.handle(),
			Offset: 0,
			Size:   hb.size,
		},
	}
	e.groupStale = true
}

func (e *halEncoder) BindTexture(slot int, t Texture) {
	ht := t.(*halTexture)
	e.entries[slot] = gputypes.BindGroupEntry{
		Binding:  uint32(slot),
		Resource: gputypes.TextureViewBinding{TextureView: ht.view.NativeHandle()},
	}
	e.groupStale = true
}

func (e *halEncoder) BindSampler(slot int, s Sampler) {
	hs := s.(*halSampler)
	e.entries[slot] = gputypes.BindGroupEntry{
		Binding:  uint32(slot),
		Resource: gputypes.SamplerBinding{Sampler: hs.sampler.NativeHandle()},
	}
	e.groupStale = true
}

func (e *halEncoder) Dispatch(gx, gy, gz int) error {
	if e.pipeline == nil {
		return fmt.Errorf("%w: dispatch without pipeline", ErrSubmission)
	}
	if e.groupStale {
		entries := make([]gputypes.BindGroupEntry, 0, len(e.entries))
		for _, decl := range e.pipeline.decls {
			entry, ok := e.entries[decl.Binding]
			if !ok {
				return fmt.Errorf("%w: binding %d unbound", ErrSubmission, decl.Binding)
			}
			entries = append(entries, entry)
		}
		group, err := e.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   "volren-bind-group",
			Layout:  e.pipeline.bindLayout,
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("%w: bind group: %v", ErrResourceCreation, err)
		}
		e.group = group
		e.groups = append(e.groups, group)
		e.groupStale = false
	}
	pass := e.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "volren-pass"})
	pass.SetPipeline(e.pipeline.pipeline)
	pass.SetBindGroup(0, e.group, nil)
	pass.Dispatch(uint32(gx), uint32(gy), uint32(gz))
	pass.End()
	return nil
}

func (e *halEncoder) CopyTextureToBuffer(src Texture, dst Buffer, bytesPerRow int) {
	ht := src.(*halTexture)
	hb := dst.(*halBuffer)
	e.enc.CopyTextureToBuffer(ht.tex, hb.buf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(bytesPerRow),
			RowsPerImage: uint32(ht.desc.Height),
		},
		TextureBase: hal.ImageCopyTexture{Texture: ht.tex, MipLevel: 0},
		Size: hal.Extent3D{
			Width:              uint32(ht.desc.Width),
			Height:             uint32(ht.desc.Height),
			DepthOrArrayLayers: 1,
		},
	}})
}

func (e *halEncoder) CopyBufferToBuffer(src, dst Buffer, size uint64) {
	hs := src.(*halBuffer)
	hd := dst.(*halBuffer)
	e.enc.CopyBufferToBuffer(hs.buf, hd.buf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
}

// Submit finishes encoding and waits for completion. The fence wait runs
// in a goroutine so cancellation is honored; on cancellation the GPU
// work is abandoned, not interrupted.
func (e *halEncoder) Submit(ctx context.Context) error {
	defer e.release()
	cmdBuf, err := e.enc.EndEncoding()
	if err != nil {
		e.enc.DiscardEncoding()
		return fmt.Errorf("%w: end encoding: %v", ErrSubmission, err)
	}
	defer e.dev.device.FreeCommandBuffer(cmdBuf)
	return submitAndWait(ctx, e.dev, cmdBuf)
}

func (e *halEncoder) release() {
	for _, g := range e.groups {
		e.dev.device.DestroyBindGroup(g)
	}
	e.groups = nil
	e.group = nil
}

func submitAndWait(ctx context.Context, dev *halDevice, cmdBuf hal.CommandBuffer) error {
	idx, err := dev.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("%w: submit: %v", ErrSubmission, err)
	}

	done := make(chan error, 1)
	go func() {
		deadline := time.Now().Add(submitTimeout)
		for dev.queue.PollCompleted() < idx {
			if time.Now().After(deadline) {
				done <- fmt.Errorf("%w: fence timeout", ErrSubmission)
				return
			}
			time.Sleep(time.Millisecond)
		}
		done <- nil
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
