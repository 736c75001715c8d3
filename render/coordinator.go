// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/volren"
	"github.com/gogpu/volren/internal/cache"
	"github.com/gogpu/volren/internal/gpu"
)

// workgroupSize matches @workgroup_size in the raymarch kernel.
const workgroupSize = 16

// defaultCacheLimit bounds the dataset and transfer-function texture
// caches when Options does not say otherwise.
const defaultCacheLimit = 8

// ErrClosed is returned by calls on a closed coordinator.
var ErrClosed = errors.New("render: coordinator closed")

// Options configures a Coordinator.
type Options struct {
	// Device supplies an explicit GPU device, mainly for tests. When nil
	// the coordinator acquires one lazily on first render.
	Device gpu.Device

	// Provider shares an externally owned device. It must expose
	// HalDevice() any and HalQueue() any; gpucontext.HalProvider does.
	// Ignored when Device is set.
	Provider any

	// DisableGPU forces the software renderer.
	DisableGPU bool

	// Settings seeds the persistent parameter layer.
	Settings Settings

	// CacheLimit is the soft entry limit for each texture cache.
	CacheLimit int
}

// tfKey caches compiled transfer-function textures by channel and a
// content fingerprint, so equal functions share one texture.
type tfKey struct {
	channel uint8
	hash    uint64
}

// Coordinator turns render requests into images. It serializes renders
// internally: requests complete in submission order, and each request
// sees the cache state left by the previous completed one.
type Coordinator struct {
	mu       sync.Mutex
	opts     Options
	settings Settings
	tfs      [4]volren.TransferFunction

	dev      gpu.Device
	devTried bool
	devErr   error
	pipeline gpu.Pipeline
	args     *gpu.ArgumentEncoder

	volCache *cache.Cache[volren.DatasetIdentity, gpu.Texture]
	tfCache  *cache.Cache[tfKey, gpu.Texture]

	lastCamera [3][3]float32
	haveCamera bool
	snapshot   Snapshot
	preset     string
	histogram  volren.HistogramResult
	hasHist    bool
	closed     bool
}

// New creates a coordinator. No GPU work happens until the first render.
func New(opts Options) *Coordinator {
	opts.Settings.Normalize()
	limit := opts.CacheLimit
	if limit <= 0 {
		limit = defaultCacheLimit
	}
	c := &Coordinator{
		opts:     opts,
		settings: opts.Settings,
		volCache: cache.New[volren.DatasetIdentity, gpu.Texture](limit),
		tfCache:  cache.New[tfKey, gpu.Texture](limit * 4),
	}
	c.volCache.SetOnEvict(func(t gpu.Texture) { t.Destroy() })
	c.tfCache.SetOnEvict(func(t gpu.Texture) { t.Destroy() })
	return c
}

// RenderImage renders the dataset and suspends the caller until the
// image is ready. GPU failures degrade to the deterministic software
// renderer; only invalid input, cancellation and construction-time
// kernel layout mismatches surface as errors.
func (c *Coordinator) RenderImage(ctx context.Context, d *volren.VolumeDataset, req *volren.RenderRequest) (*volren.RenderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	r := resolve(d, c.settings, req)
	if c.settings.AdaptiveSampling && c.haveCamera && c.lastCamera == r.Camera {
		r.SamplingStep /= 2
		r.Adaptive = true
	}
	c.lastCamera = r.Camera
	c.haveCamera = true

	meta := volren.RenderMetadata{
		Window:      r.Window,
		Compositing: r.Compositing,
		Dataset:     d.Identity(),
		Preset:      c.preset,
	}

	if err := c.ensureDevice(); err != nil {
		if errors.Is(err, gpu.ErrLayoutMismatch) {
			// A layout mismatch is a build contract violation, never
			// papered over by the fallback.
			return nil, err
		}
		return c.softwareResult(d, r, meta, err)
	}

	img, handle, err := c.gpuRender(ctx, d, r)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		slogger().Warn("render: GPU path failed, falling back to CPU", "err", err)
		return c.softwareResult(d, r, meta, err)
	}

	c.snapshot = c.makeSnapshot(true, meta, nil)
	return &volren.RenderResult{Image: img, GPU: true, TextureHandle: handle, Meta: meta}, nil
}

func (c *Coordinator) softwareResult(d *volren.VolumeDataset, r resolved, meta volren.RenderMetadata, cause error) (*volren.RenderResult, error) {
	img := renderSoftware(d, r)
	c.snapshot = c.makeSnapshot(false, meta, cause)
	return &volren.RenderResult{Image: img, GPU: false, Meta: meta}, nil
}

// ensureDevice lazily acquires the device, compiles the raymarch
// pipeline and builds the argument encoder. The first failure is cached:
// a coordinator that could not get a GPU stays on the CPU path.
func (c *Coordinator) ensureDevice() error {
	if c.opts.DisableGPU {
		return fmt.Errorf("%w: disabled by options", gpu.ErrDeviceUnavailable)
	}
	if c.devTried {
		return c.devErr
	}
	c.devTried = true
	c.devErr = c.initDevice()
	return c.devErr
}

func (c *Coordinator) initDevice() error {
	var err error
	switch {
	case c.opts.Device != nil:
		c.dev = c.opts.Device
	case c.opts.Provider != nil:
		c.dev, err = gpu.FromProvider(c.opts.Provider)
	default:
		c.dev, err = gpu.Open()
	}
	if err != nil {
		return err
	}
	c.pipeline, err = c.dev.CreatePipeline(&gpu.PipelineDescriptor{
		Label:      "volren-raymarch",
		WGSL:       gpu.RaymarchWGSL,
		EntryPoint: "raymarch",
	})
	if err != nil {
		return err
	}
	c.args, err = gpu.NewArgumentEncoder(c.dev, c.pipeline)
	if err != nil {
		return err
	}
	slogger().Info("render: GPU pipeline ready", "device", c.dev.Name())
	return nil
}

func (c *Coordinator) gpuRender(ctx context.Context, d *volren.VolumeDataset, r resolved) (*volren.Image, any, error) {
	volume, err := c.volumeTexture(d)
	if err != nil {
		return nil, nil, err
	}
	if err := c.args.EncodeTexture(gpu.SlotVolume, volume); err != nil {
		return nil, nil, err
	}
	for ch := 0; ch < 4; ch++ {
		tex, err := c.transferTexture(ch)
		if err != nil {
			return nil, nil, err
		}
		if err := c.args.EncodeTexture(gpu.SlotTransfer0+gpu.Slot(ch), tex); err != nil {
			return nil, nil, err
		}
	}

	if err := c.args.EnsureOutput(r.Width, r.Height); err != nil {
		return nil, nil, err
	}
	if err := gpu.EncodeValue(c.args, gpu.SlotParams, buildParams(d, r)); err != nil {
		return nil, nil, err
	}
	if err := gpu.EncodeValue(c.args, gpu.SlotOptions, buildOptions(r)); err != nil {
		return nil, nil, err
	}
	if err := gpu.EncodeValue(c.args, gpu.SlotCamera, buildCamera(r)); err != nil {
		return nil, nil, err
	}
	viewport := viewportUniform{Size: [2]float32{float32(r.Width), float32(r.Height)}}
	if err := gpu.EncodeValue(c.args, gpu.SlotViewport, viewport); err != nil {
		return nil, nil, err
	}
	for ch := 0; ch < 4; ch++ {
		curve := buildToneCurve(r.ToneCurves[ch], r.ChannelGain[ch])
		if err := c.args.EncodeBytes(gpu.SlotToneCurve0+gpu.Slot(ch), f32Bytes(curve)); err != nil {
			return nil, nil, err
		}
	}
	points, count := buildClipPoints(r.ClipSpheres)
	if err := c.args.EncodeBytes(gpu.SlotPoints, f32Bytes(points)); err != nil {
		return nil, nil, err
	}
	if err := gpu.EncodeValue(c.args, gpu.SlotPointCount, count); err != nil {
		return nil, nil, err
	}
	filter := gpu.FilterLinear
	if r.Filter == FilterNearest {
		filter = gpu.FilterNearest
	}
	if err := c.args.EncodeSampler(filter); err != nil {
		return nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	enc, err := c.dev.Begin("volren-render")
	if err != nil {
		return nil, nil, err
	}
	if err := c.args.Bind(enc); err != nil {
		return nil, nil, err
	}
	gx := (r.Width + workgroupSize - 1) / workgroupSize
	gy := (r.Height + workgroupSize - 1) / workgroupSize
	if err := enc.Dispatch(gx, gy, 1); err != nil {
		return nil, nil, err
	}
	if err := enc.Submit(ctx); err != nil {
		return nil, nil, err
	}

	out := c.args.Output()
	img := volren.NewImage(r.Width, r.Height)
	if err := out.Read(ctx, img.Pix, r.Width*4); err != nil {
		return nil, nil, err
	}
	return img, out, nil
}

// volumeTexture returns the cached volume texture for the dataset,
// uploading it slice by slice as floats on a miss.
func (c *Coordinator) volumeTexture(d *volren.VolumeDataset) (gpu.Texture, error) {
	return c.volCache.GetOrCreate(d.Identity(), func() (gpu.Texture, error) {
		tex, err := c.dev.CreateTexture(&gpu.TextureDescriptor{
			Label:  "volren-volume",
			Width:  d.Width,
			Height: d.Height,
			Depth:  d.Depth,
			Format: gputypes.TextureFormatR32Float,
			Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		slice := make([]float32, d.Width*d.Height)
		for z := 0; z < d.Depth; z++ {
			sliceFloats(d, z, slice)
			if err := tex.Upload(z, f32Bytes(slice), d.Width*4); err != nil {
				tex.Destroy()
				return nil, err
			}
		}
		// The texture handle is new, but the slot may still carry a
		// snapshot of an evicted texture at the same address.
		c.args.MarkDirty(gpu.SlotVolume)
		slogger().Debug("render: volume texture uploaded", "dataset", d.Identity())
		return tex, nil
	})
}

func (c *Coordinator) transferTexture(channel int) (gpu.Texture, error) {
	tf := c.tfs[channel]
	key := tfKey{channel: uint8(channel), hash: hashTransfer(tf)}
	return c.tfCache.GetOrCreate(key, func() (gpu.Texture, error) {
		tex, err := c.dev.CreateTexture(&gpu.TextureDescriptor{
			Label:  "volren-transfer",
			Width:  transferWidth,
			Height: 1,
			Depth:  1,
			Format: gputypes.TextureFormatRGBA8Unorm,
			Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		if err := tex.Upload(0, tf.Resolve(transferWidth), transferWidth*4); err != nil {
			tex.Destroy()
			return nil, err
		}
		return tex, nil
	})
}

// hashTransfer fingerprints a transfer function's content. Functions that
// compare Equal hash identically, so equal functions share one cached
// texture.
func hashTransfer(tf volren.TransferFunction) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(f float64) {
		bits := math.Float64bits(f)
		for i := range buf {
			buf[i] = byte(bits >> (8 * i))
		}
		h.Write(buf[:])
	}
	put(tf.IntensityMin)
	put(tf.IntensityMax)
	for _, p := range tf.Points {
		put(p.Intensity)
		h.Write([]byte{p.R, p.G, p.B, p.A})
	}
	return h.Sum64()
}

// sliceFloats converts one Z slice to float samples.
func sliceFloats(d *volren.VolumeDataset, z int, dst []float32) {
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

// Close releases all GPU resources. The coordinator is unusable after.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.volCache.Clear()
	c.tfCache.Clear()
	if c.args != nil {
		c.args.Destroy()
		c.args = nil
	}
	if c.pipeline != nil {
		c.pipeline.Destroy()
		c.pipeline = nil
	}
	if c.dev != nil && c.opts.Device == nil {
		c.dev.Destroy()
	}
	c.dev = nil
}
