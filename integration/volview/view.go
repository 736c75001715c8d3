// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package volview

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/volren"
	"github.com/gogpu/volren/render"
)

// Common errors returned by View operations.
var (
	// ErrViewClosed is returned when operations are attempted on a closed view.
	ErrViewClosed = errors.New("volview: view is closed")

	// ErrInvalidDimensions is returned when width or height is invalid.
	ErrInvalidDimensions = errors.New("volview: invalid dimensions")

	// ErrNilProvider is returned when a nil DeviceProvider is passed.
	ErrNilProvider = errors.New("volview: nil DeviceProvider")

	// ErrNoDataset is returned when rendering before SetDataset.
	ErrNoDataset = errors.New("volview: no dataset set")

	// ErrInvalidRenderer is returned when the draw context has no texture
	// creator.
	ErrInvalidRenderer = errors.New("volview: renderer must implement gpucontext.TextureCreator")

	// ErrInvalidDrawContext is returned when the created texture cannot be
	// drawn.
	ErrInvalidDrawContext = errors.New("volview: texture does not implement gpucontext.Texture")
)

// textureDestroyer matches the Destroy signature of window textures.
type textureDestroyer interface {
	Destroy()
}

// View owns a render coordinator and presents its output in a gogpu
// window. The rendered image is uploaded to a window texture lazily and
// only when a new render actually ran.
//
// View is NOT safe for concurrent use.
type View struct {
	coord    *render.Coordinator
	provider gpucontext.DeviceProvider
	dataset  *volren.VolumeDataset
	img      *volren.Image
	texture  any
	dirty    bool
	width    int
	height   int
	closed   bool
}

// New creates a View rendering at the given viewport size. The provider
// should come from gogpu.App.GPUContextProvider(); when it also implements
// gpucontext.HalProvider the coordinator shares the window's device.
func New(provider gpucontext.DeviceProvider, width, height int) (*View, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	return &View{
		coord:    render.New(render.Options{Provider: provider}),
		provider: provider,
		width:    width,
		height:   height,
		dirty:    true,
	}, nil
}

// Coordinator exposes the underlying coordinator for Send commands and
// presets. Returns nil if the view is closed.
func (v *View) Coordinator() *render.Coordinator {
	if v.closed {
		return nil
	}
	return v.coord
}

// SetDataset selects the volume to render and marks the view dirty.
func (v *View) SetDataset(d *volren.VolumeDataset) {
	v.dataset = d
	v.dirty = true
}

// MarkDirty forces a re-render on the next RenderTo. Call it after Send
// when the next frame must reflect the new settings.
func (v *View) MarkDirty() {
	v.dirty = true
}

// Size returns the viewport dimensions.
func (v *View) Size() (width, height int) {
	return v.width, v.height
}

// Resize changes the viewport. The window texture is recreated on the
// next RenderTo.
func (v *View) Resize(width, height int) error {
	if v.closed {
		return ErrViewClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if v.width == width && v.height == height {
		return nil
	}
	v.width = width
	v.height = height
	v.dirty = true
	if v.texture != nil {
		if destroyer, ok := v.texture.(textureDestroyer); ok {
			destroyer.Destroy()
		}
		v.texture = nil
	}
	return nil
}

// Render runs the coordinator when the view is dirty and caches the
// image. It returns the image in either case.
func (v *View) Render(ctx context.Context) (*volren.Image, error) {
	if v.closed {
		return nil, ErrViewClosed
	}
	if v.dataset == nil {
		return nil, ErrNoDataset
	}
	if !v.dirty && v.img != nil {
		return v.img, nil
	}
	res, err := v.coord.RenderImage(ctx, v.dataset, &volren.RenderRequest{
		Width:  v.width,
		Height: v.height,
	})
	if err != nil {
		return nil, err
	}
	v.img = res.Image
	v.dirty = false
	return v.img, nil
}

// RenderTo renders when dirty, uploads the image to a window texture and
// draws it at the origin. The dc parameter should be obtained from
// gogpu.Context.AsTextureDrawer().
func (v *View) RenderTo(ctx context.Context, dc gpucontext.TextureDrawer) error {
	return v.RenderToPosition(ctx, dc, 0, 0)
}

// RenderToPosition is RenderTo at an explicit window position.
func (v *View) RenderToPosition(ctx context.Context, dc gpucontext.TextureDrawer, x, y float32) error {
	needUpload := v.dirty || v.texture == nil
	img, err := v.Render(ctx)
	if err != nil {
		return err
	}

	if v.texture == nil {
		creator := dc.TextureCreator()
		if creator == nil {
			return ErrInvalidRenderer
		}
		tex, err := creator.NewTextureFromRGBA(img.Width, img.Height, img.Pix)
		if err != nil {
			return fmt.Errorf("volview: NewTextureFromRGBA failed: %w", err)
		}
		v.texture = tex
	} else if needUpload {
		if updater, ok := v.texture.(gpucontext.TextureUpdater); ok {
			if err := updater.UpdateData(img.Pix); err != nil {
				return fmt.Errorf("volview: texture update failed: %w", err)
			}
		}
	}

	gpuTex, ok := v.texture.(gpucontext.Texture)
	if !ok {
		return ErrInvalidDrawContext
	}
	return dc.DrawTexture(gpuTex, x, y)
}

// Close releases the coordinator and the window texture. Close is
// idempotent.
func (v *View) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	if v.texture != nil {
		if destroyer, ok := v.texture.(textureDestroyer); ok {
			destroyer.Destroy()
		}
		v.texture = nil
	}
	v.coord.Close()
	return nil
}
