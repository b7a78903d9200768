package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// clearColor is the background the render pass clears to.
var clearColor = wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}

// attachment is a texture with the single view the render pass uses.
type attachment struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func newAttachment(device *wgpu.Device, label string, format wgpu.TextureFormat, width, height, samples uint32) (attachment, error) {
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return attachment{}, fmt.Errorf("%s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return attachment{}, fmt.Errorf("%s view: %w", label, err)
	}
	return attachment{texture: tex, view: view}, nil
}

func (a attachment) release() {
	if a.view != nil {
		a.view.Release()
	}
	if a.texture != nil {
		a.texture.Release()
	}
}

// renderTargets are the size-dependent attachments behind the swapchain: the depth buffer and,
// with multisampling on, the color target that resolves into the swapchain image. Both share
// the sample count.
type renderTargets struct {
	depth     attachment
	color     attachment
	multisamp bool
}

func newRenderTargets(device *wgpu.Device, format wgpu.TextureFormat, width, height int, samples MSAASampleCount) (*renderTargets, error) {
	w, h, n := uint32(width), uint32(height), uint32(samples)
	t := &renderTargets{multisamp: n > 1}

	var err error
	if t.depth, err = newAttachment(device, "Depth Target", DepthFormat, w, h, n); err != nil {
		return nil, err
	}
	if t.multisamp {
		if t.color, err = newAttachment(device, "MSAA Color Target", format, w, h, n); err != nil {
			t.depth.release()
			return nil, err
		}
	}
	return t, nil
}

// pass describes a render pass drawing into the swapchain view, through the multisampled
// color target when there is one.
func (t *renderTargets) pass(swapchain *wgpu.TextureView) *wgpu.RenderPassDescriptor {
	color := wgpu.RenderPassColorAttachment{
		View:       swapchain,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: clearColor,
	}
	if t.multisamp {
		color.View = t.color.view
		color.ResolveTarget = swapchain
		color.StoreOp = wgpu.StoreOpDiscard
	}
	return &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            t.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1,
		},
	}
}

func (t *renderTargets) release() {
	if t == nil {
		return
	}
	t.color.release()
	t.depth.release()
}
