package render

import (
	_ "embed"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/rajveermalviya/go-webgpu/wgpu"

	"github.com/vidwall/vidwall/internal/video"
)

//go:embed shader.wgsl
var shaderSource string

// Presenter owns the GPU side of the wallpaper: a WebGPU surface built
// on the Wayland layer surface, a persistent frame texture and a single
// textured quad pipeline. One Upload plus one RenderOnce per decoded
// frame is the whole drawing model.
type Presenter struct {
	size video.FrameSize

	instance  *wgpu.Instance
	surface   *wgpu.Surface
	adapter   *wgpu.Adapter
	device    *wgpu.Device
	queue     *wgpu.Queue
	swapChain *wgpu.SwapChain
	swapDesc  *wgpu.SwapChainDescriptor

	texture     *wgpu.Texture
	textureView *wgpu.TextureView
	sampler     *wgpu.Sampler
	pipeline    *wgpu.RenderPipeline
	bindGroup   *wgpu.BindGroup
}

// New brings up the GPU for the given Wayland display and surface
// pointers. The size is final: layer surfaces never resize after the
// first configure, so the swapchain and frame texture are allocated
// once.
func New(display, surface unsafe.Pointer, size video.FrameSize) (*Presenter, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("render: invalid surface size %s", size)
	}
	if display == nil || surface == nil {
		return nil, fmt.Errorf("render: nil wayland display or surface")
	}

	p := &Presenter{size: size}

	p.instance = wgpu.CreateInstance(nil)
	if p.instance == nil {
		return nil, fmt.Errorf("render: failed to create webgpu instance")
	}

	p.surface = p.instance.CreateSurface(&wgpu.SurfaceDescriptor{
		WaylandSurface: &wgpu.SurfaceDescriptorFromWaylandSurface{
			Display: display,
			Surface: surface,
		},
	})
	if p.surface == nil {
		p.Close()
		return nil, fmt.Errorf("render: failed to create surface")
	}

	adapter, err := p.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: p.surface,
		PowerPreference:   wgpu.PowerPreference_LowPower,
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("render: no suitable gpu adapter: %w", err)
	}
	p.adapter = adapter

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("render: failed to acquire gpu device: %w", err)
	}
	p.device = device
	p.queue = device.GetQueue()

	format := nonSRGB(p.surface.GetPreferredFormat(adapter))
	p.swapDesc = &wgpu.SwapChainDescriptor{
		Usage:       wgpu.TextureUsage_RenderAttachment,
		Format:      format,
		Width:       uint32(size.Width),
		Height:      uint32(size.Height),
		PresentMode: wgpu.PresentMode_Fifo,
	}
	p.swapChain, err = device.CreateSwapChain(p.surface, p.swapDesc)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("render: failed to create swapchain: %w", err)
	}

	if err := p.buildFramePipeline(format); err != nil {
		p.Close()
		return nil, err
	}

	slog.Info("render: presenter ready",
		"width", size.Width, "height", size.Height, "format", format)
	return p, nil
}

func (p *Presenter) buildFramePipeline(format wgpu.TextureFormat) error {
	var err error

	p.texture, err = p.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "frame-texture",
		Size: wgpu.Extent3D{
			Width:              uint32(p.size.Width),
			Height:             uint32(p.size.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension_2D,
		Format:        wgpu.TextureFormat_RGBA8Unorm,
		Usage:         wgpu.TextureUsage_TextureBinding | wgpu.TextureUsage_CopyDst,
	})
	if err != nil {
		return fmt.Errorf("render: failed to create frame texture: %w", err)
	}

	p.textureView, err = p.texture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("render: failed to create texture view: %w", err)
	}

	p.sampler, err = p.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "frame-sampler",
		AddressModeU:  wgpu.AddressMode_ClampToEdge,
		AddressModeV:  wgpu.AddressMode_ClampToEdge,
		AddressModeW:  wgpu.AddressMode_ClampToEdge,
		MagFilter:     wgpu.FilterMode_Linear,
		MinFilter:     wgpu.FilterMode_Linear,
		MipmapFilter:  wgpu.MipmapFilterMode_Nearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		Compare:       wgpu.CompareFunction_Undefined,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("render: failed to create sampler: %w", err)
	}

	shader, err := p.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "frame-shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderSource},
	})
	if err != nil {
		return fmt.Errorf("render: failed to compile shader: %w", err)
	}
	defer shader.Release()

	p.pipeline, err = p.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "frame-pipeline",
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopology_TriangleList,
			FrontFace: wgpu.FrontFace_CCW,
			CullMode:  wgpu.CullMode_None,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     &wgpu.BlendState_Replace,
				WriteMask: wgpu.ColorWriteMask_All,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("render: failed to create pipeline: %w", err)
	}

	layout := p.pipeline.GetBindGroupLayout(0)
	defer layout.Release()

	p.bindGroup, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "frame-bind-group",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.textureView},
			{Binding: 1, Sampler: p.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("render: failed to create bind group: %w", err)
	}
	return nil
}

// Size returns the fixed output dimensions.
func (p *Presenter) Size() video.FrameSize {
	return p.size
}

// Upload copies one decoded frame into the persistent texture. The frame
// must match the presenter size exactly; the pipeline negotiates that
// size with the decoder up front, so a mismatch is a bug.
func (p *Presenter) Upload(frame video.Frame) error {
	if frame.Width != p.size.Width || frame.Height != p.size.Height {
		return fmt.Errorf("render: frame size %dx%d does not match surface %s",
			frame.Width, frame.Height, p.size)
	}
	need := frame.Width * frame.Height * 4
	if len(frame.Data) < need {
		return fmt.Errorf("render: frame buffer holds %d bytes, need %d", len(frame.Data), need)
	}

	p.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  p.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspect_All,
		},
		frame.Data[:need],
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(frame.Width * 4),
			RowsPerImage: uint32(frame.Height),
		},
		&wgpu.Extent3D{
			Width:              uint32(frame.Width),
			Height:             uint32(frame.Height),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// RenderOnce draws the current texture to the next swapchain image and
// presents it. A frame that cannot be acquired is skipped rather than
// treated as fatal; compositors routinely invalidate swapchains and the
// next tick recovers.
func (p *Presenter) RenderOnce() error {
	view, err := p.swapChain.GetCurrentTextureView()
	if err != nil {
		slog.Warn("render: swapchain acquire failed, recreating", "error", err)
		p.swapChain, err = p.device.CreateSwapChain(p.surface, p.swapDesc)
		if err != nil {
			return fmt.Errorf("render: failed to recreate swapchain: %w", err)
		}
		view, err = p.swapChain.GetCurrentTextureView()
		if err != nil {
			slog.Warn("render: skipping frame, no swapchain image", "error", err)
			return nil
		}
	}
	defer view.Release()

	encoder, err := p.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("render: failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOp_Clear,
			StoreOp:    wgpu.StoreOp_Store,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	defer pass.Release()
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.bindGroup, nil)
	pass.Draw(6, 1, 0, 0)
	pass.End()

	commands, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("render: failed to encode frame: %w", err)
	}
	defer commands.Release()

	p.queue.Submit(commands)
	p.swapChain.Present()
	return nil
}

// Close releases every GPU object. Safe on a partially constructed
// presenter.
func (p *Presenter) Close() {
	p.swapChain = nil
	p.swapDesc = nil
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.sampler.Release()
		p.sampler = nil
	}
	if p.textureView != nil {
		p.textureView.Release()
		p.textureView = nil
	}
	if p.texture != nil {
		p.texture.Release()
		p.texture = nil
	}
	if p.device != nil {
		p.device.Release()
		p.device = nil
	}
	if p.adapter != nil {
		p.adapter.Release()
		p.adapter = nil
	}
	if p.surface != nil {
		p.surface.Release()
		p.surface = nil
	}
	if p.instance != nil {
		p.instance.Release()
		p.instance = nil
	}
}
