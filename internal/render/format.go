package render

import "github.com/rajveermalviya/go-webgpu/wgpu"

// nonSRGB strips the sRGB view from a surface format. Decoded frames are
// already display referred, so presenting them through an sRGB swapchain
// would apply the transfer function a second time and wash the image
// out.
func nonSRGB(format wgpu.TextureFormat) wgpu.TextureFormat {
	switch format {
	case wgpu.TextureFormat_BGRA8UnormSrgb:
		return wgpu.TextureFormat_BGRA8Unorm
	case wgpu.TextureFormat_RGBA8UnormSrgb:
		return wgpu.TextureFormat_RGBA8Unorm
	default:
		return format
	}
}
