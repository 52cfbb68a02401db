// Package render presents decoded frames on the wallpaper surface
// through WebGPU. The drawing model is deliberately small: one
// persistent RGBA texture the decoder's BGRA frames are written into,
// one sampler, and a fullscreen quad pipeline whose fragment shader
// swaps red and blue back while flipping the image the right way up.
//
// The surface format deliberately avoids sRGB variants. Video frames
// come out of the decoder display referred, and an sRGB swapchain would
// re-encode them on scanout.
package render
