// Package pipeline builds and drives the GStreamer graph that decodes the
// wallpaper video.
//
// Two graph shapes are supported. The hardware shape keeps decode and
// scaling on the GPU through VA-API and only downloads the finished BGRA
// frame:
//
//	uridecodebin → queue → vapostproc → videorate → capsfilter → appsink
//
// The software shape decodes and converts on the CPU:
//
//	uridecodebin → queue → videoscale → videorate → videoconvert → capsfilter → appsink
//
// Both pin the output to BGRA at the surface size, optionally capped to a
// fixed framerate with a drop-only videorate. When audio is enabled an
// audio branch runs alongside:
//
//	queue → audioconvert → audioresample → volume → autoaudiosink
//
// Buffering is bounded everywhere: the explicit queues are clamped to two
// buffers, the appsink keeps at most two samples and drops the oldest, and
// every queue uridecodebin creates internally is clamped as it appears so a
// paused wallpaper does not accumulate decoded frames.
//
// Decoded frames are handed over through a single-slot mailbox. The
// streaming thread deposits the newest sample and WithLatestFrame takes it
// from the event loop, so a slow consumer sees fresh frames and never a
// backlog.
package pipeline
