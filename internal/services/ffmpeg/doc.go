// Package ffmpeg wraps the ffmpeg invocations used to build lesson videos:
// the narration still, per-segment overlays and clips, the concat demuxer and
// the final audio/video mux.
//
// Failures are reported as services.ErrExternalTool with the tail of ffmpeg's
// stderr attached.
package ffmpeg
