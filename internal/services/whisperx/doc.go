// Package whisperx runs WhisperX locally through uvx as an alternative to the
// hosted transcription endpoint.
//
// The narration MP3 is first converted to a mono 16kHz WAV with ffmpeg, then
// transcribed with sentence-level segment resolution. Segments are read back
// from WhisperX's JSON output and returned as transcript segments.
package whisperx
