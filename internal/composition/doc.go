// Package composition implements step 4: the final lesson video.
//
// Each timed segment that has an illustration is centred on the background,
// rendered to a still clip of the segment's length, and the clips are joined
// in order. Stretches of narration without an illustration hold the previous
// picture so the images stay in sync with the audio. The joined clip is then
// muxed with the narration video's soundtrack, fitted to the requested
// format and padded past the end of the narration.
//
// When a publisher is configured, step 4 finishes by publishing the video.
// Publishing failures are logged and do not fail the step.
package composition
