// Package transcript reads and writes the narration timestamp file that links
// narration segments to illustrations.
package transcript
