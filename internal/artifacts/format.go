package artifacts

import "lessonreel/internal/params"

// VideoFormat describes output dimensions and the assets tied to them.
type VideoFormat struct {
	Name       string
	Width      int
	Height     int
	Background string
	Narration  string
}

var formats = map[string]VideoFormat{
	params.FormatLandscape: {Name: params.FormatLandscape, Width: 1920, Height: 1080, Background: "background.jpg", Narration: "narration.mp4"},
	params.FormatPortrait:  {Name: params.FormatPortrait, Width: 1080, Height: 1920, Background: "backgroundv.jpg", Narration: "narration_vertical.mp4"},
	params.FormatSquare:    {Name: params.FormatSquare, Width: 1080, Height: 1080, Background: "background.jpg", Narration: "narration_square.mp4"},
}

// FormatFor returns the settings for name. Unknown names fall back to
// landscape.
func FormatFor(name string) VideoFormat {
	if f, ok := formats[name]; ok {
		return f
	}
	return formats[params.FormatLandscape]
}
