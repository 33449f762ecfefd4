package domain

import "math"

// Rect is an axis-aligned rectangle in layout (CSS pixel) units, as reported
// by the rendering surface before any device-scale conversion.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scaled returns the rect multiplied into destination pixel space.
func (r Rect) Scaled(scale float64) Rect {
	return Rect{
		X:      r.X * scale,
		Y:      r.Y * scale,
		Width:  r.Width * scale,
		Height: r.Height * scale,
	}
}

// MediaBox is the destination-pixel rectangle where composed video is
// overlaid onto a captured still. Width and height are always even (the
// encoder's yuv420p pixel format requires it) and the origin is clamped
// to non-negative coordinates.
type MediaBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NormalizedBox converts a rect into a valid MediaBox: dimensions rounded,
// floored at 2, rounded up to even; origin rounded and clamped at 0.
func NormalizedBox(r Rect) MediaBox {
	return MediaBox{
		X:      clampOrigin(r.X),
		Y:      clampOrigin(r.Y),
		Width:  ensureEven(r.Width),
		Height: ensureEven(r.Height),
	}
}

// CenteredBox synthesizes a default placement when no video placeholder was
// detected in the layout: centered, 90% of the surface width, height capped
// at 62% of the surface height and 75% of the box width.
func CenteredBox(surfaceWidth, surfaceHeight int) MediaBox {
	if surfaceWidth < 2 {
		surfaceWidth = 2
	}
	if surfaceHeight < 2 {
		surfaceHeight = 2
	}
	boxWidth := ensureEven(float64(surfaceWidth) * 0.9)
	boxHeight := ensureEven(math.Min(float64(surfaceHeight)*0.62, float64(boxWidth)*0.75))
	return MediaBox{
		X:      clampOrigin(float64(surfaceWidth-boxWidth) / 2),
		Y:      clampOrigin(float64(surfaceHeight-boxHeight) / 2),
		Width:  boxWidth,
		Height: boxHeight,
	}
}

func ensureEven(v float64) int {
	rounded := int(math.Round(v))
	if rounded < 2 {
		rounded = 2
	}
	if rounded%2 != 0 {
		rounded++
	}
	return rounded
}

func clampOrigin(v float64) int {
	rounded := int(math.Round(v))
	if rounded < 0 {
		return 0
	}
	return rounded
}

// FitMode selects how a video is transformed into its media box.
type FitMode string

const (
	// FitCover scales the video up to fill the box, cropping overflow.
	FitCover FitMode = "cover"
	// FitContain scales the video down to fit inside the box, letterboxing.
	FitContain FitMode = "contain"
)
