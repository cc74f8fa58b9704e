package led

import "math"

// Color is a 24-bit RGB pixel value.
type Color struct {
	R, G, B uint8
}

// Black switches a pixel off.
var Black = Color{}

// HSV converts an 8-bit hue/saturation/value triple (hue 0-255 covers the full
// colour wheel) to RGB.
func HSV(hue, sat, val uint8) Color {
	if sat == 0 {
		return Color{val, val, val}
	}

	h := float64(hue) / 256 * 6
	s := float64(sat) / 255
	v := float64(val) / 255

	sector := math.Floor(h)
	f := h - sector
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch int(sector) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return Color{to8(r), to8(g), to8(b)}
}

// Scale dims c by brightness/255.
func (c Color) Scale(brightness uint8) Color {
	if brightness == 255 {
		return c
	}
	scale := func(v uint8) uint8 {
		return uint8((uint16(v) * uint16(brightness)) / 255)
	}
	return Color{scale(c.R), scale(c.G), scale(c.B)}
}

func to8(v float64) uint8 {
	return uint8(math.Round(v * 255))
}
