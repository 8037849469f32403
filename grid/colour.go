package grid

import "fmt"

// Colour is an index into the fixed 20-colour palette.
// Indices 0-17 are laid out as a 6x3 matrix: hue = index mod 6,
// lightness = index / 6. White and black sit outside the matrix.
type Colour int

const (
	LightRed Colour = iota
	LightYellow
	LightGreen
	LightCyan
	LightBlue
	LightMagenta
	Red
	Yellow
	Green
	Cyan
	Blue
	Magenta
	DarkRed
	DarkYellow
	DarkGreen
	DarkCyan
	DarkBlue
	DarkMagenta
	White
	Black

	// NumColours is the size of the palette.
	NumColours = 20
)

const (
	numHues      = 6
	numLightness = 3
)

var hueNames = [numHues]string{"red", "yellow", "green", "cyan", "blue", "magenta"}

var lightnessNames = [numLightness]string{"light", "normal", "dark"}

var hexValues = [NumColours]string{
	"#FFC0C0", "#FFFFC0", "#C0FFC0", "#C0FFFF", "#C0C0FF", "#FFC0FF",
	"#FF0000", "#FFFF00", "#00FF00", "#00FFFF", "#0000FF", "#FF00FF",
	"#C00000", "#C0C000", "#00C000", "#00C0C0", "#0000C0", "#C000C0",
	"#FFFFFF", "#000000",
}

// Valid reports whether c is a palette index.
func (c Colour) Valid() bool {
	return c >= 0 && c < NumColours
}

// Chromatic reports whether c has a hue and lightness (i.e. is neither
// white nor black).
func (c Colour) Chromatic() bool {
	return c >= 0 && c < White
}

// Hue returns the hue component (0=red ... 5=magenta), or -1 for white,
// black and invalid colours.
func (c Colour) Hue() int {
	if !c.Chromatic() {
		return -1
	}
	return int(c) % numHues
}

// Lightness returns the lightness component (0=light, 1=normal, 2=dark),
// or -1 for white, black and invalid colours.
func (c Colour) Lightness() int {
	if !c.Chromatic() {
		return -1
	}
	return int(c) / numHues
}

// Hex returns the palette's RGB value as "#RRGGBB".
func (c Colour) Hex() string {
	if !c.Valid() {
		return ""
	}
	return hexValues[c]
}

// String returns a display name such as "light red" or "white".
func (c Colour) String() string {
	switch {
	case c == White:
		return "white"
	case c == Black:
		return "black"
	case c.Chromatic():
		return lightnessNames[c.Lightness()] + " " + hueNames[c.Hue()]
	}
	return fmt.Sprintf("Colour(%d)", int(c))
}

// Steps returns the hue and lightness distance from c to other, each taken
// modulo its cycle length. Both colours must be chromatic.
func (c Colour) Steps(other Colour) (hueStep, lightStep int) {
	hueStep = ((other.Hue()-c.Hue())%numHues + numHues) % numHues
	lightStep = ((other.Lightness()-c.Lightness())%numLightness + numLightness) % numLightness
	return hueStep, lightStep
}
