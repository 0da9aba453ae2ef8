package palette

import (
	"errors"
	"fmt"
	"strings"
)

// Color is the single byte the lamp firmware understands.
type Color byte

const (
	Black Color = '0'
	Red   Color = '1'
	Green Color = '2'
	Blue  Color = '3'
	Gray  Color = '8'
	White Color = '9'
)

var ErrUnknownColor = errors.New("unknown color")

var colorNames = map[Color]string{
	Black: "black",
	Red:   "red",
	Green: "green",
	Blue:  "blue",
	Gray:  "gray",
	White: "white",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Color(%q)", byte(c))
}

func (c Color) Valid() bool {
	_, ok := colorNames[c]
	return ok
}

// ParseColor accepts either a color name ("red", "off" for black, "grey")
// or the wire digit ("1").
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "off":
		return Black, nil
	case "grey":
		return Gray, nil
	}

	for c, name := range colorNames {
		if name == s || string(rune(c)) == s {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

// MarshalText and UnmarshalText let colors appear by name in config files.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColor, byte(c))
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
