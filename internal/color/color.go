// Package color derives display colors for tag categories.
package color

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// Fixed saturation and lightness keep generated colors readable on light and dark
// backgrounds; only the hue varies.
const (
	saturation = 0.4
	lightness  = 0.65
)

// ForName returns a stable #RRGGBB color for a category name. Names differing only in
// case or surrounding space share a color.
func ForName(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	r, g, b := hslToRGB(float64(h.Sum32()%360), saturation, lightness)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts hue in degrees and saturation, lightness in [0,1] to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var rf, gf, bf float64
	switch sector := int(h/60) % 6; sector {
	case 0:
		rf, gf = c, x
	case 1:
		rf, gf = x, c
	case 2:
		gf, bf = c, x
	case 3:
		gf, bf = x, c
	case 4:
		rf, bf = x, c
	default:
		rf, bf = c, x
	}
	return channel(rf + m), channel(gf + m), channel(bf + m)
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
