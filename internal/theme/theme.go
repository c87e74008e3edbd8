package theme

import (
	"fmt"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// achromaticSaturation is the saturation below which a base colour's hue is
// meaningless and therefore not compared.
const achromaticSaturation = 0.1

// HSL is a colour in hue (degrees), saturation and lightness (0..1).
type HSL struct {
	H, S, L float64
}

// FromRGB converts 8-bit RGB components to HSL.
func FromRGB(r, g, b uint8) HSL {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, l := c.Hsl()
	return HSL{H: h, S: s, L: l}
}

// RGB returns the 8-bit RGB components of the colour.
func (c HSL) RGB() (uint8, uint8, uint8) {
	return colorful.Hsl(c.H, c.S, c.L).Clamped().RGB255()
}

// Threshold is the accepted distance per HSL channel.
type Threshold [3]float64

// Theme is one of the game's UI colour schemes. Reward names are drawn in the
// primary colour, highlighted parts in the secondary colour.
type Theme struct {
	Name               string
	Primary            HSL
	Secondary          HSL
	PrimaryThreshold   Threshold
	SecondaryThreshold Threshold
}

// Match reports whether a pixel belongs to text drawn in this theme.
func (t *Theme) Match(p HSL) bool {
	return within(t.Primary, p, t.PrimaryThreshold) || within(t.Secondary, p, t.SecondaryThreshold)
}

// MatchRGB is Match for raw RGB components.
func (t *Theme) MatchRGB(r, g, b uint8) bool {
	return t.Match(FromRGB(r, g, b))
}

func within(base, p HSL, th Threshold) bool {
	if math.Abs(base.S-p.S) > th[1] || math.Abs(base.L-p.L) > th[2] {
		return false
	}
	if base.S < achromaticSaturation {
		return true
	}
	return hueDistance(base.H, p.H) <= th[0]
}

func hueDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Themes is an ordered set of themes. Order breaks ties during detection.
type Themes []Theme

// ByName finds a theme by case-insensitive name.
func (ts Themes) ByName(name string) (*Theme, error) {
	for i := range ts {
		if strings.EqualFold(ts[i].Name, name) {
			return &ts[i], nil
		}
	}
	return nil, fmt.Errorf("unknown theme %q", name)
}

// Default returns the built-in game themes.
func Default() Themes {
	out := make(Themes, len(defaultThemes))
	copy(out, defaultThemes)
	return out
}

var defaultThemes = Themes{
	{Name: "Baruuk", Primary: HSL{39.70, 0.7964, 0.6725}, Secondary: HSL{39.73, 0.6607, 0.7804}, PrimaryThreshold: Threshold{4, 0.16, 0.05}, SecondaryThreshold: Threshold{2, 0.16, 0.05}},
	{Name: "Conquera", Primary: HSL{0, 0, 1}, Secondary: HSL{45.00, 0.7826, 0.8196}, PrimaryThreshold: Threshold{2, 0.05, 0.05}, SecondaryThreshold: Threshold{16, 0.16, 0.075}},
	{Name: "Corpus", Primary: HSL{192.57, 0.9130, 0.5490}, Secondary: HSL{190.14, 0.9726, 0.7137}, PrimaryThreshold: Threshold{8, 0.125, 0.2}, SecondaryThreshold: Threshold{16, 0.2, 0.05}},
	{Name: "DarkLotus", Primary: HSL{285.00, 0.1148, 0.5216}, Secondary: HSL{267.35, 0.6538, 0.7961}, PrimaryThreshold: Threshold{8, 0.05, 0.05}, SecondaryThreshold: Threshold{2, 0.16, 0.16}},
	{Name: "Deadlock", Primary: HSL{0, 0, 1}, Secondary: HSL{51.57, 0.6994, 0.6608}, PrimaryThreshold: Threshold{2, 0.05, 0.05}, SecondaryThreshold: Threshold{8, 0.175, 0.075}},
	{Name: "Equinox", Primary: HSL{233.33, 0.0486, 0.6373}, Secondary: HSL{0, 0.0980, 0.9000}, PrimaryThreshold: Threshold{8, 0.25, 0.1}, SecondaryThreshold: Threshold{16, 0.25, 0.1}},
	{Name: "Fortuna", Primary: HSL{218.67, 0.5422, 0.4882}, Secondary: HSL{310.71, 1.0, 0.7255}, PrimaryThreshold: Threshold{2, 0.125, 0.075}, SecondaryThreshold: Threshold{8, 0.2, 0.1}},
	{Name: "Grineer", Primary: HSL{34.12, 1.0, 0.7000}, Secondary: HSL{41.76, 1.0, 0.8000}, PrimaryThreshold: Threshold{8, 0.15, 0.1}, SecondaryThreshold: Threshold{16, 0.2, 0.05}},
	{Name: "HighContrast", Primary: HSL{210.98, 1.0, 0.7000}, Secondary: HSL{60.00, 1.0, 0.5000}, PrimaryThreshold: Threshold{8, 0.1, 0.05}, SecondaryThreshold: Threshold{2, 0.05, 0.05}},
	{Name: "Legacy", Primary: HSL{0, 0, 1}, Secondary: HSL{51.80, 0.7514, 0.6373}, PrimaryThreshold: Threshold{2, 0.05, 0.05}, SecondaryThreshold: Threshold{4, 0.15, 0.15}},
	{Name: "Lotus", Primary: HSL{196.89, 0.8879, 0.5451}, Secondary: HSL{46.88, 1.0, 0.8745}, PrimaryThreshold: Threshold{4, 0.16, 0.1}, SecondaryThreshold: Threshold{16, 0.15, 0.05}},
	{Name: "LunarRenewal", Primary: HSL{0, 0, 1}, Secondary: HSL{45.12, 0.5656, 0.5667}, PrimaryThreshold: Threshold{2, 0.05, 0.05}, SecondaryThreshold: Threshold{4, 0.175, 0.075}},
	{Name: "Nidus", Primary: HSL{328.24, 0.5730, 0.3490}, Secondary: HSL{353.02, 0.8958, 0.6235}, PrimaryThreshold: Threshold{4, 0.25, 0.075}, SecondaryThreshold: Threshold{2, 0.05, 0.05}},
	{Name: "Orokin", Primary: HSL{145.71, 0.3443, 0.1196}, Secondary: HSL{41.62, 0.9454, 0.3588}, PrimaryThreshold: Threshold{8, 0.35, 0.1}, SecondaryThreshold: Threshold{2, 0.15, 0.05}},
	{Name: "Pom2", Primary: HSL{133.40, 0.6026, 0.6941}, Secondary: HSL{132.73, 0.9802, 0.3961}, PrimaryThreshold: Threshold{2, 0.25, 0.1}, SecondaryThreshold: Threshold{2, 0.05, 0.05}},
	{Name: "Stalker", Primary: HSL{358.03, 0.6630, 0.3608}, Secondary: HSL{2.94, 1.0, 0.6000}, PrimaryThreshold: Threshold{2, 0.05, 0.05}, SecondaryThreshold: Threshold{2, 0.05, 0.05}},
	{Name: "Tenno", Primary: HSL{197.32, 0.8435, 0.2255}, Secondary: HSL{159.61, 0.8957, 0.2255}, PrimaryThreshold: Threshold{2, 0.16, 0.16}, SecondaryThreshold: Threshold{2, 0.16, 0.16}},
	{Name: "Vitruvian", Primary: HSL{45.68, 0.4037, 0.5725}, Secondary: HSL{45.00, 0.7826, 0.8196}, PrimaryThreshold: Threshold{4, 0.16, 0.08}, SecondaryThreshold: Threshold{8, 0.28, 0.1}},
	{Name: "ZephyrHarrier", Primary: HSL{31.08, 0.9843, 0.5000}, Secondary: HSL{12.47, 1.0, 0.5000}, PrimaryThreshold: Threshold{4, 0.05, 0.05}, SecondaryThreshold: Threshold{2, 0.05, 0.05}},
}
