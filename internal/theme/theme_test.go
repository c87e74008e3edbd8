package theme

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThemes(t *testing.T) {
	ts := Default()
	assert.Len(t, ts, 19)

	// Default hands out a copy.
	ts[0].Name = "changed"
	assert.Equal(t, "Baruuk", Default()[0].Name)

	_, err := ts.ByName("nope")
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	ts := Default()
	for _, th := range ts {
		r, g, b := th.Primary.RGB()
		assert.True(t, th.MatchRGB(r, g, b), "%s primary", th.Name)
		r, g, b = th.Secondary.RGB()
		assert.True(t, th.MatchRGB(r, g, b), "%s secondary", th.Name)
		assert.False(t, th.MatchRGB(0, 0, 0), "%s black", th.Name)
	}
}

func TestHueDistanceWraps(t *testing.T) {
	assert.InDelta(t, 4.0, hueDistance(358, 2), 1e-9)
	assert.InDelta(t, 10.0, hueDistance(10, 20), 1e-9)
	assert.InDelta(t, 180.0, hueDistance(0, 180), 1e-9)
}

func TestStalkerMatchesAcrossZero(t *testing.T) {
	stalker, err := Default().ByName("Stalker")
	require.NoError(t, err)
	// Primary hue is 358; pixels at 359.5 and 0 are within the 2 degree window.
	p := stalker.Primary
	p.H = 359.5
	assert.True(t, stalker.Match(p))
	p.H = 0
	assert.True(t, stalker.Match(p))
	p.H = 5
	assert.False(t, stalker.Match(p))
}

func TestDetectAndFilter(t *testing.T) {
	grineer, err := Default().ByName("Grineer")
	require.NoError(t, err)
	r, g, b := grineer.Primary.RGB()

	img := image.NewRGBA(image.Rect(0, 0, 10, 4))
	for x := 0; x < 10; x++ {
		for y := 0; y < 4; y++ {
			img.SetRGBA(x, y, color.RGBA{A: 255})
		}
	}
	for x := 2; x < 6; x++ {
		img.SetRGBA(x, 1, color.RGBA{R: r, G: g, B: b, A: 255})
	}

	d := Detect(img, img.Bounds(), Default(), 1)
	require.NotNil(t, d.Theme)
	assert.Equal(t, "Grineer", d.Theme.Name)
	assert.Equal(t, 4, d.Matches)
	assert.Equal(t, 40, d.Samples)
	assert.InDelta(t, 0.1, d.Fraction(), 1e-9)

	mask := Filter(img, image.Rect(1, 1, 7, 2), d.Theme)
	assert.Equal(t, image.Rect(0, 0, 6, 1), mask.Bounds())
	assert.Equal(t, Paper, mask.GrayAt(0, 0).Y)
	assert.Equal(t, Ink, mask.GrayAt(1, 0).Y)
	assert.Equal(t, Ink, mask.GrayAt(4, 0).Y)
	assert.Equal(t, Paper, mask.GrayAt(5, 0).Y)

	none := Detect(image.NewRGBA(image.Rect(0, 0, 4, 4)), image.Rect(0, 0, 4, 4), Default(), 1)
	assert.Nil(t, none.Theme)
	assert.Zero(t, none.Fraction())
}
