package render

import (
	"fmt"
	"image/color"
	"sync"

	"gonum.org/v1/plot/palette/brewer"
)

// Config selects and sizes the backends.
type Config struct {
	Interactive bool    `mapstructure:"interactive"`
	AssetsHost  string  `mapstructure:"assets_host"`
	WidthIn     float64 `mapstructure:"width_in"`
	HeightIn    float64 `mapstructure:"height_in"`
}

// DefaultConfig enables the interactive backend with a 10x8 inch static fallback.
func DefaultConfig() Config {
	return Config{Interactive: true, WidthIn: 10, HeightIn: 8}
}

var ylGnBu = sync.OnceValue(func() []color.Color {
	p, err := brewer.GetPalette(brewer.TypeSequential, "YlGnBu", 9)
	if err != nil {
		panic(err)
	}
	return p.Colors()
})

// voltageColor maps v within [lo, hi] onto the YlGnBu scale.
func voltageColor(v, lo, hi float64) color.Color {
	cs := ylGnBu()
	if hi <= lo {
		return cs[len(cs)/2]
	}
	i := int((v - lo) / (hi - lo) * float64(len(cs)-1))
	i = min(max(i, 0), len(cs)-1)
	return cs[i]
}

func hex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

func paletteHex() []string {
	cs := ylGnBu()
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = hex(c)
	}
	return out
}
