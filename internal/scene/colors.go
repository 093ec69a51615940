package scene

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// Colormap resolves numeric attribute values to colors. Each resolution
// instantiates a fresh underlying color map, so Colormap values are safe to
// share and resolution is a pure function of its inputs.
type Colormap struct {
	name string
	make func() palette.ColorMap
}

var colormaps = map[string]func() palette.ColorMap{
	"kindlmann":           moreland.Kindlmann,
	"extended_black_body": moreland.ExtendedBlackBody,
	"smooth_blue_red":     func() palette.ColorMap { return moreland.SmoothBlueRed() },
}

// DefaultColormapName is used when the configuration names none.
const DefaultColormapName = "kindlmann"

// NewColormap returns the named continuous colormap.
func NewColormap(name string) (Colormap, error) {
	if name == "" {
		name = DefaultColormapName
	}
	mk, ok := colormaps[name]
	if !ok {
		return Colormap{}, fmt.Errorf("unknown colormap %q", name)
	}
	return Colormap{name: name, make: mk}, nil
}

// Name returns the colormap's configuration name.
func (c Colormap) Name() string { return c.name }

// Numeric maps values onto the colormap scaled to their observed min/max.
// A constant array resolves every element to the colormap midpoint.
func (c Colormap) Numeric(values []float64) []RGB {
	if len(values) == 0 {
		return nil
	}
	cm := c.make()
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		// Degenerate range; widen it so At() stays in bounds and every
		// element lands mid-scale.
		lo, hi = lo-0.5, hi+0.5
	}
	cm.SetMin(lo)
	cm.SetMax(hi)

	out := make([]RGB, len(values))
	for i, v := range values {
		col, err := cm.At(v)
		if err != nil {
			// Out-of-range is impossible after scaling; keep zero color.
			continue
		}
		out[i] = toRGB(col)
	}
	return out
}

// LegendEntry pairs one category value with its resolved color.
type LegendEntry struct {
	Label string `json:"label"`
	Color RGB    `json:"color"`
}

// categoryBase is the fixed palette categorical values hash into. Keying by
// hash rather than first-seen order keeps a category's color identical across
// layers, recompositions and dataset reloads.
var categoryBase = palette.Rainbow(64, palette.Red, palette.Magenta, 0.85, 0.9, 1).Colors()

// CategoryColor returns the stable color for one category value.
func CategoryColor(label string) RGB {
	h := fnv.New32a()
	h.Write([]byte(label))
	return toRGB(categoryBase[int(h.Sum32())%len(categoryBase)])
}

// Categorical resolves per-element colors for a categorical attribute and
// returns the legend, sorted by label.
func Categorical(labels []string) ([]RGB, []LegendEntry) {
	if len(labels) == 0 {
		return nil, nil
	}
	byLabel := make(map[string]RGB)
	out := make([]RGB, len(labels))
	for i, label := range labels {
		col, ok := byLabel[label]
		if !ok {
			col = CategoryColor(label)
			byLabel[label] = col
		}
		out[i] = col
	}

	legend := make([]LegendEntry, 0, len(byLabel))
	for label, col := range byLabel {
		legend = append(legend, LegendEntry{Label: label, Color: col})
	}
	sort.Slice(legend, func(i, j int) bool { return legend[i].Label < legend[j].Label })
	return out, legend
}

func toRGB(c color.Color) RGB {
	r, g, b, _ := c.RGBA()
	return RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}
