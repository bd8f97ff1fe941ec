package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/ohowland/cgc_powerflow/internal/pkg/topology"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Plot writes a static PNG image. It has no runtime requirements.
type Plot struct {
	width, height vg.Length
}

// NewPlot returns the static backend sized from cfg.
func NewPlot(cfg Config) *Plot {
	def := DefaultConfig()
	if cfg.WidthIn <= 0 {
		cfg.WidthIn = def.WidthIn
	}
	if cfg.HeightIn <= 0 {
		cfg.HeightIn = def.HeightIn
	}
	return &Plot{width: vg.Length(cfg.WidthIn) * vg.Inch, height: vg.Length(cfg.HeightIn) * vg.Inch}
}

// Name implements Backend.
func (p *Plot) Name() string { return "plot" }

// Ext implements Backend.
func (p *Plot) Ext() string { return ".png" }

// Available implements Backend.
func (p *Plot) Available() error { return nil }

// Render implements Backend.
func (p *Plot) Render(fig topology.Figure, w io.Writer) error {
	lo, hi := fig.VoltageRange()

	pl := plot.New()
	pl.Title.Text = fig.Title
	pl.HideAxes()
	pl.X.Min, pl.X.Max = -1.2, 1.2
	pl.Y.Min, pl.Y.Max = -1.2, 1.2

	pos := make(map[int]plotter.XY, len(fig.Nodes))
	xys := make(plotter.XYs, len(fig.Nodes))
	labels := make([]string, len(fig.Nodes))
	for i, n := range fig.Nodes {
		xys[i] = plotter.XY{X: n.X, Y: n.Y}
		pos[n.ID] = xys[i]
		labels[i] = fmt.Sprintf("%s\n%.3f", n.Label, n.Voltage)
	}

	for _, e := range fig.Edges {
		from, ok1 := pos[e.From]
		to, ok2 := pos[e.To]
		if !ok1 || !ok2 || e.From == e.To {
			continue
		}
		line, err := plotter.NewLine(plotter.XYs{from, to})
		if err != nil {
			return err
		}
		line.LineStyle.Color = color.Gray{Y: 0x88}
		line.LineStyle.Width = vg.Points(1.5)
		pl.Add(line)
	}

	if len(xys) > 0 {
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  voltageColor(fig.Nodes[i].Voltage, lo, hi),
				Radius: vg.Points(9),
				Shape:  draw.CircleGlyph{},
			}
		}
		pl.Add(sc)

		lb, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return err
		}
		for i := range lb.TextStyle {
			lb.TextStyle[i].XAlign = text.XCenter
			lb.TextStyle[i].YAlign = text.YTop
		}
		lb.Offset = vg.Point{Y: -vg.Points(10)}
		pl.Add(lb)
	}

	wt, err := pl.WriterTo(p.width, p.height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
