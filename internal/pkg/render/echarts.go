package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/ohowland/cgc_powerflow/internal/pkg/topology"
)

// ECharts writes an interactive HTML document with hover tooltips.
type ECharts struct {
	enabled    bool
	assetsHost string
}

// NewECharts returns the interactive backend. It reports unavailable when cfg disables it.
func NewECharts(cfg Config) *ECharts {
	return &ECharts{enabled: cfg.Interactive, assetsHost: cfg.AssetsHost}
}

// Name implements Backend.
func (e *ECharts) Name() string { return "echarts" }

// Ext implements Backend.
func (e *ECharts) Ext() string { return ".html" }

// Available implements Backend.
func (e *ECharts) Available() error {
	if !e.enabled {
		return fmt.Errorf("%w: interactive output disabled", ErrBackendUnavailable)
	}
	return nil
}

// Render implements Backend.
func (e *ECharts) Render(fig topology.Figure, w io.Writer) error {
	lo, hi := fig.VoltageRange()

	init := opts.Initialization{PageTitle: fig.Title, Width: "900px", Height: "720px"}
	if e.assetsHost != "" {
		init.AssetsHost = e.assetsHost
	}

	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: fig.Title, Subtitle: "bus voltage (p.u.)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Text:       []string{"Voltage (p.u.)"},
			InRange:    &opts.VisualMapInRange{Color: paletteHex()},
		}),
	)

	nodes := make([]opts.GraphNode, len(fig.Nodes))
	for i, n := range fig.Nodes {
		nodes[i] = opts.GraphNode{
			Name:       nodeName(n.ID),
			X:          float32(n.X * 300),
			Y:          float32(-n.Y * 300),
			Value:      float32(n.Voltage),
			Fixed:      opts.Bool(true),
			SymbolSize: 20,
			ItemStyle:  &opts.ItemStyle{Color: hex(voltageColor(n.Voltage, lo, hi))},
			Tooltip: &opts.Tooltip{
				Show:      opts.Bool(true),
				Formatter: types.FuncStr(strings.Join(n.Tooltip, "<br/>")),
			},
		}
	}

	links := make([]opts.GraphLink, 0, len(fig.Edges))
	for _, l := range fig.Edges {
		links = append(links, opts.GraphLink{
			Source: nodeName(l.From),
			Target: nodeName(l.To),
			Value:  float32(l.Loading),
		})
	}

	graph.AddSeries("buses", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:             "none",
			Roam:               opts.Bool(true),
			FocusNodeAdjacency: opts.Bool(true),
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "inside"}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: "#888", Width: 2}),
	)
	return graph.Render(w)
}

func nodeName(id int) string {
	return fmt.Sprintf("Bus %d", id)
}
