/*
topology.go Planar layout of a solved network. Buses become nodes and lines become edges;
positions come from a seeded force-directed optimizer.
*/

package topology

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultVoltage colors a bus that has no result row.
const DefaultVoltage = 1.0

// Options tune the layout.
type Options struct {
	Title   string `mapstructure:"title"`
	Seed    uint64 `mapstructure:"seed"`
	Updates int    `mapstructure:"updates"`
}

// DefaultOptions returns the options used by the study pipeline.
func DefaultOptions() Options {
	return Options{Title: "Microgrid Network Topology", Seed: 1, Updates: 50}
}

// Node is a positioned bus.
type Node struct {
	ID      int
	Label   string
	X, Y    float64
	Voltage float64
	Solved  bool
	Tooltip []string
}

// Edge is a line between two node IDs.
type Edge struct {
	Name     string
	From, To int
	Loading  float64
}

// Figure is a backend-neutral description of the topology plot.
type Figure struct {
	Title string
	Nodes []Node
	Edges []Edge
}

// VoltageRange returns the lowest and highest node voltage.
func (f Figure) VoltageRange() (lo, hi float64) {
	if len(f.Nodes) == 0 {
		return DefaultVoltage, DefaultVoltage
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, n := range f.Nodes {
		lo = math.Min(lo, n.Voltage)
		hi = math.Max(hi, n.Voltage)
	}
	return lo, hi
}

// Layout positions every bus of net. Coordinates are normalised into [-1, 1].
func Layout(net network.Network, res powerflow.Results, opt Options) Figure {
	if opt.Updates <= 0 {
		opt.Updates = DefaultOptions().Updates
	}
	if opt.Title == "" {
		opt.Title = DefaultOptions().Title
	}

	g := simple.NewUndirectedGraph()
	for i := range net.Buses() {
		g.AddNode(simple.Node(i))
	}

	fig := Figure{Title: opt.Title}
	for i, l := range net.Lines() {
		e := Edge{Name: l.Name, From: int(l.From), To: int(l.To)}
		if r, ok := res.Line[network.LineID(i)]; ok {
			e.Loading = r.LoadingPercent
		}
		fig.Edges = append(fig.Edges, e)
		if l.From != l.To {
			g.SetEdge(simple.Edge{F: simple.Node(l.From), T: simple.Node(l.To)})
		}
	}

	eades := &layout.EadesR2{
		Repulsion: 1,
		Rate:      0.1,
		Updates:   opt.Updates,
		Theta:     0.1,
		Src:       rand.NewPCG(opt.Seed, opt.Seed),
	}
	o := layout.NewOptimizerR2(orderedGraph{g}, eades.Update)
	for o.Update() {
	}

	coords := make([]r2.Vec, len(net.Buses()))
	for i := range coords {
		coords[i] = o.Coord2(int64(i))
	}
	normalise(coords)

	for i, c := range coords {
		n := Node{ID: i, Label: fmt.Sprint(i), X: c.X, Y: c.Y, Voltage: DefaultVoltage}
		r, ok := res.Bus[network.BusID(i)]
		if ok {
			n.Voltage = r.VmPU
			n.Solved = true
		}
		n.Tooltip = tooltip(i, r, ok)
		fig.Nodes = append(fig.Nodes, n)
	}
	return fig
}

// orderedGraph iterates nodes by ID so the seeded optimizer sees the same sequence on
// every run.
type orderedGraph struct {
	*simple.UndirectedGraph
}

func (g orderedGraph) Nodes() graph.Nodes {
	return byID(g.UndirectedGraph.Nodes())
}

func (g orderedGraph) From(id int64) graph.Nodes {
	return byID(g.UndirectedGraph.From(id))
}

func byID(it graph.Nodes) graph.Nodes {
	ns := graph.NodesOf(it)
	slices.SortFunc(ns, func(a, b graph.Node) int { return cmp.Compare(a.ID(), b.ID()) })
	return iterator.NewOrderedNodes(ns)
}

func tooltip(i int, r powerflow.BusResult, ok bool) []string {
	if !ok {
		return []string{fmt.Sprintf("Bus %d", i), "Voltage: n/a", "Angle: n/a"}
	}
	return []string{
		fmt.Sprintf("Bus %d", i),
		fmt.Sprintf("Voltage: %.3f p.u.", r.VmPU),
		fmt.Sprintf("Angle: %.2f°", r.VaDegree),
	}
}

// normalise scales coords in place so the larger extent spans [-1, 1].
func normalise(coords []r2.Vec) {
	if len(coords) == 0 {
		return
	}
	lo, hi := coords[0], coords[0]
	for _, c := range coords[1:] {
		lo = r2.Vec{X: math.Min(lo.X, c.X), Y: math.Min(lo.Y, c.Y)}
		hi = r2.Vec{X: math.Max(hi.X, c.X), Y: math.Max(hi.Y, c.Y)}
	}
	mid := r2.Scale(0.5, r2.Add(lo, hi))
	span := math.Max(hi.X-lo.X, hi.Y-lo.Y) / 2
	for i, c := range coords {
		if span == 0 || math.IsNaN(span) {
			coords[i] = r2.Vec{}
			continue
		}
		coords[i] = r2.Scale(1/span, r2.Sub(c, mid))
	}
}
