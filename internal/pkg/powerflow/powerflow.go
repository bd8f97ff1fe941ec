/*
powerflow.go Boundary to the external power-flow solver. The solver is a collaborator, this
package only defines the data crossing the boundary and checks it.
*/

package powerflow

import (
	"context"
	"fmt"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
)

// Solver computes a steady-state AC power flow for a network.
type Solver interface {
	Solve(ctx context.Context, net network.Network) (Results, error)
}

// BusResult holds the solved state of a bus. Power is the net injection at the bus.
type BusResult struct {
	VmPU     float64 `json:"vm_pu"`
	VaDegree float64 `json:"va_degree"`
	PMW      float64 `json:"p_mw"`
	QMvar    float64 `json:"q_mvar"`
}

// LineResult holds the solved flow of a line, referenced to its from and to ends.
type LineResult struct {
	PFromMW        float64 `json:"p_from_mw"`
	QFromMvar      float64 `json:"q_from_mvar"`
	PToMW          float64 `json:"p_to_mw"`
	QToMvar        float64 `json:"q_to_mvar"`
	PlMW           float64 `json:"pl_mw"`
	QlMvar         float64 `json:"ql_mvar"`
	IKA            float64 `json:"i_ka"`
	LoadingPercent float64 `json:"loading_percent"`
}

// Injection is the solved power of a load, generator, storage unit or grid connection.
type Injection struct {
	PMW   float64 `json:"p_mw"`
	QMvar float64 `json:"q_mvar"`
}

// Results is the overlay produced by a solver, keyed by entity id.
// It never modifies the network it was computed for.
type Results struct {
	Bus     map[network.BusID]BusResult
	Line    map[network.LineID]LineResult
	Load    map[network.LoadID]Injection
	Gen     map[network.GenID]Injection
	Storage map[network.StorageID]Injection
	Grid    map[network.GridID]Injection
}

// NewResults returns an empty overlay with all tables allocated.
func NewResults() Results {
	return Results{
		Bus:     make(map[network.BusID]BusResult),
		Line:    make(map[network.LineID]LineResult),
		Load:    make(map[network.LoadID]Injection),
		Gen:     make(map[network.GenID]Injection),
		Storage: make(map[network.StorageID]Injection),
		Grid:    make(map[network.GridID]Injection),
	}
}

// Run validates the network, solves it, and checks the overlay covers every bus and line.
// A validation failure is returned before the solver is called.
func Run(ctx context.Context, s Solver, net network.Network) (Results, error) {
	if err := net.Validate(); err != nil {
		return Results{}, err
	}

	res, err := s.Solve(ctx, net)
	if err != nil {
		return Results{}, err
	}

	if err := checkCoverage(net, res); err != nil {
		return Results{}, err
	}
	return res, nil
}

func checkCoverage(net network.Network, res Results) error {
	if len(res.Bus) != len(net.Buses()) {
		return fmt.Errorf("powerflow: solver returned %d bus results for %d buses", len(res.Bus), len(net.Buses()))
	}
	for id := range res.Bus {
		if _, ok := net.Bus(id); !ok {
			return fmt.Errorf("powerflow: solver returned result for unknown bus %d", id)
		}
	}

	if len(res.Line) != len(net.Lines()) {
		return fmt.Errorf("powerflow: solver returned %d line results for %d lines", len(res.Line), len(net.Lines()))
	}
	for id := range res.Line {
		if _, ok := net.Line(id); !ok {
			return fmt.Errorf("powerflow: solver returned result for unknown line %d", id)
		}
	}
	return nil
}

// TotalGen is the summed active power of all static generators.
func (r Results) TotalGen() float64 {
	var sum float64
	for _, inj := range r.Gen {
		sum += inj.PMW
	}
	return sum
}

// TotalGrid is the summed active power drawn from the external grid connections.
func (r Results) TotalGrid() float64 {
	var sum float64
	for _, inj := range r.Grid {
		sum += inj.PMW
	}
	return sum
}
