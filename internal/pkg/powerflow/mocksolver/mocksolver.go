// Package mocksolver provides a deterministic stand-in for the external power-flow solver.
package mocksolver

import (
	"context"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
)

// Solver returns a lossless, flat-profile solution. Injections equal their setpoints and
// the external grid balances the remainder.
type Solver struct {
	Err   error
	Calls int
}

// Solve implements powerflow.Solver.
func (s *Solver) Solve(ctx context.Context, net network.Network) (powerflow.Results, error) {
	s.Calls++
	if s.Err != nil {
		return powerflow.Results{}, s.Err
	}

	res := powerflow.NewResults()
	for i := range net.Buses() {
		res.Bus[network.BusID(i)] = powerflow.BusResult{
			VmPU:     1.0 - 0.001*float64(i),
			VaDegree: -0.1 * float64(i),
		}
	}
	for i, l := range net.Lines() {
		res.Line[network.LineID(i)] = powerflow.LineResult{
			LoadingPercent: 10 + float64(i),
			IKA:            l.MaxIKA * (10 + float64(i)) / 100,
		}
	}

	var balance float64
	for i, l := range net.Loads() {
		res.Load[network.LoadID(i)] = powerflow.Injection{PMW: l.PMW, QMvar: l.QMvar}
		balance += l.PMW
	}
	for i, g := range net.StaticGenerators() {
		res.Gen[network.GenID(i)] = powerflow.Injection{PMW: g.PMW, QMvar: g.QMvar}
		balance -= g.PMW
	}
	for i, e := range net.Storages() {
		res.Storage[network.StorageID(i)] = powerflow.Injection{PMW: e.PMW}
		balance += e.PMW
	}
	for i := range net.ExternalGrids() {
		res.Grid[network.GridID(i)] = powerflow.Injection{PMW: balance}
	}
	return res, nil
}
