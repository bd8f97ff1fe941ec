/*
study.go End-to-end run of one network: report, solve, visualize, summarize, archive.
Visualization and archiving failures are logged and do not fail the run.
*/

package study

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"
	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/render"
	"github.com/ohowland/cgc_powerflow/internal/pkg/report"
	"github.com/ohowland/cgc_powerflow/internal/pkg/topology"
)

// ArtifactBase is the file name, without extension, of the topology artifact.
const ArtifactBase = "network_topology"

// Study holds the collaborators of a run. Visualizer and Archiver may be nil.
type Study struct {
	Solver     powerflow.Solver
	Visualizer *render.Visualizer
	Archiver   archive.Archiver
	Layout     topology.Options
	OutDir     string
	Out        io.Writer
}

// Outcome is what a successful run produced.
type Outcome struct {
	Record   archive.Record
	Figure   topology.Figure
	Artifact render.Artifact
}

// Results returns the solved results.
func (o Outcome) Results() powerflow.Results {
	return o.Record.Results
}

// Run executes the pipeline. Validation and divergence errors abort before any result
// output is written.
func (s Study) Run(ctx context.Context, net network.Network) (Outcome, error) {
	if s.Solver == nil {
		return Outcome{}, fmt.Errorf("study: no solver configured")
	}
	out := s.Out
	if out == nil {
		out = io.Discard
	}

	if err := report.WriteNetwork(out, net); err != nil {
		return Outcome{}, err
	}

	res, err := powerflow.Run(ctx, s.Solver, net)
	if err != nil {
		return Outcome{}, err
	}
	log.Printf("[Study] %s solved\n", net.Name())

	if err := report.WriteResults(out, net, res); err != nil {
		return Outcome{}, err
	}

	o := Outcome{Record: archive.NewRecord(net, res)}
	o.Figure = topology.Layout(net, res, s.Layout)
	if s.Visualizer != nil {
		dir := s.OutDir
		if dir == "" {
			dir = "."
		}
		art, err := s.Visualizer.Visualize(o.Figure, dir, ArtifactBase)
		if err != nil {
			log.Printf("[Study] visualization skipped: %v\n", err)
		} else {
			o.Artifact = art
		}
	}

	if err := report.WriteSummary(out, net, res); err != nil {
		return Outcome{}, err
	}

	if s.Archiver != nil {
		if err := s.Archiver.Archive(ctx, o.Record); err != nil {
			log.Printf("[Study] archive failed for run %v: %v\n", o.Record.PID, err)
		}
	}
	return o, nil
}
