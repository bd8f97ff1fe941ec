package study

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"
	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow/mocksolver"
	"github.com/ohowland/cgc_powerflow/internal/pkg/render"
	"github.com/ohowland/cgc_powerflow/internal/pkg/scenario"
	"github.com/ohowland/cgc_powerflow/internal/pkg/topology"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

type failingArchiver struct{ calls int }

func (f *failingArchiver) Archive(ctx context.Context, rec archive.Record) error {
	f.calls++
	return errors.New("database offline")
}

func microgrid(t *testing.T) network.Network {
	t.Helper()
	net, err := scenario.Build(context.Background(), scenario.Microgrid(), nil)
	assert.NilError(t, err)
	return net
}

func summary(out string) string {
	i := strings.Index(out, "\nPower Flow Summary:")
	if i < 0 {
		return ""
	}
	return out[i:]
}

func TestRunMicrogrid(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	s := Study{
		Solver:     &mocksolver.Solver{},
		Visualizer: render.Default(render.DefaultConfig()),
		Layout:     topology.DefaultOptions(),
		OutDir:     dir,
		Out:        &buf,
	}

	o, err := s.Run(context.Background(), microgrid(t))
	assert.NilError(t, err)
	assert.Equal(t, len(o.Results().Bus), 5)
	assert.Equal(t, len(o.Results().Line), 4)
	assert.Equal(t, o.Artifact.Backend, "echarts")
	assert.Equal(t, o.Artifact.Path, filepath.Join(dir, "network_topology.html"))

	out := buf.String()
	assert.Check(t, is.Contains(out, "Network created successfully!"))
	assert.Check(t, is.Contains(out, "Power flow results:"))
	assert.Check(t, is.Contains(out, "Solar Generation: 3.00 MW"))
	assert.Check(t, strings.Index(out, "Power flow results:") < strings.Index(out, "Power Flow Summary:"))
}

func TestRunFallsBackWithoutChangingSummary(t *testing.T) {
	run := func(interactive bool) (Outcome, string) {
		var buf bytes.Buffer
		cfg := render.DefaultConfig()
		cfg.Interactive = interactive
		s := Study{
			Solver:     &mocksolver.Solver{},
			Visualizer: render.Default(cfg),
			OutDir:     t.TempDir(),
			Out:        &buf,
		}
		o, err := s.Run(context.Background(), microgrid(t))
		assert.NilError(t, err)
		return o, buf.String()
	}

	interactive, withHTML := run(true)
	static, withPNG := run(false)

	assert.Equal(t, interactive.Artifact.Backend, "echarts")
	assert.Equal(t, static.Artifact.Backend, "plot")
	_, err := os.Stat(static.Artifact.Path)
	assert.NilError(t, err)
	assert.Equal(t, summary(withPNG), summary(withHTML))
	assert.Assert(t, summary(withPNG) != "")
}

func TestRunWithoutExternalGrid(t *testing.T) {
	b := network.NewBuilder("islanded")
	b.AddBus(network.Bus{Name: "Bus 1", VnKV: 20})

	var buf bytes.Buffer
	solver := &mocksolver.Solver{}
	_, err := Study{Solver: solver, Out: &buf}.Run(context.Background(), b.Network())

	var verr *network.ValidationError
	assert.Assert(t, errors.As(err, &verr))
	assert.Equal(t, solver.Calls, 0)
	assert.Check(t, !strings.Contains(buf.String(), "Power flow results:"))
}

func TestRunDivergence(t *testing.T) {
	var buf bytes.Buffer
	solver := &mocksolver.Solver{Err: &powerflow.DivergenceError{Message: "max iterations"}}
	_, err := Study{Solver: solver, Out: &buf}.Run(context.Background(), microgrid(t))

	var derr *powerflow.DivergenceError
	assert.Assert(t, errors.As(err, &derr))
	assert.Equal(t, solver.Calls, 1)
	assert.Check(t, !strings.Contains(buf.String(), "Power Flow Summary:"))
}

func TestRunArchiveFailureIsNotFatal(t *testing.T) {
	a := &failingArchiver{}
	var buf bytes.Buffer
	o, err := Study{Solver: &mocksolver.Solver{}, Archiver: a, Out: &buf}.Run(context.Background(), microgrid(t))
	assert.NilError(t, err)
	assert.Equal(t, a.calls, 1)
	assert.Equal(t, o.Artifact, render.Artifact{})
	assert.Check(t, is.Contains(buf.String(), "Grid Import: 0.00 MW"))
}

func TestRunNoBackendIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	s := Study{
		Solver:     &mocksolver.Solver{},
		Visualizer: render.NewVisualizer(),
		OutDir:     t.TempDir(),
		Out:        &buf,
	}
	o, err := s.Run(context.Background(), microgrid(t))
	assert.NilError(t, err)
	assert.Equal(t, o.Artifact.Path, "")
	assert.Check(t, is.Contains(buf.String(), "Power Flow Summary:"))
}

func TestRunRequiresSolver(t *testing.T) {
	_, err := Study{}.Run(context.Background(), microgrid(t))
	assert.ErrorContains(t, err, "no solver configured")
}
