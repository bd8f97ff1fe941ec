/*
render.go Writes a topology figure to a file. A Visualizer holds an ordered list of
backends and is the only place that decides which one produces the artifact.
*/

package render

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ohowland/cgc_powerflow/internal/pkg/topology"
)

// ErrBackendUnavailable is returned when a backend cannot produce output in this
// environment. A Visualizer moves on to the next backend when it sees it.
var ErrBackendUnavailable = errors.New("render: backend unavailable")

// Backend renders a figure into one document format.
type Backend interface {
	Name() string
	Ext() string
	Available() error
	Render(fig topology.Figure, w io.Writer) error
}

// Artifact is a rendered figure on disk.
type Artifact struct {
	Path    string `json:"path"`
	Backend string `json:"backend"`
}

// Visualizer tries its backends in order.
type Visualizer struct {
	backends []Backend
}

// NewVisualizer returns a Visualizer over backends, highest preference first.
func NewVisualizer(backends ...Backend) *Visualizer {
	return &Visualizer{backends: backends}
}

// Default prefers the interactive document and falls back to a static image.
func Default(cfg Config) *Visualizer {
	return NewVisualizer(NewECharts(cfg), NewPlot(cfg))
}

// Backends returns the backend names in preference order.
func (v *Visualizer) Backends() []string {
	names := make([]string, len(v.backends))
	for i, b := range v.backends {
		names[i] = b.Name()
	}
	return names
}

// Visualize writes fig to dir/base<ext> with the first backend that succeeds. An
// unavailable backend is skipped; any other failure is returned.
func (v *Visualizer) Visualize(fig topology.Figure, dir, base string) (Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("render: %w", err)
	}

	for _, b := range v.backends {
		if err := b.Available(); err != nil {
			log.Printf("[Render] %s: %v, trying next backend\n", b.Name(), err)
			continue
		}

		path := filepath.Join(dir, base+b.Ext())
		err := write(path, b, fig)
		if errors.Is(err, ErrBackendUnavailable) {
			log.Printf("[Render] %s: %v, trying next backend\n", b.Name(), err)
			continue
		}
		if err != nil {
			return Artifact{}, fmt.Errorf("render: %s: %w", b.Name(), err)
		}

		log.Printf("[Render] %s wrote %s\n", b.Name(), path)
		return Artifact{Path: path, Backend: b.Name()}, nil
	}
	return Artifact{}, fmt.Errorf("%w: tried [%s]", ErrBackendUnavailable, strings.Join(v.Backends(), ", "))
}

// write renders into path. The file is always closed and is removed if rendering fails.
func write(path string, b Backend, fig topology.Figure) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return b.Render(fig, f)
}
