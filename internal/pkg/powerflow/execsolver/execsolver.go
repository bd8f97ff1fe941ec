/*
execsolver.go Runs an external power-flow solver as a child process. The network is written
to the child's stdin as a powerflow.Request and the child answers on stdout with a
powerflow.Response.
*/

package execsolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
)

// Config describes the solver command.
type Config struct {
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Dir     string        `mapstructure:"dir"`
	Env     []string      `mapstructure:"env"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Solver implements powerflow.Solver by running Config.Command once per solve.
type Solver struct {
	config Config
}

// New returns a configured Solver.
func New(cfg Config) (Solver, error) {
	if cfg.Command == "" {
		return Solver{}, errors.New("execsolver: no solver command configured")
	}
	return Solver{config: cfg}, nil
}

// Config is an accessor for the solver configuration.
func (s Solver) Config() Config {
	return s.config
}

// Solve implements powerflow.Solver.
func (s Solver) Solve(ctx context.Context, net network.Network) (powerflow.Results, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	input, err := json.Marshal(powerflow.NewRequest(net))
	if err != nil {
		return powerflow.Results{}, fmt.Errorf("execsolver: encode request: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.config.Command, s.config.Args...)
	cmd.Dir = s.config.Dir
	cmd.Env = append(os.Environ(), s.config.Env...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Printf("[Solver] running %s for network %q\n", s.config.Command, net.Name())
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return powerflow.Results{}, fmt.Errorf("execsolver: %s: %w", s.config.Command, ctx.Err())
		}
		return powerflow.Results{}, fmt.Errorf("execsolver: %s: %w: %s", s.config.Command, err,
			strings.TrimSpace(stderr.String()))
	}
	log.Printf("[Solver] finished in %v\n", time.Since(start).Round(time.Millisecond))

	resp := powerflow.Response{}
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return powerflow.Results{}, fmt.Errorf("execsolver: decode response: %w", err)
	}
	return resp.Results()
}
