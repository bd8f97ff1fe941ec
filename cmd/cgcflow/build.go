package main

import (
	"context"
	"log"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"
	"github.com/ohowland/cgc_powerflow/internal/pkg/archive/mongodb"
	"github.com/ohowland/cgc_powerflow/internal/pkg/archive/natshandler"
	"github.com/ohowland/cgc_powerflow/internal/pkg/archive/sqldb"
	"github.com/ohowland/cgc_powerflow/internal/pkg/config"
	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow/execsolver"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow/mocksolver"
	"github.com/ohowland/cgc_powerflow/internal/pkg/render"
	"github.com/ohowland/cgc_powerflow/internal/pkg/scenario"
	"github.com/ohowland/cgc_powerflow/internal/pkg/study"
	"github.com/ohowland/cgc_powerflow/internal/pkg/telemetry/modbuscomm"
	"github.com/ohowland/cgc_powerflow/internal/pkg/web"
)

func buildNetwork(ctx context.Context, cfg config.Config) (network.Network, error) {
	s := scenario.Microgrid()
	if cfg.Scenario != "" {
		log.Println("[Main] Loading Scenario", cfg.Scenario)
		var err error
		if s, err = scenario.Load(cfg.Scenario); err != nil {
			return network.Network{}, err
		}
	}

	var reader scenario.SoCReader
	if cfg.Telemetry.Enabled {
		reader = modbuscomm.SoCReader{}
	}

	log.Println("[Main] Building Network")
	return scenario.Build(ctx, s, reader)
}

func buildSolver(cfg config.Config, mock bool) (powerflow.Solver, error) {
	if mock {
		log.Println("[Main] Using Mock Solver")
		return &mocksolver.Solver{}, nil
	}
	s, err := execsolver.New(cfg.Solver)
	if err != nil {
		return nil, err
	}
	log.Printf("[Main] Using Solver %s %v (timeout %v)\n", s.Config().Command, s.Config().Args, s.Config().Timeout)
	return s, nil
}

// closer releases an archive backend.
type closer func()

// buildArchivers opens every configured backend. A backend that cannot be reached is
// logged and left out.
func buildArchivers(ctx context.Context, cfg config.Config) (archive.Multi, closer) {
	var archivers archive.Multi
	var closers []func()

	if cfg.Archive.SQL.Dialect != "" {
		log.Println("[Main] Connecting SQL Archive", cfg.Archive.SQL.Dialect)
		if s, err := sqldb.Open(ctx, cfg.Archive.SQL); err != nil {
			log.Println("[Main]", err)
		} else {
			archivers = append(archivers, s)
			closers = append(closers, func() { s.Close() })
		}
	}

	if cfg.Archive.Mongo.URI != "" {
		log.Println("[Main] Connecting MongoDB Archive")
		if s, err := mongodb.Open(ctx, cfg.Archive.Mongo); err != nil {
			log.Println("[Main]", err)
		} else {
			archivers = append(archivers, s)
			closers = append(closers, func() { s.Close(context.Background()) })
		}
	}

	if cfg.Archive.NATS.Server != "" {
		log.Println("[Main] Connecting NATS Publisher")
		if h, err := natshandler.Connect(cfg.Archive.NATS); err != nil {
			log.Println("[Main]", err)
		} else {
			archivers = append(archivers, h)
			closers = append(closers, h.Close)
		}
	}

	if cfg.Archive.Webhook.URL != "" {
		log.Println("[Main] Linking Webhook", cfg.Archive.Webhook.URL)
		if h, err := web.New(cfg.Archive.Webhook); err != nil {
			log.Println("[Main]", err)
		} else {
			archivers = append(archivers, h)
		}
	}

	return archivers, func() {
		for _, c := range closers {
			c()
		}
	}
}

func buildStudy(cfg config.Config, solver powerflow.Solver) study.Study {
	return study.Study{
		Solver:     solver,
		Visualizer: render.Default(cfg.Render),
		Layout:     cfg.Layout,
		OutDir:     cfg.OutDir,
	}
}
