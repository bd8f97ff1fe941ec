package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"
	"github.com/ohowland/cgc_powerflow/internal/pkg/archive/sqldb"
	"github.com/ohowland/cgc_powerflow/internal/pkg/hmi"
	"github.com/ohowland/cgc_powerflow/internal/pkg/msg"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/webservice"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the network, solve it once and report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		mock, _ := cmd.Flags().GetBool("mock-solver")

		net, err := buildNetwork(ctx, cfg)
		if err != nil {
			return err
		}
		solver, err := buildSolver(cfg, mock)
		if err != nil {
			return err
		}
		archivers, closeAll := buildArchivers(ctx, cfg)
		defer closeAll()

		st := buildStudy(cfg, solver)
		st.Out = cmd.OutOrStdout()
		if len(archivers) > 0 {
			st.Archiver = archivers
		}

		o, err := st.Run(ctx, net)
		if err != nil {
			return err
		}
		if o.Artifact.Path != "" {
			log.Printf("[Main] Topology written to %s (%s)\n", o.Artifact.Path, o.Artifact.Backend)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve results over HTTP and re-solve on request",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}
		mock, _ := cmd.Flags().GetBool("mock-solver")

		net, err := buildNetwork(ctx, cfg)
		if err != nil {
			return err
		}
		solver, err := buildSolver(cfg, mock)
		if err != nil {
			return err
		}

		pub := msg.NewPublisher(uuid.New())
		archivers, closeAll := buildArchivers(ctx, cfg)
		defer closeAll()
		if len(archivers) > 0 {
			log.Println("[Main] Linking Archive Handler")
			h, err := archive.NewHandler(pub, archivers, cfg.Archive.Timeout)
			if err != nil {
				return err
			}
			go h.Process()
			defer h.Stop()
		}

		srv := webservice.New(buildStudy(cfg, solver), net, pub)
		if _, err := srv.Run(ctx); err != nil {
			log.Println("[Main] initial run failed:", err)
		}

		httpSrv := &http.Server{Addr: cfg.Listen, Handler: srv}
		go func() {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdown)
		}()

		log.Println("[Main] Starting Server on", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Println("[Main] Server Shutdown")
		return nil
	},
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Solve once and browse the result tables in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		mock, _ := cmd.Flags().GetBool("mock-solver")

		net, err := buildNetwork(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		solver, err := buildSolver(cfg, mock)
		if err != nil {
			return err
		}
		res, err := powerflow.Run(cmd.Context(), solver, net)
		if err != nil {
			return err
		}
		return hmi.New(net, res).Run()
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs stored in the SQL archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Archive.SQL.Dialect == "" {
			return errors.New("no SQL archive configured")
		}
		store, err := sqldb.Open(cmd.Context(), cfg.Archive.SQL)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "pid\tname\tcreated_at\tsolar_gen_mw\tgrid_import_mw")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\n", r.PID, r.Name, r.CreatedAt.Format(time.RFC3339), r.SolarGenMW, r.GridImportMW)
		}
		return tw.Flush()
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address, overrides the config")
}
