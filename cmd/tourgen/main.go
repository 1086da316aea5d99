package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"tour-synthesis-service/internal/adapters/catalog"
	"tour-synthesis-service/internal/adapters/geography"
	"tour-synthesis-service/internal/adapters/ledger"
	"tour-synthesis-service/internal/adapters/repositories"
	"tour-synthesis-service/internal/api"
	"tour-synthesis-service/internal/config"
	"tour-synthesis-service/internal/platform/db"
	"tour-synthesis-service/internal/platform/obs"
	"tour-synthesis-service/internal/ports"
	"tour-synthesis-service/internal/services"
)

// main is the application composition root.
// It wires the place catalog, geography index and run ledger behind ports and
// runs every discovered geography through the pipeline.
func main() {
	log.SetPrefix("[TOURGEN] ")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load(flag.NewFlagSet("tourgen", flag.ExitOnError), os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdown, err := obs.SetupTracing(ctx, "tourgen")
	if err != nil {
		return fmt.Errorf("tracing setup failed: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		return err
	}
	sqlDB, err := openDB(dialect, cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := repositories.InitSchema(ctx, sqlDB, dialect); err != nil {
		return err
	}

	var src ports.PlaceSource
	if dialect == db.DialectPostgres {
		src = catalog.NewSQLPlaceSource(sqlDB)
	} else {
		src = catalog.NewSqlitePlaceSource(sqlDB)
	}

	// Work place names are mapped to counties once up front for the expander.
	states, err := inputStates(cfg)
	if err != nil {
		return err
	}
	geo := geography.NewGridIndex(cfg.CellKm)
	if err := geo.LoadPlaceCounties(ctx, src, states); err != nil {
		return err
	}

	runLedger := ledger.NewSQLRunLedger(sqlDB, dialect)
	coord := services.NewBatchCoordinator(src, geo, services.CoordinatorOptions{
		Workers:   cfg.Workers,
		Seed:      cfg.Seed,
		SortChunk: cfg.SortChunk,
		Commuter:  cfg.Commuter,
	})
	pipeline := services.NewPipeline(services.PipelineConfig{
		InputDir:       cfg.InputDir,
		WorkDir:        cfg.WorkDir,
		OutputDir:      cfg.OutputDir,
		States:         cfg.States,
		PartitionFloor: cfg.PartitionFloor,
		Retries:        cfg.Retries,
		Workers:        cfg.Workers,
	}, services.NewTourExpander(geo), coord, runLedger)

	runID := uuid.NewString()
	if cfg.StatusAddr != "" {
		srv := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           api.NewRouter(runLedger, runID),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			log.Printf("Status server listening addr=%s", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("status server: %v", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	log.Printf("Starting run run_id=%s input=%s output=%s workers=%d driver=%s", runID, cfg.InputDir, cfg.OutputDir, cfg.Workers, dialect)
	sum, err := pipeline.Run(ctx, runID)
	if err != nil {
		return fmt.Errorf("run_id=%s run aborted: %w", runID, err)
	}

	log.Printf("run_id=%s geographies=%d failed=%d tours=%d resolved=%d unresolved=%d",
		sum.RunID, sum.Geographies, len(sum.Failed), sum.Tours, sum.Resolved, sum.Unresolved)
	if len(sum.Failed) > 0 {
		return fmt.Errorf("run_id=%s failed geographies: %v", sum.RunID, sum.Failed)
	}
	return nil
}

func openDB(dialect db.Dialect, cfg config.Config) (*sql.DB, error) {
	if dialect == db.DialectPostgres {
		return db.Open(cfg.DatabaseURL)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, err
	}
	return db.OpenSqlite(cfg.DBPath)
}

// States named on the command line, else every state with an input file.
func inputStates(cfg config.Config) ([]string, error) {
	if len(cfg.States) > 0 {
		return cfg.States, nil
	}
	inputs, err := services.DiscoverInputs(cfg.InputDir, nil)
	if err != nil {
		return nil, err
	}
	var states []string
	for _, in := range inputs {
		if !slices.Contains(states, in.State) {
			states = append(states, in.State)
		}
	}
	return states, nil
}
