package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds tourgen runtime settings. Environment variables are read
// first; command-line flags override them.
type Config struct {
	InputDir  string `env:"TOURGEN_INPUT_DIR"  envDefault:"data/input"`
	WorkDir   string `env:"TOURGEN_WORK_DIR"   envDefault:"data/work"`
	OutputDir string `env:"TOURGEN_OUTPUT_DIR" envDefault:"data/output"`

	DBDriver    string `env:"TOURGEN_DB_DRIVER"   envDefault:"sqlite"`
	DBPath      string `env:"TOURGEN_DB_PATH"     envDefault:"data/places.db"`
	DatabaseURL string `env:"TOURGEN_DATABASE_URL"`

	Workers        int      `env:"TOURGEN_WORKERS"         envDefault:"4"`
	PartitionFloor int      `env:"TOURGEN_PARTITION_FLOOR" envDefault:"1000"`
	SortChunk      int      `env:"TOURGEN_SORT_CHUNK"      envDefault:"250000"`
	Seed           uint64   `env:"TOURGEN_SEED"            envDefault:"1"`
	CellKm         float64  `env:"TOURGEN_CELL_KM"         envDefault:"1.0"`
	Retries        int      `env:"TOURGEN_RETRIES"         envDefault:"2"`
	Commuter       []string `env:"TOURGEN_COMMUTER_INDUSTRIES" envDefault:"445,722" envSeparator:","`
	States         []string `env:"TOURGEN_STATES" envSeparator:","`

	// Address of the run status endpoint; empty disables it.
	StatusAddr string `env:"TOURGEN_STATUS_ADDR"`
}

// Load reads the environment into a Config and applies flag overrides from args.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	var states, commuter string
	fs.StringVar(&cfg.InputDir, "input", cfg.InputDir, "directory of <state>/<geography>.csv traveler files")
	fs.StringVar(&cfg.WorkDir, "work", cfg.WorkDir, "scratch directory for intermediate stop files")
	fs.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory for assembled tour files")
	fs.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "place catalog driver (sqlite, pgx)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite catalog path")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres catalog url")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent partitions")
	fs.IntVar(&cfg.PartitionFloor, "partition-floor", cfg.PartitionFloor, "minimum travelers per partition")
	fs.IntVar(&cfg.SortChunk, "sort-chunk", cfg.SortChunk, "records held in memory per sort run")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	fs.Float64Var(&cfg.CellKm, "cell-km", cfg.CellKm, "grid cell edge in kilometres")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "retries per failed geography")
	fs.StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "serve /health and /runs on this address")
	fs.StringVar(&states, "states", strings.Join(cfg.States, ","), "comma separated state codes (default: all)")
	fs.StringVar(&commuter, "commuter-industries", strings.Join(cfg.Commuter, ","), "industries drawn for work detours")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.States = splitList(states)
	cfg.Commuter = splitList(commuter)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if c.PartitionFloor < 1 {
		errs = append(errs, fmt.Errorf("partition floor must be >= 1, got %d", c.PartitionFloor))
	}
	if c.SortChunk < 1 {
		errs = append(errs, fmt.Errorf("sort chunk must be >= 1, got %d", c.SortChunk))
	}
	if c.CellKm <= 0 {
		errs = append(errs, fmt.Errorf("cell km must be > 0, got %g", c.CellKm))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must be >= 0, got %d", c.Retries))
	}
	switch c.DBDriver {
	case "sqlite":
	case "pgx", "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database url is required for driver pgx"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q", c.DBDriver))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
