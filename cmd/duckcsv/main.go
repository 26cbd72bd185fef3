package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JayJamieson/duckcsv/pkg/api"
	"github.com/JayJamieson/duckcsv/pkg/config"
	"github.com/JayJamieson/duckcsv/pkg/db"
	"github.com/JayJamieson/duckcsv/pkg/demo"
	"github.com/JayJamieson/duckcsv/pkg/source"
	"github.com/labstack/gommon/log"
)

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"csv":       "csv_path",
	"db":        "database_path",
	"catalog":   "catalog_url",
	"log-level": "log_level",
	"serve":     "server.enabled",
	"port":      "server.port",
}

func main() {
	configFile := flag.String("config", "", "Optional YAML config file")
	flag.String("csv", "employees.csv", "CSV file to walk through (local path, http(s):// or s3://)")
	flag.String("db", "", "DuckDB database file, empty for in-memory")
	flag.String("catalog", "file:catalog.db", "libsql URL of the import catalog")
	flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Bool("serve", false, "Serve the HTTP API instead of running the walkthrough")
	flag.Int("port", 8001, "Server port")
	flag.Parse()

	log.SetOutput(os.Stderr)

	overrides := map[string]any{}
	flag.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			overrides[key] = f.Value.(flag.Getter).Get()
		}
	})

	cfg, err := config.Load(*configFile, overrides)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.SetLevel(parseLevel(cfg.LogLevel))

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	database, err := db.New(cfg.DB())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Warnf("Error closing database: %v", err)
		}
	}()

	if cfg.Server.Enabled {
		server := api.New(api.Config{Port: cfg.Server.Port, S3: cfg.Source()}, database)
		return server.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	csvPath, cleanup, err := source.Localize(ctx, cfg.CSVPath, cfg.Source())
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cfg.CSVPath, err)
	}
	defer cleanup()

	log.Debugf("Running walkthrough against %s", csvPath)

	return demo.Run(ctx, database, csvPath, os.Stdout)
}

func parseLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
