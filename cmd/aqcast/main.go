package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/skylens/aqcast/internal/config"
	"github.com/skylens/aqcast/pkg/api"
	"github.com/skylens/aqcast/pkg/artifact"
	"github.com/skylens/aqcast/pkg/forecast"
	"github.com/skylens/aqcast/pkg/series"
	"github.com/skylens/aqcast/pkg/store"
	"github.com/skylens/aqcast/pkg/types"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	// Optional; environment may come from the deployment instead.
	_ = godotenv.Load()

	switch os.Args[1] {
	case "serve":
		serveCommand(os.Args[2:])
	case "run":
		runCommand(os.Args[2:])
	case "seed":
		seedCommand(os.Args[2:])
	case "help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		showHelp()
	}
}

func showHelp() {
	fmt.Printf("aqcast v%s - air quality forecast pipeline\n", version)
	fmt.Println("")
	fmt.Println("Usage: aqcast <command> [flags]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  serve                Start the HTTP API server")
	fmt.Println("  run                  Run one forecast batch and exit")
	fmt.Println("  seed                 Insert synthetic hourly samples for a sensor")
	fmt.Println("  help                 Show this help message")
	fmt.Println("")
	fmt.Println("Configuration:")
	fmt.Println("  Edit config.yaml or set environment variables (see .env.example)")
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// openStore initializes the process-wide document store.
func openStore(cfg *config.Config) store.DocumentStore {
	if cfg.Store.Backend == "memory" {
		log.Println("Using in-memory document store")
		return store.NewMemoryStore()
	}

	s, err := store.NewBadgerStore(cfg.ToStoreConfig())
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	return s
}

func buildOrchestrator(cfg *config.Config, docs store.DocumentStore) *forecast.Orchestrator {
	var artifacts artifact.Repository
	if cfg.Artifacts.Backend == "dir" {
		artifacts = &artifact.DirRepository{Root: cfg.Artifacts.Dir}
	} else {
		repo, err := artifact.NewS3Repository(cfg.ToS3Config())
		if err != nil {
			log.Fatalf("Failed to create artifact repository: %v", err)
		}
		artifacts = repo
	}

	runner := &forecast.Runner{
		Fetcher:    series.NewFetcher(docs, cfg.ProbeWindow()),
		Store:      docs,
		Artifacts:  artifacts,
		JobTimeout: cfg.JobTimeout(),
	}

	return &forecast.Orchestrator{
		Runner:      runner,
		Concurrency: cfg.Pipeline.Concurrency,
	}
}

func serveCommand(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)

	docs := openStore(cfg)
	defer docs.Close()

	orch := buildOrchestrator(cfg, docs)
	server := api.NewServer(cfg.Server.ListenAddr, orch)

	go func() {
		log.Printf("API server listening on %s", cfg.Server.ListenAddr)
		if err := server.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped successfully")
}

// runCommand is the scheduled-invocation entry point: one batch, then exit.
func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	sensors := fs.String("sensors", "", "comma-separated sensor ids")
	timestamp := fs.String("timestamp", "", "reference timestamp (YYYYMMDDThhmm, default now)")
	fs.Parse(args)

	if *sensors == "" {
		log.Fatal("at least one sensor id is required (-sensors)")
	}

	anchor := time.Now()
	if *timestamp != "" {
		var err error
		anchor, err = time.Parse(types.TimeLayout, *timestamp)
		if err != nil {
			log.Fatalf("Invalid timestamp: %v", err)
		}
	}

	cfg := loadConfig(*configPath)

	docs := openStore(cfg)
	defer docs.Close()

	orch := buildOrchestrator(cfg, docs)

	runID := uuid.New().String()
	sensorIDs := strings.Split(*sensors, ",")
	log.Printf("Starting batch %s: %d sensors, anchor %s",
		runID, len(sensorIDs), anchor.Format(types.TimeLayout))

	results, err := orch.RunBatch(context.Background(), sensorIDs, anchor)
	if err != nil {
		log.Fatalf("Batch failed: %v", err)
	}

	out, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(out))
}

// seedCommand inserts consecutive synthetic hourly samples, a development
// aid for exercising the pipeline without a live collector.
func seedCommand(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	sensor := fs.String("sensor", "sensor001", "sensor id to seed")
	hours := fs.Int("hours", 80, "number of consecutive hourly samples")
	fs.Parse(args)

	cfg := loadConfig(*configPath)

	docs := openStore(cfg)
	defer docs.Close()

	ctx := context.Background()
	collection := store.CurrentCollection(*sensor)
	end := time.Now().Truncate(time.Hour)

	for i := *hours - 1; i >= 0; i-- {
		ts := end.Add(-time.Duration(i) * time.Hour)
		sample := syntheticSample(*sensor, ts)
		if err := docs.Put(ctx, collection, sample.Timestamp, sample); err != nil {
			log.Fatalf("Failed to seed sample: %v", err)
		}
	}

	log.Printf("[%s] Seeded %d hourly samples ending at %s",
		*sensor, *hours, end.Format(types.TimeLayout))
}

func syntheticSample(sensorID string, ts time.Time) *types.RawSample {
	f := func(v float64) *float64 { return &v }
	hour := float64(ts.Hour())

	return &types.RawSample{
		Timestamp: ts.Format(types.TimeLayout),
		Components: types.Components{
			PM25: f(12 + 4*hour/24),
			PM10: f(20 + 6*hour/24),
			CO:   f(300),
			NH3:  f(2.5),
			O3:   f(40),
			NO2:  f(15),
		},
		Meteo: types.Meteo{
			Temp:    f(18 + 8*hour/24),
			RHum:    f(60),
			LogPrcp: f(0),
			WdirSin: f(0.5),
			WdirCos: f(0.87),
			Wspd:    f(3.2),
		},
		AQI: f(50 + 10*hour/24),
		Location: types.Location{
			Lat:  -6.2,
			Lon:  106.8,
			Name: sensorID,
		},
	}
}
