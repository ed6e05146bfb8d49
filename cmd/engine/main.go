package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signalengine/alerts"
	"signalengine/cache"
	"signalengine/calendar"
	"signalengine/config"
	"signalengine/continuity"
	"signalengine/detect"
	"signalengine/llm"
	"signalengine/marketdata"
	"signalengine/narrative"
	"signalengine/notifications"
	"signalengine/orchestrator"
	"signalengine/performance"
	"signalengine/predict"
	"signalengine/quality"
	"signalengine/ratelimit"
	"signalengine/scoring"
	"signalengine/spread"
	"signalengine/store"
	"signalengine/store/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// engine bundles every wired collaborator, built once at startup and
// reused across scans and maintenance commands.
type engine struct {
	cfg          *config.Config
	db           *gorm.DB
	orchestrator *orchestrator.Orchestrator
	signalStore  *store.SignalStore
	stream       *alerts.Stream
	redisClient  *cache.RedisClient // nil when Redis isn't configured or failed to connect
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	e, err := build(cfg)
	if err != nil {
		log.Fatalf("build: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch command {
	case "scan":
		if len(os.Args) < 3 {
			log.Fatal("usage: engine scan <strategy>")
		}
		if err := e.runScan(ctx, os.Args[2]); err != nil {
			log.Fatalf("scan: %v", err)
		}
	case "serve":
		e.serve(ctx)
	case "expire-signals":
		n, err := e.signalStore.ExpirePast(ctx, time.Now())
		if err != nil {
			log.Fatalf("expire-signals: %v", err)
		}
		log.Printf("expired %d signal(s)", n)
	case "cleanup-noise":
		n, err := e.signalStore.CleanupNoise(ctx, defaultNoiseRules())
		if err != nil {
			log.Fatalf("cleanup-noise: %v", err)
		}
		log.Printf("demoted %d noisy signal(s)", n)
	case "reconcile-duplicates":
		if len(os.Args) < 3 {
			log.Fatal("usage: engine reconcile-duplicates <strategy>")
		}
		n, err := e.signalStore.ReconcileDuplicates(ctx, time.Now(), os.Args[2])
		if err != nil {
			log.Fatalf("reconcile-duplicates: %v", err)
		}
		log.Printf("demoted %d duplicate signal(s)", n)
	default:
		usage()
		os.Exit(1)
	}

	// serve() closes redis itself once its shutdown signal fires; every
	// other command is one-shot and closes it here on the way out.
	if command != "serve" && e.redisClient != nil {
		if err := e.redisClient.Close(); err != nil {
			log.Printf("⚠️ redis close: %v", err)
		}
	}
}

func usage() {
	fmt.Println("usage: engine <scan <strategy>|serve|expire-signals|cleanup-noise|reconcile-duplicates <strategy>>")
}

// build wires every collaborator from cfg, following the teacher's
// app.New/app.Start split: it connects to Postgres and migrates the
// schema, connects to Redis when configured, and constructs the rest;
// scans and server loops run in the command handlers below.
func build(cfg *config.Config) (*engine, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.AutoMigrate(&models.Ticker{}, &models.Signal{}, &models.PerformanceRecord{}, &models.AlertRecord{}); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	log.Println("✅ database connected and schema migrated")

	var redisClient *cache.RedisClient
	if cfg.Redis.Host != "" {
		redisClient = cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
		if redisClient == nil {
			log.Println("⚠️ redis connection failed, falling back to in-process cache")
		}
	}

	limiter := ratelimit.New(ratelimit.Config{
		RPMMax: cfg.RateLimit.RPMMax, RPHMax: cfg.RateLimit.RPHMax,
		MinInterval: 200 * time.Millisecond, InitialBackoff: time.Second,
		MaxBackoff: 2 * time.Minute, BackoffFactor: 2.0, MaxRetries: 5,
	})
	ttlCache := cache.NewTTLCache(redisClient)
	provider := marketdata.NewHTTPProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.APISecret)
	fetcher := marketdata.New(provider, limiter, ttlCache, marketdata.DefaultConfig())

	validator := quality.New(quality.DefaultConfig())

	riskCfg := scoring.DefaultRiskConfig()
	riskCfg.HighRiskPenalty = cfg.Risk.HighRiskPenalty
	riskCfg.PumpDumpPriceCeiling = cfg.Risk.PumpDumpPriceCeiling
	riskCfg.PumpDumpPenalty = cfg.Risk.PumpDumpPenalty
	scorer := scoring.New(cfg.Weights, riskCfg)

	detectors := []detect.Detector{
		detect.NewSqueezeDetector(),
		detect.NewPennyDetector(),
		detect.NewOptionsDetector(),
		detect.NewRedditDetector(),
	}

	signalStore := store.New(db)
	tickerStore := store.NewTickerStore(db)
	continuityEngine := continuity.New(calendar.New())
	tracker := performance.New(fetcher, 2.0)
	stream := alerts.NewStream()
	go stream.Run()

	var notifier notifications.Notifier = notifications.LogNotifier{}
	emitter := alerts.New(alerts.DefaultThresholds(), signalStore, stream, notifier)

	ancillary := newFetcherAncillary(fetcher, "SPY", nil)

	var analyzer narrative.Analyzer
	if cfg.LLM.Enabled {
		llmClient := llm.NewClient(cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.LLM.Model)
		analyzer = narrative.NewLLMAnalyzer(narrative.LLMClientAdapter{Client: llmClient}).
			WithCache(narrative.NewCache(redisClient))
		log.Printf("✅ narrative analysis enabled (model: %s)", cfg.LLM.Model)
	}
	var predictor predict.Predictor = predict.NoopPredictor{}

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.FetchParallelism = cfg.Scan.FetchParallelism
	orchCfg.AnalysisParallelism = cfg.Scan.AnalysisParallelism
	orchCfg.MaxUniverseSize = cfg.Scan.MaxUniverseSize

	orch := orchestrator.New(
		orchCfg, tickerStore, fetcher, validator, detectors, scorer,
		spread.New(spread.DefaultConfig()), continuityEngine, signalStore,
		tracker, emitter, ancillary, analyzer, predictor,
	)

	return &engine{cfg: cfg, db: db, orchestrator: orch, signalStore: signalStore, stream: stream, redisClient: redisClient}, nil
}

func (e *engine) runScan(ctx context.Context, strategy string) error {
	scanCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.Scan.ScanTimeoutSeconds)*time.Second)
	defer cancel()

	report, err := e.orchestrator.RunScan(scanCtx, strategy, store.UniverseFilter{MaxSize: e.cfg.Scan.MaxUniverseSize}, time.Now())
	if err != nil {
		return err
	}
	log.Printf("🔍 scan %s complete in %s: phases=%v failures=%v top=%d",
		strategy, report.TotalElapsed, report.PhaseCounts, report.Failures, len(report.TopSignals))
	return nil
}

// serve runs the scan loop for every configured strategy on a fixed
// interval while exposing the alert stream over HTTP, shutting down
// gracefully on SIGINT/SIGTERM (spec §5: "the engine runs as a
// long-lived scheduled process").
func (e *engine) serve(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/alerts/stream", e.stream.ServeHTTP)
	srv := &http.Server{Addr: ":8090", Handler: mux}
	go func() {
		log.Println("🔌 alert stream listening on :8090/alerts/stream")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ alert stream server error: %v", err)
		}
	}()

	strategies := []string{"squeeze", "penny_explosion", "unusual_options", "reddit_opportunity"}
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	runAll := func() {
		for _, strategy := range strategies {
			if err := e.runScan(ctx, strategy); err != nil {
				log.Printf("⚠️ scan %s failed: %v", strategy, err)
			}
		}
	}
	runAll()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			runAll()
		case <-interrupt:
			log.Println("🛑 shutdown signal received")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = srv.Shutdown(shutdownCtx)
			shutdownCancel()
			if e.redisClient != nil {
				if err := e.redisClient.Close(); err != nil {
					log.Printf("⚠️ redis close: %v", err)
				}
			}
			return
		}
	}
}

func defaultNoiseRules() []store.NoiseRule {
	return []store.NoiseRule{
		{Where: "grade = ?", Args: []any{"F"}},
		{Where: "days_active > ? AND overall_score < ?", Args: []any{30, 0.3}},
	}
}
