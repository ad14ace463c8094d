package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propextract/browser"
	"propextract/config"
	"propextract/extract"
	"propextract/jobs"
	"propextract/logging"
	"propextract/server"
	"propextract/services"
	"propextract/storage"
)

var (
	extractURL = flag.String("extract", "", "Extract one URL, print the result and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting propextract...")

	manager := browser.NewManager(browser.Options{
		Headless:       cfg.Headless,
		UserAgent:      cfg.Extractor.UserAgent,
		AcceptLanguage: cfg.Extractor.AcceptLanguage,
		ViewportWidth:  cfg.Extractor.ViewportWidth,
		ViewportHeight: cfg.Extractor.ViewportHeight,
		NavTimeout:     time.Duration(cfg.Extractor.NavTimeoutMS) * time.Millisecond,
		ReadyTimeout:   time.Duration(cfg.Extractor.ReadyTimeoutMS) * time.Millisecond,
		ProxyURL:       cfg.ProxyURL,
	})

	cascade := extract.NewCascade(cfg.Extractor.RequiredFields, cfg.Extractor.MaxImages)
	extractor := services.NewExtractor(services.BrowserLauncher{Manager: manager}, cascade)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One-shot mode for smoke testing a single listing.
	if *extractURL != "" {
		resp := extractor.Extract(ctx, *extractURL)
		out, _ := json.MarshalIndent(resp, "", "  ")
		os.Stdout.Write(append(out, '\n'))
		return
	}

	var sink storage.RecordSink = storage.NoOpSink{}
	if cfg.PostgresURL != "" {
		pgSink, err := storage.NewPostgresSink(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		sink = pgSink
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.PostgresURL))
	} else {
		log.Println("No POSTGRES_URL set, extracted records will not be persisted")
	}
	defer sink.Close()

	store, err := jobs.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open job store: %v", err)
	}
	defer store.Close()
	log.Printf("Job database: %s", cfg.DBPath)

	worker := jobs.NewWorker(store, extractor, sink)
	go worker.Run(ctx)

	janitor, err := jobs.StartJanitor(store, cfg.Extractor.JanitorCron, time.Duration(cfg.Extractor.JobTTLHours)*time.Hour)
	if err != nil {
		log.Fatalf("Failed to start job janitor: %v", err)
	}
	defer janitor.Stop()

	srv := server.New(extractor, store, worker, sink, cfg.Extractor.RatePerMinute, cfg.Extractor.RateBurst)
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Router(),
	}

	go func() {
		log.Printf("Listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	log.Println("Goodbye!")
}

// maskConnectionString masks the password in a connection string for logging.
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
