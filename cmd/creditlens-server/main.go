package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creditlens/internal/companyintel"
	"creditlens/internal/httpapi"
	"creditlens/internal/legal"
	"creditlens/internal/pipeline"
	"creditlens/internal/sentiment"
	"creditlens/internal/store"
	"creditlens/internal/telemetry"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", "", "path to SQLite database file (empty disables persistence)")
	courtURL := flag.String("court-url", legal.DefaultCourtBaseURL, "court registry base URL")
	flag.Parse()

	if port := os.Getenv("PORT"); port != "" && *addr == ":8080" {
		*addr = ":" + port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "creditlens-server")
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown err=%v", err)
		}
	}()

	classifier, err := sentiment.NewInferenceClassifierFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	intel, err := companyintel.NewClientFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	analyzer := sentiment.NewAnalyzer(classifier)
	orchestrator := pipeline.NewOrchestrator(intel, legal.NewFetcher(*courtURL), analyzer)

	var archive httpapi.Archive
	if *dbPath != "" {
		st, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to initialize sqlite store (%s): %v", *dbPath, err)
		}
		defer st.Close()
		archive = st
		log.Printf("using sqlite store at %s", *dbPath)
	}

	srv := &http.Server{
		Addr:    *addr,
		Handler: httpapi.NewServer(orchestrator, archive),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("creditlens-server listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
