package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"creditlens/internal/companyintel"
	"creditlens/internal/legal"
	"creditlens/internal/pipeline"
	"creditlens/internal/report"
	"creditlens/internal/sentiment"
	"creditlens/internal/store"
	"creditlens/internal/telemetry"
)

// assess runs one assessment from the command line and prints the result
// as JSON, markdown, or a standalone HTML report.
func main() {
	entity := flag.String("entity", "", "legal entity name to assess")
	format := flag.String("format", "json", "output format: json, markdown, or html")
	caseDetail := flag.Bool("case-detail", false, "include full court case records")
	dbPath := flag.String("db", "", "optionally persist the run to this SQLite file")
	courtURL := flag.String("court-url", legal.DefaultCourtBaseURL, "court registry base URL")
	flag.Parse()

	if *entity == "" {
		log.Fatal("missing required flag -entity")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "creditlens-assess")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	classifier, err := sentiment.NewInferenceClassifierFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	intel, err := companyintel.NewClientFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	orchestrator := pipeline.NewOrchestrator(intel, legal.NewFetcher(*courtURL), sentiment.NewAnalyzer(classifier))

	res, err := orchestrator.Run(ctx, pipeline.Request{
		EntityName:        *entity,
		IncludeCaseDetail: *caseDetail || *format != "json",
	})
	if err != nil {
		log.Fatal(err)
	}

	if *dbPath != "" {
		st, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to initialize sqlite store (%s): %v", *dbPath, err)
		}
		defer st.Close()
		if _, err := st.Save(res); err != nil {
			log.Fatalf("failed to persist assessment: %v", err)
		}
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatal(err)
		}
	case "markdown":
		os.Stdout.WriteString(report.BuildMarkdown(res))
	case "html":
		page, err := report.RenderHTML(report.BuildMarkdown(res))
		if err != nil {
			log.Fatal(err)
		}
		os.Stdout.WriteString(page)
	default:
		log.Fatalf("unknown format %q", *format)
	}
}
