// Package main generates the activity report from stored signals,
// rejections and positions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"solana-prepump-engine/internal/reporting"
	pgstore "solana-prepump-engine/internal/storage/postgres"
)

func main() {
	// .env fills gaps in the environment; real env vars always win.
	_ = godotenv.Load()

	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	window := flag.Duration("window", 24*time.Hour, "Report window ending now")
	since := flag.String("since", "", "Report range start, RFC3339 (overrides --window)")
	flag.Parse()

	ctx := context.Background()

	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required")
		os.Exit(1)
	}

	sinceTime := time.Now().Add(-*window)
	if *since != "" {
		parsed, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing --since: %v\n", err)
			os.Exit(1)
		}
		sinceTime = parsed
	}

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	generator := reporting.NewGenerator(
		pgstore.NewAssetStore(pool),
		pgstore.NewSignalStore(pool),
		pgstore.NewRejectionStore(pool),
		pgstore.NewPositionStore(pool),
	)

	report, err := generator.Generate(ctx, sinceTime.UnixMilli())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	markdownPath := filepath.Join(*outputDir, "REPORT.md")
	if err := os.WriteFile(markdownPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", markdownPath, err)
		os.Exit(1)
	}

	csvPath := filepath.Join(*outputDir, "SIGNALS.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Signals.Rows)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", csvPath, err)
		os.Exit(1)
	}

	fmt.Println("Report generated:")
	fmt.Printf("  - %s\n", markdownPath)
	fmt.Printf("  - %s\n", csvPath)
}
