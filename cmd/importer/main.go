package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"luminix/internal/config"
	"luminix/internal/db"
	"luminix/internal/importer"
	orderrepo "luminix/internal/repository/order"
	ordersvc "luminix/internal/service/order"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a platform order CSV export")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	// Rows come from a trusted export, so Store skips signature verification.
	orders := ordersvc.New(orderrepo.NewPostgres(pool, logger), cfg.Webhook.Secret, logger)
	imp := importer.NewCSVImporter(f, orders)

	start := time.Now()
	stats, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after %d orders: %v", stats.Imported, err)
	}

	fmt.Printf("Imported %d orders (%d dropped without email, %d skipped without id) in %s\n",
		stats.Imported, stats.Dropped, stats.Skipped, time.Since(start).Truncate(time.Millisecond))
}
