package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/backfill"
	"github.com/tener/recruit-core/internal/db"
	"github.com/tener/recruit-core/internal/platform/logger"
)

// Standalone backfill runner: copies the embedded SQLite store into a
// Postgres destination and prints per-table stats plus a parity
// report.
func main() {
	var (
		dsn           = flag.String("dsn", "", "postgres destination DSN (falls back to POSTGRES_* env)")
		batchSize     = flag.Int("batch-size", 500, "rows per insert batch")
		truncateFirst = flag.Bool("truncate-first", false, "delete destination rows before loading")
		tables        = flag.String("tables", "", "comma-separated table subset")
		deep          = flag.Bool("deep-parity", false, "run the deep key-set parity diff after loading")
	)
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	source, err := db.NewSQLiteService(log)
	if err != nil {
		log.Fatal("open sqlite source", "error", err)
	}
	if err := source.AutoMigrateAll(); err != nil {
		log.Fatal("migrate sqlite source", "error", err)
	}

	var destDB *gorm.DB
	if *dsn != "" {
		destDB, err = db.OpenPostgresDSN(log, *dsn)
		if err != nil {
			log.Fatal("open destination", "error", err)
		}
	} else {
		dest, err := db.NewPostgresService(log)
		if err != nil {
			log.Fatal("open postgres destination", "error", err)
		}
		if err := dest.AutoMigrateAll(); err != nil {
			log.Fatal("migrate postgres destination", "error", err)
		}
		destDB = dest.DB()
	}

	opts := backfill.Options{BatchSize: *batchSize, TruncateFirst: *truncateFirst}
	if *tables != "" {
		opts.Tables = strings.Split(*tables, ",")
	}

	runner := backfill.NewRunner(log, source.DB(), destDB)
	ctx := context.Background()

	stats, err := runner.Run(ctx, opts)
	if err != nil {
		log.Fatal("backfill failed", "error", err)
	}
	report, err := runner.Parity(ctx, *deep, 200)
	if err != nil {
		log.Fatal("parity failed", "error", err)
	}

	out, _ := json.MarshalIndent(map[string]any{"tables": stats, "parity": report}, "", "  ")
	fmt.Println(string(out))
}
