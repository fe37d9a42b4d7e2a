// clear-trades deletes all fills and equity samples recorded today so the
// engine can be restarted against a clean ledger.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nitinkhare/cryptoTradingEngine/internal/config"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to configuration file")
	confirmFlag := flag.Bool("confirm", false, "confirm deletion (must be explicit)")
	flag.Parse()

	today := time.Now().UTC().Format("2006-01-02")

	if !*confirmFlag {
		fmt.Println("SAFETY CHECK - must confirm deletion")
		fmt.Println()
		fmt.Printf("This will DELETE all fills and equity samples from today (UTC): %s\n", today)
		fmt.Println()
		fmt.Println("To proceed, run:")
		fmt.Println("  go run ./cmd/clear-trades --confirm")
		fmt.Println()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "no database_url configured; nothing to clear")
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Deleting all data from: %s (UTC)\n", today)
	fmt.Println()

	result, err := db.ExecContext(ctx, `DELETE FROM fills WHERE DATE(ts AT TIME ZONE 'UTC') = $1`, today)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to delete fills: %v\n", err)
		os.Exit(1)
	}
	fillsDeleted, _ := result.RowsAffected()
	fmt.Printf("  deleted %d fills\n", fillsDeleted)

	result, err = db.ExecContext(ctx, `DELETE FROM equity_curve WHERE DATE(ts AT TIME ZONE 'UTC') = $1`, today)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to delete equity samples: %v\n", err)
		os.Exit(1)
	}
	samplesDeleted, _ := result.RowsAffected()
	fmt.Printf("  deleted %d equity samples\n", samplesDeleted)

	fmt.Println()
	fmt.Println("Clean slate ready. You can now run:")
	fmt.Println("  go run ./cmd/engine --mode live")
	fmt.Println()
}
