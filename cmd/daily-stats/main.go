// Package main - daily-stats reports fills taken, volume traded and the
// equity change for a day, read from the engine's Postgres store.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nitinkhare/cryptoTradingEngine/internal/config"
)

// FillRow is one fill executed on the day being reported.
type FillRow struct {
	Symbol   string
	Side     string
	Quantity float64
	Price    float64
	Notional float64
	Ts       time.Time
}

// DailySummary is the day's aggregate trading activity.
type DailySummary struct {
	TotalFills  int
	BuyFills    int
	SellFills   int
	BuyVolume   float64
	SellVolume  float64
	StartEquity float64
	EndEquity   float64
	DailyPnL    float64
}

// NetPosition is the cumulative net quantity held in a symbol across all
// fills ever recorded, inferred from buy/sell signs since the store keeps
// no separate positions table.
type NetPosition struct {
	Symbol   string
	NetQty   float64
	LastSide string
}

const (
	Reset   = "\033[0m"
	Red     = "\033[0;31m"
	Green   = "\033[0;32m"
	Yellow  = "\033[1;33m"
	Blue    = "\033[0;34m"
	Cyan    = "\033[0;36m"
	Magenta = "\033[0;35m"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to configuration file")
	dateFlag := flag.String("date", "", "date in YYYY-MM-DD format, UTC (defaults to today)")
	flag.Parse()

	date := *dateFlag
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		fmt.Fprintf(os.Stderr, "invalid date format, use YYYY-MM-DD\n")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "no database_url configured")
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ping database: %v\n", err)
		os.Exit(1)
	}

	summary, err := getDailySummary(db, date)
	if err != nil {
		log.Fatalf("failed to get daily summary: %v", err)
	}
	displaySummary(date, summary)

	fills, err := getFills(db, date)
	if err != nil {
		log.Fatalf("failed to get fills: %v", err)
	}
	if len(fills) > 0 {
		displayFills(fills)
	}

	positions, err := getNetPositions(db)
	if err != nil {
		log.Fatalf("failed to get net positions: %v", err)
	}
	displayNetPositions(positions)
}

func getDailySummary(db *sql.DB, date string) (*DailySummary, error) {
	var summary DailySummary

	err := db.QueryRow(`
SELECT
  COUNT(*) AS total_fills,
  COALESCE(SUM(CASE WHEN side = 'BUY' THEN 1 ELSE 0 END), 0) AS buy_fills,
  COALESCE(SUM(CASE WHEN side = 'SELL' THEN 1 ELSE 0 END), 0) AS sell_fills,
  COALESCE(SUM(CASE WHEN side = 'BUY' THEN quantity * price ELSE 0 END), 0) AS buy_volume,
  COALESCE(SUM(CASE WHEN side = 'SELL' THEN quantity * price ELSE 0 END), 0) AS sell_volume
FROM fills
WHERE DATE(ts AT TIME ZONE 'UTC') = $1
`, date).Scan(&summary.TotalFills, &summary.BuyFills, &summary.SellFills, &summary.BuyVolume, &summary.SellVolume)
	if err != nil {
		return nil, err
	}

	row := db.QueryRow(`
SELECT
  COALESCE((SELECT equity FROM equity_curve WHERE DATE(ts AT TIME ZONE 'UTC') = $1 ORDER BY ts ASC LIMIT 1), 0),
  COALESCE((SELECT equity FROM equity_curve WHERE DATE(ts AT TIME ZONE 'UTC') = $1 ORDER BY ts DESC LIMIT 1), 0)
`, date)
	if err := row.Scan(&summary.StartEquity, &summary.EndEquity); err != nil {
		return nil, err
	}
	summary.DailyPnL = summary.EndEquity - summary.StartEquity

	return &summary, nil
}

func getFills(db *sql.DB, date string) ([]FillRow, error) {
	rows, err := db.Query(`
SELECT symbol, side, quantity, price, ts
FROM fills
WHERE DATE(ts AT TIME ZONE 'UTC') = $1
ORDER BY ts DESC
`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fills []FillRow
	for rows.Next() {
		var f FillRow
		if err := rows.Scan(&f.Symbol, &f.Side, &f.Quantity, &f.Price, &f.Ts); err != nil {
			return nil, err
		}
		f.Notional = f.Quantity * f.Price
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

func getNetPositions(db *sql.DB) ([]NetPosition, error) {
	rows, err := db.Query(`
SELECT symbol,
  SUM(CASE WHEN side = 'BUY' THEN quantity ELSE -quantity END) AS net_qty,
  (ARRAY_AGG(side ORDER BY ts DESC))[1] AS last_side
FROM fills
GROUP BY symbol
HAVING SUM(CASE WHEN side = 'BUY' THEN quantity ELSE -quantity END) <> 0
ORDER BY symbol
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []NetPosition
	for rows.Next() {
		var p NetPosition
		if err := rows.Scan(&p.Symbol, &p.NetQty, &p.LastSide); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func displaySummary(date string, summary *DailySummary) {
	fmt.Printf("%s================================================================%s\n", Cyan, Reset)
	fmt.Printf("%s  DAILY TRADING STATISTICS - %s (UTC)%s\n", Cyan, date, Reset)
	fmt.Printf("%s================================================================%s\n", Cyan, Reset)
	fmt.Println()

	if summary.TotalFills == 0 {
		fmt.Printf("%sNo fills found for %s%s\n\n", Yellow, date, Reset)
		return
	}

	pnlColor := Green
	if summary.DailyPnL < 0 {
		pnlColor = Red
	}

	fmt.Printf("%sSUMMARY%s\n", Blue, Reset)
	fmt.Printf("  %sTotal Fills:%s   %s%d%s (%d buy / %d sell)\n", Yellow, Reset, Green, summary.TotalFills, Reset, summary.BuyFills, summary.SellFills)
	fmt.Printf("  %sBuy Volume:%s    %.2f\n", Yellow, Reset, summary.BuyVolume)
	fmt.Printf("  %sSell Volume:%s   %.2f\n", Yellow, Reset, summary.SellVolume)
	fmt.Printf("  %sStart Equity:%s  %.2f\n", Yellow, Reset, summary.StartEquity)
	fmt.Printf("  %sEnd Equity:%s    %.2f\n", Yellow, Reset, summary.EndEquity)
	fmt.Printf("  %sDaily P&L:%s     %s%.2f%s\n", Yellow, Reset, pnlColor, summary.DailyPnL, Reset)
	fmt.Println()
}

func displayFills(fills []FillRow) {
	fmt.Printf("%sFILLS%s\n", Blue, Reset)
	fmt.Printf("%s%-12s %-6s %-12s %-12s %-14s %-10s%s\n", Magenta, "Symbol", "Side", "Quantity", "Price", "Notional", "Time", Reset)
	fmt.Printf("%s%s%s\n", Magenta, strings.Repeat("-", 70), Reset)

	for _, f := range fills {
		sideColor := Green
		if f.Side == "SELL" {
			sideColor = Red
		}
		fmt.Printf("%-12s %s%-6s%s %-12.6f %-12.2f %-14.2f %-10s\n",
			f.Symbol, sideColor, f.Side, Reset, f.Quantity, f.Price, f.Notional, f.Ts.Format("15:04:05"))
	}
	fmt.Println()
}

func displayNetPositions(positions []NetPosition) {
	fmt.Printf("%sNET POSITIONS%s\n", Blue, Reset)
	if len(positions) == 0 {
		fmt.Printf("  %sNo open net exposure%s\n", Green, Reset)
		fmt.Println()
		return
	}

	fmt.Printf("%s%-12s %-14s %-10s%s\n", Magenta, "Symbol", "Net Quantity", "Last Side", Reset)
	fmt.Printf("%s%s%s\n", Magenta, strings.Repeat("-", 40), Reset)
	for _, p := range positions {
		qtyColor := Green
		if p.NetQty < 0 {
			qtyColor = Red
		}
		fmt.Printf("%-12s %s%-14.6f%s %-10s\n", p.Symbol, qtyColor, p.NetQty, Reset, p.LastSide)
	}
	fmt.Println()
}
