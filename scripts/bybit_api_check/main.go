package main

import (
	"context"
	"log"
	"os"
	"time"

	"trade-executor/pkg/config"
	"trade-executor/pkg/exchanges/bybit"
)

// bybit_api_check/main.go
//
// Small tool to verify that the configured Bybit credentials can reach the
// private v5 API before pointing live alerts at the executor.
//
// Usage:
//
//	go run ./scripts/bybit_api_check
//
// Environment (same as the main program):
//
//	BYBIT_API_KEY / BYBIT_API_SECRET
//	BYBIT_TESTNET / BYBIT_DEMO
//	CHECK_SYMBOL (default "BTCUSDT")
//
// Only read endpoints are exercised; nothing is placed or changed.

func main() {
	log.Println("=== Bybit API check starting ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.BybitAPIKey == "" || cfg.BybitAPISecret == "" {
		log.Fatal("BYBIT_API_KEY/SECRET empty, nothing to check")
	}

	symbol := os.Getenv("CHECK_SYMBOL")
	if symbol == "" {
		symbol = "BTCUSDT"
	}
	log.Printf("Config: testnet=%v demo=%v symbol=%s", cfg.BybitTestnet, cfg.BybitDemo, symbol)

	client := bybit.NewClient(bybit.Config{
		APIKey:     cfg.BybitAPIKey,
		APISecret:  cfg.BybitAPISecret,
		Testnet:    cfg.BybitTestnet,
		Demo:       cfg.BybitDemo,
		RecvWindow: int64(cfg.RecvWindowMs),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	balance, err := client.GetBalance(ctx)
	if err != nil {
		log.Fatalf("[BALANCE] %v", err)
	}
	log.Printf("[BALANCE] available USDT: %.2f", balance)

	spec, err := client.GetSymbolSpec(ctx, symbol)
	if err != nil {
		log.Fatalf("[SPEC] %v", err)
	}
	log.Printf("[SPEC] %s tick=%v step=%v minQty=%v", spec.Symbol, spec.TickSize, spec.QtyStep, spec.MinQty)

	positions, err := client.GetPositions(ctx, symbol)
	if err != nil {
		log.Fatalf("[POSITIONS] %v", err)
	}
	log.Printf("[POSITIONS] %d open on %s", len(positions), symbol)
	for _, p := range positions {
		log.Printf("[POSITIONS]   %s %s size=%v", p.Symbol, p.Side, p.Size)
	}

	closed, err := client.GetClosedPnL(ctx, symbol, 5)
	if err != nil {
		log.Fatalf("[CLOSED-PNL] %v", err)
	}
	log.Printf("[CLOSED-PNL] last %d records:", len(closed))
	for _, c := range closed {
		log.Printf("[CLOSED-PNL]   %s %s qty=%v exit=%v pnl=%.2f at %s",
			c.Symbol, c.Side, c.Qty, c.ExitPrice, c.RealizedPnL, c.ClosedAt.Format(time.RFC3339))
	}

	log.Println("=== Bybit API check done ===")
}
