package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"trade-executor/internal/api"
	"trade-executor/internal/engine"
	"trade-executor/internal/events"
	"trade-executor/internal/order"
	"trade-executor/internal/pnl"
	"trade-executor/internal/position"
	"trade-executor/internal/risk"
	"trade-executor/internal/sizing"
	"trade-executor/pkg/cache"
	"trade-executor/pkg/config"
	"trade-executor/pkg/db"
	"trade-executor/pkg/exchanges/bybit"
	"trade-executor/pkg/notify"
)

var buildVersion = "dev"

// closeInterval paces the reduce-only orders the reconciler fires when
// flattening multiple positions.
const closeInterval = 200 * time.Millisecond

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	policies, err := config.LoadPolicies(cfg.PoliciesPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if dir := filepath.Dir(cfg.LedgerPath); dir != "." && cfg.LedgerPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("ledger dir: %v", err)
		}
	}
	ledger, err := db.New(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("ledger: %v", err)
	}
	defer ledger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()

	provider := bybit.NewProvider(bybit.Config{
		APIKey:     cfg.BybitAPIKey,
		APISecret:  cfg.BybitAPISecret,
		Testnet:    cfg.BybitTestnet,
		Demo:       cfg.BybitDemo,
		HedgeMode:  cfg.HedgeMode,
		RecvWindow: int64(cfg.RecvWindowMs),
	})
	provider.StartTimeSync(ctx)

	gate := risk.NewGate(risk.Config{
		Cooldown:        cfg.Cooldown,
		MinPriceDelta:   cfg.MinPriceDelta,
		MaxLossPerDay:   cfg.MaxLossPerDay,
		StrictDirection: cfg.StrictDirection,
	}, bus)

	recorder := pnl.NewRecorder(provider, ledger, bus)
	recorder.OnRealized = func(realized float64) { gate.RecordRealized(realized) }

	sizer := sizing.New(sizing.Config{
		Mode:           sizing.Mode(cfg.SizingMode),
		FixedAmount:    cfg.FixedAmount,
		PercentRate:    cfg.PercentRate,
		Leverage:       cfg.Leverage,
		MaxOrderAmount: cfg.MaxOrderAmount,
	})

	eng := engine.New(engine.Config{
		Provider:        provider,
		Gate:            gate,
		Sizer:           sizer,
		Reconciler:      position.NewReconciler(provider, bus, closeInterval),
		Executor:        order.NewExecutor(provider, bus, order.Config{MaxAttempts: cfg.MaxAttempts}),
		Recorder:        recorder,
		Bus:             bus,
		Specs:           cache.NewSpecCache(time.Hour),
		Policies:        policies,
		HarvestLookback: cfg.HarvestLookback,
	})

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifier = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		log.Println("notify: telegram notifications enabled")
	}
	notify.NewRelay(bus, notifier).Start(ctx)

	if len(cfg.HarvestSymbols) > 0 {
		recorder.RunPeriodic(ctx, cfg.HarvestSymbols, cfg.HarvestInterval, cfg.HarvestLookback)
		log.Printf("pnl: periodic harvest every %s for %v", cfg.HarvestInterval, cfg.HarvestSymbols)
	}

	server := api.NewServer(eng, cfg.WebhookToken, api.SystemMeta{
		Venue:   "bybit",
		Demo:    cfg.BybitDemo,
		Testnet: cfg.BybitTestnet,
		Version: buildVersion,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("api: listening on :%s (testnet=%v demo=%v)", cfg.Port, cfg.BybitTestnet, cfg.BybitDemo)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("api: shutdown: %v", err)
	}
	cancel()
}
