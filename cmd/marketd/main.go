package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jornvale/salaryman/go-market/internal/api"
	"github.com/jornvale/salaryman/go-market/internal/config"
	"github.com/jornvale/salaryman/go-market/internal/engine"
	"github.com/jornvale/salaryman/go-market/internal/feed"
	"github.com/jornvale/salaryman/go-market/internal/instrument"
	"github.com/jornvale/salaryman/go-market/internal/persist"
	"github.com/jornvale/salaryman/go-market/internal/portfolio"
)

func main() {
	cfg := config.Load()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("market server starting")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	// PRNG
	rng := engine.NewRNG(cfg.Seed)
	log.Printf("PRNG seed: %d", cfg.Seed)

	// Instruments
	roster := instrument.All()
	log.Printf("loaded %d instruments", len(roster))

	// Price model + market engine
	ticksPerDay := 200.0
	if cfg.DayInterval > 0 && cfg.TickInterval > 0 {
		ticksPerDay = float64(cfg.DayInterval) / float64(cfg.TickInterval)
	}
	model := engine.NewRandomWalk(cfg.DailyVol, ticksPerDay, cfg.MaxStepPct, cfg.RegimeSwitchProb)
	market := engine.New(rng, model, roster, engine.Params{
		BandRatio:    cfg.BandRatio,
		LotSize:      cfg.LotSize,
		TickInterval: cfg.TickInterval,
	})

	// Player ledger + order executor
	ledger := portfolio.NewLedger(portfolio.Config{
		StartingCash: cfg.StartingCash,
		LotSize:      cfg.LotSize,
		BuyFeeRate:   cfg.BuyFeeRate,
		SellFeeRate:  cfg.SellFeeRate,
	})

	tradeCh := make(chan portfolio.Trade, 1024)
	exec := portfolio.NewExecutor(market, ledger, tradeCh)

	// MongoDB (opt-in game saves)
	var snapshotter *persist.Snapshotter
	var reader persist.TradeReader
	if cfg.MongoURI != "" {
		store, err := persist.NewStore(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer store.Close(context.Background())

		if err := store.Migrate(ctx); err != nil {
			log.Fatalf("migration failed: %v", err)
		}

		snapshotter = persist.NewSnapshotter(store, market, ledger, rng)
		if _, err := snapshotter.Load(ctx); err != nil {
			log.Printf("warning: failed to load state: %v", err)
		}

		go snapshotter.Run(ctx, cfg.SnapshotInterval)
		go persist.RunRetention(ctx, store, cfg.TradeRetentionDays)
		go tradeWriter(ctx, snapshotter, tradeCh)

		reader = persist.NewMongoTradeReader(store.DB())
	} else {
		log.Println("no MongoDB URI configured, running in-memory only")
		go tradeDrain(ctx, tradeCh)
	}

	// Feed fan-out
	mgr := feed.NewManager(roster, cfg.SendBufferSize)
	market.Subscribe(mgr.Broadcast)
	market.Subscribe(exec.OnTick)

	// Tick loop + day clock
	market.Start()
	defer market.Stop()
	if cfg.DayInterval > 0 {
		go dayClock(ctx, market, ledger, cfg.DayInterval)
	}

	// HTTP/WebSocket server
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", feed.Handler(mgr))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","clients":%d,"instruments":%d}`, mgr.ClientCount(), len(roster))
	})

	apiServer := api.NewServer(market, ledger, exec, reader, mgr, engine.NewRNG(cfg.Seed+1), cfg.PriceTick, cfg.LotSize)
	apiServer.Register(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		mgr.CloseAll()
	}()

	log.Printf("quote feed listening on ws://%s/feed", addr)
	log.Printf("REST API: http://%s/api/stocks", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}

	log.Println("market server stopped")
}

// dayClock rolls the simulated trading day over at a fixed interval. The
// market closes its candles first, then the ledger's daily counters reset.
func dayClock(ctx context.Context, market *engine.Engine, ledger *portfolio.Ledger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			market.EndDay()
			ledger.ResetDay()
		}
	}
}

// tradeWriter drains executed trades into the journal.
func tradeWriter(ctx context.Context, snap *persist.Snapshotter, ch <-chan portfolio.Trade) {
	for {
		select {
		case <-ctx.Done():
			return
		case tr := <-ch:
			if err := snap.SaveTrade(context.Background(), tr); err != nil {
				log.Printf("trade journal write error: %v", err)
			}
		}
	}
}

// tradeDrain discards trades when persistence is disabled so the
// executor's journal channel never fills.
func tradeDrain(ctx context.Context, ch <-chan portfolio.Trade) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
		}
	}
}
