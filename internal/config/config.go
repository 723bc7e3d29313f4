package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all market server configuration.
type Config struct {
	// Server
	Port int
	Host string

	// Database (opt-in: empty URI disables game saves and trade history)
	MongoURI           string
	TradeRetentionDays int

	// Simulation
	Seed             int64
	TickInterval     time.Duration
	DayInterval      time.Duration
	SnapshotInterval time.Duration
	SendBufferSize   int

	// Market rules
	BandRatio   float64
	PriceTick   float64
	LotSize     int64
	BuyFeeRate  float64
	SellFeeRate float64

	// Player
	StartingCash float64

	// Price model
	DailyVol         float64
	MaxStepPct       float64
	RegimeSwitchProb float64
}

func Load() *Config {
	c := &Config{}

	flag.IntVar(&c.Port, "port", envInt("MARKET_PORT", 8200), "HTTP/WebSocket server port")
	flag.StringVar(&c.Host, "host", envStr("MARKET_HOST", "0.0.0.0"), "Listen host")

	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("MONGO_URI", ""), "MongoDB connection URI (empty = in-memory only)")
	flag.IntVar(&c.TradeRetentionDays, "trade-retention", envInt("TRADE_RETENTION_DAYS", 30), "Trade journal retention in days (0 = keep forever)")

	flag.Int64Var(&c.Seed, "seed", envInt64("MARKET_SEED", 0), "PRNG seed (0 = random)")
	flag.DurationVar(&c.TickInterval, "tick-interval", envDuration("TICK_INTERVAL", 3*time.Second), "Price tick cadence")
	flag.DurationVar(&c.DayInterval, "day-interval", envDuration("DAY_INTERVAL", 10*time.Minute), "Simulated trading day length (0 = manual rollover only)")
	flag.IntVar(&c.SendBufferSize, "send-buffer", envInt("SEND_BUFFER", 256), "Per-client send buffer size")

	flag.Float64Var(&c.BandRatio, "band-ratio", envFloat("BAND_RATIO", 0.10), "Daily price limit band around prev close")
	flag.Float64Var(&c.PriceTick, "price-tick", envFloat("PRICE_TICK", 0.01), "Minimum price increment")
	flag.Int64Var(&c.LotSize, "lot-size", envInt64("LOT_SIZE", 100), "Shares per trading lot")
	flag.Float64Var(&c.BuyFeeRate, "buy-fee", envFloat("BUY_FEE_RATE", 0.0003), "Proportional fee on buys")
	flag.Float64Var(&c.SellFeeRate, "sell-fee", envFloat("SELL_FEE_RATE", 0.0013), "Proportional fee on sells (commission + stamp duty)")

	flag.Float64Var(&c.StartingCash, "starting-cash", envFloat("STARTING_CASH", 100000), "Player starting cash")

	flag.Float64Var(&c.DailyVol, "daily-vol", envFloat("DAILY_VOL", 0.02), "Baseline daily volatility")
	flag.Float64Var(&c.MaxStepPct, "max-step", envFloat("MAX_STEP_PCT", 0.02), "Per-tick log-return clamp")
	flag.Float64Var(&c.RegimeSwitchProb, "regime-switch", envFloat("REGIME_SWITCH_PROB", 0.02), "Per-tick probability of a market regime change")

	flag.Parse()

	c.SnapshotInterval = 30 * time.Second

	return c
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
