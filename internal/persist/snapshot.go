package persist

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jornvale/salaryman/go-market/internal/candle"
	"github.com/jornvale/salaryman/go-market/internal/engine"
	"github.com/jornvale/salaryman/go-market/internal/portfolio"
)

// Snapshotter manages periodic persistence of the game session: market
// quotes, candle history, the player's ledger, the RNG state and the
// simulated date.
type Snapshotter struct {
	store  *Store
	market *engine.Engine
	ledger *portfolio.Ledger
	rng    *engine.RNG
}

// NewSnapshotter creates a new snapshotter.
func NewSnapshotter(store *Store, market *engine.Engine, ledger *portfolio.Ledger, rng *engine.RNG) *Snapshotter {
	return &Snapshotter{store: store, market: market, ledger: ledger, rng: rng}
}

// Run starts the periodic snapshot loop. Blocks until ctx is cancelled.
func (s *Snapshotter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final snapshot on shutdown
			log.Println("performing final snapshot...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.Save(shutdownCtx); err != nil {
				log.Printf("final snapshot error: %v", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := s.Save(ctx); err != nil {
				log.Printf("snapshot error: %v", err)
			}
		}
	}
}

// Save persists the full game state to MongoDB in a single transaction.
func (s *Snapshotter) Save(ctx context.Context) error {
	start := time.Now()

	session, err := s.store.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc context.Context) (any, error) {
		db := s.store.db
		now := time.Now()

		// 1. Upsert instrument quotes
		for _, st := range s.market.Snapshot() {
			filter := bson.M{"symbol": st.Symbol}
			update := bson.M{"$set": bson.M{
				"symbol":     st.Symbol,
				"name":       st.Name,
				"price":      st.Price,
				"prev_close": st.PrevClose,
				"open":       st.Open,
				"high":       st.High,
				"low":        st.Low,
				"volume":     st.Volume,
				"turnover":   st.Turnover,
			}}
			opts := options.UpdateOne().SetUpsert(true)
			if _, err := db.Collection("instruments").UpdateOne(sc, filter, update, opts); err != nil {
				return nil, fmt.Errorf("upsert instrument %s: %w", st.Symbol, err)
			}
		}

		// 2. Replace candle history: delete then bulk insert
		if _, err := db.Collection("day_candles").DeleteMany(sc, bson.M{}); err != nil {
			return nil, fmt.Errorf("delete day candles: %w", err)
		}

		var docs []any
		for _, st := range s.market.Snapshot() {
			for _, c := range s.market.History(st.Symbol) {
				docs = append(docs, bson.M{
					"symbol": st.Symbol,
					"date":   c.Date,
					"open":   c.Open,
					"high":   c.High,
					"low":    c.Low,
					"close":  c.Close,
					"volume": c.Volume,
				})
			}
		}
		if len(docs) > 0 {
			if _, err := db.Collection("day_candles").InsertMany(sc, docs); err != nil {
				return nil, fmt.Errorf("insert day candles: %w", err)
			}
		}

		// 3. Upsert the player's ledger
		if _, err := db.Collection("sim_state").UpdateOne(sc,
			bson.M{"key": "ledger"},
			bson.M{"$set": bson.M{
				"key":        "ledger",
				"ledger":     s.ledger.State(),
				"updated_at": now,
			}},
			options.UpdateOne().SetUpsert(true),
		); err != nil {
			return nil, fmt.Errorf("save ledger: %w", err)
		}

		// 4. Upsert PRNG state
		if _, err := db.Collection("sim_state").UpdateOne(sc,
			bson.M{"key": "rng_state"},
			bson.M{"$set": bson.M{
				"key":         "rng_state",
				"value_bytes": s.rng.StateBytes(),
				"updated_at":  now,
			}},
			options.UpdateOne().SetUpsert(true),
		); err != nil {
			return nil, fmt.Errorf("save rng state: %w", err)
		}

		// 5. Upsert simulated date
		if _, err := db.Collection("sim_state").UpdateOne(sc,
			bson.M{"key": "sim_date"},
			bson.M{"$set": bson.M{
				"key":        "sim_date",
				"value_time": s.market.SimDate(),
				"updated_at": now,
			}},
			options.UpdateOne().SetUpsert(true),
		); err != nil {
			return nil, fmt.Errorf("save sim date: %w", err)
		}

		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("snapshot transaction: %w", err)
	}

	log.Printf("snapshot saved in %v", time.Since(start))
	return nil
}

// Load restores game state from MongoDB.
// Returns true if state was found and loaded, false for fresh start.
func (s *Snapshotter) Load(ctx context.Context) (bool, error) {
	db := s.store.db

	count, err := db.Collection("instruments").CountDocuments(ctx, bson.M{})
	if err != nil {
		return false, fmt.Errorf("check instruments: %w", err)
	}
	if count == 0 {
		log.Println("no persisted state found, starting fresh")
		return false, nil
	}

	// Load quotes
	cursor, err := db.Collection("instruments").Find(ctx, bson.M{})
	if err != nil {
		return false, fmt.Errorf("load instruments: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc struct {
			Symbol    string  `bson:"symbol"`
			Price     float64 `bson:"price"`
			PrevClose float64 `bson:"prev_close"`
			Open      float64 `bson:"open"`
			High      float64 `bson:"high"`
			Low       float64 `bson:"low"`
			Volume    int64   `bson:"volume"`
			Turnover  float64 `bson:"turnover"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return false, fmt.Errorf("decode instrument: %w", err)
		}
		s.market.RestoreStock(engine.Stock{
			Symbol:    doc.Symbol,
			Price:     doc.Price,
			PrevClose: doc.PrevClose,
			Open:      doc.Open,
			High:      doc.High,
			Low:       doc.Low,
			Volume:    doc.Volume,
			Turnover:  doc.Turnover,
		})
	}
	if err := cursor.Err(); err != nil {
		return false, fmt.Errorf("iterate instruments: %w", err)
	}

	// Load candle history
	candleCursor, err := db.Collection("day_candles").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "symbol", Value: 1}, {Key: "date", Value: 1}}))
	if err != nil {
		return false, fmt.Errorf("load day candles: %w", err)
	}
	defer candleCursor.Close(ctx)

	history := make(map[string][]candle.Candle)
	candleCount := 0
	for candleCursor.Next(ctx) {
		var doc struct {
			Symbol string    `bson:"symbol"`
			Date   time.Time `bson:"date"`
			Open   float64   `bson:"open"`
			High   float64   `bson:"high"`
			Low    float64   `bson:"low"`
			Close  float64   `bson:"close"`
			Volume int64     `bson:"volume"`
		}
		if err := candleCursor.Decode(&doc); err != nil {
			return false, fmt.Errorf("decode day candle: %w", err)
		}
		history[doc.Symbol] = append(history[doc.Symbol], candle.Candle{
			Date:   doc.Date.UTC(),
			Open:   doc.Open,
			High:   doc.High,
			Low:    doc.Low,
			Close:  doc.Close,
			Volume: doc.Volume,
		})
		candleCount++
	}
	if err := candleCursor.Err(); err != nil {
		return false, fmt.Errorf("iterate day candles: %w", err)
	}
	for sym, days := range history {
		s.market.RestoreHistory(sym, days)
	}

	// Load the ledger
	var ledgerDoc struct {
		Ledger portfolio.State `bson:"ledger"`
	}
	err = db.Collection("sim_state").FindOne(ctx, bson.M{"key": "ledger"}).Decode(&ledgerDoc)
	if err == nil {
		s.ledger.Restore(ledgerDoc.Ledger)
	}

	// Load PRNG state
	var stateDoc struct {
		ValueBytes []byte `bson:"value_bytes"`
	}
	err = db.Collection("sim_state").FindOne(ctx, bson.M{"key": "rng_state"}).Decode(&stateDoc)
	if err == nil && len(stateDoc.ValueBytes) >= 16 {
		s.rng.RestoreStateBytes(stateDoc.ValueBytes)
	}

	// Load simulated date
	var dateDoc struct {
		ValueTime time.Time `bson:"value_time"`
	}
	err = db.Collection("sim_state").FindOne(ctx, bson.M{"key": "sim_date"}).Decode(&dateDoc)
	if err == nil && !dateDoc.ValueTime.IsZero() {
		s.market.SetSimDate(dateDoc.ValueTime.UTC())
	}

	log.Printf("restored state: %d instruments, %d day candles", count, candleCount)
	return true, nil
}

// SaveTrade persists a single executed trade to the journal.
func (s *Snapshotter) SaveTrade(ctx context.Context, tr portfolio.Trade) error {
	_, err := s.store.db.Collection("trades").InsertOne(ctx, bson.M{
		"id":          tr.ID,
		"symbol":      tr.Symbol,
		"side":        tr.Side,
		"price":       tr.Price,
		"quantity":    tr.Quantity,
		"fee":         tr.Fee,
		"realized":    tr.Realized,
		"executed_at": tr.At,
	})
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil // idempotent — ignore duplicates
	}
	return err
}
