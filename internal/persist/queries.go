package persist

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// TradeRecord represents a persisted trade document.
type TradeRecord struct {
	ID         string    `json:"id"         bson:"id"`
	Symbol     string    `json:"symbol"     bson:"symbol"`
	Side       string    `json:"side"       bson:"side"`
	Price      float64   `json:"price"      bson:"price"`
	Quantity   int64     `json:"quantity"   bson:"quantity"`
	Fee        float64   `json:"fee"        bson:"fee"`
	Realized   float64   `json:"realized"   bson:"realized"`
	ExecutedAt time.Time `json:"executedAt" bson:"executed_at"`
}

// TradeFilter controls which trades to return.
type TradeFilter struct {
	Symbol string // empty means all symbols
	Side   string // empty means both sides
	Limit  int
	Offset int
	From   *time.Time
	To     *time.Time
}

// TradeStats holds aggregate trade statistics.
type TradeStats struct {
	TotalTrades   int64   `json:"totalTrades"`
	TotalVolume   int64   `json:"totalVolume"`
	TotalFees     float64 `json:"totalFees"`
	TotalRealized float64 `json:"totalRealized"`
}

// TradeReader abstracts read-only trade journal queries.
type TradeReader interface {
	QueryTrades(ctx context.Context, f TradeFilter) ([]TradeRecord, error)
	QueryTradeStats(ctx context.Context) (TradeStats, error)
}

// MongoTradeReader implements TradeReader using a mongo.Database.
type MongoTradeReader struct {
	db *mongo.Database
}

// NewMongoTradeReader creates a new MongoTradeReader.
func NewMongoTradeReader(db *mongo.Database) *MongoTradeReader {
	return &MongoTradeReader{db: db}
}

// QueryTrades returns trades, newest first, with optional symbol, side,
// time range and pagination.
func (r *MongoTradeReader) QueryTrades(ctx context.Context, f TradeFilter) ([]TradeRecord, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}

	filter := bson.M{}
	if f.Symbol != "" {
		filter["symbol"] = f.Symbol
	}
	if f.Side != "" {
		filter["side"] = f.Side
	}
	if f.From != nil || f.To != nil {
		timeFilter := bson.M{}
		if f.From != nil {
			timeFilter["$gte"] = *f.From
		}
		if f.To != nil {
			timeFilter["$lte"] = *f.To
		}
		filter["executed_at"] = timeFilter
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "executed_at", Value: -1}}).
		SetLimit(int64(f.Limit)).
		SetSkip(int64(f.Offset))

	cursor, err := r.db.Collection("trades").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer cursor.Close(ctx)

	trades := []TradeRecord{}
	if err := cursor.All(ctx, &trades); err != nil {
		return nil, fmt.Errorf("decode trades: %w", err)
	}
	return trades, nil
}

// QueryTradeStats returns aggregate trade count, share volume, fees paid
// and realized profit.
func (r *MongoTradeReader) QueryTradeStats(ctx context.Context) (TradeStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total_trades", Value: bson.M{"$sum": 1}},
			{Key: "total_volume", Value: bson.M{"$sum": "$quantity"}},
			{Key: "total_fees", Value: bson.M{"$sum": "$fee"}},
			{Key: "total_realized", Value: bson.M{"$sum": "$realized"}},
		}}},
	}

	cursor, err := r.db.Collection("trades").Aggregate(ctx, pipeline)
	if err != nil {
		return TradeStats{}, fmt.Errorf("query trade stats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		TotalTrades   int64   `bson:"total_trades"`
		TotalVolume   int64   `bson:"total_volume"`
		TotalFees     float64 `bson:"total_fees"`
		TotalRealized float64 `bson:"total_realized"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return TradeStats{}, fmt.Errorf("decode trade stats: %w", err)
	}

	if len(results) == 0 {
		return TradeStats{}, nil
	}
	return TradeStats{
		TotalTrades:   results[0].TotalTrades,
		TotalVolume:   results[0].TotalVolume,
		TotalFees:     results[0].TotalFees,
		TotalRealized: results[0].TotalRealized,
	}, nil
}
