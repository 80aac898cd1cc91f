package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"market-relay/src/helpers"
	"market-relay/src/logger"
	"market-relay/src/models"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps one hash per channel, snapshots:{channel}, field = symbol,
// value = JSON quote.
type RedisStore struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewRedisStore(cfg *models.MConfig, log *logger.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(cfg.Storage.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &RedisStore{Client: redis.NewClient(opt), Logger: log}, nil
}

func snapshotKey(channel models.Channel) string {
	return fmt.Sprintf("snapshots:%s", channel)
}

// -----------------------------------------------------------------------------

func (r *RedisStore) Initialize(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return helpers.NewDatabaseError("failed to connect to Redis", err)
	}
	r.Logger.Info("Redis snapshot store connected")
	return nil
}

func (r *RedisStore) SaveQuotes(ctx context.Context, channel models.Channel, quotes []models.MQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(quotes))
	for _, q := range quotes {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", q.Symbol, err)
		}
		fields[q.Symbol] = data
	}
	return r.Client.HSet(ctx, snapshotKey(channel), fields).Err()
}

func (r *RedisStore) LoadLatest(ctx context.Context, channel models.Channel) ([]models.MQuote, error) {
	raw, err := r.Client.HGetAll(ctx, snapshotKey(channel)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]models.MQuote, 0, len(raw))
	for symbol, blob := range raw {
		var q models.MQuote
		if err := json.Unmarshal([]byte(blob), &q); err != nil {
			r.Logger.Warning("Skipping unreadable snapshot %s/%s: %v", channel, symbol, err)
			continue
		}
		out = append(out, q)
	}
	sortBySymbol(out)
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.Client.Close()
}
