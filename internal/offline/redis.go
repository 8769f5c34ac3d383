package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	keySequence   = "pos:offline:seq"
	keyPending    = "pos:offline:pending"
	keySalePrefix = "pos:offline:sale:"
)

// RedisStore keeps the queue in Redis: a sorted set orders local IDs by a
// creation sequence and each payload lives under its own key.
type RedisStore struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedisStore constructs a store over client.
func NewRedisStore(client redis.UniversalClient, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

func saleKey(localID string) string {
	return keySalePrefix + localID
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, sale PendingSale) error {
	payload, err := json.Marshal(sale)
	if err != nil {
		return fmt.Errorf("offline: encode %s: %w", sale.LocalID, err)
	}
	seq, err := s.client.Incr(ctx, keySequence).Result()
	if err != nil {
		return fmt.Errorf("offline: next sequence: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, saleKey(sale.LocalID), payload, 0)
		pipe.ZAdd(ctx, keyPending, redis.Z{Score: float64(seq), Member: sale.LocalID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("offline: append %s: %w", sale.LocalID, err)
	}
	return nil
}

// Delete implements Store. Deleting an absent entry is a no-op.
func (s *RedisStore) Delete(ctx context.Context, localID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, keyPending, localID)
		pipe.Del(ctx, saleKey(localID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("offline: delete %s: %w", localID, err)
	}
	return nil
}

// List implements Store, oldest first. Undecodable payloads stay stored and
// are logged rather than returned.
func (s *RedisStore) List(ctx context.Context) ([]PendingSale, error) {
	ids, err := s.client.ZRange(ctx, keyPending, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("offline: list pending: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = saleKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("offline: load pending: %w", err)
	}
	pending := make([]PendingSale, 0, len(ids))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			s.logger.Warn("pending sale payload missing", slog.String("local_id", ids[i]))
			continue
		}
		var sale PendingSale
		if err := json.Unmarshal([]byte(raw), &sale); err != nil {
			s.logger.Error("decode pending sale", slog.String("local_id", ids[i]), slog.Any("error", err))
			continue
		}
		pending = append(pending, sale)
	}
	return pending, nil
}

// Len implements Store.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, keyPending).Result()
	if err != nil {
		return 0, fmt.Errorf("offline: count pending: %w", err)
	}
	return int(n), nil
}

// Flush asks Redis to snapshot to disk. Servers running without persistence
// or refusing the command are tolerated.
func (s *RedisStore) Flush(ctx context.Context) error {
	err := s.client.BgSave(ctx).Err()
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unknown command") || strings.Contains(msg, "in progress") || strings.Contains(msg, "already") {
		s.logger.Debug("redis snapshot skipped", slog.Any("error", err))
		return nil
	}
	return fmt.Errorf("offline: flush: %w", err)
}
