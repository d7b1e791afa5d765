package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/pkg/connpool"
	redisclient "github.com/KirkDiggler/dogstory-api/internal/redis"
)

const (
	rankKey      = "retired_players:rank"
	rowKeyPrefix = "retired_player:"

	// separates the sortable part of a rank member from the record id
	memberIDSeparator = "\x00"
)

var _ Repository = (*redisRepository)(nil)

type redisRepository struct {
	pool *connpool.Pool[redisclient.Client]
}

// RedisConfig contains configuration for the Redis leaderboard
type RedisConfig struct {
	Pool *connpool.Pool[redisclient.Client]
}

// Validate validates the RedisConfig
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Pool == nil {
		return errors.InvalidArgument("pool cannot be nil")
	}
	return nil
}

// NewRedis creates a leaderboard that keeps rows as JSON and ranks them in a
// lexicographic sorted set
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &redisRepository{pool: cfg.Pool}, nil
}

// recordData is what gets serialized to Redis
type recordData struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Score      int    `json:"score"`
	PlayTimeMS int64  `json:"play_time_ms"`
}

// RankMember builds the sorted-set member for a record. All members share
// score 0, so Redis orders them byte-wise: inverted score first, then play
// time, then name, then id.
func RankMember(rec Record) string {
	return fmt.Sprintf("%020d:%020d:%s%s%s",
		uint64(math.MaxInt64-int64(rec.Score)),
		rec.PlayTime.Milliseconds(),
		rec.Name,
		memberIDSeparator,
		rec.ID,
	)
}

// RowKey returns the key holding a record's row
func RowKey(id string) string {
	return rowKeyPrefix + id
}

func (r *redisRepository) Save(ctx context.Context, input SaveInput) (*SaveOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if len(input.Records) == 0 {
		return &SaveOutput{}, nil
	}

	rows := make(map[string][]byte, len(input.Records))
	for _, rec := range input.Records {
		data, err := json.Marshal(recordData{
			ID:         rec.ID,
			Name:       rec.Name,
			Score:      rec.Score,
			PlayTimeMS: rec.PlayTime.Milliseconds(),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal record %s", rec.ID)
		}
		rows[rec.ID] = data
	}

	err := r.pool.With(ctx, func(client redisclient.Client) error {
		pipe := client.TxPipeline()
		for _, rec := range input.Records {
			pipe.Set(ctx, RowKey(rec.ID), rows[rec.ID], 0)
			pipe.ZAdd(ctx, rankKey, redis.Z{Score: 0, Member: RankMember(rec)})
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return nil, persistenceError(err, "failed to save retired players")
	}

	return &SaveOutput{Saved: len(input.Records)}, nil
}

func (r *redisRepository) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var records []Record
	err := r.pool.With(ctx, func(client redisclient.Client) error {
		members, err := client.ZRangeByLex(ctx, rankKey, &redis.ZRangeBy{
			Min:    "-",
			Max:    "+",
			Offset: int64(input.Offset),
			Count:  int64(input.Limit),
		}).Result()
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}

		keys := make([]string, 0, len(members))
		for _, member := range members {
			idx := strings.LastIndex(member, memberIDSeparator)
			if idx < 0 {
				return errors.DataLoss(fmt.Sprintf("malformed rank member %q", member))
			}
			keys = append(keys, RowKey(member[idx+len(memberIDSeparator):]))
		}

		values, err := client.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}

		records = make([]Record, 0, len(values))
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				return errors.DataLoss(fmt.Sprintf("rank entry %s has no row", keys[i]))
			}
			var data recordData
			if err := json.Unmarshal([]byte(raw), &data); err != nil {
				return errors.Wrapf(err, "failed to unmarshal %s", keys[i])
			}
			records = append(records, Record{
				ID:       data.ID,
				Name:     data.Name,
				Score:    data.Score,
				PlayTime: time.Duration(data.PlayTimeMS) * time.Millisecond,
			})
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError(err, "failed to list retired players")
	}

	return &ListOutput{Records: records}, nil
}

// persistenceError keeps already classified errors and marks raw driver
// failures as retryable persistence errors
func persistenceError(err error, message string) error {
	var classified *errors.Error
	if errors.As(err, &classified) {
		return errors.Wrap(err, message)
	}
	return errors.Persistence(err, message)
}
