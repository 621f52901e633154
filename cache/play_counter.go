package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/royo00/music/logger"
)

// PlayCountKey 根据音乐ID生成播放计数键
func PlayCountKey(trackID int64) string {
	return fmt.Sprintf("%s%d", playCountKeyPrefix, trackID)
}

// PlayCounter is the write-behind play counter.每次播放只打到 Redis，
// 由 SyncToStore 批量回写到持久层，持久行不会每次播放都被更新。
type PlayCounter struct {
	rdb *redis.Client
}

// NewPlayCounter creates a PlayCounter on top of a Redis client.
func NewPlayCounter(rdb *redis.Client) *PlayCounter {
	return &PlayCounter{rdb: rdb}
}

// Increment bumps the fast counter for a track. The key carries a rolling
// 24h expiry so an abandoned counter does not live forever.
func (p *PlayCounter) Increment(ctx context.Context, trackID int64) error {
	key := PlayCountKey(trackID)
	if err := p.rdb.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to increment play count for track %d: %w", trackID, err)
	}
	if err := p.rdb.Expire(ctx, key, playCountExpiry).Err(); err != nil {
		return fmt.Errorf("failed to set play count expiry for track %d: %w", trackID, err)
	}
	return nil
}

// Peek returns the not-yet-reconciled count for a track, zero when absent.
func (p *PlayCounter) Peek(ctx context.Context, trackID int64) (int64, error) {
	val, err := p.rdb.Get(ctx, PlayCountKey(trackID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read play count for track %d: %w", trackID, err)
	}
	return val, nil
}

// SyncToStore drains every pending counter into the durable store via apply.
// 单个键回写失败只记录日志并继续，丢失的增量在可接受范围内。
func (p *PlayCounter) SyncToStore(ctx context.Context, apply func(trackID, delta int64) error) error {
	var cursor uint64
	var synced int
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, playCountKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan play count keys: %w", err)
		}

		for _, key := range keys {
			idStr := strings.TrimPrefix(key, playCountKeyPrefix)
			trackID, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				logger.Warn("跳过无法解析的播放计数键", logger.String("key", key))
				continue
			}

			val, err := p.rdb.GetDel(ctx, key).Int64()
			if err == redis.Nil || val == 0 {
				continue
			}
			if err != nil {
				logger.Error("读取播放计数失败", logger.String("key", key), logger.ErrorField(err))
				continue
			}

			if err := apply(trackID, val); err != nil {
				logger.Error("回写播放计数失败",
					logger.Int64("trackId", trackID),
					logger.Int64("delta", val),
					logger.ErrorField(err))
				continue
			}
			synced++
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	logger.Info("播放计数回写完成", logger.Int("counters", synced))
	return nil
}
