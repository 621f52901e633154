package cache

import (
	"context"
	"fmt"

	"github.com/royo00/music/model"
)

// TrackDetailKey 根据音乐ID生成详情缓存键
func TrackDetailKey(trackID int64) string {
	return fmt.Sprintf("%s%d", trackDetailKeyPrefix, trackID)
}

// TrackCache is the typed read-through cache for track details.
// 缓存的载荷不包含收藏标记等请求者相关状态
type TrackCache struct {
	cache Cache
}

// NewTrackCache creates a TrackCache on top of a generic Cache.
func NewTrackCache(cache Cache) *TrackCache {
	return &TrackCache{cache: cache}
}

// GetDetail returns the cached detail for a track, if present.
func (c *TrackCache) GetDetail(ctx context.Context, trackID int64) (*model.TrackDetail, bool, error) {
	detail := &model.TrackDetail{}
	hit, err := c.cache.Get(ctx, TrackDetailKey(trackID), detail)
	if err != nil || !hit {
		return nil, false, err
	}
	return detail, true, nil
}

// PutDetail caches the detail for a track with the standard TTL.
func (c *TrackCache) PutDetail(ctx context.Context, detail *model.TrackDetail) error {
	return c.cache.Put(ctx, TrackDetailKey(detail.ID), detail, TrackDetailTTL)
}

// InvalidateDetail drops the cached detail for a track.
// 必须在变更提交之后、请求返回之前同步调用
func (c *TrackCache) InvalidateDetail(ctx context.Context, trackID int64) error {
	return c.cache.Invalidate(ctx, TrackDetailKey(trackID))
}
