package cache

import (
	"context"
	"fmt"

	"github.com/royo00/music/model"
)

// UserProfileKey 根据用户ID生成资料缓存键
func UserProfileKey(userID int64) string {
	return fmt.Sprintf("%s%d", userProfileKeyPrefix, userID)
}

// UserCache is the typed read-through cache for user profiles.
type UserCache struct {
	cache Cache
}

// NewUserCache creates a UserCache on top of a generic Cache.
func NewUserCache(cache Cache) *UserCache {
	return &UserCache{cache: cache}
}

// GetProfile returns the cached profile for a user, if present.
func (c *UserCache) GetProfile(ctx context.Context, userID int64) (*model.Profile, bool, error) {
	profile := &model.Profile{}
	hit, err := c.cache.Get(ctx, UserProfileKey(userID), profile)
	if err != nil || !hit {
		return nil, false, err
	}
	return profile, true, nil
}

// PutProfile caches the profile with the standard TTL.
func (c *UserCache) PutProfile(ctx context.Context, profile *model.Profile) error {
	return c.cache.Put(ctx, UserProfileKey(profile.ID), profile, UserProfileTTL)
}

// InvalidateProfile drops the cached profile for a user.
func (c *UserCache) InvalidateProfile(ctx context.Context, userID int64) error {
	return c.cache.Invalidate(ctx, UserProfileKey(userID))
}
