package model

import "time"

// Favorite 收藏记录，(user_id, track_id) 唯一
type Favorite struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	TrackID   int64     `json:"trackId"`
	CreatedAt time.Time `json:"createdAt"`
}
