package model

import "time"

// Rating 用户对单曲的评分，每个 (user, track) 至多一条，重复评分覆盖
type Rating struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"userId" gorm:"column:user_id;uniqueIndex:uq_user_track"`
	TrackID   int64     `json:"trackId" gorm:"column:track_id;uniqueIndex:uq_user_track"`
	Score     int       `json:"score" gorm:"column:score"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName maps the model onto the ratings table.
func (Rating) TableName() string { return "ratings" }

// TrackStats 单曲综合数据：播放量、收藏量、平均评分、评分人数
type TrackStats struct {
	TrackID       int64   `json:"trackId"`
	PlayCount     int64   `json:"playCount"`
	FavoriteCount int64   `json:"favoriteCount"`
	AvgScore      float64 `json:"avgScore"`
	RatingCount   int64   `json:"ratingCount"`
}
