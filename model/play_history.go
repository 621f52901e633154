package model

import "time"

// PlayHistory 播放历史，追加写入，不去重
type PlayHistory struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"userId"`
	TrackID  int64     `json:"trackId"`
	PlayedAt time.Time `json:"playedAt"`
}
