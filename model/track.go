package model

import "time"

// TrackStatus 音乐审核状态: 0-待审核, 1-已发布, 2-已下架
type TrackStatus int8

const (
	StatusPending   TrackStatus = 0
	StatusPublished TrackStatus = 1
	StatusOffline   TrackStatus = 2
)

// Valid reports whether the status is one of the known values.
func (s TrackStatus) Valid() bool {
	return s == StatusPending || s == StatusPublished || s == StatusOffline
}

// Track represents an uploaded audio work with its moderation lifecycle.
type Track struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Artist       string      `json:"artist"`
	Album        string      `json:"album,omitempty"`
	Duration     int         `json:"duration"` // seconds
	FileKey      string      `json:"-"`        // Opaque object-store key, never exposed directly
	FileSize     int64       `json:"fileSize"`
	CoverURL     string      `json:"coverUrl,omitempty"`
	Status       TrackStatus `json:"status"`
	Description  string      `json:"description,omitempty"`
	PlayCount    int64       `json:"playCount"` // Durable aggregate, reconciled from the fast counter
	UploadUserID int64       `json:"uploadUserId"`
	Remark       string      `json:"remark,omitempty"` // Moderation remark
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// TrackDetail is the cacheable projection of a track.
// 不携带任何与请求者相关的状态，收藏标记在每次请求时单独计算
type TrackDetail struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Artist         string      `json:"artist"`
	Album          string      `json:"album,omitempty"`
	Duration       int         `json:"duration"`
	FileSize       int64       `json:"fileSize"`
	CoverURL       string      `json:"coverUrl,omitempty"`
	Status         TrackStatus `json:"status"`
	Description    string      `json:"description,omitempty"`
	PlayCount      int64       `json:"playCount"`
	UploadUserID   int64       `json:"uploadUserId"`
	UploadUsername string      `json:"uploadUsername,omitempty"`
	Remark         string      `json:"remark,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// TrackItem is a TrackDetail plus requester-specific state.
type TrackItem struct {
	TrackDetail
	IsFavorite bool `json:"isFavorite"`
}

// PlayDescriptor is the transient payload returned by the play operation.
// 只在播放请求时生成，绝不写入缓存
type PlayDescriptor struct {
	PlayURL  string `json:"playUrl"`
	Duration int    `json:"duration"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	CoverURL string `json:"coverUrl,omitempty"`
}

// Detail builds the cacheable projection of the track.
func (t *Track) Detail(uploadUsername string) *TrackDetail {
	return &TrackDetail{
		ID:             t.ID,
		Name:           t.Name,
		Artist:         t.Artist,
		Album:          t.Album,
		Duration:       t.Duration,
		FileSize:       t.FileSize,
		CoverURL:       t.CoverURL,
		Status:         t.Status,
		Description:    t.Description,
		PlayCount:      t.PlayCount,
		UploadUserID:   t.UploadUserID,
		UploadUsername: uploadUsername,
		Remark:         t.Remark,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}
