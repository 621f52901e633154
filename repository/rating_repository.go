package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/royo00/music/model"
)

// RatingRepository defines the interface for rating and stats operations.
type RatingRepository interface {
	UpsertRating(userID, trackID int64, score int) error
	GetTrackStats(trackID int64) (*model.TrackStats, error)
	GetArtistAverageScore(artistID int64) (float64, error)
	GetArtistTrackStats(artistID int64) ([]*model.TrackStats, error)
	DeleteByTrack(trackID int64) error
}

// gormRatingRepository implements RatingRepository with GORM.
// 评分模块走 GORM，其余仓储沿用 database/sql
type gormRatingRepository struct {
	db *gorm.DB
}

// NewGormRatingRepository creates a new gormRatingRepository.
func NewGormRatingRepository(db *gorm.DB) RatingRepository {
	return &gormRatingRepository{db: db}
}

// UpsertRating inserts a rating or overwrites the score of an existing one.
// (user_id, track_id) 唯一键加 ON DUPLICATE KEY UPDATE 保证至多一条评分
func (r *gormRatingRepository) UpsertRating(userID, trackID int64, score int) error {
	rating := model.Rating{UserID: userID, TrackID: trackID, Score: score}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "track_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(&rating).Error
	if err != nil {
		return fmt.Errorf("failed to upsert rating (user %d, track %d): %w", userID, trackID, err)
	}
	return nil
}

const trackStatsQuery = `
SELECT t.id AS track_id,
       t.play_count,
       (SELECT COUNT(*) FROM favorites f WHERE f.track_id = t.id) AS favorite_count,
       COALESCE((SELECT AVG(r.score) FROM ratings r WHERE r.track_id = t.id), 0) AS avg_score,
       (SELECT COUNT(*) FROM ratings r WHERE r.track_id = t.id) AS rating_count
FROM tracks t`

// GetTrackStats aggregates play count, favorite count and rating data for one track.
// 播放量读持久字段而不是快速计数器，允许回写前的滞后
func (r *gormRatingRepository) GetTrackStats(trackID int64) (*model.TrackStats, error) {
	stats := &model.TrackStats{}
	tx := r.db.Raw(trackStatsQuery+" WHERE t.id = ?", trackID).Scan(stats)
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to query stats for track %d: %w", trackID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return stats, nil
}

// GetArtistAverageScore averages the per-track average score over every track
// the artist uploaded. Computed in SQL, not by application-side iteration.
func (r *gormRatingRepository) GetArtistAverageScore(artistID int64) (float64, error) {
	var avg float64
	query := `
	SELECT COALESCE(AVG(per_track.avg_score), 0)
	FROM (
		SELECT AVG(r.score) AS avg_score
		FROM ratings r
		JOIN tracks t ON t.id = r.track_id
		WHERE t.upload_user_id = ?
		GROUP BY r.track_id
	) per_track`
	if err := r.db.Raw(query, artistID).Scan(&avg).Error; err != nil {
		return 0, fmt.Errorf("failed to query artist %d average score: %w", artistID, err)
	}
	return avg, nil
}

// GetArtistTrackStats returns the stats row for every track the artist uploaded.
func (r *gormRatingRepository) GetArtistTrackStats(artistID int64) ([]*model.TrackStats, error) {
	stats := make([]*model.TrackStats, 0)
	err := r.db.Raw(trackStatsQuery+" WHERE t.upload_user_id = ? ORDER BY t.created_at DESC", artistID).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stats for artist %d: %w", artistID, err)
	}
	return stats, nil
}

// DeleteByTrack removes all ratings for a track.
func (r *gormRatingRepository) DeleteByTrack(trackID int64) error {
	if err := r.db.Where("track_id = ?", trackID).Delete(&model.Rating{}).Error; err != nil {
		return fmt.Errorf("failed to delete ratings for track %d: %w", trackID, err)
	}
	return nil
}
