package repository

import (
	"database/sql"
	"fmt"

	"github.com/royo00/music/model"
)

// PlayHistoryRepository defines the interface for play history operations.
// 播放历史只追加，不去重
type PlayHistoryRepository interface {
	RecordPlay(userID, trackID int64) error
	ListHistoryTracks(userID int64, page, size int) ([]*model.Track, int64, error)
}

// mysqlPlayHistoryRepository implements PlayHistoryRepository for MySQL.
type mysqlPlayHistoryRepository struct {
	db *sql.DB
}

// NewMySQLPlayHistoryRepository creates a new mysqlPlayHistoryRepository.
func NewMySQLPlayHistoryRepository(db *sql.DB) PlayHistoryRepository {
	return &mysqlPlayHistoryRepository{db: db}
}

// RecordPlay appends one play event for a known user.
func (r *mysqlPlayHistoryRepository) RecordPlay(userID, trackID int64) error {
	_, err := r.db.Exec("INSERT INTO play_history (user_id, track_id) VALUES (?, ?)", userID, trackID)
	if err != nil {
		return fmt.Errorf("failed to record play (user %d, track %d): %w", userID, trackID, err)
	}
	return nil
}

// ListHistoryTracks returns the user's played tracks, most recent play first.
func (r *mysqlPlayHistoryRepository) ListHistoryTracks(userID int64, page, size int) ([]*model.Track, int64, error) {
	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM play_history WHERE user_id = ?", userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count play history for user %d: %w", userID, err)
	}

	query := `SELECT t.id, t.name, t.artist, t.album, t.duration, t.file_key, t.file_size, t.cover_url, t.status, t.description, t.play_count, t.upload_user_id, t.remark, t.created_at, t.updated_at
	           FROM play_history h JOIN tracks t ON t.id = h.track_id
	           WHERE h.user_id = ? ORDER BY h.played_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Query(query, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query play history for user %d: %w", userID, err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan track in ListHistoryTracks: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration in ListHistoryTracks: %w", err)
	}

	return tracks, total, nil
}
