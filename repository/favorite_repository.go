package repository

import (
	"database/sql"
	"fmt"

	"github.com/royo00/music/errs"
	"github.com/royo00/music/model"
)

// FavoriteRepository defines the interface for favorite data operations.
type FavoriteRepository interface {
	CreateFavorite(userID, trackID int64) error
	DeleteFavorite(userID, trackID int64) error
	IsFavorite(userID, trackID int64) (bool, error)
	ListFavoriteTracks(userID int64, page, size int) ([]*model.Track, int64, error)
	CountByTrack(trackID int64) (int64, error)
}

// mysqlFavoriteRepository implements FavoriteRepository for MySQL.
type mysqlFavoriteRepository struct {
	db *sql.DB
}

// NewMySQLFavoriteRepository creates a new mysqlFavoriteRepository.
func NewMySQLFavoriteRepository(db *sql.DB) FavoriteRepository {
	return &mysqlFavoriteRepository{db: db}
}

// CreateFavorite inserts a (user, track) favorite pair.
// 并发重复收藏由唯一键裁决，冲突返回 errs.ErrAlreadyExists 而不是静默去重
func (r *mysqlFavoriteRepository) CreateFavorite(userID, trackID int64) error {
	_, err := r.db.Exec("INSERT INTO favorites (user_id, track_id) VALUES (?, ?)", userID, trackID)
	if err != nil {
		if isDuplicateEntry(err) {
			return errs.AlreadyExists("favorite of track %d by user %d", trackID, userID)
		}
		return fmt.Errorf("failed to insert favorite (user %d, track %d): %w", userID, trackID, err)
	}
	return nil
}

// DeleteFavorite removes a favorite pair; missing rows surface as NotFound.
func (r *mysqlFavoriteRepository) DeleteFavorite(userID, trackID int64) error {
	res, err := r.db.Exec("DELETE FROM favorites WHERE user_id = ? AND track_id = ?", userID, trackID)
	if err != nil {
		return fmt.Errorf("failed to delete favorite (user %d, track %d): %w", userID, trackID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errs.NotFound("favorite of track %d by user %d", trackID, userID)
	}
	return nil
}

// IsFavorite reports whether the user has favorited the track.
func (r *mysqlFavoriteRepository) IsFavorite(userID, trackID int64) (bool, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM favorites WHERE user_id = ? AND track_id = ?",
		userID, trackID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite (user %d, track %d): %w", userID, trackID, err)
	}
	return count > 0, nil
}

// ListFavoriteTracks returns the user's favorited tracks, newest favorite first.
func (r *mysqlFavoriteRepository) ListFavoriteTracks(userID int64, page, size int) ([]*model.Track, int64, error) {
	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM favorites WHERE user_id = ?", userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count favorites for user %d: %w", userID, err)
	}

	query := `SELECT t.id, t.name, t.artist, t.album, t.duration, t.file_key, t.file_size, t.cover_url, t.status, t.description, t.play_count, t.upload_user_id, t.remark, t.created_at, t.updated_at
	           FROM favorites f JOIN tracks t ON t.id = f.track_id
	           WHERE f.user_id = ? ORDER BY f.created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Query(query, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query favorites for user %d: %w", userID, err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan track in ListFavoriteTracks: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration in ListFavoriteTracks: %w", err)
	}

	return tracks, total, nil
}

// CountByTrack returns how many users favorited the track.
func (r *mysqlFavoriteRepository) CountByTrack(trackID int64) (int64, error) {
	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM favorites WHERE track_id = ?", trackID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count favorites for track %d: %w", trackID, err)
	}
	return count, nil
}
