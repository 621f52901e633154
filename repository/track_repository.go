package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/royo00/music/errs"
	"github.com/royo00/music/model"
)

// TrackFilter narrows list/search queries. Zero values mean "no filter".
// Status 为 nil 表示不过滤状态，调用方（服务层）负责根据请求者身份收紧它。
type TrackFilter struct {
	Keyword      string
	Name         string
	Artist       string
	Album        string
	Status       *model.TrackStatus
	UploadUserID int64
}

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	CreateTrack(track *model.Track) (int64, error)
	GetTrackByID(id int64) (*model.Track, error)
	SearchTracks(filter TrackFilter, page, size int) ([]*model.Track, int64, error)
	UpdateTrack(track *model.Track) error
	UpdateTrackStatus(id int64, status model.TrackStatus, remark string) error
	IncrPlayCount(id int64, delta int64) error
	DeleteTrackCascade(id int64) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	db *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{db: db}
}

const trackColumns = "id, name, artist, album, duration, file_key, file_size, cover_url, status, description, play_count, upload_user_id, remark, created_at, updated_at"

func scanTrack(row interface{ Scan(...interface{}) error }) (*model.Track, error) {
	track := &model.Track{}
	var description sql.NullString
	err := row.Scan(&track.ID, &track.Name, &track.Artist, &track.Album, &track.Duration,
		&track.FileKey, &track.FileSize, &track.CoverURL, &track.Status, &description,
		&track.PlayCount, &track.UploadUserID, &track.Remark, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return nil, err
	}
	track.Description = description.String
	return track, nil
}

// CreateTrack adds a new track to the database.
func (r *mysqlTrackRepository) CreateTrack(track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (name, artist, album, duration, file_key, file_size, cover_url, status, description, play_count, upload_user_id, remark, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	res, err := stmt.Exec(track.Name, track.Artist, track.Album, track.Duration,
		track.FileKey, track.FileSize, track.CoverURL, track.Status, nullable(track.Description),
		track.PlayCount, track.UploadUserID, track.Remark, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	return id, nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(id int64) (*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE id = ?"
	track, err := scanTrack(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.NotFound("track %d", id)
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// SearchTracks returns a page of tracks matching the filter plus the total count.
func (r *mysqlTrackRepository) SearchTracks(filter TrackFilter, page, size int) ([]*model.Track, int64, error) {
	conds := []string{}
	args := []interface{}{}

	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		conds = append(conds, "(name LIKE ? OR artist LIKE ? OR album LIKE ?)")
		args = append(args, kw, kw, kw)
	}
	if filter.Name != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.Artist != "" {
		conds = append(conds, "artist LIKE ?")
		args = append(args, "%"+filter.Artist+"%")
	}
	if filter.Album != "" {
		conds = append(conds, "album LIKE ?")
		args = append(args, "%"+filter.Album+"%")
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.UploadUserID != 0 {
		conds = append(conds, "upload_user_id = ?")
		args = append(args, filter.UploadUserID)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tracks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tracks: %w", err)
	}

	query := "SELECT " + trackColumns + " FROM tracks" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, size, (page-1)*size)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan track in SearchTracks: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration in SearchTracks: %w", err)
	}

	return tracks, total, nil
}

// UpdateTrack persists display metadata changes of a track.
// 调用方已完成字段合并，这里整行覆盖展示字段
func (r *mysqlTrackRepository) UpdateTrack(track *model.Track) error {
	query := `UPDATE tracks SET name = ?, artist = ?, album = ?, cover_url = ?, description = ?, updated_at = ? WHERE id = ?`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for UpdateTrack: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(track.Name, track.Artist, track.Album, track.CoverURL,
		nullable(track.Description), time.Now(), track.ID)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateTrack for track ID %d: %w", track.ID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		var exists int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM tracks WHERE id = ?", track.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check track %d existence: %w", track.ID, err)
		}
		if exists == 0 {
			return errs.NotFound("track %d", track.ID)
		}
	}
	return nil
}

// UpdateTrackStatus applies a moderation transition with an optional remark.
func (r *mysqlTrackRepository) UpdateTrackStatus(id int64, status model.TrackStatus, remark string) error {
	res, err := r.db.Exec("UPDATE tracks SET status = ?, remark = ?, updated_at = ? WHERE id = ?",
		status, remark, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update status for track %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		var exists int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM tracks WHERE id = ?", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check track %d existence: %w", id, err)
		}
		if exists == 0 {
			return errs.NotFound("track %d", id)
		}
	}
	return nil
}

// IncrPlayCount folds a reconciled delta from the fast counter into the durable row.
func (r *mysqlTrackRepository) IncrPlayCount(id int64, delta int64) error {
	_, err := r.db.Exec("UPDATE tracks SET play_count = play_count + ? WHERE id = ?", delta, id)
	if err != nil {
		return fmt.Errorf("failed to increment play count for track %d: %w", id, err)
	}
	return nil
}

// DeleteTrackCascade hard-deletes the track row and every favorite, play
// history and rating row referencing it, in a single transaction.
func (r *mysqlTrackRepository) DeleteTrackCascade(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction for track %d: %w", id, err)
	}

	res, err := tx.Exec("DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete track %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to get rows affected for track %d: %w", id, err)
	}
	if affected == 0 {
		tx.Rollback()
		return errs.NotFound("track %d", id)
	}

	if _, err := tx.Exec("DELETE FROM favorites WHERE track_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete favorites for track %d: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM play_history WHERE track_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete play history for track %d: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM ratings WHERE track_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete ratings for track %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete transaction for track %d: %w", id, err)
	}
	return nil
}
