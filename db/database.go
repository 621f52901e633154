package db

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/royo00/music/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// CloseDB closes the raw database connection.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}

// InitDB initializes the database schema, creating tables if they don't exist.
// ratings 表由 GORM 自动迁移，见 gorm.go
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	if err := createTracksTable(); err != nil {
		return err
	}
	if err := createFavoritesTable(); err != nil {
		return err
	}
	if err := createPlayHistoryTable(); err != nil {
		return err
	}

	log.Println("Database initialization completed.")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		nickname VARCHAR(100) NOT NULL DEFAULT '',
		email VARCHAR(255) UNIQUE,
		phone VARCHAR(20) UNIQUE,
		avatar VARCHAR(767) NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		status TINYINT NOT NULL DEFAULT 1,
		remark VARCHAR(500) NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	log.Println("Users table initialized successfully (or already exists).")
	return nil
}

func createTracksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		artist VARCHAR(255) NOT NULL DEFAULT '',
		album VARCHAR(255) NOT NULL DEFAULT '',
		duration INT NOT NULL DEFAULT 0,
		file_key VARCHAR(767) NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		cover_url VARCHAR(767) NOT NULL DEFAULT '',
		status TINYINT NOT NULL DEFAULT 0,
		description TEXT,
		play_count BIGINT NOT NULL DEFAULT 0,
		upload_user_id BIGINT NOT NULL,
		remark VARCHAR(500) NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_user_tracks FOREIGN KEY (upload_user_id) REFERENCES users(id) ON DELETE CASCADE,
		INDEX idx_tracks_status (status),
		INDEX idx_tracks_upload_user (upload_user_id)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	log.Println("Tracks table initialized successfully (or already exists).")
	return nil
}

func createFavoritesTable() error {
	// 唯一键保证同一用户对同一首歌至多收藏一次，并发重复插入由数据库裁决
	query := `
	CREATE TABLE IF NOT EXISTS favorites (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		track_id BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT uq_user_track_favorite UNIQUE (user_id, track_id),
		INDEX idx_favorites_track (track_id)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create favorites table: %w", err)
	}
	log.Println("Favorites table initialized successfully (or already exists).")
	return nil
}

func createPlayHistoryTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS play_history (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		track_id BIGINT NOT NULL,
		played_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_history_user (user_id, played_at),
		INDEX idx_history_track (track_id)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create play_history table: %w", err)
	}
	log.Println("Play history table initialized successfully (or already exists).")
	return nil
}
