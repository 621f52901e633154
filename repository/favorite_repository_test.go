package repository

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/royo00/music/errs"
	"github.com/royo00/music/model"
)

func TestCreateFavoriteDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewMySQLFavoriteRepository(db)

	mock.ExpectExec("INSERT INTO favorites").
		WithArgs(int64(1), int64(5)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-5'"})

	err = repo.CreateFavorite(1, 5)
	if !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("duplicate favorite should map to ErrAlreadyExists, got %v", err)
	}
}

func TestDeleteFavoriteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewMySQLFavoriteRepository(db)

	mock.ExpectExec("DELETE FROM favorites").
		WithArgs(int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.DeleteFavorite(1, 5)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing favorite should map to ErrNotFound, got %v", err)
	}
}

func TestIsFavorite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewMySQLFavoriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM favorites WHERE user_id = ? AND track_id = ?")).
		WithArgs(int64(1), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	fav, err := repo.IsFavorite(1, 5)
	if err != nil {
		t.Fatalf("IsFavorite failed: %v", err)
	}
	if !fav {
		t.Error("expected favorite to be reported")
	}
}

func TestListFavoriteTracks(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewMySQLFavoriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM favorites WHERE user_id = ?")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM favorites f JOIN tracks t ON t.id = f.track_id").
		WithArgs(int64(1), 20, 0).
		WillReturnRows(trackRows(&model.Track{ID: 5, Name: "稻香", Status: model.StatusPublished}))

	tracks, total, err := repo.ListFavoriteTracks(1, 1, 20)
	if err != nil {
		t.Fatalf("ListFavoriteTracks failed: %v", err)
	}
	if total != 1 || len(tracks) != 1 || tracks[0].Name != "稻香" {
		t.Errorf("unexpected result: total=%d tracks=%+v", total, tracks)
	}
}
