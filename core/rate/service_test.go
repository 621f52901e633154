package rate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/royo00/music/core/policy"
	"github.com/royo00/music/errs"
	"github.com/royo00/music/model"
	"github.com/royo00/music/repository"
)

type memRatingRepo struct {
	scores map[string]int
	stats  map[int64]*model.TrackStats
}

func newMemRatingRepo() *memRatingRepo {
	return &memRatingRepo{scores: map[string]int{}, stats: map[int64]*model.TrackStats{}}
}

func (r *memRatingRepo) UpsertRating(userID, trackID int64, score int) error {
	r.scores[fmt.Sprintf("%d:%d", userID, trackID)] = score
	return nil
}

func (r *memRatingRepo) GetTrackStats(trackID int64) (*model.TrackStats, error) {
	if st, ok := r.stats[trackID]; ok {
		return st, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRatingRepo) GetArtistAverageScore(artistID int64) (float64, error) {
	return 4.5, nil
}

func (r *memRatingRepo) GetArtistTrackStats(artistID int64) ([]*model.TrackStats, error) {
	out := []*model.TrackStats{}
	for _, st := range r.stats {
		out = append(out, st)
	}
	return out, nil
}

func (r *memRatingRepo) DeleteByTrack(trackID int64) error {
	delete(r.stats, trackID)
	return nil
}

type memTrackRepo struct {
	tracks map[int64]*model.Track
}

func (r *memTrackRepo) CreateTrack(*model.Track) (int64, error) { return 0, nil }
func (r *memTrackRepo) GetTrackByID(id int64) (*model.Track, error) {
	if tr, ok := r.tracks[id]; ok {
		return tr, nil
	}
	return nil, errs.NotFound("track %d", id)
}
func (r *memTrackRepo) SearchTracks(repository.TrackFilter, int, int) ([]*model.Track, int64, error) {
	return nil, 0, nil
}
func (r *memTrackRepo) UpdateTrack(*model.Track) error                           { return nil }
func (r *memTrackRepo) UpdateTrackStatus(int64, model.TrackStatus, string) error { return nil }
func (r *memTrackRepo) IncrPlayCount(int64, int64) error                         { return nil }
func (r *memTrackRepo) DeleteTrackCascade(int64) error                           { return nil }

func newTestService() (*Service, *memRatingRepo, *memTrackRepo) {
	ratings := newMemRatingRepo()
	tracks := &memTrackRepo{tracks: map[int64]*model.Track{
		1: {ID: 1, Status: model.StatusPublished, UploadUserID: 10},
		2: {ID: 2, Status: model.StatusPending, UploadUserID: 10},
	}}
	return NewService(ratings, tracks), ratings, tracks
}

var listener = &policy.Requester{UserID: 5, Role: model.RoleUser}

func TestRate(t *testing.T) {
	svc, ratings, _ := newTestService()
	ctx := context.Background()

	if err := svc.Rate(ctx, 1, 4, listener); err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if ratings.scores["5:1"] != 4 {
		t.Errorf("score not recorded: %v", ratings.scores)
	}

	// 重复评分覆盖
	if err := svc.Rate(ctx, 1, 2, listener); err != nil {
		t.Fatalf("re-rate failed: %v", err)
	}
	if ratings.scores["5:1"] != 2 {
		t.Errorf("score not overwritten: %v", ratings.scores)
	}
}

func TestRateValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if err := svc.Rate(ctx, 1, 0, listener); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("score 0 should fail validation, got %v", err)
	}
	if err := svc.Rate(ctx, 1, 6, listener); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("score 6 should fail validation, got %v", err)
	}
	if err := svc.Rate(ctx, 1, 4, nil); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("guest rating should be Forbidden, got %v", err)
	}
}

func TestRateHiddenTrack(t *testing.T) {
	svc, _, _ := newTestService()

	// 待审核的对普通用户不可见，评分应报不存在
	err := svc.Rate(context.Background(), 2, 4, listener)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("hidden track rating should be NotFound, got %v", err)
	}

	// 上传者本人可以给自己未发布的打分
	owner := &policy.Requester{UserID: 10, Role: model.RoleActor}
	if err := svc.Rate(context.Background(), 2, 5, owner); err != nil {
		t.Errorf("owner rating own pending track failed: %v", err)
	}
}

func TestTrackStats(t *testing.T) {
	svc, ratings, _ := newTestService()
	ctx := context.Background()

	ratings.stats[1] = &model.TrackStats{TrackID: 1, PlayCount: 100, FavoriteCount: 7, AvgScore: 4.2, RatingCount: 12}

	stats, err := svc.TrackStats(ctx, 1, listener)
	if err != nil {
		t.Fatalf("TrackStats failed: %v", err)
	}
	if stats.PlayCount != 100 || stats.AvgScore != 4.2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	// GORM 的未找到要翻译成领域错误
	if _, err := svc.TrackStats(ctx, 404, listener); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing stats should be NotFound, got %v", err)
	}

	// 不可见的歌曲统计同样不存在
	if _, err := svc.TrackStats(ctx, 2, listener); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("hidden track stats should be NotFound, got %v", err)
	}
}

func TestArtistTrackStatsVisibility(t *testing.T) {
	svc, ratings, _ := newTestService()
	ctx := context.Background()

	ratings.stats[1] = &model.TrackStats{TrackID: 1, AvgScore: 4}
	ratings.stats[2] = &model.TrackStats{TrackID: 2, AvgScore: 5}

	// 普通用户只能看到已发布作品的统计行
	stats, err := svc.ArtistTrackStats(ctx, 10, listener)
	if err != nil {
		t.Fatalf("ArtistTrackStats failed: %v", err)
	}
	if len(stats) != 1 || stats[0].TrackID != 1 {
		t.Errorf("visibility filter broken: %+v", stats)
	}

	// 艺人本人能看到全部
	owner := &policy.Requester{UserID: 10, Role: model.RoleActor}
	stats, err = svc.ArtistTrackStats(ctx, 10, owner)
	if err != nil {
		t.Fatalf("owner ArtistTrackStats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Errorf("owner should see all stats rows, got %d", len(stats))
	}
}
