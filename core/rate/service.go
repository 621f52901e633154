// Package rate handles track ratings and the derived statistics surface.
package rate

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/royo00/music/core/policy"
	"github.com/royo00/music/errs"
	"github.com/royo00/music/logger"
	"github.com/royo00/music/model"
	"github.com/royo00/music/repository"
)

// 评分范围 1~5 的整数
const (
	minScore = 1
	maxScore = 5
)

// Service coordinates rating writes and statistics reads.
type Service struct {
	ratings repository.RatingRepository
	tracks  repository.TrackRepository
}

// NewService wires a rate Service.
func NewService(ratings repository.RatingRepository, tracks repository.TrackRepository) *Service {
	return &Service{ratings: ratings, tracks: tracks}
}

// Rate records the requester's score for a track, overwriting any previous
// score. The track must exist and be visible to the requester.
func (s *Service) Rate(ctx context.Context, trackID int64, score int, requester *policy.Requester) error {
	if requester == nil {
		return errs.Forbidden("login required to rate")
	}
	if score < minScore || score > maxScore {
		return errs.Validation("score must be between %d and %d", minScore, maxScore)
	}

	track, err := s.tracks.GetTrackByID(trackID)
	if err != nil {
		return err
	}
	if !policy.CanView(track.Status, track.UploadUserID, requester) {
		// 不可见的歌曲对请求者等同于不存在
		return errs.NotFound("track %d", trackID)
	}

	if err := s.ratings.UpsertRating(requester.UserID, trackID, score); err != nil {
		return err
	}

	logger.Info("用户评分成功",
		logger.Int64("userId", requester.UserID),
		logger.Int64("trackId", trackID),
		logger.Int("score", score))
	return nil
}

// TrackStats returns the aggregate statistics of one visible track.
func (s *Service) TrackStats(ctx context.Context, trackID int64, requester *policy.Requester) (*model.TrackStats, error) {
	track, err := s.tracks.GetTrackByID(trackID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(track.Status, track.UploadUserID, requester) {
		return nil, errs.NotFound("track %d", trackID)
	}

	stats, err := s.ratings.GetTrackStats(trackID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("track %d", trackID)
		}
		return nil, err
	}
	return stats, nil
}

// ArtistAverage returns the artist-level average score, averaged over the
// per-track averages of everything the artist uploaded.
func (s *Service) ArtistAverage(ctx context.Context, artistID int64) (float64, error) {
	return s.ratings.GetArtistAverageScore(artistID)
}

// ArtistTrackStats returns the stats row for every track the artist uploaded.
// 艺人主页用，非本人只会拿到已发布曲目的统计
func (s *Service) ArtistTrackStats(ctx context.Context, artistID int64, requester *policy.Requester) ([]*model.TrackStats, error) {
	stats, err := s.ratings.GetArtistTrackStats(artistID)
	if err != nil {
		return nil, err
	}

	if requester.IsAdmin() || (requester != nil && requester.UserID == artistID) {
		return stats, nil
	}

	visible := make([]*model.TrackStats, 0, len(stats))
	for _, st := range stats {
		track, err := s.tracks.GetTrackByID(st.TrackID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if policy.CanView(track.Status, track.UploadUserID, requester) {
			visible = append(visible, st)
		}
	}
	return visible, nil
}
