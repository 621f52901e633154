// Package catalog orchestrates the moderated music catalog: uploads, listing
// and search, cached detail reads, playback, favorites and the moderation
// lifecycle. Visibility always goes through the policy package and every
// mutation invalidates the detail cache before returning.
package catalog

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/royo00/music/core/policy"
	"github.com/royo00/music/errs"
	"github.com/royo00/music/logger"
	"github.com/royo00/music/model"
	"github.com/royo00/music/repository"
)

// 上传音乐未解析真实时长，统一使用占位时长（秒）
const defaultDuration = 180

// blob 异步清理的超时时间
const blobCleanupTimeout = 30 * time.Second

// DetailCache is the slice of the cache layer the catalog needs.
type DetailCache interface {
	GetDetail(ctx context.Context, trackID int64) (*model.TrackDetail, bool, error)
	PutDetail(ctx context.Context, detail *model.TrackDetail) error
	InvalidateDetail(ctx context.Context, trackID int64) error
}

// Counter is the fast play counter.
type Counter interface {
	Increment(ctx context.Context, trackID int64) error
}

// ObjectStore stores binary blobs by opaque key.
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// Service coordinates the catalog use cases.
type Service struct {
	tracks     repository.TrackRepository
	users      repository.UserRepository
	favorites  repository.FavoriteRepository
	history    repository.PlayHistoryRepository
	trackCache DetailCache
	counter    Counter
	store      ObjectStore
}

// NewService wires a catalog Service.
func NewService(
	tracks repository.TrackRepository,
	users repository.UserRepository,
	favorites repository.FavoriteRepository,
	history repository.PlayHistoryRepository,
	trackCache DetailCache,
	counter Counter,
	store ObjectStore,
) *Service {
	return &Service{
		tracks:     tracks,
		users:      users,
		favorites:  favorites,
		history:    history,
		trackCache: trackCache,
		counter:    counter,
		store:      store,
	}
}

// FileUpload describes one incoming binary part.
type FileUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Ext         string // includes the leading dot
}

// UploadRequest carries the metadata and binaries of a new track.
type UploadRequest struct {
	Name        string
	Artist      string
	Album       string
	Description string
	File        *FileUpload
	Cover       *FileUpload
}

// Upload stores the blobs, then creates the track in Pending status.
// 持久化失败时补偿删除已上传的对象，避免孤儿文件
func (s *Service) Upload(ctx context.Context, req *UploadRequest, requester *policy.Requester) (int64, error) {
	if !policy.CanUpload(requester) {
		return 0, errs.Forbidden("only actors and admins may upload tracks")
	}
	if req.Name == "" {
		return 0, errs.Validation("track name is required")
	}
	if req.File == nil || req.File.Reader == nil {
		return 0, errs.Validation("audio file is required")
	}

	fileKey := objectKey("music", req.File.Ext)
	if err := s.store.Put(ctx, fileKey, req.File.Reader, req.File.Size, req.File.ContentType); err != nil {
		return 0, errs.Storage("upload audio file", err)
	}

	coverURL := ""
	coverKey := ""
	if req.Cover != nil && req.Cover.Reader != nil {
		coverKey = objectKey("cover", req.Cover.Ext)
		if err := s.store.Put(ctx, coverKey, req.Cover.Reader, req.Cover.Size, req.Cover.ContentType); err != nil {
			s.removeBlobs(fileKey)
			return 0, errs.Storage("upload cover image", err)
		}
		coverURL = s.store.URL(coverKey)
	}

	track := &model.Track{
		Name:         req.Name,
		Artist:       req.Artist,
		Album:        req.Album,
		Duration:     defaultDuration,
		FileKey:      fileKey,
		FileSize:     req.File.Size,
		CoverURL:     coverURL,
		Status:       model.StatusPending,
		Description:  req.Description,
		PlayCount:    0,
		UploadUserID: requester.UserID,
	}

	id, err := s.tracks.CreateTrack(track)
	if err != nil {
		// 补偿动作：删除刚写入的对象
		s.removeBlobs(fileKey, coverKey)
		return 0, err
	}

	logger.Info("音乐上传成功",
		logger.Int64("trackId", id),
		logger.String("name", track.Name),
		logger.Int64("userId", requester.UserID))
	return id, nil
}

// ListQuery narrows listing and search.
type ListQuery struct {
	Keyword string
	Name    string
	Artist  string
	Album   string
	Status  *model.TrackStatus
	Page    int
	Size    int
}

// List returns a visibility-filtered page of tracks with per-requester
// favorite flags attached.
func (s *Service) List(ctx context.Context, q *ListQuery, requester *policy.Requester) ([]*model.TrackItem, int64, error) {
	filter := repository.TrackFilter{
		Keyword: q.Keyword,
		Name:    q.Name,
		Artist:  q.Artist,
		Album:   q.Album,
		Status:  policy.VisibleStatus(q.Status, requester),
	}
	return s.searchPage(ctx, filter, q.Page, q.Size, requester)
}

// OwnTracks lists the requester's uploads, any status.
func (s *Service) OwnTracks(ctx context.Context, q *ListQuery, requester *policy.Requester) ([]*model.TrackItem, int64, error) {
	if requester == nil {
		return nil, 0, errs.Forbidden("authentication required")
	}
	filter := repository.TrackFilter{
		Keyword:      q.Keyword,
		Status:       q.Status,
		UploadUserID: requester.UserID,
	}
	return s.searchPage(ctx, filter, q.Page, q.Size, requester)
}

func (s *Service) searchPage(ctx context.Context, filter repository.TrackFilter, page, size int, requester *policy.Requester) ([]*model.TrackItem, int64, error) {
	tracks, total, err := s.tracks.SearchTracks(filter, page, size)
	if err != nil {
		return nil, 0, err
	}

	usernames := map[int64]string{}
	items := make([]*model.TrackItem, 0, len(tracks))
	for _, track := range tracks {
		item := &model.TrackItem{TrackDetail: *track.Detail(s.uploaderName(track.UploadUserID, usernames))}
		fav, err := s.favoriteFlag(requester, track.ID)
		if err != nil {
			return nil, 0, err
		}
		item.IsFavorite = fav
		items = append(items, item)
	}
	return items, total, nil
}

// GetDetail is cache-first. The favorite flag is recomputed for the current
// requester on every call, hit or miss; the cached payload never carries it.
func (s *Service) GetDetail(ctx context.Context, trackID int64, requester *policy.Requester) (*model.TrackItem, error) {
	detail, hit, err := s.trackCache.GetDetail(ctx, trackID)
	if err != nil {
		// 缓存不可用不影响读取，回落到持久层
		logger.Warn("读取音乐详情缓存失败", logger.Int64("trackId", trackID), logger.ErrorField(err))
	}

	if !hit {
		track, err := s.tracks.GetTrackByID(trackID)
		if err != nil {
			return nil, err
		}
		detail = track.Detail(s.uploaderName(track.UploadUserID, nil))
		if err := s.trackCache.PutDetail(ctx, detail); err != nil {
			logger.Warn("写入音乐详情缓存失败", logger.Int64("trackId", trackID), logger.ErrorField(err))
		}
	}

	if !policy.CanView(detail.Status, detail.UploadUserID, requester) {
		// 不可见与不存在对外不可区分
		return nil, errs.NotFound("track %d", trackID)
	}

	item := &model.TrackItem{TrackDetail: *detail}
	fav, err := s.favoriteFlag(requester, trackID)
	if err != nil {
		return nil, err
	}
	item.IsFavorite = fav
	return item, nil
}

// Play 校验状态，记录播放历史并打快速计数器，返回一次性的播放描述。
// 描述对象不进缓存。
func (s *Service) Play(ctx context.Context, trackID int64, requester *policy.Requester) (*model.PlayDescriptor, error) {
	track, err := s.tracks.GetTrackByID(trackID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(track.Status, track.UploadUserID, requester) {
		return nil, errs.NotFound("track %d", trackID)
	}
	if track.Status != model.StatusPublished {
		return nil, errs.InvalidState("track %d is not published", trackID)
	}

	if requester != nil {
		if err := s.history.RecordPlay(requester.UserID, trackID); err != nil {
			return nil, err
		}
	}

	// 快速计数器刻意不和持久层绑在一个事务里，失败只记日志
	if err := s.counter.Increment(ctx, trackID); err != nil {
		logger.Warn("播放计数自增失败", logger.Int64("trackId", trackID), logger.ErrorField(err))
	}

	return &model.PlayDescriptor{
		PlayURL:  s.store.URL(track.FileKey),
		Duration: track.Duration,
		Name:     track.Name,
		Artist:   track.Artist,
		CoverURL: track.CoverURL,
	}, nil
}

// Favorite adds the track to the requester's favorites.
// 重复收藏返回 AlreadyExists，不做静默去重
func (s *Service) Favorite(ctx context.Context, trackID int64, requester *policy.Requester) error {
	if requester == nil {
		return errs.Forbidden("authentication required")
	}
	track, err := s.tracks.GetTrackByID(trackID)
	if err != nil {
		return err
	}
	if !policy.CanView(track.Status, track.UploadUserID, requester) {
		return errs.NotFound("track %d", trackID)
	}
	// 收藏不触发详情缓存失效，收藏标记从不写进缓存载荷
	return s.favorites.CreateFavorite(requester.UserID, trackID)
}

// Unfavorite removes the track from the requester's favorites.
func (s *Service) Unfavorite(ctx context.Context, trackID int64, requester *policy.Requester) error {
	if requester == nil {
		return errs.Forbidden("authentication required")
	}
	return s.favorites.DeleteFavorite(requester.UserID, trackID)
}

// FavoriteList pages through the requester's favorited tracks.
func (s *Service) FavoriteList(ctx context.Context, page, size int, requester *policy.Requester) ([]*model.TrackItem, int64, error) {
	if requester == nil {
		return nil, 0, errs.Forbidden("authentication required")
	}
	tracks, total, err := s.favorites.ListFavoriteTracks(requester.UserID, page, size)
	if err != nil {
		return nil, 0, err
	}

	usernames := map[int64]string{}
	items := make([]*model.TrackItem, 0, len(tracks))
	for _, track := range tracks {
		item := &model.TrackItem{TrackDetail: *track.Detail(s.uploaderName(track.UploadUserID, usernames))}
		item.IsFavorite = true // 收藏列表里必然都是已收藏
		items = append(items, item)
	}
	return items, total, nil
}

// History pages through the requester's play history.
func (s *Service) History(ctx context.Context, page, size int, requester *policy.Requester) ([]*model.TrackItem, int64, error) {
	if requester == nil {
		return nil, 0, errs.Forbidden("authentication required")
	}
	tracks, total, err := s.history.ListHistoryTracks(requester.UserID, page, size)
	if err != nil {
		return nil, 0, err
	}

	usernames := map[int64]string{}
	items := make([]*model.TrackItem, 0, len(tracks))
	for _, track := range tracks {
		item := &model.TrackItem{TrackDetail: *track.Detail(s.uploaderName(track.UploadUserID, usernames))}
		fav, err := s.favoriteFlag(requester, track.ID)
		if err != nil {
			return nil, 0, err
		}
		item.IsFavorite = fav
		items = append(items, item)
	}
	return items, total, nil
}

// UpdateRequest carries partial metadata edits. Nil fields keep the current
// value; name and artist additionally ignore empty strings.
type UpdateRequest struct {
	Name        *string
	Artist      *string
	Album       *string
	Description *string
	Cover       *FileUpload
}

// Update merges the incoming fields into the track, persists and then
// synchronously invalidates the cached detail.
func (s *Service) Update(ctx context.Context, trackID int64, req *UpdateRequest, requester *policy.Requester) error {
	track, err := s.tracks.GetTrackByID(trackID)
	if err != nil {
		return err
	}
	if !policy.CanModify(track.UploadUserID, requester) {
		return errs.Forbidden("not allowed to modify track %d", trackID)
	}

	if req.Name != nil && *req.Name != "" {
		track.Name = *req.Name
	}
	if req.Artist != nil && *req.Artist != "" {
		track.Artist = *req.Artist
	}
	if req.Album != nil {
		track.Album = *req.Album
	}
	if req.Description != nil {
		track.Description = *req.Description
	}

	if req.Cover != nil && req.Cover.Reader != nil {
		oldCoverKey := coverKeyFromURL(track.CoverURL, s.store)
		newKey := objectKey("cover", req.Cover.Ext)
		if err := s.store.Put(ctx, newKey, req.Cover.Reader, req.Cover.Size, req.Cover.ContentType); err != nil {
			return errs.Storage("upload cover image", err)
		}
		track.CoverURL = s.store.URL(newKey)
		if oldCoverKey != "" {
			s.removeBlobs(oldCoverKey)
		}
	}

	if err := s.tracks.UpdateTrack(track); err != nil {
		return err
	}

	return s.invalidateDetail(ctx, trackID)
}

// UpdateStatus applies an admin moderation transition with an optional remark.
func (s *Service) UpdateStatus(ctx context.Context, trackID int64, to model.TrackStatus, remark string, requester *policy.Requester) error {
	if !requester.IsAdmin() {
		return errs.Forbidden("only admins may change track status")
	}
	if !to.Valid() {
		return errs.Validation("unknown track status %d", to)
	}

	track, err := s.tracks.GetTrackByID(trackID)
	if err != nil {
		return err
	}
	if !policy.CanTransition(track.Status, to) {
		return errs.InvalidState("transition %d -> %d is not supported", track.Status, to)
	}

	if err := s.tracks.UpdateTrackStatus(trackID, to, remark); err != nil {
		return err
	}

	logger.Info("音乐状态更新",
		logger.Int64("trackId", trackID),
		logger.Int("status", int(to)),
		logger.Int64("adminId", requester.UserID))
	return s.invalidateDetail(ctx, trackID)
}

// Delete hard-deletes the track row with its favorite/history/rating cascade,
// then cleans the blobs asynchronously and invalidates the cached detail.
func (s *Service) Delete(ctx context.Context, trackID int64, requester *policy.Requester) error {
	track, err := s.tracks.GetTrackByID(trackID)
	if err != nil {
		return err
	}
	if !policy.CanModify(track.UploadUserID, requester) {
		return errs.Forbidden("not allowed to delete track %d", trackID)
	}

	if err := s.tracks.DeleteTrackCascade(trackID); err != nil {
		return err
	}

	// blob 删除是尽力而为，失败只记日志，不影响删除结果
	coverKey := coverKeyFromURL(track.CoverURL, s.store)
	go s.removeBlobs(track.FileKey, coverKey)

	logger.Info("音乐删除成功", logger.Int64("trackId", trackID), logger.Int64("userId", requester.UserID))
	return s.invalidateDetail(ctx, trackID)
}

// invalidateDetail drops the cached detail after a committed mutation.
// 失效失败要大声暴露：在TTL到期前缓存会一直供着旧数据
func (s *Service) invalidateDetail(ctx context.Context, trackID int64) error {
	if err := s.trackCache.InvalidateDetail(ctx, trackID); err != nil {
		logger.Error("音乐详情缓存失效失败", logger.Int64("trackId", trackID), logger.ErrorField(err))
		return errs.Storage("invalidate track detail cache", err)
	}
	return nil
}

func (s *Service) favoriteFlag(requester *policy.Requester, trackID int64) (bool, error) {
	if requester == nil {
		return false, nil
	}
	return s.favorites.IsFavorite(requester.UserID, trackID)
}

// uploaderName resolves a user id to its username, optionally through a
// per-call memo to avoid repeated lookups while building a page.
func (s *Service) uploaderName(userID int64, memo map[int64]string) string {
	if memo != nil {
		if name, ok := memo[userID]; ok {
			return name
		}
	}
	user, err := s.users.GetUserByID(userID)
	name := ""
	if err == nil {
		name = user.Username
	}
	if memo != nil {
		memo[userID] = name
	}
	return name
}

// removeBlobs best-effort deletes objects, logging failures.
func (s *Service) removeBlobs(keys ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), blobCleanupTimeout)
	defer cancel()
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Remove(ctx, key); err != nil {
			logger.Error("删除对象失败", logger.String("key", key), logger.ErrorField(err))
		}
	}
}

// objectKey builds the storage key: prefix/yyyy-MM-dd/uuid.ext
func objectKey(prefix, ext string) string {
	id := uuid.New().String()
	return fmt.Sprintf("%s/%s/%s%s", prefix, time.Now().Format("2006-01-02"), id, ext)
}

// coverKeyFromURL recovers the object key from a public cover URL.
func coverKeyFromURL(coverURL string, store ObjectStore) string {
	if coverURL == "" {
		return ""
	}
	base := store.URL("")
	if len(coverURL) <= len(base) || coverURL[:len(base)] != base {
		return ""
	}
	return coverURL[len(base):]
}
