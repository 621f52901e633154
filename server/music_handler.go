package server

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/royo00/music/core/catalog"
	"github.com/royo00/music/model"
)

// listQueryFromRequest builds the common search query from URL parameters.
func listQueryFromRequest(r *http.Request) *catalog.ListQuery {
	q := &catalog.ListQuery{
		Keyword: r.URL.Query().Get("keyword"),
		Name:    r.URL.Query().Get("name"),
		Artist:  r.URL.Query().Get("artist"),
		Album:   r.URL.Query().Get("album"),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			status := model.TrackStatus(n)
			q.Status = &status
		}
	}
	q.Page, q.Size = parsePage(r)
	return q
}

// ListTracksHandler 音乐列表与搜索，游客只能看到已发布的
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	q := listQueryFromRequest(r)
	items, total, err := h.catalog.List(r.Context(), q, RequesterFromContext(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, model.NewPageResult(total, q.Page, q.Size, items))
}

// TrackDetailHandler 音乐详情，走缓存
func (h *APIHandler) TrackDetailHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	item, err := h.catalog.GetDetail(r.Context(), trackID, RequesterFromContext(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// PlayTrackHandler 返回播放地址并记录播放
func (h *APIHandler) PlayTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	descriptor, err := h.catalog.Play(r.Context(), trackID, RequesterFromContext(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, descriptor)
}

// FavoriteHandler 收藏音乐
func (h *APIHandler) FavoriteHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.catalog.Favorite(r.Context(), trackID, RequesterFromContext(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "favorited successfully"})
}

// UnfavoriteHandler 取消收藏
func (h *APIHandler) UnfavoriteHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.catalog.Unfavorite(r.Context(), trackID, RequesterFromContext(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "unfavorited successfully"})
}

// FavoriteListHandler 收藏列表
func (h *APIHandler) FavoriteListHandler(w http.ResponseWriter, r *http.Request) {
	page, size := parsePage(r)
	items, total, err := h.catalog.FavoriteList(r.Context(), page, size, RequesterFromContext(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, model.NewPageResult(total, page, size, items))
}

// HistoryHandler 播放历史
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	page, size := parsePage(r)
	items, total, err := h.catalog.History(r.Context(), page, size, RequesterFromContext(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, model.NewPageResult(total, page, size, items))
}
