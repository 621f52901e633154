package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// RateTrackHandler 给音乐评分，重复评分覆盖旧分
func (h *APIHandler) RateTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.ratings.Rate(r.Context(), trackID, req.Score, RequesterFromContext(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "rated successfully"})
}

// TrackStatsHandler 单曲统计：播放量、收藏量、平均评分
func (h *APIHandler) TrackStatsHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	stats, err := h.ratings.TrackStats(r.Context(), trackID, RequesterFromContext(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ArtistStatsHandler 艺人维度统计：平均分和每首作品的统计行
func (h *APIHandler) ArtistStatsHandler(w http.ResponseWriter, r *http.Request) {
	artistID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	requester := RequesterFromContext(r)
	avg, err := h.ratings.ArtistAverage(r.Context(), artistID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	tracks, err := h.ratings.ArtistTrackStats(r.Context(), artistID, requester)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"artistId": artistID,
		"avgScore": avg,
		"tracks":   tracks,
	})
}
