package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/royo00/music/model"
)

// ListUsersHandler 管理端用户列表，支持按角色过滤
func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	page, size := parsePage(r)
	role := model.Role(r.URL.Query().Get("role"))

	profiles, total, err := h.accounts.ListUsers(r.Context(), role, page, size, RequesterFromContext(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, model.NewPageResult(total, page, size, profiles))
}

// SetUserStatusHandler 管理端启用/禁用账号
func (h *APIHandler) SetUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req struct {
		Status int `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.accounts.SetUserStatus(r.Context(), userID, model.UserStatus(req.Status), RequesterFromContext(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "user status updated"})
}

// SetTrackStatusHandler 管理端审核：发布或下架
func (h *APIHandler) SetTrackStatusHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req struct {
		Status int    `json:"status"`
		Remark string `json:"remark"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.catalog.UpdateStatus(r.Context(), trackID, model.TrackStatus(req.Status), req.Remark, RequesterFromContext(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "track status updated"})
}
