package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/royo00/music/core/account"
	"github.com/royo00/music/core/auth"
	"github.com/royo00/music/core/policy"
	"github.com/royo00/music/errs"
	"github.com/royo00/music/model"
)

// RegisterHandler handles user registration requests.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.accounts.Register(r.Context(), &account.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "registered successfully",
		"userId":  id,
	})
}

// LoginHandler handles user login requests.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, profile, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		// 凭证错误回 401 而不是 400，账号禁用之类的走通用映射
		if errors.Is(err, errs.ErrValidation) {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  profile,
	})
}

// ProfileHandler returns the requester's own profile.
func (h *APIHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFromContext(r)
	profile, err := h.accounts.GetProfile(r.Context(), requester.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfileHandler applies a partial profile edit.
func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nickname *string `json:"nickname"`
		Email    *string `json:"email"`
		Phone    *string `json:"phone"`
		Avatar   *string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	requester := RequesterFromContext(r)
	profile, err := h.accounts.UpdateProfile(r.Context(), requester.UserID, &account.UpdateProfileRequest{
		Nickname: req.Nickname,
		Email:    req.Email,
		Phone:    req.Phone,
		Avatar:   req.Avatar,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// ChangePasswordHandler replaces the requester's password.
func (h *APIHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	requester := RequesterFromContext(r)
	if err := h.accounts.ChangePassword(r.Context(), requester.UserID, req.OldPassword, req.NewPassword); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// requester identity in the context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requester, ok := requesterFromHeader(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		ctx := context.WithValue(r.Context(), requesterKey, requester)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// OptionalAuthMiddleware attaches the requester when a valid token is present
// but lets guests through. 游客可以浏览已发布内容
func (h *APIHandler) OptionalAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requester, ok := requesterFromHeader(r); ok {
			ctx := context.WithValue(r.Context(), requesterKey, requester)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	}
}

func requesterFromHeader(r *http.Request) (*policy.Requester, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}
	claims, err := auth.ParseToken(parts[1])
	if err != nil {
		return nil, false
	}
	return &policy.Requester{UserID: claims.UserID, Role: claims.Role}, true
}
