package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/royo00/music/config"
	"github.com/royo00/music/core/account"
	"github.com/royo00/music/core/catalog"
	"github.com/royo00/music/core/policy"
	"github.com/royo00/music/core/rate"
	"github.com/royo00/music/errs"
	"github.com/royo00/music/logger"
	"github.com/royo00/music/model"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	accounts *account.Service
	catalog  *catalog.Service
	ratings  *rate.Service
	cfg      *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(accounts *account.Service, cat *catalog.Service, ratings *rate.Service, cfg *config.Config) *APIHandler {
	return &APIHandler{
		accounts: accounts,
		catalog:  cat,
		ratings:  ratings,
		cfg:      cfg,
	}
}

type contextKey string

const requesterKey contextKey = "requester"

// RequesterFromContext returns the authenticated requester, or nil for guests.
func RequesterFromContext(r *http.Request) *policy.Requester {
	requester, _ := r.Context().Value(requesterKey).(*policy.Requester)
	return requester
}

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("写入响应失败", logger.ErrorField(err))
		}
	}
}

// respondError writes an error body with the given status.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps a service-layer error onto an HTTP status.
// 领域错误和HTTP状态码的唯一转换点
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrAlreadyExists):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrInvalidState):
		respondError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("请求处理失败", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parsePage reads page/size query parameters, clamping to the defaults.
func parsePage(r *http.Request) (int, int) {
	page := model.DefaultPage
	size := model.DefaultSize
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}
	if size > model.MaxSize {
		size = model.MaxSize
	}
	return page, size
}

// pathID extracts a numeric path variable.
func pathID(vars map[string]string, name string) (int64, error) {
	id, err := strconv.ParseInt(vars[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("invalid %s", name)
	}
	return id, nil
}

// formUpload pulls one optional multipart file part into a FileUpload.
// 返回 (nil, nil) 表示该部分未提交
func formUpload(r *http.Request, field string) (*catalog.FileUpload, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Validation("invalid %s upload: %v", field, err)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &catalog.FileUpload{
		Reader:      file,
		Size:        header.Size,
		ContentType: contentType,
		Ext:         ext,
	}, nil
}
