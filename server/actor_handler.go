package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/royo00/music/core/catalog"
	"github.com/royo00/music/model"
)

// 上传表单最大内存占用 32MB，超出部分落临时文件
const maxUploadMemory = 32 << 20

// UploadTrackHandler handles audio uploads with metadata.
// Expected multipart form fields:
// - file: the audio file (required)
// - cover: cover art image (optional)
// - name / artist / album / description: metadata
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, err := formUpload(r, "file")
	if err != nil {
		respondDomainError(w, err)
		return
	}
	cover, err := formUpload(r, "cover")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	req := &catalog.UploadRequest{
		Name:        r.FormValue("name"),
		Artist:      r.FormValue("artist"),
		Album:       r.FormValue("album"),
		Description: r.FormValue("description"),
		File:        file,
		Cover:       cover,
	}

	id, err := h.catalog.Upload(r.Context(), req, RequesterFromContext(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "uploaded successfully, pending review",
		"trackId": id,
	})
}

// OwnTracksHandler 艺人查看自己的作品，含未发布的
func (h *APIHandler) OwnTracksHandler(w http.ResponseWriter, r *http.Request) {
	q := listQueryFromRequest(r)
	items, total, err := h.catalog.OwnTracks(r.Context(), q, RequesterFromContext(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, model.NewPageResult(total, q.Page, q.Size, items))
}

// UpdateTrackHandler applies a partial metadata edit, optionally replacing
// the cover when the request is multipart.
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	req := &catalog.UpdateRequest{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse multipart form")
			return
		}
		// 表单里出现的字段才参与合并
		for field, dest := range map[string]**string{
			"name":        &req.Name,
			"artist":      &req.Artist,
			"album":       &req.Album,
			"description": &req.Description,
		} {
			if values, ok := r.MultipartForm.Value[field]; ok && len(values) > 0 {
				v := values[0]
				*dest = &v
			}
		}
		cover, err := formUpload(r, "cover")
		if err != nil {
			respondDomainError(w, err)
			return
		}
		req.Cover = cover
	} else {
		var body struct {
			Name        *string `json:"name"`
			Artist      *string `json:"artist"`
			Album       *string `json:"album"`
			Description *string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = body.Name
		req.Artist = body.Artist
		req.Album = body.Album
		req.Description = body.Description
	}

	if err := h.catalog.Update(r.Context(), trackID, req, RequesterFromContext(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "updated successfully"})
}

// DeleteTrackHandler 硬删除音乐及其关联数据
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.catalog.Delete(r.Context(), trackID, RequesterFromContext(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted successfully"})
}
