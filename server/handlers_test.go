package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/royo00/music/errs"
)

func TestRespondDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", errs.NotFound("track %d", 5), http.StatusNotFound},
		{"forbidden", errs.Forbidden("nope"), http.StatusForbidden},
		{"already exists", errs.AlreadyExists("favorite"), http.StatusConflict},
		{"validation", errs.Validation("bad score"), http.StatusBadRequest},
		{"invalid state", errs.InvalidState("not published"), http.StatusConflict},
		{"storage", errs.Storage("invalidate cache", http.ErrServerClosed), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondDomainError(rec, tt.err)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q, want application/json", ct)
			}
		})
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		query    string
		wantPage int
		wantSize int
	}{
		{"", 1, 20},
		{"page=3&size=50", 3, 50},
		{"page=0&size=-1", 1, 20},
		{"page=abc&size=xyz", 1, 20},
		{"size=500", 1, 100}, // 超过上限被钳制
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/music?"+tt.query, nil)
		page, size := parsePage(r)
		if page != tt.wantPage || size != tt.wantSize {
			t.Errorf("parsePage(%q) = (%d, %d), want (%d, %d)", tt.query, page, size, tt.wantPage, tt.wantSize)
		}
	}
}
