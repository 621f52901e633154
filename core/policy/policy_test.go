package policy

import (
	"testing"

	"github.com/royo00/music/model"
)

func TestCanView(t *testing.T) {
	owner := &Requester{UserID: 1, Role: model.RoleActor}
	other := &Requester{UserID: 2, Role: model.RoleUser}
	admin := &Requester{UserID: 3, Role: model.RoleAdmin}

	tests := []struct {
		name      string
		status    model.TrackStatus
		requester *Requester
		want      bool
	}{
		{"published visible to guest", model.StatusPublished, nil, true},
		{"published visible to anyone", model.StatusPublished, other, true},
		{"pending hidden from guest", model.StatusPending, nil, false},
		{"pending hidden from other user", model.StatusPending, other, false},
		{"pending visible to owner", model.StatusPending, owner, true},
		{"pending visible to admin", model.StatusPending, admin, true},
		{"offline hidden from other user", model.StatusOffline, other, false},
		{"offline visible to owner", model.StatusOffline, owner, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanView(tt.status, 1, tt.requester); got != tt.want {
				t.Errorf("CanView(%v, owner=1, %+v) = %v, want %v", tt.status, tt.requester, got, tt.want)
			}
		})
	}
}

func TestCanModify(t *testing.T) {
	if CanModify(1, nil) {
		t.Error("guest must not modify")
	}
	if CanModify(1, &Requester{UserID: 2, Role: model.RoleActor}) {
		t.Error("non-owner actor must not modify")
	}
	if !CanModify(1, &Requester{UserID: 1, Role: model.RoleActor}) {
		t.Error("owner must be allowed to modify")
	}
	if !CanModify(1, &Requester{UserID: 9, Role: model.RoleAdmin}) {
		t.Error("admin must be allowed to modify")
	}
}

func TestCanUpload(t *testing.T) {
	if CanUpload(nil) {
		t.Error("guest must not upload")
	}
	if CanUpload(&Requester{UserID: 1, Role: model.RoleUser}) {
		t.Error("listener must not upload")
	}
	if !CanUpload(&Requester{UserID: 1, Role: model.RoleActor}) {
		t.Error("actor must be allowed to upload")
	}
	if !CanUpload(&Requester{UserID: 1, Role: model.RoleAdmin}) {
		t.Error("admin must be allowed to upload")
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]model.TrackStatus{
		{model.StatusPending, model.StatusPublished},
		{model.StatusPending, model.StatusOffline},
		{model.StatusPublished, model.StatusOffline},
	}
	for _, tr := range allowed {
		if !CanTransition(tr[0], tr[1]) {
			t.Errorf("transition %d -> %d should be allowed", tr[0], tr[1])
		}
	}

	// 不存在回到待审核的路径，也没有下架后重新发布
	denied := [][2]model.TrackStatus{
		{model.StatusPublished, model.StatusPending},
		{model.StatusOffline, model.StatusPending},
		{model.StatusOffline, model.StatusPublished},
		{model.StatusPending, model.StatusPending},
	}
	for _, tr := range denied {
		if CanTransition(tr[0], tr[1]) {
			t.Errorf("transition %d -> %d should be denied", tr[0], tr[1])
		}
	}
}

func TestVisibleStatus(t *testing.T) {
	pending := model.StatusPending

	// 普通用户无论请求什么都被钉在已发布
	got := VisibleStatus(&pending, &Requester{UserID: 1, Role: model.RoleUser})
	if got == nil || *got != model.StatusPublished {
		t.Errorf("non-admin should be pinned to published, got %v", got)
	}
	got = VisibleStatus(nil, nil)
	if got == nil || *got != model.StatusPublished {
		t.Errorf("guest should be pinned to published, got %v", got)
	}

	// 管理员请求什么就是什么
	admin := &Requester{UserID: 1, Role: model.RoleAdmin}
	if got := VisibleStatus(&pending, admin); got == nil || *got != model.StatusPending {
		t.Errorf("admin filter should pass through, got %v", got)
	}
	if got := VisibleStatus(nil, admin); got != nil {
		t.Errorf("admin nil filter should stay nil, got %v", got)
	}
}
