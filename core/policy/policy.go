// Package policy is the single place where role and ownership decide what a
// requester may see or change. Handlers and services never compare roles
// inline; they ask this package.
package policy

import (
	"github.com/royo00/music/model"
)

// Requester identifies the caller of an operation. A nil *Requester means an
// unauthenticated guest.
type Requester struct {
	UserID int64
	Role   model.Role
}

// IsAdmin reports whether the requester carries the admin role.
func (r *Requester) IsAdmin() bool {
	return r != nil && r.Role == model.RoleAdmin
}

// CanView reports whether the requester may see a track with the given
// status and owner.
// 已发布对所有人可见；未发布只有上传者本人和管理员可见
func CanView(status model.TrackStatus, ownerID int64, requester *Requester) bool {
	if status == model.StatusPublished {
		return true
	}
	if requester == nil {
		return false
	}
	return requester.UserID == ownerID || requester.Role == model.RoleAdmin
}

// CanModify reports whether the requester may edit or delete a track owned
// by ownerID.
func CanModify(ownerID int64, requester *Requester) bool {
	if requester == nil {
		return false
	}
	return requester.UserID == ownerID || requester.Role == model.RoleAdmin
}

// CanUpload reports whether the requester may create tracks.
// 只有艺人和管理员可以上传
func CanUpload(requester *Requester) bool {
	if requester == nil {
		return false
	}
	return requester.Role == model.RoleActor || requester.Role == model.RoleAdmin
}

// CanTransition reports whether the moderation transition is defined.
// 状态只能向前走：待审核 -> 已发布/已下架，已发布 -> 已下架，没有回到待审核的路径
func CanTransition(from, to model.TrackStatus) bool {
	switch {
	case from == model.StatusPending && to == model.StatusPublished:
		return true
	case from == model.StatusPending && to == model.StatusOffline:
		return true
	case from == model.StatusPublished && to == model.StatusOffline:
		return true
	}
	return false
}

// VisibleStatus resolves the status filter a list/search query is allowed to
// use. Non-admin requesters are pinned to Published regardless of what they
// asked for; admins may filter freely (nil = all statuses).
func VisibleStatus(requested *model.TrackStatus, requester *Requester) *model.TrackStatus {
	if requester.IsAdmin() {
		return requested
	}
	published := model.StatusPublished
	return &published
}
