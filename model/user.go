package model

import "time"

// Role 用户角色，闭合枚举，所有角色判断都走 policy 包
type Role string

const (
	RoleAdmin Role = "admin"
	RoleActor Role = "actor"
	RoleUser  Role = "user"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleActor, RoleUser:
		return true
	}
	return false
}

// UserStatus 用户状态: 0-禁用, 1-启用
type UserStatus int8

const (
	UserDisabled UserStatus = 0
	UserEnabled  UserStatus = 1
)

// User represents an account in the system.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Not exposed in API responses
	Nickname     string     `json:"nickname"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	Remark       string     `json:"remark,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Profile is the cacheable public projection of a user.
// 不包含密码哈希，可直接写入缓存和响应
type Profile struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Nickname  string     `json:"nickname"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Avatar    string     `json:"avatar,omitempty"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ToProfile strips credential fields from a user record.
func (u *User) ToProfile() *Profile {
	return &Profile{
		ID:        u.ID,
		Username:  u.Username,
		Nickname:  u.Nickname,
		Email:     u.Email,
		Phone:     u.Phone,
		Avatar:    u.Avatar,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}
