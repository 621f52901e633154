// Package account covers registration, login and profile management,
// including the read-through profile cache and admin user administration.
package account

import (
	"context"
	"errors"
	"regexp"

	"github.com/royo00/music/core/auth"
	"github.com/royo00/music/core/policy"
	"github.com/royo00/music/errs"
	"github.com/royo00/music/logger"
	"github.com/royo00/music/model"
	"github.com/royo00/music/repository"
)

// 注册参数的正则约束
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{4,20}$`)
	passwordPattern = regexp.MustCompile(`^.{6,20}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9_-]+@[a-zA-Z0-9_-]+(\.[a-zA-Z0-9_-]+)+$`)
	phonePattern    = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

// ProfileCache is the slice of the cache layer the account service needs.
type ProfileCache interface {
	GetProfile(ctx context.Context, userID int64) (*model.Profile, bool, error)
	PutProfile(ctx context.Context, profile *model.Profile) error
	InvalidateProfile(ctx context.Context, userID int64) error
}

// Service coordinates account use cases.
type Service struct {
	users repository.UserRepository
	cache ProfileCache
}

// NewService wires an account Service.
func NewService(users repository.UserRepository, cache ProfileCache) *Service {
	return &Service{users: users, cache: cache}
}

// RegisterRequest carries the fields of a new registration.
type RegisterRequest struct {
	Username string
	Password string
	Email    string
	Phone    string
	Role     model.Role
}

// Register creates an enabled account. Admin accounts cannot be
// self-registered; an empty role defaults to listener.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (int64, error) {
	if !usernamePattern.MatchString(req.Username) {
		return 0, errs.Validation("username must be 4-20 letters, digits or underscores")
	}
	if !passwordPattern.MatchString(req.Password) {
		return 0, errs.Validation("password must be 6-20 characters")
	}
	if req.Email != "" && !emailPattern.MatchString(req.Email) {
		return 0, errs.Validation("invalid email address")
	}
	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		return 0, errs.Validation("invalid phone number")
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if role == model.RoleAdmin || !role.Valid() {
		return 0, errs.Validation("role %s is not allowed at registration", role)
	}

	// 先查重给出友好错误，并发窗口里的撞车由唯一键兜底
	if _, err := s.users.GetUserByUsername(req.Username); err == nil {
		return 0, errs.AlreadyExists("username %s", req.Username)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return 0, err
	}
	if req.Email != "" {
		if _, err := s.users.GetUserByEmail(req.Email); err == nil {
			return 0, errs.AlreadyExists("email %s", req.Email)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return 0, err
		}
	}
	if req.Phone != "" {
		if _, err := s.users.GetUserByPhone(req.Phone); err == nil {
			return 0, errs.AlreadyExists("phone %s", req.Phone)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return 0, err
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return 0, err
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: hash,
		Nickname:     req.Username, // 默认昵称为用户名
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         role,
		Status:       model.UserEnabled,
	}

	id, err := s.users.CreateUser(user)
	if err != nil {
		return 0, err
	}

	logger.Info("用户注册成功", logger.String("username", req.Username), logger.Int64("userId", id))
	return id, nil
}

// Login verifies credentials, rejects disabled accounts and issues a token.
// 登录成功顺带把资料写进缓存
func (s *Service) Login(ctx context.Context, username, password string) (string, *model.Profile, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// 不暴露用户名是否存在
			return "", nil, errs.Validation("invalid username or password")
		}
		return "", nil, err
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return "", nil, errs.Validation("invalid username or password")
	}

	if user.Status == model.UserDisabled {
		return "", nil, errs.Forbidden("account is disabled")
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", nil, err
	}

	profile := user.ToProfile()
	if err := s.cache.PutProfile(ctx, profile); err != nil {
		logger.Warn("写入用户资料缓存失败", logger.Int64("userId", user.ID), logger.ErrorField(err))
	}

	logger.Info("用户登录成功", logger.String("username", username), logger.Int64("userId", user.ID))
	return token, profile, nil
}

// GetProfile is the cache-first profile read.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	profile, hit, err := s.cache.GetProfile(ctx, userID)
	if err != nil {
		logger.Warn("读取用户资料缓存失败", logger.Int64("userId", userID), logger.ErrorField(err))
	}
	if hit {
		return profile, nil
	}

	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	profile = user.ToProfile()
	if err := s.cache.PutProfile(ctx, profile); err != nil {
		logger.Warn("写入用户资料缓存失败", logger.Int64("userId", userID), logger.ErrorField(err))
	}
	return profile, nil
}

// UpdateProfileRequest carries partial profile edits; nil keeps the current value.
type UpdateProfileRequest struct {
	Nickname *string
	Email    *string
	Phone    *string
	Avatar   *string
}

// UpdateProfile merges the incoming fields, persists and synchronously
// invalidates the cached profile.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*model.Profile, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != "" {
		if !emailPattern.MatchString(*req.Email) {
			return nil, errs.Validation("invalid email address")
		}
		if other, err := s.users.GetUserByEmail(*req.Email); err == nil && other.ID != userID {
			return nil, errs.AlreadyExists("email %s", *req.Email)
		} else if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		user.Email = *req.Email
	}
	if req.Phone != nil && *req.Phone != "" {
		if !phonePattern.MatchString(*req.Phone) {
			return nil, errs.Validation("invalid phone number")
		}
		if other, err := s.users.GetUserByPhone(*req.Phone); err == nil && other.ID != userID {
			return nil, errs.AlreadyExists("phone %s", *req.Phone)
		} else if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		user.Phone = *req.Phone
	}
	if req.Nickname != nil && *req.Nickname != "" {
		user.Nickname = *req.Nickname
	}
	if req.Avatar != nil && *req.Avatar != "" {
		user.Avatar = *req.Avatar
	}

	if err := s.users.UpdateUser(user); err != nil {
		return nil, err
	}

	if err := s.invalidateProfile(ctx, userID); err != nil {
		return nil, err
	}

	logger.Info("用户信息更新成功", logger.Int64("userId", userID))
	return user.ToProfile(), nil
}

// ChangePassword verifies the old password before replacing the hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if !passwordPattern.MatchString(newPassword) {
		return errs.Validation("password must be 6-20 characters")
	}

	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(oldPassword, user.PasswordHash) {
		return errs.Validation("old password is incorrect")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(userID, hash); err != nil {
		return err
	}

	logger.Info("用户密码修改成功", logger.Int64("userId", userID))
	return nil
}

// ListUsers pages through users for the admin console.
func (s *Service) ListUsers(ctx context.Context, role model.Role, page, size int, requester *policy.Requester) ([]*model.Profile, int64, error) {
	if !requester.IsAdmin() {
		return nil, 0, errs.Forbidden("only admins may list users")
	}
	if role != "" && !role.Valid() {
		return nil, 0, errs.Validation("unknown role %s", role)
	}

	users, total, err := s.users.ListUsers(role, page, size)
	if err != nil {
		return nil, 0, err
	}

	profiles := make([]*model.Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, user.ToProfile())
	}
	return profiles, total, nil
}

// SetUserStatus enables or disables an account and invalidates its cached
// profile. Disabled users fail authentication on their next login.
func (s *Service) SetUserStatus(ctx context.Context, userID int64, status model.UserStatus, requester *policy.Requester) error {
	if !requester.IsAdmin() {
		return errs.Forbidden("only admins may change user status")
	}
	if status != model.UserEnabled && status != model.UserDisabled {
		return errs.Validation("unknown user status %d", status)
	}

	if err := s.users.UpdateUserStatus(userID, status); err != nil {
		return err
	}

	logger.Info("用户状态更新", logger.Int64("userId", userID), logger.Int("status", int(status)))
	return s.invalidateProfile(ctx, userID)
}

// invalidateProfile drops the cached profile after a committed mutation.
func (s *Service) invalidateProfile(ctx context.Context, userID int64) error {
	if err := s.cache.InvalidateProfile(ctx, userID); err != nil {
		logger.Error("用户资料缓存失效失败", logger.Int64("userId", userID), logger.ErrorField(err))
		return errs.Storage("invalidate user profile cache", err)
	}
	return nil
}
