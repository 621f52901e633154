package account

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/royo00/music/core/auth"
	"github.com/royo00/music/core/policy"
	"github.com/royo00/music/errs"
	"github.com/royo00/music/model"
)

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: map[int64]*model.User{}}
}

func (r *memUserRepo) CreateUser(user *model.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return 0, errs.AlreadyExists("user %s", user.Username)
		}
	}
	id := r.nextID
	r.nextID++
	cp := *user
	cp.ID = id
	r.users[id] = &cp
	return id, nil
}

func (r *memUserRepo) GetUserByID(id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, errs.NotFound("user %d", id)
}

func (r *memUserRepo) GetUserByUsername(username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.NotFound("user %s", username)
}

func (r *memUserRepo) GetUserByEmail(email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email != "" && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.NotFound("user with email %s", email)
}

func (r *memUserRepo) GetUserByPhone(phone string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Phone != "" && u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.NotFound("user with phone %s", phone)
}

func (r *memUserRepo) UpdateUser(user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return errs.NotFound("user %d", user.ID)
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) UpdateUserStatus(id int64, status model.UserStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return errs.NotFound("user %d", id)
	}
	u.Status = status
	return nil
}

func (r *memUserRepo) UpdatePassword(id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return errs.NotFound("user %d", id)
	}
	u.PasswordHash = hash
	return nil
}

func (r *memUserRepo) ListUsers(role model.Role, page, size int) ([]*model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []*model.User{}
	for _, u := range r.users {
		if role != "" && u.Role != role {
			continue
		}
		cp := *u
		matched = append(matched, &cp)
	}
	return matched, int64(len(matched)), nil
}

type memProfileCache struct {
	mu      sync.Mutex
	entries map[int64]*model.Profile
}

func newMemProfileCache() *memProfileCache {
	return &memProfileCache{entries: map[int64]*model.Profile{}}
}

func (c *memProfileCache) GetProfile(ctx context.Context, userID int64) (*model.Profile, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.entries[userID]; ok {
		cp := *p
		return &cp, true, nil
	}
	return nil, false, nil
}

func (c *memProfileCache) PutProfile(ctx context.Context, profile *model.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *profile
	c.entries[profile.ID] = &cp
	return nil
}

func (c *memProfileCache) InvalidateProfile(ctx context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

func newTestService() (*Service, *memUserRepo, *memProfileCache) {
	auth.SetSecret("test-secret")
	repo := newMemUserRepo()
	cache := newMemProfileCache()
	return NewService(repo, cache), repo, cache
}

func register(t *testing.T, svc *Service, username string, role model.Role) int64 {
	t.Helper()
	id, err := svc.Register(context.Background(), &RegisterRequest{
		Username: username,
		Password: "secret123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Register %s failed: %v", username, err)
	}
	return id
}

func TestRegisterDefaultsAndValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	id := register(t, svc, "alice", "")
	user, err := repo.GetUserByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if user.Role != model.RoleUser {
		t.Errorf("empty role should default to listener, got %q", user.Role)
	}
	if user.Nickname != "alice" {
		t.Errorf("nickname should default to username, got %q", user.Nickname)
	}
	if user.Status != model.UserEnabled {
		t.Errorf("new account should be enabled, got %d", user.Status)
	}
	if user.PasswordHash == "secret123" {
		t.Error("password must be stored hashed")
	}

	// 管理员不能自助注册
	_, err = svc.Register(ctx, &RegisterRequest{Username: "root01", Password: "secret123", Role: model.RoleAdmin})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("admin self-registration should fail validation, got %v", err)
	}

	// 用户名太短
	_, err = svc.Register(ctx, &RegisterRequest{Username: "ab", Password: "secret123"})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("short username should fail validation, got %v", err)
	}

	// 重名
	_, err = svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret123"})
	if !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("duplicate username should be AlreadyExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, repo, cache := newTestService()
	ctx := context.Background()
	id := register(t, svc, "alice", model.RoleActor)

	token, profile, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Error("login must issue a token")
	}
	if profile.ID != id || profile.Role != model.RoleActor {
		t.Errorf("unexpected profile: %+v", profile)
	}

	// 登录顺带填充资料缓存
	if _, hit, _ := cache.GetProfile(ctx, id); !hit {
		t.Error("profile should be cached after login")
	}

	claims, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.UserID != id || claims.Role != model.RoleActor {
		t.Errorf("unexpected claims: %+v", claims)
	}

	// 错误密码
	if _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("wrong password should be a validation error, got %v", err)
	}
	// 不存在的用户名给出同样的错误形态
	if _, _, err := svc.Login(ctx, "nobody", "secret123"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("unknown username should be a validation error, got %v", err)
	}

	// 禁用账号登录被拒
	if err := repo.UpdateUserStatus(id, model.UserDisabled); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Login(ctx, "alice", "secret123"); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("disabled account login should be Forbidden, got %v", err)
	}
}

func TestGetProfileReadsThroughCache(t *testing.T) {
	svc, repo, cache := newTestService()
	ctx := context.Background()
	id := register(t, svc, "alice", "")

	profile, err := svc.GetProfile(ctx, id)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Username != "alice" {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if _, hit, _ := cache.GetProfile(ctx, id); !hit {
		t.Error("profile should be cached after first read")
	}

	// 直接改库不改缓存，命中旧值说明确实走了缓存
	u, _ := repo.GetUserByID(id)
	u.Nickname = "raw-update"
	if err := repo.UpdateUser(u); err != nil {
		t.Fatal(err)
	}
	profile, _ = svc.GetProfile(ctx, id)
	if profile.Nickname == "raw-update" {
		t.Error("expected cached profile, not a fresh read")
	}
}

func TestUpdateProfileInvalidatesCache(t *testing.T) {
	svc, _, cache := newTestService()
	ctx := context.Background()
	id := register(t, svc, "alice", "")

	if _, err := svc.GetProfile(ctx, id); err != nil {
		t.Fatal(err)
	}

	nickname := "小艾"
	profile, err := svc.UpdateProfile(ctx, id, &UpdateProfileRequest{Nickname: &nickname})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if profile.Nickname != "小艾" {
		t.Errorf("nickname not updated: %q", profile.Nickname)
	}
	if _, hit, _ := cache.GetProfile(ctx, id); hit {
		t.Error("cache must be invalidated before UpdateProfile returns")
	}
}

func TestUpdateProfileRejectsTakenEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	aliceID := register(t, svc, "alice", "")
	bobID := register(t, svc, "bob01", "")

	email := "shared@example.com"
	if _, err := svc.UpdateProfile(ctx, aliceID, &UpdateProfileRequest{Email: &email}); err != nil {
		t.Fatalf("first email claim failed: %v", err)
	}
	_, err := svc.UpdateProfile(ctx, bobID, &UpdateProfileRequest{Email: &email})
	if !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("taken email should be AlreadyExists, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	id := register(t, svc, "alice", "")

	if err := svc.ChangePassword(ctx, id, "wrong", "newsecret1"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("wrong old password should fail validation, got %v", err)
	}
	if err := svc.ChangePassword(ctx, id, "secret123", "newsecret1"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice", "secret123"); err == nil {
		t.Error("old password should no longer work")
	}
	if _, _, err := svc.Login(ctx, "alice", "newsecret1"); err != nil {
		t.Errorf("new password should work: %v", err)
	}
}

func TestAdminUserManagement(t *testing.T) {
	svc, _, cache := newTestService()
	ctx := context.Background()
	id := register(t, svc, "alice", model.RoleActor)
	register(t, svc, "bob01", "")

	adminReq := &policy.Requester{UserID: 99, Role: model.RoleAdmin}
	userReq := &policy.Requester{UserID: id, Role: model.RoleActor}

	// 非管理员不能列用户也不能改状态
	if _, _, err := svc.ListUsers(ctx, "", 1, 20, userReq); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("non-admin ListUsers should be Forbidden, got %v", err)
	}
	if err := svc.SetUserStatus(ctx, id, model.UserDisabled, userReq); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("non-admin SetUserStatus should be Forbidden, got %v", err)
	}

	profiles, total, err := svc.ListUsers(ctx, model.RoleActor, 1, 20, adminReq)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if total != 1 || len(profiles) != 1 || profiles[0].Username != "alice" {
		t.Errorf("role filter broken: total=%d profiles=%+v", total, profiles)
	}

	// 禁用后缓存失效，下次登录被拒
	if _, err := svc.GetProfile(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetUserStatus(ctx, id, model.UserDisabled, adminReq); err != nil {
		t.Fatalf("SetUserStatus failed: %v", err)
	}
	if _, hit, _ := cache.GetProfile(ctx, id); hit {
		t.Error("profile cache must be invalidated on status change")
	}
	if _, _, err := svc.Login(ctx, "alice", "secret123"); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("disabled account login should be Forbidden, got %v", err)
	}
}
