package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/preventix/preventix/internal/auth"
	"github.com/preventix/preventix/internal/domain/entities"
	"github.com/preventix/preventix/internal/domain/repositories"
	"github.com/preventix/preventix/internal/pkg/metrics"
)

// fakeUserRepo is an in-memory UserRepository for service tests
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entities.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*entities.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrEmailTaken
		}
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			if !u.IsActive {
				return nil, repositories.ErrUserInactive
			}
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func newAuthService() (*AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	jwt := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	return NewAuthService(repo, jwt), repo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "a@b.c", "hunter2hunter2", "Ada", nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" {
		t.Error("registered user has no ID")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("register issued empty tokens")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Error("access and refresh tokens are identical")
	}

	got, pair2, err := svc.Login(ctx, "a@b.c", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("login user = %q, want %q", got.ID, user.ID)
	}
	if pair2.AccessToken == "" {
		t.Error("login issued empty access token")
	}
}

func TestRegisterIncrementsRegisteredUsers(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.RegisteredUsers)
	if _, _, err := svc.Register(ctx, "count@b.c", "hunter2hunter2", "Ada", nil, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	after := testutil.ToFloat64(metrics.RegisteredUsers)
	if after != before+1 {
		t.Errorf("registered_users = %v, want %v", after, before+1)
	}

	// A rejected duplicate must not count.
	svc.Register(ctx, "count@b.c", "hunter2hunter2", "Eve", nil, nil)
	if got := testutil.ToFloat64(metrics.RegisteredUsers); got != after {
		t.Errorf("registered_users = %v after duplicate, want %v", got, after)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "a@b.c", "hunter2hunter2", "Ada", nil, nil); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, _, err := svc.Register(ctx, "a@b.c", "different-pw", "Eve", nil, nil)
	if !errors.Is(err, repositories.ErrEmailTaken) {
		t.Errorf("error = %v, want ErrEmailTaken", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()
	svc.Register(ctx, "a@b.c", "hunter2hunter2", "Ada", nil, nil)

	if _, _, err := svc.Login(ctx, "a@b.c", "wrong"); err == nil {
		t.Fatal("login with wrong password succeeded")
	}
	if _, _, err := svc.Login(ctx, "ghost@b.c", "hunter2hunter2"); err == nil {
		t.Fatal("login with unknown email succeeded")
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "a@b.c", "hunter2hunter2", "Ada", nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("refreshed user = %q, want %q", got.ID, user.ID)
	}
	if next.AccessToken == "" || next.RefreshToken == "" {
		t.Error("refresh issued empty tokens")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, pair, _ := svc.Register(ctx, "a@b.c", "hunter2hunter2", "Ada", nil, nil)
	if _, _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, auth.ErrWrongTokenUse) {
		t.Errorf("error = %v, want ErrWrongTokenUse", err)
	}
}

func TestRefreshRejectsInactiveUser(t *testing.T) {
	svc, repo := newAuthService()
	ctx := context.Background()

	user, pair, _ := svc.Register(ctx, "a@b.c", "hunter2hunter2", "Ada", nil, nil)

	stored, _ := repo.GetByID(ctx, user.ID)
	stored.IsActive = false
	repo.Update(ctx, stored)

	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, repositories.ErrUserInactive) {
		t.Errorf("error = %v, want ErrUserInactive", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, _, _ := svc.Register(ctx, "a@b.c", "hunter2hunter2", "Ada", nil, nil)

	name := "Ada Lovelace"
	age := 36
	got, err := svc.UpdateProfile(ctx, user.ID, &name, &age, nil)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.FullName != "Ada Lovelace" || got.Age == nil || *got.Age != 36 {
		t.Errorf("updated user = %+v", got)
	}

	// Nil fields leave the profile unchanged.
	got, err = svc.UpdateProfile(ctx, user.ID, nil, nil, nil)
	if err != nil {
		t.Fatalf("UpdateProfile noop: %v", err)
	}
	if got.FullName != "Ada Lovelace" {
		t.Errorf("noop update changed name to %q", got.FullName)
	}
}
