package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"vehicle_parking/internal/domain"
	"vehicle_parking/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users  map[string]*domain.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}, nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, ok := f.users[user.Username]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	u := *user
	u.ID = f.nextID
	f.nextID++
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	f.users[u.Username] = &u
	out := u
	return &out, nil
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id int) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func newTestAuthService(repo repository.UserRepository) *AuthService {
	return NewAuthService(repo, "testsecret", time.Hour)
}

func TestRegisterStoresHashedPasswordAndUserRole(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	user, err := svc.Register(context.Background(), domain.RegisterUserDTO{
		Username: "alice", Password: "secret1", FullName: "Alice A",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("expected role %q, got %q", domain.RoleUser, user.Role)
	}
	if user.Password != "" {
		t.Errorf("expected password cleared in response, got %q", user.Password)
	}

	stored := repo.users["alice"]
	if stored.Password == "secret1" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret1")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	dto := domain.RegisterUserDTO{Username: "alice", Password: "secret1", FullName: "Alice A"}
	if _, err := svc.Register(ctx, dto); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(ctx, dto); !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
	if len(repo.users) != 1 {
		t.Errorf("duplicate registration created a user row, have %d users", len(repo.users))
	}
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, domain.RegisterUserDTO{Username: "bob", Password: "hunter2x", FullName: "Bob B"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	resp, err := svc.Login(ctx, domain.LoginUserDTO{Username: "bob", Password: "hunter2x"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.Role != domain.RoleUser {
		t.Errorf("expected role %q, got %q", domain.RoleUser, resp.Role)
	}

	claims, err := svc.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims["username"] != "bob" {
		t.Errorf("expected username claim 'bob', got %v", claims["username"])
	}
	if claims["role"] != domain.RoleUser {
		t.Errorf("expected role claim %q, got %v", domain.RoleUser, claims["role"])
	}
	if claims["jti"] == "" || claims["jti"] == nil {
		t.Error("expected a jti claim")
	}

	if _, err := svc.Login(ctx, domain.LoginUserDTO{Username: "bob", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, domain.LoginUserDTO{Username: "nobody", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())
	if _, err := svc.ValidateToken("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestEnsureAdminSeedsOnce(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "admin", "admin_password", "Admin User"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	admin := repo.users["admin"]
	if admin == nil {
		t.Fatal("admin not created")
	}
	if admin.Role != domain.RoleAdmin {
		t.Errorf("expected role %q, got %q", domain.RoleAdmin, admin.Role)
	}

	// Second call is a no-op.
	if err := svc.EnsureAdmin(ctx, "admin", "other_password", "Admin User"); err != nil {
		t.Fatalf("second EnsureAdmin: %v", err)
	}
	if len(repo.users) != 1 {
		t.Errorf("expected 1 user after reseeding, got %d", len(repo.users))
	}
}
