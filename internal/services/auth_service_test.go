package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"carestaff/internal/auth"
	"carestaff/internal/models"
	"carestaff/internal/store"

	"github.com/lib/pq"
)

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, user models.User) error
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
	getByIDFn    func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, user models.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, user)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, userID)
}

type stubCareHomeStore struct {
	createFn  func(ctx context.Context, tx store.Execer, id, name string) error
	getByIDFn func(ctx context.Context, careHomeID string) (models.CareHome, error)
	listFn    func(ctx context.Context) ([]models.CareHome, error)
}

func (s stubCareHomeStore) Create(ctx context.Context, tx store.Execer, id, name string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, name)
}

func (s stubCareHomeStore) GetByID(ctx context.Context, careHomeID string) (models.CareHome, error) {
	if s.getByIDFn == nil {
		return models.CareHome{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, careHomeID)
}

func (s stubCareHomeStore) List(ctx context.Context) ([]models.CareHome, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func newAuthService(users stubUserStore, careHomes stubCareHomeStore) *AuthService {
	return NewAuthService(fakeTxRunner{}, users, careHomes, stubAuditStore{}, "test-secret", time.Hour)
}

func workerRegistration() RegisterRequest {
	return RegisterRequest{
		Username: "nurse_joy",
		Email:    "joy@example.com",
		Password: "s3curePass!",
		Role:     models.RoleHealthWorker,
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	var created models.User
	service := newAuthService(stubUserStore{
		createFn: func(_ context.Context, _ store.Execer, user models.User) error {
			created = user
			return nil
		},
	}, stubCareHomeStore{})

	user, err := service.Register(context.Background(), workerRegistration())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if created.PasswordHash == "" || created.PasswordHash == "s3curePass!" {
		t.Fatal("password must be stored hashed")
	}
	if !auth.CheckPassword(created.PasswordHash, "s3curePass!") {
		t.Fatal("stored hash must verify the original password")
	}
	if user.Role != models.RoleHealthWorker {
		t.Fatalf("expected health_worker role, got %s", user.Role)
	}
}

func TestRegisterCareHomeAdminNeedsAHome(t *testing.T) {
	service := newAuthService(stubUserStore{}, stubCareHomeStore{})
	req := workerRegistration()
	req.Role = models.RoleCareHomeAdmin

	_, err := service.Register(context.Background(), req)
	if !errors.Is(err, ErrCareHomeRequired) {
		t.Fatalf("expected ErrCareHomeRequired, got %v", err)
	}
}

func TestRegisterCareHomeAdminCreatesNamedHome(t *testing.T) {
	var createdHome string
	service := newAuthService(stubUserStore{}, stubCareHomeStore{
		createFn: func(_ context.Context, _ store.Execer, _, name string) error {
			createdHome = name
			return nil
		},
	})
	req := workerRegistration()
	req.Role = models.RoleCareHomeAdmin
	name := "Rosewood Manor"
	req.CareHomeName = &name

	user, err := service.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if createdHome != "Rosewood Manor" {
		t.Fatalf("expected care home created, got %q", createdHome)
	}
	if user.CareHomeID == nil {
		t.Fatal("expected the new home attached to the user")
	}
}

func TestRegisterCareHomeAdminRejectsUnknownHome(t *testing.T) {
	service := newAuthService(stubUserStore{}, stubCareHomeStore{})
	req := workerRegistration()
	req.Role = models.RoleCareHomeAdmin
	homeID := "missing-home"
	req.CareHomeID = &homeID

	_, err := service.Register(context.Background(), req)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown home, got %v", err)
	}
}

func TestRegisterDuplicateUser(t *testing.T) {
	service := newAuthService(stubUserStore{
		createFn: func(context.Context, store.Execer, models.User) error {
			return &pq.Error{Code: "23505"}
		},
	}, stubCareHomeStore{})

	_, err := service.Register(context.Background(), workerRegistration())
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
}

func TestLoginIssuesTokenForValidCredentials(t *testing.T) {
	hash, err := auth.HashPassword("s3curePass!")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	service := newAuthService(stubUserStore{
		getByEmailFn: func(context.Context, string) (models.User, error) {
			return models.User{ID: "user-1", Email: "joy@example.com", PasswordHash: hash, Role: models.RoleHealthWorker}, nil
		},
	}, stubCareHomeStore{})

	result, err := service.Login(context.Background(), "joy@example.com", "s3curePass!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a signed token")
	}
	if result.User.ID != "user-1" {
		t.Fatalf("expected user-1, got %s", result.User.ID)
	}
}

func TestLoginRejectsWrongPasswordAndUnknownEmail(t *testing.T) {
	hash, err := auth.HashPassword("s3curePass!")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	service := newAuthService(stubUserStore{
		getByEmailFn: func(_ context.Context, email string) (models.User, error) {
			if email == "joy@example.com" {
				return models.User{ID: "user-1", PasswordHash: hash}, nil
			}
			return models.User{}, sql.ErrNoRows
		},
	}, stubCareHomeStore{})

	if _, err := service.Login(context.Background(), "joy@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := service.Login(context.Background(), "nobody@example.com", "s3curePass!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}
