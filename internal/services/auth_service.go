package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"carestaff/internal/auth"
	"carestaff/internal/db"
	"carestaff/internal/middleware"
	"carestaff/internal/models"
	"carestaff/internal/store"
	"carestaff/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrDuplicateUser      = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCareHomeRequired   = errors.New("care home is required for this role")
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user models.User) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type CareHomeStore interface {
	Create(ctx context.Context, tx store.Execer, id, name string) error
	GetByID(ctx context.Context, careHomeID string) (models.CareHome, error)
	List(ctx context.Context) ([]models.CareHome, error)
}

type AuthService struct {
	txRunner  db.TxRunner
	users     UserStore
	careHomes CareHomeStore
	audit     AuditStore
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(txRunner db.TxRunner, users UserStore, careHomes CareHomeStore, audit AuditStore, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		txRunner:  txRunner,
		users:     users,
		careHomes: careHomes,
		audit:     audit,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

type RegisterRequest struct {
	Username string
	Email    string
	Password string
	Role     string
	// Care home admins either join an existing home by ID or register a new
	// one by name. Exactly one of the two.
	CareHomeID   *string
	CareHomeName *string
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (models.User, error) {
	if err := validator.ValidateUsername(req.Username); err != nil {
		return models.User{}, err
	}
	if err := validator.ValidateEmail(req.Email); err != nil {
		return models.User{}, err
	}
	if err := validator.ValidatePassword(req.Password); err != nil {
		return models.User{}, err
	}
	if err := validator.ValidateRole(req.Role); err != nil {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if req.Role == models.RoleCareHomeAdmin {
			switch {
			case req.CareHomeID != nil:
				if _, err := s.careHomes.GetByID(ctx, *req.CareHomeID); err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						return ErrNotFound
					}
					return err
				}
				user.CareHomeID = req.CareHomeID
			case req.CareHomeName != nil && *req.CareHomeName != "":
				homeID := uuid.NewString()
				if err := s.careHomes.Create(ctx, tx, homeID, *req.CareHomeName); err != nil {
					return err
				}
				user.CareHomeID = &homeID
			default:
				return ErrCareHomeRequired
			}
		}
		if err := s.users.Create(ctx, tx, user); err != nil {
			if store.IsUniqueViolation(err) {
				return ErrDuplicateUser
			}
			return err
		}
		return s.audit.Log(ctx, tx, user.ID, "user_register", "user", user.ID, "{}")
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, err := auth.GenerateToken(s.jwtSecret, user.ID, user.Role, user.CareHomeID, s.tokenTTL)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) Me(ctx context.Context, principal middleware.Principal) (models.User, error) {
	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *AuthService) ListCareHomes(ctx context.Context) ([]models.CareHome, error) {
	return s.careHomes.List(ctx)
}
