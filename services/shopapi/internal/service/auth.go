package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/validator"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/repository"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// User-facing auth messages.
const (
	MessageInvalidEmail       = "Correo electrónico inválido"
	MessagePasswordTooShort   = "La contraseña debe tener al menos 6 caracteres"
	MessageUserExists         = "El usuario ya existe"
	MessageInvalidCredentials = "Credenciales inválidas"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// Credentials is the login and registration request body.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password"`
}

// AuthService implements registration and login.
type AuthService struct {
	users      repository.UserRepository
	tokens     TokenIssuer
	bcryptCost int
	logger     *slog.Logger
}

// NewAuthService creates a new auth service. A bcryptCost of zero selects
// bcrypt.DefaultCost.
func NewAuthService(users repository.UserRepository, tokens TokenIssuer, bcryptCost int, logger *slog.Logger) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates an account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, in Credentials) (*domain.AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validator.Validate(in); err != nil {
		return nil, apperrors.InvalidInput(MessageInvalidEmail)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperrors.InvalidInput(MessagePasswordTooShort)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.InvalidInput(MessageUserExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return s.issue(user)
}

// Login checks the credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, in Credentials) (*domain.AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperrors.InvalidInput(MessageInvalidCredentials)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput(MessageInvalidCredentials)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperrors.InvalidInput(MessageInvalidCredentials)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*domain.AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &domain.AuthResult{Token: token, UserEmail: user.Email}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
