package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"foodgram/internal/cache"
	"foodgram/internal/models"
	"foodgram/internal/repositories"
)

const revokedTokenPrefix = "revoked_token:"

// RegisterInput is the body of POST /api/users/.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username,ne=me"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// LoginInput is the body of POST /api/auth/token/login/.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SetPasswordInput is the body of POST /api/users/set_password/.
type SetPasswordInput struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

// Claims are carried by every issued token.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	revoked   cache.Cache
	validate  *validator.Validate
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService creates a new AuthService. Revoked token ids are kept in revoked.
func NewAuthService(userRepo repositories.UserRepository, revoked cache.Cache, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		revoked:   revoked,
		validate:  newValidator(),
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}

	// Check if username or email already exists
	if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return nil, fieldError("email", "A user with that email already exists.")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.GetByUsername(ctx, in.Username); err == nil {
		return nil, fieldError("username", "A user with that username already exists.")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Account: models.Account{
			Username: in.Username,
			Password: string(hashedPassword),
			IsActive: true,
		},
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fieldError("username", "A user with that username or email already exists.")
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login authenticates by email and returns a signed token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := validate(s.validate, in); err != nil {
		return "", err
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !user.IsActive {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a token, rejecting revoked ones.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token: %v", ErrUnauthorized, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	if claims.Id != "" && s.revoked != nil {
		_, revoked, err := s.revoked.Get(ctx, revokedTokenPrefix+claims.Id)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: token has been revoked", ErrUnauthorized)
		}
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.Id == "" || s.revoked == nil {
		return nil
	}
	ttl := time.Unix(claims.ExpiresAt, 0).Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Set(ctx, revokedTokenPrefix+claims.Id, []byte("1"), ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// SetPassword replaces the user's password after checking the current one.
func (s *AuthService) SetPassword(ctx context.Context, userID uint, in SetPasswordInput) error {
	if err := validate(s.validate, in); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)); err != nil {
		return fieldError("current_password", "Invalid password.")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(ctx, userID, string(hashedPassword))
}
