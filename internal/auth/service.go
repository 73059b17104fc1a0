package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tuannn09/event-connect-backend/config"
	"github.com/tuannn09/event-connect-backend/internal/apperr"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Service interface {
	Register(input RegisterInput) (*User, error)
	Login(input LoginInput) (*TokenPair, *User, error)
	Refresh(refreshToken string) (string, error)
	GetUserByID(userID uint) (User, error)
	UpdateProfile(userID uint, input UpdateProfileInput) (*User, error)
}

type service struct {
	repo          Repository
	accessSecret  string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(r Repository, cfg *config.Config) Service {
	return &service{
		repo:          r,
		accessSecret:  cfg.JWTAccessSecret,
		refreshSecret: cfg.JWTRefreshSecret,
		accessTTL:     time.Duration(cfg.JWTAccessTTLHours) * time.Hour,
		refreshTTL:    time.Duration(cfg.JWTRefreshTTLHours) * time.Hour,
	}
}

// Register creates a student account. Elevated roles are assigned by a
// system administrator, never self-selected at registration.
func (s *service) Register(input RegisterInput) (*User, error) {
	taken, err := s.repo.UsernameOrEmailTaken(input.Username, input.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("username or email already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		FullName:     input.FullName,
		Role:         "student",
		Faculty:      input.Faculty,
		Phone:        input.Phone,
	}
	if input.StudentID != "" {
		user.StudentID = &input.StudentID
	}

	if err := s.repo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Login(input LoginInput) (*TokenPair, *User, error) {
	user, err := s.repo.GetByUsername(input.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.Forbidden("invalid credentials")
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperr.Forbidden("invalid credentials")
	}

	access, err := s.signToken(user, s.accessSecret, s.accessTTL)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.signToken(user, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return nil, nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, &user, nil
}

func (s *service) Refresh(refreshToken string) (string, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.refreshSecret), nil
	})
	if err != nil || !token.Valid {
		return "", apperr.Forbidden("invalid refresh token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperr.Forbidden("invalid refresh token")
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return "", apperr.Forbidden("invalid refresh token")
	}

	user, err := s.repo.GetByID(uint(userIDFloat))
	if err != nil {
		return "", apperr.Forbidden("user no longer exists")
	}

	return s.signToken(user, s.accessSecret, s.accessTTL)
}

func (s *service) GetUserByID(userID uint) (User, error) {
	return s.repo.GetByID(userID)
}

// UpdateProfile applies the provided fields to the caller's own
// account. Nil fields are left untouched.
func (s *service) UpdateProfile(userID uint, input UpdateProfileInput) (*User, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}

	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.StudentID != nil {
		if *input.StudentID == "" {
			user.StudentID = nil
		} else {
			user.StudentID = input.StudentID
		}
	}
	if input.Faculty != nil {
		user.Faculty = *input.Faculty
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Save(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *service) signToken(user User, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":      user.ID,
		"role":         user.Role,
		"is_superuser": user.IsSuperuser,
		"exp":          time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
