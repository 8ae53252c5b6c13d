package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/z-chatbot/backend/internal/model/chat"
	"github.com/zhouzirui/z-chatbot/backend/internal/model/user"
)

var (
	ErrInvalidInput       = errors.New("username and password are required")
	ErrReservedUsername   = errors.New("username is reserved")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims is the token payload.
type Claims struct {
	UserID   string `json:"_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service registers accounts and issues and verifies tokens.
type Service struct {
	users user.Store
	key   []byte
	ttl   time.Duration
	cost  int
	now   func() time.Time
}

// NewService creates the auth service. A zero ttl issues tokens without expiry.
func NewService(users user.Store, signingKey string, ttl time.Duration) (*Service, error) {
	if signingKey == "" {
		return nil, errors.New("jwt signing key is required")
	}
	return &Service{
		users: users,
		key:   []byte(signingKey),
		ttl:   ttl,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}, nil
}

// Register creates a new account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (user.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return user.User{}, ErrInvalidInput
	}
	if strings.EqualFold(username, chat.BotIdentity) {
		return user.User{}, ErrReservedUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

// Login checks the password and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, user.ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issue(u)
}

// Verify parses token and returns the username it was issued for.
func (s *Service) Verify(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Username == "" {
		return "", ErrInvalidToken
	}
	return claims.Username, nil
}

func (s *Service) issue(u user.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  u.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
