package services

import (
	"context"
	"errors"
	"time"

	"instoo/internal/domain"
	"instoo/internal/domain/user"
	"instoo/internal/repository"
	instoo_errors "instoo/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService verifies bearer tokens and turns them into actors. Tokens are
// issued by the identity provider; Issue exists for seeding and tests.
type AuthService struct {
	users     repository.UserRepository
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(users repository.UserRepository, secret string, accessTTL time.Duration) *AuthService {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &AuthService{users: users, jwtSecret: []byte(secret), accessTTL: accessTTL}
}

type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) IssueAccessToken(u user.User) (string, int64, error) {
	now := time.Now()
	claims := AccessClaims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UUID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.accessTTL.Seconds()), nil
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, instoo_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, instoo_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, instoo_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, instoo_errors.ErrUnauthorized
	}
	return *claims, nil
}

// Authenticate resolves a token to an actor. The role comes from the users
// table, so a demoted admin loses rights before the token expires.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (domain.Actor, error) {
	claims, err := s.ParseAccessToken(tokenString)
	if err != nil {
		return domain.Actor{}, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Actor{}, instoo_errors.ErrUnauthorized
	}

	u, err := s.users.GetByUUID(ctx, id)
	if errors.Is(err, instoo_errors.ErrNotFound) {
		return domain.Actor{}, instoo_errors.ErrUnauthorized
	}
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{ID: u.UUID, Role: u.Role}, nil
}
