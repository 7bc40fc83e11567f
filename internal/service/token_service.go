package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/account-auth/internal/domain"
	"github.com/dom/account-auth/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "account-auth"

var ErrMissingTokenSecret = errors.New("jwt access or refresh secret is not defined")

// UserClaims is the fixed payload carried by both access and refresh tokens.
type UserClaims struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	IsActivated bool      `json:"isActivated"`
	jwt.RegisteredClaims
}

func ClaimsFromUser(u *domain.User) UserClaims {
	return UserClaims{
		ID:          u.ID,
		Email:       u.Email,
		IsActivated: u.IsActivated,
	}
}

func (c *UserClaims) validatePayload() error {
	if c.ID == uuid.Nil {
		return errors.New("claims: missing id")
	}
	if c.Email == "" {
		return errors.New("claims: missing email")
	}
	return nil
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type TokenConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type TokenService struct {
	tokenRepo     repository.TokenRepository
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(tokenRepo repository.TokenRepository, cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingTokenSecret
	}
	return &TokenService{
		tokenRepo:     tokenRepo,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}, nil
}

func (s *TokenService) GenerateToken(claims UserClaims) (TokenPair, error) {
	if err := claims.validatePayload(); err != nil {
		return TokenPair{}, err
	}

	accessToken, err := s.sign(claims, s.accessSecret, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.sign(claims, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *TokenService) ValidateAccessToken(token string) (*UserClaims, error) {
	return s.verify(token, s.accessSecret)
}

func (s *TokenService) ValidateRefreshToken(token string) (*UserClaims, error) {
	return s.verify(token, s.refreshSecret)
}

func (s *TokenService) SaveToken(ctx context.Context, userID uuid.UUID, refreshToken string) (string, error) {
	if err := s.tokenRepo.Upsert(ctx, userID, refreshToken); err != nil {
		return "", err
	}
	return refreshToken, nil
}

// RotateToken replaces oldToken with newToken for userID. It returns
// domain.ErrTokenNotFound if oldToken is no longer the stored token.
func (s *TokenService) RotateToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error {
	return s.tokenRepo.Replace(ctx, userID, oldToken, newToken)
}

func (s *TokenService) RemoveToken(ctx context.Context, refreshToken string) error {
	return s.tokenRepo.DeleteByRefreshToken(ctx, refreshToken)
}

func (s *TokenService) FindToken(ctx context.Context, refreshToken string) (*domain.Token, error) {
	return s.tokenRepo.GetByRefreshToken(ctx, refreshToken)
}

func (s *TokenService) sign(claims UserClaims, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.ID.String(),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *TokenService) verify(tokenString string, secret []byte) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.validatePayload() != nil || claims.Subject != claims.ID.String() {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
