package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-assistant-server/internal/domain"
)

type authService struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

// NewAuthService resolves identities through Supabase Auth.
func NewAuthService(
	supabaseClient domain.SupabaseClient,
	logger domain.Logger,
) *authService {
	return &authService{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.Identity, error) {
	identity, err := s.supabaseClient.ValidateToken(token)
	if err != nil {
		s.logger.Error("Failed to validate token with Supabase", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	return identity, nil
}

// Claims carried by tokens issued to chat clients.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthService validates HS256 tokens signed with a shared secret. The
// subject claim is the identity id.
type JWTAuthService struct {
	secret []byte
	clock  domain.Clock
	logger domain.Logger
}

func NewJWTAuthService(secret string, clock domain.Clock, logger domain.Logger) (*JWTAuthService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("JWT_SECRET is required for jwt auth")
	}
	return &JWTAuthService{secret: []byte(secret), clock: clock, logger: logger}, nil
}

func (s *JWTAuthService) ValidateToken(ctx context.Context, tokenString string) (*domain.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		s.logger.Debug("JWT rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
	}, nil
}

// Issue signs a token for identity valid for ttl. It backs local tooling and
// tests; production tokens come from the identity provider.
func (s *JWTAuthService) Issue(identity domain.Identity, ttl time.Duration) (string, error) {
	now := s.clock.Now()
	claims := &Claims{
		Email: identity.Email,
		Name:  identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
