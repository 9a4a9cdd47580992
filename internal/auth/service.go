package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 15 * time.Minute

// Service signs and verifies the HS256 tokens accepted by the API. Users
// and their permissions are managed elsewhere; tokens carry both.
type Service struct {
	secret []byte
}

type Claims struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// IssueToken mints a token for userID. A zero ttl uses the default.
func (s *Service) IssueToken(userID string, permissions []string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return s.signToken(userID, permissions, ttl)
}

func (s *Service) signToken(userID string, permissions []string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:      userID,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

var parseClaimsFn = jwt.ParseWithClaims

// ParseToken verifies an HS256 token signed with the service secret.
func (s *Service) ParseToken(token string) (*Claims, error) {
	parsed, err := parseClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}
