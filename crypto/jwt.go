package crypto

import (
	"errors"
	"fmt"
	"livepaint/domain"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// participantClaims grants one identity access to one room.
// Fields must be exported for JSON serialization.
type participantClaims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

type Grant struct {
	Identity string
	Room     string
}

type JWTManager struct {
	secretKey []byte
	maxAge    time.Duration
}

func NewJWTManager(secretKey string, maxAge time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		maxAge:    maxAge,
	}
}

func (m *JWTManager) Generate(grant Grant, now time.Time) (string, error) {
	claims := participantClaims{
		Room: grant.Room,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   grant.Identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secretKey)

	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.UnexpectedTokenGenerationError, err)
	}

	return signedToken, nil
}

func (m *JWTManager) Verify(tokenString string) (Grant, error) {
	token, err := jwt.ParseWithClaims(tokenString, &participantClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidSigningAlg
		}
		return m.secretKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSigningAlg):
			return Grant{}, domain.ErrInvalidSigningAlg
		case errors.Is(err, jwt.ErrTokenExpired):
			return Grant{}, domain.ErrExpiredToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return Grant{}, domain.ErrInvalidTokenSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Grant{}, domain.ErrCorruptedToken
		default:
			return Grant{}, fmt.Errorf("%w: %w", domain.UnexpectedTokenVerificationError, err)
		}
	}

	claims, ok := token.Claims.(*participantClaims)
	if !ok || !token.Valid || claims.Subject == "" || claims.Room == "" {
		return Grant{}, domain.ErrCorruptedToken
	}

	return Grant{Identity: claims.Subject, Room: claims.Room}, nil
}
