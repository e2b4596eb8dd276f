package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService signs and validates the device tokens that authenticate
// anonymous identities against the API.
type TokenService interface {
	GenerateToken(userID string) (string, error)
	ValidateToken(tokenString string) (*TokenClaims, error)
}

type TokenClaims struct {
	UserID string `json:"user_id"`
}

type tokenService struct {
	secretKey string
	duration  time.Duration
}

func NewTokenService(secretKey string, duration time.Duration) TokenService {
	return &tokenService{
		secretKey: secretKey,
		duration:  duration,
	}
}

type deviceTokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func (t *tokenService) GenerateToken(userID string) (string, error) {
	claims := deviceTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.secretKey))
}

func (t *tokenService) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &deviceTokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(t.secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*deviceTokenClaims); ok && token.Valid {
		return &TokenClaims{UserID: claims.UserID}, nil
	}

	return nil, fmt.Errorf("invalid token")
}
