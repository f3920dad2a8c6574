package service

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenManager отвечает за выпуск и проверку JWT доступа к API.
type TokenManager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(secret string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:    []byte(secret),
		accessTTL: accessTTL,
	}
}

// IssueAccess выпускает access токен для фрилансера.
func (m *TokenManager) IssueAccess(freelancerID int64) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.accessTTL)

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(freelancerID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAccess извлекает идентификатор фрилансера из access токена.
func (m *TokenManager) ParseAccess(token string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}

	freelancerID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || freelancerID <= 0 {
		return 0, jwt.ErrTokenInvalidClaims
	}

	return freelancerID, nil
}
