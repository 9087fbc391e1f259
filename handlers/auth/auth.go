// Package auth signs and verifies the bearer tokens that identify participants.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 7 * 24 * time.Hour

var (
	mu        sync.RWMutex
	jwtSecret []byte
)

var ErrDisabled = errors.New("auth: no signing secret configured")

// AppClaims represents the custom claims for the JWT.
type AppClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// Init sets the HMAC secret. An empty secret disables auth.
func Init(secret string) {
	mu.Lock()
	defer mu.Unlock()
	jwtSecret = []byte(secret)
}

func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return len(jwtSecret) > 0
}

func secret() []byte {
	mu.RLock()
	defer mu.RUnlock()
	return jwtSecret
}

// CreateJWT issues a token for subject carrying a display name.
func CreateJWT(subject, name string) (string, error) {
	key := secret()
	if len(key) == 0 {
		return "", ErrDisabled
	}
	now := time.Now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Name: name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

func ParseJWT(tokenString string) (*AppClaims, error) {
	key := secret()
	if len(key) == 0 {
		return nil, ErrDisabled
	}
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
