package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"campusboard/pkg/config"
)

// ErrUnauthenticated covers every token failure: missing, malformed,
// expired, or signed with an unknown key. Callers translate it to 401.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims is the token payload the board issues and accepts: a pseudonymous
// username plus standard expiry.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// VerifyToken parses and verifies an HS256 bearer token against every
// configured signing key, so key rotation keeps older tokens valid until
// they expire. Returns the pseudonymous username on success.
func VerifyToken(token string) (string, error) {
	keys := config.GetSigningKeys()
	if len(keys) == 0 {
		return "", errors.New("no signing keys configured")
	}
	var lastErr error
	for key := range keys {
		claims := &Claims{}
		t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(key), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			lastErr = err
			continue
		}
		if !t.Valid || claims.Username == "" {
			lastErr = ErrUnauthenticated
			continue
		}
		return claims.Username, nil
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, lastErr)
	}
	return "", ErrUnauthenticated
}

// SignToken issues an HS256 token for username using one of the
// configured signing keys. Used by provisioning tooling and test setup.
func SignToken(username string, ttl time.Duration) (string, error) {
	keys := config.GetSigningKeys()
	if len(keys) == 0 {
		return "", errors.New("no signing keys configured")
	}
	var key string
	for k := range keys {
		key = k
		break
	}
	now := time.Now().UTC()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// TokenExpiry reports the expiry time of a token without verifying its
// signature. Clients use it to discard stale sessions before making calls.
func TokenExpiry(token string) (time.Time, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
