package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of token claims the client cares about.
type Claims struct {
	Username  string
	ExpiresAt time.Time
}

// Inspect decodes a JWT without verifying its signature. The client never
// holds the signing key; it only reads the claims for diagnostics.
func Inspect(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("no token")
	}

	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed parsing token: %w", err)
	}

	res := &Claims{}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		res.ExpiresAt = exp.Time
	}

	for _, key := range []string{"username", "sub"} {
		if name, ok := claims[key].(string); ok && name != "" {
			res.Username = name
			break
		}
	}

	return res, nil
}

// Expired reports whether the token carries an expiry that lies before now.
// Tokens that cannot be decoded or have no expiry are not considered expired.
func Expired(token string, now time.Time) bool {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}

	return claims.ExpiresAt.Before(now)
}

// CreateToken signs an HS256 token for the given user.
func CreateToken(secret []byte, username string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("no JWT secret configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iat":      now.Unix(),
		"username": username,
	}

	if ttl != 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

// Verify checks the HS256 signature and expiry of token and returns its
// claims.
func Verify(secret []byte, token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("no token")
	}

	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	return Inspect(token)
}
