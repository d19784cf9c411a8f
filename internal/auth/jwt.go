package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the user identity carried by a login token.
type Claims struct {
	UserID  string `json:"id"`
	Role    string `json:"role"`
	Name    string `json:"name"`
	RegNo   string `json:"regNo"`
	BatchID string `json:"batchId"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims carry the admin role.
func (c Claims) IsAdmin() bool { return c.Role == "admin" }

// Issue signs a login token valid for ttl.
func Issue(userID, role, name, regNo, batchID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	cl := Claims{
		UserID:  userID,
		Role:    role,
		Name:    name,
		RegNo:   regNo,
		BatchID: batchID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(secret))
}

// Parse validates a login token and returns its claims.
func Parse(tokenStr, secret string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return *claims, nil
}
