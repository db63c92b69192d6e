package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims names a server-side session. The token carries no authority on
// its own: the session row it points to must still exist.
type tokenClaims struct {
	jwt.RegisteredClaims
}

func (m *Manager) signToken(sessionID string, userID int64, issued, expires time.Time) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return s, nil
}

// parseToken verifies the signature and, unless skipExpiry is set, the
// expiry of a session token.
func (m *Manager) parseToken(tokenString string, skipExpiry bool) (*tokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if skipExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid session token")
	}
	return &claims, nil
}
