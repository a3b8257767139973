package auth

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSubject = errors.New("auth: token has no subject claim")

// UserIDFromToken recovers the user id from the token's sub claim without
// verifying the signature. The client holds no signing key; verification is
// the server's job. Used as a fallback when /auth/me is unreachable.
func UserIDFromToken(token string) (int, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, fmt.Errorf("auth: parse token: %w", err)
	}

	switch sub := claims["sub"].(type) {
	case float64:
		return int(sub), nil
	case string:
		id, err := strconv.Atoi(sub)
		if err != nil {
			return 0, fmt.Errorf("auth: non-numeric subject %q", sub)
		}
		return id, nil
	default:
		return 0, ErrNoSubject
	}
}
