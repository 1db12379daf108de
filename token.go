package goSession

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var tokenParser = jwt.NewParser()

// tokenExpiry extracts the exp claim from an access token without verifying
// its signature. The server is the authority on token validity; the client
// only reads exp to decide whether a restored session is worth presenting.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := tokenParser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrTokenInvalid
	}
	return exp.Time, nil
}
