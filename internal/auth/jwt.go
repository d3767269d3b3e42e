// Package auth handles bearer credentials. The client only ever reads the
// subject of a token without verifying it (Subject); Generate and Parse are
// the signing side used by the in-process test backend.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/trainctl/internal/common"
)

// Claims are the claims issued by the training service: the subject is the
// account email, is_admin is informational only.
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"is_admin,omitempty"`
}

var unverified = jwt.NewParser(jwt.WithPaddingAllowed())

// Subject decodes the claims segment of token without checking its signature
// or expiry and returns the "sub" claim. The header and signature segments
// are not looked at. Decode failures wrap common.ErrInvalidToken; a missing
// or empty subject is common.ErrNoSubject.
func Subject(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: empty", common.ErrInvalidToken)
	}

	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: no claims segment", common.ErrInvalidToken)
	}
	payload, err := unverified.DecodeSegment(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if sub == "" {
		return "", common.ErrNoSubject
	}
	return sub, nil
}

// GenerateToken signs an HS256 token for subject valid for ttl.
func GenerateToken(subject string, isAdmin bool, secretKey []byte, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		IsAdmin: isAdmin,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies token against secretKey and returns its claims.
// Expired tokens yield common.ErrorUnauthorized as well as jwt.ErrTokenExpired.
func ParseToken(token string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
