package auth

import (
	"fmt"
	"time"

	"backend-meetspot/internal/shared/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

type tokenUse string

const (
	useAccess  tokenUse = "access"
	useRefresh tokenUse = "refresh"
)

// Claims carry the user a token was issued to and whether it is an access or a
// refresh token. A refresh token is never accepted as a bearer token.
type Claims struct {
	UserID string   `json:"user_id"`
	Use    tokenUse `json:"use"`
	jwt.RegisteredClaims
}

type signer struct {
	secret []byte
	now    func() time.Time
}

func newSigner(secret string) signer {
	return signer{secret: []byte(secret), now: time.Now}
}

func (s signer) sign(userID string, use tokenUse, ttl time.Duration) (string, error) {
	issued := s.now()
	claims := Claims{
		UserID: userID,
		Use:    use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s signer) parse(token string, use tokenUse) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Use != use || claims.UserID == "" {
		return nil, apperr.ErrInvalidToken
	}
	return claims, nil
}
