package surface

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid surface token")

// SurfaceClaims scope a token to one surface. Subject carries the surface ID.
type SurfaceClaims struct {
	TaskID string `json:"taskId"`
	Mode   Mode   `json:"mode"`
	jwt.RegisteredClaims
}

// TokenIssuer signs the tokens a surface client presents when it follows or
// drives its countdown over HTTP.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *TokenIssuer) Issue(surfaceID, taskID string, mode Mode) (string, error) {
	now := i.now().UTC()
	claims := SurfaceClaims{
		TaskID: taskID,
		Mode:   mode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   surfaceID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *TokenIssuer) Parse(tokenString string) (*SurfaceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SurfaceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SurfaceClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
