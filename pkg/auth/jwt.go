package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	cancelAudience = "salon-bookings"
	cancelScope    = "appointment:cancel"
)

var ErrInvalidToken = errors.New("invalid token")

// CancelClaims authorise exactly one appointment's self-cancellation.
type CancelClaims struct {
	Email string `json:"email"`
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// NewCancelToken signs a token whose subject is the appointment id.
func NewCancelToken(appointmentID, email, secret string, now, expiresAt time.Time) (string, error) {
	claims := CancelClaims{
		Email: email,
		Scope: cancelScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   appointmentID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Audience:  []string{cancelAudience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseCancelToken checks the signature and validity window against now.
func ParseCancelToken(tokenString, secret string, now time.Time) (*CancelClaims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &CancelClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(cancelAudience),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*CancelClaims)
	if !ok || !tok.Valid || claims.Scope != cancelScope || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
