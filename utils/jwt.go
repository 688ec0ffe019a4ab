package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeSession = "session"
	PurposeReset   = "reset"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is what a verified token says about its holder.
type TokenClaims struct {
	UserID   string
	IssuedAt time.Time
}

// TokenIssuer signs and checks HS256 tokens carrying a user id.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (ti *TokenIssuer) GenerateJwt(userID string) (string, error) {
	return ti.generate(userID, PurposeSession, ti.ttl)
}

// GenerateResetToken issues a short-lived token usable only for a password
// reset.
func (ti *TokenIssuer) GenerateResetToken(userID string) (string, error) {
	return ti.generate(userID, PurposeReset, 30*time.Minute)
}

func (ti *TokenIssuer) generate(userID, purpose string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"purpose": purpose,
		"iat":     ti.now().Unix(),
		"exp":     ti.now().Add(ttl).Unix(),
	})

	tokenString, err := token.SignedString(ti.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (ti *TokenIssuer) ValidateJwt(tokenString string) (string, error) {
	claims, err := ti.ParseJwt(tokenString)
	return claims.UserID, err
}

func (ti *TokenIssuer) ValidateResetToken(tokenString string) (string, error) {
	claims, err := ti.ParseResetToken(tokenString)
	return claims.UserID, err
}

// ParseJwt verifies a session token and returns its claims. Every failure
// wraps ErrInvalidToken.
func (ti *TokenIssuer) ParseJwt(tokenString string) (TokenClaims, error) {
	return ti.parse(tokenString, PurposeSession)
}

func (ti *TokenIssuer) ParseResetToken(tokenString string) (TokenClaims, error) {
	return ti.parse(tokenString, PurposeReset)
}

func (ti *TokenIssuer) parse(tokenString, purpose string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(ti.now))
	if err != nil {
		return TokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	if p, _ := claims["purpose"].(string); p != purpose {
		return TokenClaims{}, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return TokenClaims{}, ErrInvalidToken
	}

	// Tokens without iat predate any password change.
	var issued time.Time
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		issued = iat.Time.UTC()
	}
	return TokenClaims{UserID: userID, IssuedAt: issued}, nil
}

// WithClock replaces the clock used to stamp and check tokens.
func (ti *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	ti.now = now
	return ti
}
