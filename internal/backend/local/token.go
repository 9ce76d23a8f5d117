package local

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "inclusao"

// AccessClaims mirror the hosted provider's token shape closely enough for
// the rest of the application to treat both alike.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type tokenService struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func (s *tokenService) issue(userID, email string) (string, *AccessClaims, error) {
	jti, err := randomHex(16)
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	claims := &AccessClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// parse verifies signature, issuer and expiry.
func (s *tokenService) parse(token string) (*AccessClaims, error) {
	return s.parseWith(token, jwt.WithExpirationRequired())
}

// parseAllowExpired verifies the signature only; sign-out accepts expired tokens.
func (s *tokenService) parseAllowExpired(token string) (*AccessClaims, error) {
	claims, err := s.parseWith(token)
	if err != nil && errors.Is(err, jwt.ErrTokenExpired) {
		return claims, nil
	}
	return claims, err
}

func (s *tokenService) parseWith(token string, opts ...jwt.ParserOption) (*AccessClaims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	claims := new(AccessClaims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		return claims, err
	}
	return claims, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
