package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/telemed-api/model"
	"github.com/golang-jwt/jwt/v4"
)

// Identity is the authenticated caller carried by a session token.
type Identity struct {
	ID   uint   `json:"id"`
	Role string `json:"role"`
}

// Claims is the JWT payload of a session token.
type Claims struct {
	UserID uint   `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and validates time-limited HS256 session tokens.
// There is no revocation list; validity is bounded by expiry only.
type SessionIssuer struct {
	Secret     []byte
	PatientTTL time.Duration
	DoctorTTL  time.Duration
	Now        func() time.Time
}

func (s *SessionIssuer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// TTL returns the validity window for role.
func (s *SessionIssuer) TTL(role string) time.Duration {
	if role == model.RoleDoctor {
		return s.DoctorTTL
	}
	return s.PatientTTL
}

// Issue signs a token for id. It returns the token and its expiry.
func (s *SessionIssuer) Issue(id Identity) (string, time.Time, error) {
	if len(s.Secret) == 0 {
		return "", time.Time{}, errors.New("token signing secret is not configured")
	}
	if id.ID == 0 || !model.ValidRole(id.Role) {
		return "", time.Time{}, fmt.Errorf("%w: identity", ErrInvalidInput)
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.TTL(id.Role))
	claims := Claims{
		UserID: id.ID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%s:%d", id.Role, id.ID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Validate checks the signature and expiry of raw and returns its identity.
func (s *SessionIssuer) Validate(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrInvalidToken
	}
	// Expiry is checked below against the issuer clock instead of jwt.TimeFunc.
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	})
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	if claims.UserID == 0 || !model.ValidRole(claims.Role) || claims.ExpiresAt == nil {
		return Identity{}, ErrInvalidToken
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return Identity{}, ErrExpiredToken
	}
	return Identity{ID: claims.UserID, Role: claims.Role}, nil
}
