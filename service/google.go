package service

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the verified subset of a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier turns a Google ID token into a verified identity.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleIdentity, error)
}

// IDTokenVerifier validates ID tokens against Google's public keys.
type IDTokenVerifier struct {
	ClientID string
}

func (v IDTokenVerifier) Verify(ctx context.Context, raw string) (GoogleIdentity, error) {
	if v.ClientID == "" {
		return GoogleIdentity{}, errors.New("google sign-in is not configured")
	}
	payload, err := idtoken.Validate(ctx, raw, v.ClientID)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if payload.Subject == "" || email == "" || !verified {
		return GoogleIdentity{}, fmt.Errorf("%w: google account email is not verified", ErrInvalidToken)
	}
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	return GoogleIdentity{Subject: payload.Subject, Email: email, Name: name, Picture: picture}, nil
}
