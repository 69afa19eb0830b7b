package service

import (
	"errors"

	"github.com/ariebrainware/telemed-api/util"
)

// Domain errors returned by the service layer. Handlers map them to HTTP
// status codes; anything else is treated as an internal failure.
var (
	ErrDuplicateIdentity          = errors.New("an account with the same username, email or registration number already exists")
	ErrInvalidCredentials         = errors.New("invalid username/email or password")
	ErrInvalidOrExpiredCode       = errors.New("code is invalid or has expired")
	ErrWeakPassword               = util.ErrWeakPassword
	ErrRegistryVerificationFailed = errors.New("registration number could not be verified against the registry")
	ErrInvalidToken               = errors.New("invalid token")
	ErrExpiredToken               = errors.New("token has expired")
	ErrAccountConflict            = errors.New("email is already registered without a linked Google account")
	ErrExternalAccount            = errors.New("account signs in with Google and has no password")
	ErrNotFound                   = errors.New("record not found")
	ErrInvalidInput               = errors.New("invalid input")
	ErrIndexOutOfRange            = errors.New("index out of range")
	ErrAlreadyReviewed            = errors.New("a review has already been submitted")
	ErrInvalidRating              = errors.New("rating must be between 1 and 5")
	ErrMessageTooLong             = errors.New("message must be at most 500 characters")
	ErrForbidden                  = errors.New("not allowed to access this record")
	ErrConcurrentUpdate           = errors.New("record was modified concurrently, retry")
)
