package auth

import "errors"

var (
	ErrMissingSecret = errors.New("jwt secret must not be empty")
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingUserID = errors.New("token has no subject")
)
