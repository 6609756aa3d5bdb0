package interfaces

import (
	"context"

	"clubattend/pkg/types"
)

// Authenticator turns a bearer credential into a user identity
// TECHNICAL DISCOVERY: Same contract serves the HTTP Authorization header and
// the first frame of a live connection, so both paths share one verifier
type Authenticator interface {
	// Authenticate returns ErrUnauthenticated for any bad or missing credential
	Authenticate(ctx context.Context, credential string) (*types.User, error)
}
