package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clubattend/pkg/interfaces"
	"clubattend/pkg/types"
)

// Verifier validates HS256 bearer tokens and loads the user named by "sub"
// ARCHITECTURAL DISCOVERY: Tokens are minted by an external identity provider;
// this service only verifies them and resolves the local user row
type Verifier struct {
	secret []byte
	issuer string
	users  interfaces.UserStore
	now    func() time.Time
}

// NewVerifier creates a verifier. issuer may be empty to accept any issuer.
func NewVerifier(secret, issuer string, users interfaces.UserStore) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Verifier{
		secret: []byte(secret),
		issuer: issuer,
		users:  users,
		now:    time.Now,
	}, nil
}

// Authenticate implements interfaces.Authenticator.
// Every failure is reported as interfaces.ErrUnauthenticated wrapping the cause.
func (v *Verifier) Authenticate(ctx context.Context, credential string) (*types.User, error) {
	userID, err := v.Subject(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrUnauthenticated, err)
	}

	user, err := v.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %s", interfaces.ErrUnauthenticated, userID)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

// Subject verifies the token and returns its subject claim
func (v *Verifier) Subject(credential string) (string, error) {
	tokenStr := StripBearer(credential)
	if tokenStr == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || token == nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrMissingUserID
	}
	return claims.Subject, nil
}

// Issue signs a token for userID valid for ttl.
// Used by the development seed and by tests; production tokens come from the
// identity provider.
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// StripBearer removes an optional case-insensitive "Bearer " prefix
func StripBearer(credential string) string {
	credential = strings.TrimSpace(credential)
	scheme, rest, found := strings.Cut(credential, " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return credential
}
