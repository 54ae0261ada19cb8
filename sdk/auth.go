package sdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/car-park/cognito"
	"github.com/upb/car-park/config"
	"go.uber.org/zap"
)

// ErrNoCurrentUser is returned when the request carries no valid session
var ErrNoCurrentUser = errors.New("no current user")

type sessionTokenKey struct{}

// WithSessionToken attaches the caller's raw ID token to the context
func WithSessionToken(ctx context.Context, idToken string) context.Context {
	return context.WithValue(ctx, sessionTokenKey{}, idToken)
}

// SessionTokenFromContext returns the raw ID token attached to the context
func SessionTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(sessionTokenKey{}).(string); ok {
		return token
	}
	return ""
}

// TokenValidator verifies Cognito tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*cognito.ParsedClaims, error)
}

// Session is the validated sign-in session of the current caller
type Session struct {
	IDToken string
	Claims  *cognito.ParsedClaims
}

// Principal is the authenticated identity behind a session
type Principal struct {
	Sub      string
	Username string
	Email    string
	Groups   []string
}

// Auth answers "who is the current user" for a request. It is configured
// once at start-up and shared; it keeps no per-user state.
type Auth struct {
	cfg       config.AuthSDKConfig
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuth creates a new Auth client
func NewAuth(cfg config.AuthSDKConfig, validator TokenValidator, logger *zap.Logger) *Auth {
	return &Auth{
		cfg:       cfg,
		validator: validator,
		logger:    logger,
	}
}

// Config returns the user pool configuration the client was built with
func (a *Auth) Config() config.AuthSDKConfig {
	return a.cfg
}

// CurrentSession validates the session token on the context
func (a *Auth) CurrentSession(ctx context.Context) (*Session, error) {
	token := SessionTokenFromContext(ctx)
	if token == "" {
		return nil, fmt.Errorf("%w: no session token", ErrNoCurrentUser)
	}

	claims, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCurrentUser, err)
	}

	if claims.TokenUse != "" && claims.TokenUse != "id" {
		return nil, fmt.Errorf("%w: session token is not an id token", ErrNoCurrentUser)
	}

	return &Session{IDToken: token, Claims: claims}, nil
}

// CurrentAuthenticatedUser returns the principal of the current session
func (a *Auth) CurrentAuthenticatedUser(ctx context.Context) (*Principal, error) {
	session, err := a.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}

	return &Principal{
		Sub:      session.Claims.Sub,
		Username: session.Claims.Username,
		Email:    session.Claims.Email,
		Groups:   session.Claims.Groups,
	}, nil
}
