package navigation

import (
	"context"
	"fmt"

	"github.com/upb/car-park/sdk"
	"go.uber.org/zap"
)

// PrincipalQuery answers whether there is a current authenticated principal.
// It fails when there is none.
type PrincipalQuery interface {
	CurrentAuthenticatedUser(ctx context.Context) (*sdk.Principal, error)
}

// PrincipalFunc adapts a function to PrincipalQuery
type PrincipalFunc func(ctx context.Context) (*sdk.Principal, error)

// CurrentAuthenticatedUser calls f(ctx)
func (f PrincipalFunc) CurrentAuthenticatedUser(ctx context.Context) (*sdk.Principal, error) {
	return f(ctx)
}

// Intent is a single navigation attempt
type Intent struct {
	To   *Match
	From string
}

// Outcome is the state of a navigation
type Outcome int

const (
	Pending Outcome = iota
	Allowed
	Redirected
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Redirected:
		return "redirected"
	default:
		return "pending"
	}
}

// Decision is the terminal result of guarding a navigation
type Decision struct {
	Outcome Outcome
	Target  string
}

// Allow lets the navigation through to its target
func Allow() Decision {
	return Decision{Outcome: Allowed}
}

// RedirectTo sends the navigation to path instead
func RedirectTo(path string) Decision {
	return Decision{Outcome: Redirected, Target: path}
}

// GuardConfig names the routes the guard treats specially
type GuardConfig struct {
	LoginRoute    string
	RegisterRoute string
	ProfileRoute  string
}

// DefaultGuardConfig returns the car park route names
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		LoginRoute:    RouteLogin,
		RegisterRoute: RouteRegister,
		ProfileRoute:  RouteProfile,
	}
}

// Guard decides whether a navigation may proceed. It queries the principal
// on every call and keeps no state between navigations.
type Guard struct {
	principals PrincipalQuery
	login      *Record
	register   *Record
	profile    *Record
	logger     *zap.Logger
}

// NewGuard creates a guard over the table's login, register and profile routes
func NewGuard(table *Table, principals PrincipalQuery, cfg GuardConfig, logger *zap.Logger) (*Guard, error) {
	lookup := func(name string) (*Record, error) {
		rec, ok := table.ByName(name)
		if !ok {
			return nil, fmt.Errorf("guard route %q is not in the route table", name)
		}
		return rec, nil
	}

	login, err := lookup(cfg.LoginRoute)
	if err != nil {
		return nil, err
	}
	register, err := lookup(cfg.RegisterRoute)
	if err != nil {
		return nil, err
	}
	profile, err := lookup(cfg.ProfileRoute)
	if err != nil {
		return nil, err
	}

	return &Guard{
		principals: principals,
		login:      login,
		register:   register,
		profile:    profile,
		logger:     logger,
	}, nil
}

// Resolve decides a navigation:
//   - a target requiring auth is allowed with a principal, else sent to login
//   - login and register send an authenticated user to profile
//   - anything else is allowed without asking for the principal
func (g *Guard) Resolve(ctx context.Context, intent Intent) Decision {
	to := intent.To.Route

	if intent.To.RequiresAuth() {
		if _, err := g.principals.CurrentAuthenticatedUser(ctx); err != nil {
			g.logger.Debug("no principal for protected route, redirecting to login",
				zap.String("to", to.Path),
				zap.String("from", intent.From),
				zap.Error(err))
			return RedirectTo(g.login.Path)
		}
		return Allow()
	}

	if to == g.login || to == g.register {
		if _, err := g.principals.CurrentAuthenticatedUser(ctx); err != nil {
			return Allow()
		}
		g.logger.Debug("already signed in, redirecting to profile",
			zap.String("to", to.Path),
			zap.String("from", intent.From))
		return RedirectTo(g.profile.Path)
	}

	return Allow()
}
