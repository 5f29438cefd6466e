package otpflow

import (
	"context"
	"fmt"
	"strings"
)

// ResolveRole returns the role to route with. A success payload without a
// role is treated as a regular user.
func ResolveRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "":
		return RoleUser
	case strings.ToLower(RoleExpert):
		return RoleExpert
	case strings.ToLower(RoleUser):
		return RoleUser
	default:
		return strings.TrimSpace(role)
	}
}

// LandingRoute maps a role to its home screen. Unknown roles land on the
// user home.
func LandingRoute(role string) string {
	if ResolveRole(role) == RoleExpert {
		return RouteExpertHome
	}
	return RouteUserHome
}

// UpstreamRoute is the screen that originates the identity for a variant
func UpstreamRoute(v Variant) string {
	if v == VariantPasswordReset {
		return RouteForgotPassword
	}
	return RouteRegister
}

// Router turns outcomes into persistence and navigation
type Router struct {
	nav      Navigator
	sessions SessionStore
}

// NewRouter creates a router
func NewRouter(nav Navigator, sessions SessionStore) *Router {
	return &Router{nav: nav, sessions: sessions}
}

// OnOutcome routes a dispatcher outcome. Only succeeded outcomes navigate.
func (r *Router) OnOutcome(ctx context.Context, o Outcome, identity Identity) error {
	if o.Status != OutcomeSucceeded {
		return nil
	}

	switch identity.Variant {
	case VariantPasswordReset:
		r.nav.Replace(RouteResetPassword, Params{
			"email":       identity.Email,
			"phone":       identity.Phone,
			"reset_token": o.Token,
		})
		return nil

	case VariantRegistration:
		role := ResolveRole(o.Role)
		if r.sessions != nil {
			if err := r.sessions.Set(ctx, SessionTokenKey, o.Token); err != nil {
				return fmt.Errorf("failed to persist session token: %w", err)
			}
			if err := r.sessions.Set(ctx, SessionRoleKey, role); err != nil {
				return fmt.Errorf("failed to persist session role: %w", err)
			}
		}
		r.nav.Replace(LandingRoute(role), Params{"role": role})
		return nil

	default:
		return fmt.Errorf("unknown flow variant %q", identity.Variant)
	}
}

// RedirectUpstream sends the user back to where the identity comes from
func (r *Router) RedirectUpstream(v Variant) {
	r.nav.Replace(UpstreamRoute(v), nil)
}
