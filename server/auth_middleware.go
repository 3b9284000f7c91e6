package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/academy-portal/auth"
	"github.com/jrsteele09/academy-portal/users"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyRole stores the role the page was guarded for
	ContextKeyRole ContextKey = "role"
	// ContextKeyPrincipal stores the raw principal JSON of the signed-in role
	ContextKeyPrincipal ContextKey = "principal"
	// ContextKeySession stores the role's auth.Session
	ContextKeySession ContextKey = "session"
)

// guardDecision is the outcome of a route guard check. When allowed is false the request
// goes to redirect instead.
type guardDecision struct {
	allowed   bool
	redirect  string
	session   auth.Session
	principal json.RawMessage
}

// checkRole decides whether the device may see a page of role. Signed in as role: allowed.
// Signed in as another role only: sent to that role's dashboard. Otherwise, or if anything
// goes wrong while checking: sent to the role's login page.
func (s *Server) checkRole(r *http.Request, role users.RoleType) (decision guardDecision) {
	ctx := r.Context()
	denied := guardDecision{redirect: role.LoginRoute()}

	defer func() {
		if rec := recover(); rec != nil {
			log.Ctx(ctx).Error().Interface("panic", rec).Str("role", string(role)).Msg("Route guard failed")
			decision = denied
		}
	}()

	scope, ok := s.deviceScope(r)
	if !ok {
		return denied
	}

	portal := s.portal(scope)
	session, err := portal.Session(role)
	if err != nil {
		log.Ctx(ctx).Err(err).Msg("Route guard for unknown role")
		return denied
	}

	if result := session.Check(ctx); result.Valid {
		return guardDecision{allowed: true, session: session, principal: result.Record.Principal}
	}

	// Checking the other roles runs their full validation, so their expired sessions are
	// cleared and counted here too.
	for _, other := range portal.Sessions() {
		if other.Role() == role {
			continue
		}
		if other.IsAuthenticated(ctx) {
			return guardDecision{redirect: other.Role().DashboardRoute()}
		}
	}
	return denied
}

func withGuardContext(r *http.Request, role users.RoleType, decision guardDecision) *http.Request {
	ctx := context.WithValue(r.Context(), ContextKeyRole, role)
	ctx = context.WithValue(ctx, ContextKeyPrincipal, decision.principal)
	ctx = context.WithValue(ctx, ContextKeySession, decision.session)
	return r.WithContext(ctx)
}

// RequireRole guards a page of role. Unauthorised visitors are redirected before anything
// of the page is written.
func (s *Server) RequireRole(role users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := s.checkRole(r, role)
			if !decision.allowed {
				http.Redirect(w, r, decision.redirect, http.StatusSeeOther)
				return
			}
			next(w, withGuardContext(r, role, decision))
		}
	}
}

// RequireRoleAPI guards an API route of role. Instead of redirecting it answers 401 and
// names the page the browser should go to.
func (s *Server) RequireRoleAPI(role users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := s.checkRole(r, role)
			if !decision.allowed {
				writeJSON(w, http.StatusUnauthorized, errorResponse{
					Error:    "unauthorized",
					Redirect: decision.redirect,
				})
				return
			}
			next(w, withGuardContext(r, role, decision))
		}
	}
}

func sessionFromContext(ctx context.Context) (auth.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(auth.Session)
	return session, ok && session != nil
}

func principalFromContext(ctx context.Context) json.RawMessage {
	principal, _ := ctx.Value(ContextKeyPrincipal).(json.RawMessage)
	return principal
}
