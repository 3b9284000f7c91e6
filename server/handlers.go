package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/academy-portal/auth"
	apperrors "github.com/jrsteele09/academy-portal/internal/errors"
	"github.com/jrsteele09/academy-portal/users"
	"github.com/rs/zerolog/log"
)

const maxLoginBodyBytes = 1 << 20

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Redirect    string `json:"redirect,omitempty"`
}

type sessionResponse struct {
	Role      users.RoleType `json:"role"`
	User      any            `json:"user"`
	Dashboard string         `json:"dashboard"`
}

type pageResponse struct {
	Page string          `json:"page"`
	Role users.RoleType  `json:"role"`
	User json.RawMessage `json:"user,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

// HealthHandler reports liveness
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// LoginPageHandler describes the role's login page. A device already signed in as the role
// goes straight to its dashboard.
func (s *Server) LoginPageHandler(role users.RoleType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if scope, ok := s.deviceScope(r); ok {
			if session, err := s.portal(scope).Session(role); err == nil && session.IsAuthenticated(r.Context()) {
				http.Redirect(w, r, role.DashboardRoute(), http.StatusSeeOther)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"page":    "login",
			"role":    string(role),
			"session": RouteAPISession(role),
		})
	}
}

// SessionCreateHandler stores the backend's login response for role. The body is the
// response exactly as the REST backend returned it.
func (s *Server) SessionCreateHandler(role users.RoleType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "invalid_request", Description: "login response too large"})
			return
		}

		scope := s.ensureDevice(w, r)
		session, err := s.portal(scope).Session(role)
		if err != nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown_role"})
			return
		}

		principal, err := session.StoreLogin(ctx, body)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, sessionResponse{Role: role, User: principal, Dashboard: role.DashboardRoute()})
		case apperrors.Is(err, apperrors.ErrInvalidServerResponse), apperrors.Is(err, apperrors.ErrMalformedRecord):
			log.Ctx(ctx).Warn().Err(err).Str("role", string(role)).Msg("Rejected login response")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_server_response", Description: err.Error()})
		case apperrors.Is(err, apperrors.ErrStorageUnavailable):
			log.Ctx(ctx).Err(err).Str("role", string(role)).Msg("Failed to store session")
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage_unavailable"})
		default:
			log.Ctx(ctx).Err(err).Str("role", string(role)).Msg("Failed to store session")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
		}
	}
}

// SessionGetHandler returns the role's principal, or 401 with the reason the session is not
// usable.
func (s *Server) SessionGetHandler(role users.RoleType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unauthorized := errorResponse{Error: "unauthorized", Reason: string(auth.ReasonNoToken), Redirect: role.LoginRoute()}

		scope, ok := s.deviceScope(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, unauthorized)
			return
		}
		session, err := s.portal(scope).Session(role)
		if err != nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown_role"})
			return
		}

		result := session.Check(r.Context())
		if !result.Valid {
			unauthorized.Reason = string(result.Reason)
			writeJSON(w, http.StatusUnauthorized, unauthorized)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			Role:      role,
			User:      json.RawMessage(result.Record.Principal),
			Dashboard: role.DashboardRoute(),
		})
	}
}

// LogoutHandler drops the role's session. It always answers 204, session or not.
func (s *Server) LogoutHandler(role users.RoleType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if scope, ok := s.deviceScope(r); ok {
			if session, err := s.portal(scope).Session(role); err == nil {
				if err := session.Logout(r.Context()); err != nil {
					log.Ctx(r.Context()).Err(err).Str("role", string(role)).Msg("Logout: failed to clear session")
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DashboardHandler is a guarded page. Rendering lives in the frontend; the portal only
// hands over the principal.
func (s *Server) DashboardHandler(role users.RoleType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, pageResponse{
			Page: "dashboard",
			Role: role,
			User: principalFromContext(r.Context()),
		})
	}
}

// ProxyHandler forwards a guarded request to the REST backend with the role's bearer token.
func (s *Server) ProxyHandler(role users.RoleType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, ok := sessionFromContext(ctx)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Redirect: role.LoginRoute()})
			return
		}

		header := http.Header{}
		for _, name := range []string{"Accept", "Content-Type"} {
			if v := r.Header.Get(name); v != "" {
				header.Set(name, v)
			}
		}

		resp, err := s.api.Do(ctx, session.TokenSource(ctx), r.Method, r.PathValue("path"), r.URL.RawQuery, r.Body, header)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotAuthenticated) {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Redirect: role.LoginRoute()})
				return
			}
			log.Ctx(ctx).Err(err).Str("role", string(role)).Msg("Upstream request failed")
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: "bad_gateway"})
			return
		}
		defer resp.Body.Close()

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Ctx(ctx).Err(err).Msg("Failed to relay upstream response")
		}
	}
}
