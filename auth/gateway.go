package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/academy-portal/credentials"
	apperrors "github.com/jrsteele09/academy-portal/internal/errors"
	"github.com/jrsteele09/academy-portal/internal/metrics"
	"github.com/jrsteele09/academy-portal/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Gateway is the per-role entry point pages use to store, inspect and drop a session.
// P is the role's principal type.
type Gateway[P any] struct {
	role      users.RoleType
	store     CredentialStore
	validator *Validator
}

// NewGateway binds a role to a store. A nil validator uses the wall clock.
func NewGateway[P any](role users.RoleType, store CredentialStore, validator *Validator) *Gateway[P] {
	if validator == nil {
		validator = NewValidator()
	}
	return &Gateway[P]{
		role:      role,
		store:     store,
		validator: validator,
	}
}

func (g *Gateway[P]) Role() users.RoleType {
	return g.role
}

// maxExpiresIn caps expires_in, in seconds, so the stored expiry stays within int64 millis.
const maxExpiresIn = 100 * 365 * 24 * 60 * 60

// loginResponse is the part of the backend's login response every role shares. The
// principal sits under a role-specific key and is pulled out separately.
type loginResponse struct {
	AccessToken any `json:"access_token"`
	TokenType   any `json:"token_type"`
	ExpiresIn   any `json:"expires_in"`
}

// StoreLoginData persists a successful login response and returns the role's principal.
// The body must hold a non-empty access_token and a principal object under the role's
// response key; anything else is rejected with ErrInvalidServerResponse and nothing is
// written.
func (g *Gateway[P]) StoreLoginData(ctx context.Context, body []byte) (*P, error) {
	principal, record, err := g.parseLoginResponse(body)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(string(g.role), "rejected").Inc()
		return nil, err
	}

	if err := g.store.Write(ctx, g.role, record); err != nil {
		metrics.LoginsTotal.WithLabelValues(string(g.role), "error").Inc()
		return nil, apperrors.Wrapf(err, "store %s login", g.role)
	}

	metrics.LoginsTotal.WithLabelValues(string(g.role), "ok").Inc()
	log.Ctx(ctx).Info().Str("role", string(g.role)).Msg("Session stored")
	return principal, nil
}

func (g *Gateway[P]) parseLoginResponse(body []byte) (*P, *credentials.Record, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{apperrors.ErrInvalidServerResponse}, args...)...)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, nil, invalid("body is not a JSON object")
	}

	var resp loginResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, nil, invalid("%v", err)
	}

	accessToken, _ := resp.AccessToken.(string)
	if strings.TrimSpace(accessToken) == "" {
		return nil, nil, invalid("missing access_token")
	}

	rawPrincipal := fields[g.role.ResponseKey()]
	if !users.IsObject(rawPrincipal) {
		return nil, nil, invalid("missing %q object", g.role.ResponseKey())
	}

	principal := new(P)
	if err := json.Unmarshal(rawPrincipal, principal); err != nil {
		return nil, nil, invalid("decode %s: %v", g.role.ResponseKey(), err)
	}
	if identity, ok := users.Identity(rawPrincipal); ok && identity.Role != "" && !g.role.Matches(identity.Role) {
		return nil, nil, fmt.Errorf("%w: %w: principal is %q", apperrors.ErrInvalidServerResponse, apperrors.ErrRoleMismatch, identity.Role)
	}

	record := &credentials.Record{
		AccessToken: accessToken,
		TokenType:   credentials.DefaultTokenType,
		Principal:   rawPrincipal,
	}
	if tokenType, ok := resp.TokenType.(string); ok && tokenType != "" {
		record.TokenType = tokenType
	}
	if n, ok := resp.ExpiresIn.(json.Number); ok {
		if f, err := n.Float64(); err == nil && f > 0 {
			f = min(f, maxExpiresIn)
			record.ExpiresIn = int64(f)
			record.ExpiresAt = g.validator.Now().UnixMilli() + int64(f*1000)
		}
	}
	return principal, record, nil
}

// Check validates the session. It never panics: a failure inside the check reads as an
// invalid session.
func (g *Gateway[P]) Check(ctx context.Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Error().Str("role", string(g.role)).Interface("panic", r).Msg("Session check failed")
			result = Result{Reason: ReasonCheckFailed}
		}
	}()
	return g.validator.Validate(ctx, g.store, g.role)
}

func (g *Gateway[P]) IsAuthenticated(ctx context.Context) bool {
	return g.Check(ctx).Valid
}

// GetUser returns the principal of a valid session, or nil.
func (g *Gateway[P]) GetUser(ctx context.Context) *P {
	result := g.Check(ctx)
	if !result.Valid {
		return nil
	}
	principal := new(P)
	if err := json.Unmarshal(result.Record.Principal, principal); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("role", string(g.role)).Msg("Stored principal does not decode")
		return nil
	}
	return principal
}

// AuthHeaders returns the Authorization header for a valid session, or an empty header, so
// callers can merge it into any request unconditionally.
func (g *Gateway[P]) AuthHeaders(ctx context.Context) http.Header {
	headers := http.Header{}
	result := g.Check(ctx)
	if !result.Valid {
		return headers
	}
	headers.Set("Authorization", "Bearer "+result.Record.AccessToken)
	return headers
}

// TokenSource exposes the session to golang.org/x/oauth2 transports.
func (g *Gateway[P]) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, check: g.Check, role: g.role}
}

// ClearAuthData removes the role's session. Clearing an absent session succeeds.
func (g *Gateway[P]) ClearAuthData(ctx context.Context) error {
	if err := g.store.Clear(ctx, g.role); err != nil {
		return apperrors.Wrapf(err, "clear %s session", g.role)
	}
	return nil
}

// Logout is ClearAuthData under the name pages use.
func (g *Gateway[P]) Logout(ctx context.Context) error {
	if err := g.ClearAuthData(ctx); err != nil {
		return err
	}
	metrics.SessionClearsTotal.WithLabelValues(string(g.role), "logout").Inc()
	log.Ctx(ctx).Info().Str("role", string(g.role)).Msg("Logged out")
	return nil
}

// StoreLogin is StoreLoginData without the principal's static type.
func (g *Gateway[P]) StoreLogin(ctx context.Context, body []byte) (any, error) {
	principal, err := g.StoreLoginData(ctx, body)
	if err != nil {
		return nil, err
	}
	return principal, nil
}

// User is GetUser without the principal's static type. It returns nil, not a typed nil
// pointer, when there is no valid session.
func (g *Gateway[P]) User(ctx context.Context) any {
	if principal := g.GetUser(ctx); principal != nil {
		return principal
	}
	return nil
}

type sessionTokenSource struct {
	ctx   context.Context
	check func(context.Context) Result
	role  users.RoleType
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	result := s.check(s.ctx)
	if !result.Valid {
		return nil, fmt.Errorf("%s session: %w (%s)", s.role, apperrors.ErrNotAuthenticated, result.Reason)
	}
	return &oauth2.Token{
		AccessToken: result.Record.AccessToken,
		TokenType:   "Bearer",
		Expiry:      result.Record.Expiry(),
	}, nil
}
