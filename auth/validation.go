package auth

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/academy-portal/credentials"
	"github.com/jrsteele09/academy-portal/internal/metrics"
	"github.com/jrsteele09/academy-portal/token/jwt"
	"github.com/jrsteele09/academy-portal/users"
	"github.com/rs/zerolog/log"
)

// CredentialStore is the persistence the validator and gateways work against.
// *credentials.Store is the production implementation.
type CredentialStore interface {
	Write(ctx context.Context, role users.RoleType, record *credentials.Record) error
	Read(ctx context.Context, role users.RoleType) (*credentials.Record, bool)
	Clear(ctx context.Context, role users.RoleType) error
}

// Reason explains why a session is not usable.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNoToken          Reason = "no token"
	ReasonTokenExpired     Reason = "token expired"
	ReasonRoleMismatch     Reason = "role mismatch"
	ReasonExpired          Reason = "expired"
	ReasonMalformedSession Reason = "malformed session"
	ReasonCheckFailed      Reason = "check failed"
)

// label is the metric label form of the reason.
func (r Reason) label() string {
	if r == ReasonNone {
		return "valid"
	}
	return strings.ReplaceAll(string(r), " ", "_")
}

// Result is the outcome of a session validation. Record is set only when Valid.
type Result struct {
	Valid  bool
	Reason Reason
	Record *credentials.Record
}

// Validator decides whether a role's stored session is usable right now.
type Validator struct {
	now func() time.Time
}

type ValidatorOption func(*Validator)

// WithClock replaces time.Now, letting tests move time forward.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator creates a new Validator instance
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Now returns the validator's notion of the current time.
func (v *Validator) Now() time.Time {
	return v.now()
}

// Validate runs the session checks in order, stopping at the first failure:
//  1. no stored record
//  2. the token's own exp claim has passed
//  3. the token's role claim names another role
//  4. without a token exp: the stored expiry has passed. Without a token role: the stored
//     principal names another role
//  5. the stored principal has no id
//
// Failures 2 to 4 also clear the stored session. The token is decoded, never verified.
func (v *Validator) Validate(ctx context.Context, store CredentialStore, role users.RoleType) Result {
	result := v.validate(ctx, store, role)
	metrics.SessionChecksTotal.WithLabelValues(string(role), result.Reason.label()).Inc()
	return result
}

func (v *Validator) validate(ctx context.Context, store CredentialStore, role users.RoleType) Result {
	record, ok := store.Read(ctx, role)
	if !ok {
		return Result{Reason: ReasonNoToken}
	}

	now := v.now()
	payload, decoded := jwt.Decode(record.AccessToken)

	if decoded && payload.Expired(now) {
		return v.invalidate(ctx, store, role, ReasonTokenExpired)
	}

	if decoded && payload.Role != nil && !role.Matches(*payload.Role) {
		return v.invalidate(ctx, store, role, ReasonRoleMismatch)
	}

	identity, identified := users.Identity(record.Principal)

	if (!decoded || payload.Exp == nil) && record.HasExpiry() && record.ExpiresAt < now.UnixMilli() {
		return v.invalidate(ctx, store, role, ReasonExpired)
	}

	if (!decoded || payload.Role == nil) && identified && identity.Role != "" && !role.Matches(identity.Role) {
		return v.invalidate(ctx, store, role, ReasonRoleMismatch)
	}

	if !identified || identity.ID == "" {
		return Result{Reason: ReasonMalformedSession}
	}

	return Result{Valid: true, Record: record}
}

func (v *Validator) invalidate(ctx context.Context, store CredentialStore, role users.RoleType, reason Reason) Result {
	log.Ctx(ctx).Warn().Str("role", string(role)).Str("reason", string(reason)).Msg("Clearing invalid session")
	metrics.SessionClearsTotal.WithLabelValues(string(role), reason.label()).Inc()

	if err := store.Clear(ctx, role); err != nil {
		log.Ctx(ctx).Err(err).Str("role", string(role)).Msg("Failed to clear invalid session")
	}
	return Result{Reason: reason}
}
