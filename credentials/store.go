package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/academy-portal/internal/errors"
	"github.com/jrsteele09/academy-portal/users"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "academy"

// Field names of a persisted session. Each is stored under its own key.
const (
	FieldAccessToken = "access_token"
	FieldTokenType   = "token_type"
	FieldExpiresIn   = "expires_in"
	FieldExpiresAt   = "expires_at"
	FieldPrincipal   = "principal"
)

// Fields lists every key a session record may occupy.
var Fields = []string{FieldAccessToken, FieldTokenType, FieldExpiresIn, FieldExpiresAt, FieldPrincipal}

// DefaultTokenType is assumed when the backend does not name one.
const DefaultTokenType = "Bearer"

// Record is the persisted session of one role.
type Record struct {
	AccessToken string          // Bearer credential, opaque or JWT
	TokenType   string          // Usually "Bearer"
	ExpiresIn   int64           // Lifetime in seconds as sent by the backend, 0 if unknown
	ExpiresAt   int64           // Absolute expiry in Unix milliseconds, 0 if unknown
	Principal   json.RawMessage // Role-specific profile object
}

// HasExpiry reports whether an absolute expiry was recorded.
func (r *Record) HasExpiry() bool {
	return r.ExpiresAt > 0
}

// Expiry returns the absolute expiry, or the zero time when none was recorded.
func (r *Record) Expiry() time.Time {
	if !r.HasExpiry() {
		return time.Time{}
	}
	return time.UnixMilli(r.ExpiresAt)
}

func (r *Record) validate() error {
	if r == nil {
		return fmt.Errorf("nil record: %w", apperrors.ErrMalformedRecord)
	}
	if strings.TrimSpace(r.AccessToken) == "" {
		return fmt.Errorf("missing access token: %w", apperrors.ErrMalformedRecord)
	}
	if !users.IsObject(r.Principal) {
		return fmt.Errorf("principal is not an object: %w", apperrors.ErrMalformedRecord)
	}
	if r.ExpiresIn < 0 || r.ExpiresAt < 0 {
		return fmt.Errorf("negative expiry: %w", apperrors.ErrMalformedRecord)
	}
	return nil
}

// Store persists session records namespaced by role within one scope. A scope plays the
// part of a single browser's local storage: every device gets its own.
type Store struct {
	backend Backend
	scope   string
}

// NewStore binds a backend to a scope. An empty scope is allowed. A nil backend behaves as
// unavailable storage.
func NewStore(backend Backend, scope string) *Store {
	return &Store{
		backend: backend,
		scope:   scope,
	}
}

// Scope returns the namespace this store writes under.
func (s *Store) Scope() string {
	return s.scope
}

// Key returns the storage key for one field of a role's record.
func Key(scope string, role users.RoleType, field string) string {
	if scope == "" {
		return keyPrefix + ":" + string(role) + ":" + field
	}
	return keyPrefix + ":" + scope + ":" + string(role) + ":" + field
}

func (s *Store) keys(role users.RoleType) []string {
	keys := make([]string, 0, len(Fields))
	for _, field := range Fields {
		keys = append(keys, Key(s.scope, role, field))
	}
	return keys
}

// Write replaces the role's record. Either every field is written or nothing changes; a
// nil error is the only confirmation that the record was persisted.
func (s *Store) Write(ctx context.Context, role users.RoleType, record *Record) error {
	if !role.Valid() {
		return fmt.Errorf("write session %q: %w", role, apperrors.ErrUnknownRole)
	}
	if err := record.validate(); err != nil {
		return fmt.Errorf("write %s session: %w", role, err)
	}
	if s.backend == nil {
		return fmt.Errorf("write %s session: %w", role, apperrors.ErrStorageUnavailable)
	}

	tokenType := record.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	values := map[string]string{
		Key(s.scope, role, FieldAccessToken): record.AccessToken,
		Key(s.scope, role, FieldTokenType):   tokenType,
		Key(s.scope, role, FieldPrincipal):   string(record.Principal),
	}
	if record.ExpiresIn > 0 {
		values[Key(s.scope, role, FieldExpiresIn)] = strconv.FormatInt(record.ExpiresIn, 10)
	}
	if record.ExpiresAt > 0 {
		values[Key(s.scope, role, FieldExpiresAt)] = strconv.FormatInt(record.ExpiresAt, 10)
	}

	if err := s.backend.Replace(ctx, s.keys(role), values); err != nil {
		return fmt.Errorf("write %s session: %w: %w", role, apperrors.ErrStorageUnavailable, err)
	}
	return nil
}

// Read returns the role's record. Anything short of a complete, parseable record reads as
// absent; failures are logged, never returned.
func (s *Store) Read(ctx context.Context, role users.RoleType) (*Record, bool) {
	if s.backend == nil || !role.Valid() {
		return nil, false
	}

	values, err := s.backend.Load(ctx, s.keys(role))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("role", string(role)).Msg("Credential storage unavailable")
		return nil, false
	}
	if len(values) == 0 {
		return nil, false
	}

	record, err := s.decode(role, values)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("role", string(role)).Msg("Ignoring corrupt session record")
		return nil, false
	}
	return record, true
}

func (s *Store) decode(role users.RoleType, values map[string]string) (*Record, error) {
	record := &Record{
		AccessToken: values[Key(s.scope, role, FieldAccessToken)],
		TokenType:   values[Key(s.scope, role, FieldTokenType)],
		Principal:   json.RawMessage(values[Key(s.scope, role, FieldPrincipal)]),
	}
	if record.TokenType == "" {
		record.TokenType = DefaultTokenType
	}

	var err error
	if record.ExpiresIn, err = parseOptionalInt(values, Key(s.scope, role, FieldExpiresIn)); err != nil {
		return nil, err
	}
	if record.ExpiresAt, err = parseOptionalInt(values, Key(s.scope, role, FieldExpiresAt)); err != nil {
		return nil, err
	}
	if err := record.validate(); err != nil {
		return nil, err
	}
	return record, nil
}

func parseOptionalInt(values map[string]string, key string) (int64, error) {
	raw, ok := values[key]
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, apperrors.ErrMalformedRecord)
	}
	return n, nil
}

// Clear removes every key of the role's record. Clearing an absent record succeeds.
func (s *Store) Clear(ctx context.Context, role users.RoleType) error {
	if !role.Valid() {
		return fmt.Errorf("clear session %q: %w", role, apperrors.ErrUnknownRole)
	}
	if s.backend == nil {
		return fmt.Errorf("clear %s session: %w", role, apperrors.ErrStorageUnavailable)
	}
	if err := s.backend.Replace(ctx, s.keys(role), nil); err != nil {
		return fmt.Errorf("clear %s session: %w: %w", role, apperrors.ErrStorageUnavailable, err)
	}
	return nil
}
