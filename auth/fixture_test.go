package auth_test

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/academy-portal/auth"
	"github.com/jrsteele09/academy-portal/credentials"
	"github.com/jrsteele09/academy-portal/credentials/memstore"
	"github.com/jrsteele09/academy-portal/users"
	"github.com/stretchr/testify/require"
)

const (
	testScope      = "device-under-test"
	testSigningKey = "not-verified-by-the-portal"
)

var testEpoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testFixture holds all test dependencies
type testFixture struct {
	backend   *memstore.MemStore
	store     *credentials.Store
	clock     *testClock
	validator *auth.Validator
	portal    *auth.Portal
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := memstore.New()
	store := credentials.NewStore(backend, testScope)
	clock := &testClock{now: testEpoch}
	validator := auth.NewValidator(auth.WithClock(clock.Now))

	return &testFixture{
		backend:   backend,
		store:     store,
		clock:     clock,
		validator: validator,
		portal:    auth.NewPortal(store, validator),
	}
}

// writeRecord stores a record directly, bypassing the gateway.
func (f *testFixture) writeRecord(t *testing.T, role users.RoleType, record *credentials.Record) {
	t.Helper()
	require.NoError(t, f.store.Write(context.Background(), role, record))
}

// present reports whether any record is stored for role.
func (f *testFixture) present(role users.RoleType) bool {
	_, ok := f.store.Read(context.Background(), role)
	return ok
}

// signedToken mints an HS256 token. The portal only decodes it.
func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return token
}

// unsignedToken builds a three part token around an arbitrary payload.
func unsignedToken(payload string) string {
	return "eyJhbGciOiJub25lIn0." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + "."
}

// flakyStore wraps a CredentialStore to count clears, fail them, or panic on read.
type flakyStore struct {
	auth.CredentialStore
	clears      int
	failClear   bool
	panicOnRead bool
}

func (s *flakyStore) Read(ctx context.Context, role users.RoleType) (*credentials.Record, bool) {
	if s.panicOnRead {
		panic("storage exploded")
	}
	return s.CredentialStore.Read(ctx, role)
}

func (s *flakyStore) Clear(ctx context.Context, role users.RoleType) error {
	s.clears++
	if s.failClear {
		return errors.New("clear refused")
	}
	return s.CredentialStore.Clear(ctx, role)
}
