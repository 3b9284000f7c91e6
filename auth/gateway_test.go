package auth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/academy-portal/auth"
	"github.com/jrsteele09/academy-portal/credentials"
	apperrors "github.com/jrsteele09/academy-portal/internal/errors"
	"github.com/jrsteele09/academy-portal/users"
	"github.com/stretchr/testify/require"
)

func loginBody(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(fields)
	require.NoError(t, err)
	return body
}

func TestGateway_CoachSessionExpiresWithToken(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	token := signedToken(t, jwtlib.MapClaims{"sub": "c1", "role": "coach", "exp": testEpoch.Add(3600 * time.Second).Unix()})
	coach, err := f.portal.Coach.StoreLoginData(ctx, loginBody(t, map[string]any{
		"access_token": token,
		"coach":        map[string]any{"id": "c1", "full_name": "X"},
	}))
	require.NoError(t, err)
	require.Equal(t, users.ID("c1"), coach.ID)
	require.Equal(t, "X", coach.FullName)

	require.True(t, f.portal.Coach.IsAuthenticated(ctx))

	f.clock.Advance(3601 * time.Second)
	require.False(t, f.portal.Coach.IsAuthenticated(ctx))
	require.False(t, f.present(users.RoleCoach))
}

func TestGateway_StoreLoginData(t *testing.T) {
	ctx := context.Background()

	t.Run("caps huge expires_in", func(t *testing.T) {
		f := setupTestFixture(t)
		coach, err := f.portal.Coach.StoreLoginData(ctx, []byte(`{"access_token":"opaque","expires_in":1e19,"coach":{"id":"c1"}}`))
		require.NoError(t, err)
		require.Equal(t, users.ID("c1"), coach.ID)

		record, ok := f.store.Read(ctx, users.RoleCoach)
		require.True(t, ok)
		require.Positive(t, record.ExpiresAt)
		require.Greater(t, record.ExpiresAt, testEpoch.AddDate(99, 0, 0).UnixMilli())
		require.True(t, f.portal.Coach.IsAuthenticated(ctx))
	})

	t.Run("computes absolute expiry", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.portal.Student.StoreLoginData(ctx, []byte(`{
			"access_token": "opaque",
			"token_type": "bearer",
			"expires_in": 900,
			"user": {"id": 12, "full_name": "Aiko", "branch_id": 3, "belt": "blue"}
		}`))
		require.NoError(t, err)

		record, ok := f.store.Read(ctx, users.RoleStudent)
		require.True(t, ok)
		require.Equal(t, "bearer", record.TokenType)
		require.Equal(t, int64(900), record.ExpiresIn)
		require.Equal(t, testEpoch.Add(900*time.Second).UnixMilli(), record.ExpiresAt)

		student := f.portal.Student.GetUser(ctx)
		require.NotNil(t, student)
		require.Equal(t, users.ID("12"), student.ID)
		require.Equal(t, users.ID("3"), student.BranchID)
		require.Equal(t, "blue", student.Belt)

		f.clock.Advance(901 * time.Second)
		require.False(t, f.portal.Student.IsAuthenticated(ctx))
		require.Nil(t, f.portal.Student.GetUser(ctx))
	})

	t.Run("without expires_in never expires by timestamp", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.portal.SuperAdmin.StoreLoginData(ctx, []byte(`{"access_token":"opaque","admin":{"id":"a1","permissions":["all"]}}`))
		require.NoError(t, err)

		record, ok := f.store.Read(ctx, users.RoleSuperAdmin)
		require.True(t, ok)
		require.Equal(t, "Bearer", record.TokenType)
		require.False(t, record.HasExpiry())

		f.clock.Advance(365 * 24 * time.Hour)
		admin := f.portal.SuperAdmin.GetUser(ctx)
		require.NotNil(t, admin)
		require.Equal(t, []string{"all"}, admin.Permissions)
	})

	rejected := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"not json", `<html>502</html>`},
		{"array", `[]`},
		{"null", `null`},
		{"missing token", `{"coach":{"id":"c1"}}`},
		{"empty token", `{"access_token":"","coach":{"id":"c1"}}`},
		{"token not a string", `{"access_token":42,"coach":{"id":"c1"}}`},
		{"missing principal", `{"access_token":"tok"}`},
		{"principal under another role's key", `{"access_token":"tok","user":{"id":"c1"}}`},
		{"principal not an object", `{"access_token":"tok","coach":"c1"}`},
		{"principal does not decode", `{"access_token":"tok","coach":{"id":false}}`},
		{"principal names another role", `{"access_token":"tok","coach":{"id":"c1","role":"student"}}`},
	}
	for _, tt := range rejected {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			principal, err := f.portal.Coach.StoreLoginData(ctx, []byte(tt.body))
			require.ErrorIs(t, err, apperrors.ErrInvalidServerResponse)
			require.Nil(t, principal)
			require.Empty(t, f.backend.Keys())
		})
	}

	t.Run("storage unavailable", func(t *testing.T) {
		f := setupTestFixture(t)
		f.backend.SetUnavailable(true)

		_, err := f.portal.Coach.StoreLoginData(ctx, []byte(`{"access_token":"tok","coach":{"id":"c1"}}`))
		require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
		require.False(t, f.portal.Coach.IsAuthenticated(ctx))
	})
}

func TestGateway_AuthHeaders(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	require.Empty(t, f.portal.Coach.AuthHeaders(ctx))

	_, err := f.portal.Coach.StoreLoginData(ctx, []byte(`{"access_token":"tok-123","token_type":"bearer","coach":{"id":"c1"}}`))
	require.NoError(t, err)

	headers := f.portal.Coach.AuthHeaders(ctx)
	require.Len(t, headers, 1)
	require.Len(t, headers.Values("Authorization"), 1)
	require.True(t, strings.HasPrefix(headers.Get("Authorization"), "Bearer "))
	require.Equal(t, "Bearer tok-123", headers.Get("Authorization"))

	// Headers merge into a request unconditionally
	req, err := http.NewRequest(http.MethodGet, "http://api.test/courses", nil)
	require.NoError(t, err)
	for k, v := range f.portal.Student.AuthHeaders(ctx) {
		req.Header[k] = v
	}
	require.Empty(t, req.Header.Get("Authorization"))
}

func TestGateway_ClearAndLogout(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	for _, session := range f.portal.Sessions() {
		t.Run(string(session.Role()), func(t *testing.T) {
			body := fmt.Sprintf(`{"access_token":"tok","%s":{"id":"p1"}}`, session.Role().ResponseKey())
			_, err := session.StoreLogin(ctx, []byte(body))
			require.NoError(t, err)
			require.True(t, session.IsAuthenticated(ctx))

			require.NoError(t, session.ClearAuthData(ctx))
			require.False(t, session.IsAuthenticated(ctx))
			require.False(t, f.present(session.Role()))
			require.Nil(t, session.User(ctx))

			// Safe without a session
			require.NoError(t, session.Logout(ctx))
			require.NoError(t, session.ClearAuthData(ctx))
		})
	}

	t.Run("clear reports storage failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.backend.SetUnavailable(true)
		require.ErrorIs(t, f.portal.Coach.Logout(ctx), apperrors.ErrStorageUnavailable)
	})
}

func TestGateway_RolesAreIsolated(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	_, err := f.portal.Student.StoreLoginData(ctx, []byte(`{"access_token":"s-tok","user":{"id":"s1"}}`))
	require.NoError(t, err)
	_, err = f.portal.Coach.StoreLoginData(ctx, []byte(`{"access_token":"c-tok","coach":{"id":"c1"}}`))
	require.NoError(t, err)

	require.NoError(t, f.portal.Student.Logout(ctx))

	require.False(t, f.portal.Student.IsAuthenticated(ctx))
	require.True(t, f.portal.Coach.IsAuthenticated(ctx))
	require.Equal(t, "Bearer c-tok", f.portal.Coach.AuthHeaders(ctx).Get("Authorization"))
}

func TestGateway_NeverPanics(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	store := &flakyStore{CredentialStore: f.store, panicOnRead: true}
	gateway := auth.NewGateway[users.Coach](users.RoleCoach, store, f.validator)

	require.NotPanics(t, func() {
		require.False(t, gateway.IsAuthenticated(ctx))
		require.Nil(t, gateway.GetUser(ctx))
		require.Empty(t, gateway.AuthHeaders(ctx))
	})
	require.Equal(t, auth.ReasonCheckFailed, gateway.Check(ctx).Reason)
}

func TestGateway_TokenSource(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	_, err := f.portal.BranchManager.TokenSource(ctx).Token()
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	f.writeRecord(t, users.RoleBranchManager, &credentials.Record{
		AccessToken: "bm-tok",
		TokenType:   "bearer",
		ExpiresAt:   testEpoch.Add(time.Hour).UnixMilli(),
		Principal:   json.RawMessage(`{"id":"bm1","branch_name":"Shibuya"}`),
	})

	token, err := f.portal.BranchManager.TokenSource(ctx).Token()
	require.NoError(t, err)
	require.Equal(t, "bm-tok", token.AccessToken)
	require.Equal(t, "Bearer", token.Type())
	require.Equal(t, testEpoch.Add(time.Hour).UnixMilli(), token.Expiry.UnixMilli())

	manager := f.portal.BranchManager.GetUser(ctx)
	require.Equal(t, "Shibuya", manager.BranchName)
}

func TestPortal_Session(t *testing.T) {
	f := setupTestFixture(t)

	for _, role := range users.Roles {
		session, err := f.portal.Session(role)
		require.NoError(t, err)
		require.Equal(t, role, session.Role())
	}

	_, err := f.portal.Session(users.RoleType("parent"))
	require.ErrorIs(t, err, apperrors.ErrUnknownRole)

	sessions := f.portal.Sessions()
	require.Len(t, sessions, len(users.Roles))
	for i, session := range sessions {
		require.Equal(t, users.Roles[i], session.Role())
	}
}

func TestNewGateway_DefaultValidator(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	gateway := auth.NewGateway[users.Coach](users.RoleCoach, f.store, nil)

	_, err := gateway.StoreLoginData(ctx, []byte(`{"access_token":"tok","expires_in":60,"coach":{"id":"c1"}}`))
	require.NoError(t, err)
	require.True(t, gateway.IsAuthenticated(ctx))
}
