// Package backendtest holds the behaviour every credentials.Backend must satisfy, shared by
// the backend packages' tests.
package backendtest

import (
	"context"
	"testing"

	"github.com/jrsteele09/academy-portal/credentials"
	"github.com/stretchr/testify/require"
)

// Run exercises backend against the Backend contract. The backend must start empty.
func Run(t *testing.T, backend credentials.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing keys", func(t *testing.T) {
		found, err := backend.Load(ctx, []string{"missing:a", "missing:b"})
		require.NoError(t, err)
		require.Empty(t, found)
	})

	t.Run("load no keys", func(t *testing.T) {
		found, err := backend.Load(ctx, nil)
		require.NoError(t, err)
		require.Empty(t, found)
	})

	t.Run("replace writes values", func(t *testing.T) {
		err := backend.Replace(ctx, nil, map[string]string{"r:a": "1", "r:b": "2"})
		require.NoError(t, err)

		found, err := backend.Load(ctx, []string{"r:a", "r:b", "r:c"})
		require.NoError(t, err)
		require.Equal(t, map[string]string{"r:a": "1", "r:b": "2"}, found)
	})

	t.Run("replace deletes then writes", func(t *testing.T) {
		err := backend.Replace(ctx, []string{"r:a", "r:b"}, map[string]string{"r:a": "3"})
		require.NoError(t, err)

		found, err := backend.Load(ctx, []string{"r:a", "r:b"})
		require.NoError(t, err)
		require.Equal(t, map[string]string{"r:a": "3"}, found)
	})

	t.Run("replace with only deletes", func(t *testing.T) {
		require.NoError(t, backend.Replace(ctx, []string{"r:a"}, nil))
		require.NoError(t, backend.Replace(ctx, []string{"r:a"}, nil))

		found, err := backend.Load(ctx, []string{"r:a"})
		require.NoError(t, err)
		require.Empty(t, found)
	})

	t.Run("other keys untouched", func(t *testing.T) {
		require.NoError(t, backend.Replace(ctx, nil, map[string]string{"x:keep": "k", "y:drop": "d"}))
		require.NoError(t, backend.Replace(ctx, []string{"y:drop"}, nil))

		found, err := backend.Load(ctx, []string{"x:keep", "y:drop"})
		require.NoError(t, err)
		require.Equal(t, map[string]string{"x:keep": "k"}, found)
	})

	t.Run("values round trip verbatim", func(t *testing.T) {
		value := `{"id":"c1","full_name":"Ōshiro \"Sensei\""}`
		require.NoError(t, backend.Replace(ctx, nil, map[string]string{"v:json": value}))

		found, err := backend.Load(ctx, []string{"v:json"})
		require.NoError(t, err)
		require.Equal(t, value, found["v:json"])
	})
}
