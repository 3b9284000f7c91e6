package memstore_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/academy-portal/credentials/backendtest"
	"github.com/jrsteele09/academy-portal/credentials/memstore"
	"github.com/stretchr/testify/require"
)

func TestMemStoreBackend(t *testing.T) {
	backendtest.Run(t, memstore.New())
}

func TestMemStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	m := memstore.New()
	m.SetUnavailable(true)

	_, err := m.Load(ctx, []string{"a"})
	require.Error(t, err)
	require.Error(t, m.Replace(ctx, nil, map[string]string{"a": "1"}))

	m.SetUnavailable(false)
	found, err := m.Load(ctx, []string{"a"})
	require.NoError(t, err)
	require.Empty(t, found)
}
