package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Runs against a disposable database named by POS_TEST_PG_DSN.
func TestPostgresStoreReplace(t *testing.T) {
	dsn := os.Getenv("POS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("POS_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	store := NewPostgresStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	_, err = pool.Exec(ctx, `DELETE FROM pos_catalog_mirror WHERE branch_id IN (901, 902)`)
	require.NoError(t, err)

	first := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Replace(ctx, 901, []Row{
		{SKU: "P1", Name: "Uno", Price: 1, SyncedAt: first},
		{SKU: "P2", Name: "Dos", Price: 2, SyncedAt: first},
	}))
	require.NoError(t, store.Replace(ctx, 901, []Row{{SKU: "P3", Name: "Tres", Price: 3, SyncedAt: first.Add(time.Second)}}))

	_, found, err := store.Lookup(ctx, "P1")
	require.NoError(t, err)
	assert.False(t, found)

	count, err := store.Count(ctx, 901)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.Replace(ctx, 902, []Row{{SKU: "P3", Name: "Tres B", Price: 4, SyncedAt: first.Add(2 * time.Second)}}))
	row, found, err := store.Lookup(ctx, "P3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(902), row.BranchID)
}
