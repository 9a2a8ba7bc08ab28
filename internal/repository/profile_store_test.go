package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictora/billing-api/internal/domain"
)

func newTestStore(t *testing.T) ProfileStore {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "billing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db))
	return NewSQLiteProfileStore(db)
}

func TestProfileStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, domain.Profile{Email: "new@user.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, id, "a profile id should be generated when none is given")

	byEmail, err := store.GetByEmail(ctx, "new@user.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, id, byEmail.ID)
	assert.False(t, byEmail.IsPremium)
	assert.Empty(t, byEmail.StripeCustomerID)

	byID, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "new@user.com", byID.Email)

	missing, err := store.GetByEmail(ctx, "nobody@user.com")
	require.NoError(t, err)
	assert.Nil(t, missing, "a missing profile is nil, not an error")
}

func TestProfileStore_SetStripeCustomerID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, domain.Profile{Email: "x@y.com"})
	require.NoError(t, err)

	updated, err := store.SetStripeCustomerID(ctx, "x@y.com", "cus_first", "")
	require.NoError(t, err)
	assert.True(t, updated)

	// A concurrent first-time write loses: the condition no longer holds.
	updated, err = store.SetStripeCustomerID(ctx, "x@y.com", "cus_second", "")
	require.NoError(t, err)
	assert.False(t, updated)

	p, err := store.GetByEmail(ctx, "x@y.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_first", p.StripeCustomerID)

	// Replacing a known stale id is allowed when the caller observed it.
	updated, err = store.SetStripeCustomerID(ctx, "x@y.com", "cus_fresh", "cus_first")
	require.NoError(t, err)
	assert.True(t, updated)

	p, err = store.GetByEmail(ctx, "x@y.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_fresh", p.StripeCustomerID)
}

func TestProfileStore_SetPremium(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, domain.Profile{Email: "x@y.com"})
	require.NoError(t, err)

	updated, err := store.SetPremium(ctx, "x@y.com", true)
	require.NoError(t, err)
	assert.True(t, updated)

	// Idempotent: repeating the write is safe.
	updated, err = store.SetPremium(ctx, "x@y.com", true)
	require.NoError(t, err)
	assert.True(t, updated)

	p, err := store.GetByEmail(ctx, "x@y.com")
	require.NoError(t, err)
	assert.True(t, p.IsPremium)

	updated, err = store.SetPremium(ctx, "nobody@y.com", true)
	require.NoError(t, err)
	assert.False(t, updated, "no profile matched")
}
