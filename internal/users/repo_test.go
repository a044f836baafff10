//go:build integration_test || all_tests

package users

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/arnoldcano/analyzemyrun/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postgres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "analyzemyrun_tests",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func TestRepo_CreateAndGet(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	email := fmt.Sprintf("users-%d@test.local", time.Now().UnixNano())

	created, err := repo.Create(ctx, User{
		Email:          email,
		HashedPassword: "test-hash",
		FullName:       "Test Runner",
		IsActive:       true,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	t.Cleanup(func() {
		_, err := repo.db.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, created.ID)
		assert.NoError(t, err)
	})

	byID, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, email, byID.Email)
	assert.Equal(t, "test-hash", byID.HashedPassword)

	byEmail, err := repo.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	// duplicate email maps to the sentinel error
	_, err = repo.Create(ctx, User{
		Email:          email,
		HashedPassword: "other-hash",
		IsActive:       true,
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = repo.Get(ctx, 99999999)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetByEmail(ctx, "nobody@test.local")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
