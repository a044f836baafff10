package users

import (
	"context"
	"testing"

	"github.com/arnoldcano/analyzemyrun/internal/workouts"
	"github.com/arnoldcano/analyzemyrun/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workoutsCreatorMock struct {
	created []workouts.Workout
}

func (w *workoutsCreatorMock) CreateBulk(
	_ context.Context,
	batch []workouts.Workout,
) ([]*workouts.Workout, error) {
	w.created = append(w.created, batch...)
	out := make([]*workouts.Workout, 0, len(batch))
	for i := range batch {
		out = append(out, &batch[i])
	}
	return out, nil
}

func TestSeed(t *testing.T) {
	repo := newRepoMock()
	workoutsCreator := &workoutsCreatorMock{}

	err := Seed(context.Background(), repo, workoutsCreator, SeedParams{
		AdminPassword: "admin-pass-123",
		DemoPassword:  "demo-pass-123",
	})
	require.NoError(t, err)

	admin, err := repo.GetByEmail(context.Background(), AdminEmail)
	require.NoError(t, err)
	assert.True(t, admin.IsActive)
	assert.True(t, pkg.CheckPasswordHash("admin-pass-123", admin.HashedPassword))

	demo, err := repo.GetByEmail(context.Background(), DemoEmail)
	require.NoError(t, err)

	require.Len(t, workoutsCreator.created, 2)
	for _, w := range workoutsCreator.created {
		assert.Equal(t, demo.ID, w.UserID)
		assert.Equal(t, "Running", w.ActivityType)
	}
}

func TestSeed_Idempotent(t *testing.T) {
	repo := newRepoMock()
	workoutsCreator := &workoutsCreatorMock{}
	params := SeedParams{
		AdminPassword: "admin-pass-123",
		DemoPassword:  "demo-pass-123",
	}

	require.NoError(t, Seed(context.Background(), repo, workoutsCreator, params))
	require.NoError(t, Seed(context.Background(), repo, workoutsCreator, params))

	// second run creates no extra sample workouts
	assert.Len(t, workoutsCreator.created, 2)
	assert.Len(t, repo.users, 2)
}
