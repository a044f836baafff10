package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnoldcano/analyzemyrun/internal/workouts"
	"github.com/arnoldcano/analyzemyrun/pkg"

	log "github.com/sirupsen/logrus"
)

const (
	AdminEmail = "admin@analyzemyrun.com"
	DemoEmail  = "user@analyzemyrun.com"
)

type workoutsCreator interface {
	CreateBulk(ctx context.Context, workouts []workouts.Workout) ([]*workouts.Workout, error)
}

type SeedParams struct {
	AdminPassword string
	DemoPassword  string
}

// Seed creates the bootstrap admin and demo accounts if absent. A freshly
// created demo account gets two sample running workouts so the UI has
// something to show right after a clean deploy.
func Seed(
	ctx context.Context,
	repo usersRepo,
	workoutsRepo workoutsCreator,
	params SeedParams,
) error {
	if _, err := seedUser(ctx, repo, AdminEmail, params.AdminPassword, "Admin"); err != nil {
		return err
	}

	demo, err := seedUser(ctx, repo, DemoEmail, params.DemoPassword, "Demo Runner")
	if err != nil {
		return err
	}
	if demo == nil {
		// demo user already present, leave their data alone
		return nil
	}

	if _, err := workoutsRepo.CreateBulk(ctx, sampleRuns(demo.ID)); err != nil {
		return fmt.Errorf("seed demo workouts: %w", err)
	}

	log.Debugf("seeded demo user [%s] with sample workouts", DemoEmail)
	return nil
}

// seedUser returns the created user, or nil if the user already existed.
func seedUser(
	ctx context.Context,
	repo usersRepo,
	email, password, fullName string,
) (*User, error) {
	_, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("seed user %s: %w", email, err)
	}

	hashedPassword, err := pkg.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("seed user %s, hash password: %w", email, err)
	}

	user, err := repo.Create(ctx, User{
		Email:          email,
		HashedPassword: hashedPassword,
		FullName:       fullName,
		IsActive:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("seed user %s: %w", email, err)
	}

	log.Debugf("seeded user [%s]", email)
	return user, nil
}

func sampleRuns(userID int) []workouts.Workout {
	intPtr := func(v int) *int { return &v }
	floatPtr := func(v float64) *float64 { return &v }

	now := time.Now().UTC()
	return []workouts.Workout{
		{
			UserID:             userID,
			WorkoutDate:        now.AddDate(0, 0, -7),
			ActivityType:       "Running",
			Source:             "seed",
			DistanceMi:         floatPtr(3.1),
			WorkoutTimeSeconds: intPtr(1860),
			AvgPaceMinMi:       floatPtr(10.0),
			CaloriesBurned:     intPtr(310),
		},
		{
			UserID:             userID,
			WorkoutDate:        now.AddDate(0, 0, -2),
			ActivityType:       "Running",
			Source:             "seed",
			DistanceMi:         floatPtr(6.2),
			WorkoutTimeSeconds: intPtr(3540),
			AvgPaceMinMi:       floatPtr(9.5),
			CaloriesBurned:     intPtr(620),
		},
	}
}
