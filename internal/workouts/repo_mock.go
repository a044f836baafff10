package workouts

import (
	"context"
	"sort"
	"sync"
	"time"
)

type repoMock struct {
	mutex    sync.Mutex
	nextID   int
	workouts map[int]*Workout
}

func newRepoMock() *repoMock {
	return &repoMock{
		nextID:   1,
		workouts: map[int]*Workout{},
	}
}

func (r *repoMock) add(workout Workout) *Workout {
	workout.ID = r.nextID
	if workout.DateSubmitted.IsZero() {
		workout.DateSubmitted = time.Now()
	}
	r.nextID++
	r.workouts[workout.ID] = &workout
	return &workout
}

func (r *repoMock) matching(params WorkoutParams) []*Workout {
	matched := make([]*Workout, 0)
	for _, w := range r.workouts {
		if w.UserID != params.UserID {
			continue
		}
		if params.ActivityType != "" && w.ActivityType != params.ActivityType {
			continue
		}
		matched = append(matched, w)
	}
	return matched
}

func (r *repoMock) List(_ context.Context, params ListParams) ([]*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	matched := r.matching(params.WorkoutParams)

	asc := params.SortOrder == "asc"
	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch params.SortBy {
		case "distance_mi":
			less = distanceOf(matched[i]) < distanceOf(matched[j])
		case "activity_type":
			less = matched[i].ActivityType < matched[j].ActivityType
		default:
			less = matched[i].WorkoutDate.Before(matched[j].WorkoutDate)
		}
		if asc {
			return less
		}
		return !less
	})

	if params.Skip >= len(matched) {
		return []*Workout{}, nil
	}
	matched = matched[params.Skip:]
	if params.Limit < len(matched) {
		matched = matched[:params.Limit]
	}
	return matched, nil
}

func (r *repoMock) Count(_ context.Context, params WorkoutParams) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.matching(params)), nil
}

func (r *repoMock) Get(_ context.Context, userID, id int) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	workout, ok := r.workouts[id]
	if !ok || workout.UserID != userID {
		return nil, ErrWorkoutNotFound
	}
	return workout, nil
}

func (r *repoMock) Create(_ context.Context, workout Workout) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.add(workout), nil
}

func (r *repoMock) CreateBulk(_ context.Context, workouts []Workout) ([]*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	created := make([]*Workout, 0, len(workouts))
	for _, w := range workouts {
		created = append(created, r.add(w))
	}
	return created, nil
}

func (r *repoMock) ListInRange(
	_ context.Context,
	userID int,
	from, to *time.Time,
) ([]*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	matched := make([]*Workout, 0)
	for _, w := range r.workouts {
		if w.UserID != userID {
			continue
		}
		if from != nil && w.WorkoutDate.Before(*from) {
			continue
		}
		if to != nil && w.WorkoutDate.After(*to) {
			continue
		}
		matched = append(matched, w)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].WorkoutDate.Before(matched[j].WorkoutDate)
	})
	return matched, nil
}
