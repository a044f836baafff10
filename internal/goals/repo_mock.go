package goals

import (
	"context"
	"sort"
	"sync"
	"time"
)

type repoMock struct {
	mutex  sync.Mutex
	nextID int
	goals  map[int]*Goal
}

func newRepoMock() *repoMock {
	return &repoMock{
		nextID: 1,
		goals:  map[int]*Goal{},
	}
}

func (r *repoMock) List(_ context.Context, userID int) ([]*Goal, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	goals := make([]*Goal, 0)
	for _, g := range r.goals {
		if g.UserID == userID {
			goals = append(goals, g)
		}
	}
	sort.Slice(goals, func(i, j int) bool {
		return goals[i].TargetDate.Before(goals[j].TargetDate)
	})
	return goals, nil
}

func (r *repoMock) Create(_ context.Context, goal Goal) (*Goal, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	goal.ID = r.nextID
	goal.DateCreated = time.Now()
	r.nextID++
	r.goals[goal.ID] = &goal
	return &goal, nil
}

func (r *repoMock) Update(_ context.Context, userID, id int, params UpdateParams) (*Goal, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	goal, ok := r.goals[id]
	if !ok || goal.UserID != userID {
		return nil, ErrGoalNotFound
	}
	if params.Type != nil {
		goal.Type = *params.Type
	}
	if params.Target != nil {
		goal.Target = *params.Target
	}
	if params.TargetDate != nil {
		goal.TargetDate = *params.TargetDate
	}
	if params.ClearCompleted {
		goal.Completed = nil
	} else if params.Completed != nil {
		goal.Completed = params.Completed
	}
	return goal, nil
}

func (r *repoMock) Delete(_ context.Context, userID, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	goal, ok := r.goals[id]
	if !ok || goal.UserID != userID {
		return ErrGoalNotFound
	}
	delete(r.goals, id)
	return nil
}
