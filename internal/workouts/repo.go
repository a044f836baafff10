package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnoldcano/analyzemyrun/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrWorkoutNotFound = errors.New("workout not found")

// sortColumns is the allow-list of user-selectable sort fields. Sort
// identifiers cannot be bind parameters, so anything outside this list
// is rejected before query assembly.
var sortColumns = map[string]bool{
	"workout_date":    true,
	"activity_type":   true,
	"distance_mi":     true,
	"avg_pace_min_mi": true,
	"calories_burned": true,
	"avg_heart_rate":  true,
	"steps":           true,
}

func SortColumnAllowed(column string) bool {
	return sortColumns[column]
}

type WorkoutParams struct {
	UserID       int
	ActivityType string // empty matches all
}

type ListParams struct {
	WorkoutParams
	SortBy    string // empty falls back to workout_date
	SortOrder string // asc or desc
	Skip      int
	Limit     int
}

const workoutColumns = `
	id, user_id, date_submitted, workout_date, activity_type, source,
	calories_burned, distance_mi, workout_time_seconds,
	avg_pace_min_mi, max_pace_min_mi, avg_speed_mph, max_speed_mph,
	avg_heart_rate, steps, notes, external_link`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func scanWorkout(row pgx.Row) (*Workout, error) {
	w := &Workout{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.DateSubmitted, &w.WorkoutDate, &w.ActivityType, &w.Source,
		&w.CaloriesBurned, &w.DistanceMi, &w.WorkoutTimeSeconds,
		&w.AvgPaceMinMi, &w.MaxPaceMinMi, &w.AvgSpeedMph, &w.MaxSpeedMph,
		&w.AvgHeartRate, &w.Steps, &w.Notes, &w.ExternalLink,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) (_ []*Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("activity-type", params.ActivityType))
	span.SetAttributes(attribute.Int("skip", params.Skip))
	span.SetAttributes(attribute.Int("limit", params.Limit))

	sortBy := params.SortBy
	if sortBy == "" {
		sortBy = "workout_date"
	}
	if !sortColumns[sortBy] {
		return nil, fmt.Errorf("invalid sort column: %s", sortBy)
	}
	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	workouts := make([]*Workout, 0)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM workouts
		WHERE user_id = $1
		  AND ($2::text = '' OR activity_type = $2)
		ORDER BY %s %s
		LIMIT $3 OFFSET $4;
	`, workoutColumns, sortBy, sortOrder),
		params.UserID, params.ActivityType,
		params.Limit, params.Skip,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for rows.Next() {
		workout, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, workout)
	}

	return workouts, nil
}

func (r *Repo) Count(ctx context.Context, params WorkoutParams) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.count")
	defer span.End()

	rows, err := r.db.Query(ctx, `
		SELECT COUNT(*) FROM workouts
		WHERE user_id = $1
		  AND ($2::text = '' OR activity_type = $2);
	`,
		params.UserID, params.ActivityType,
	)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get workouts count")
}

// ListInRange returns the user's workouts inside the given window, sorted
// by workout date ascending. Nil bounds mean unbounded on that side.
func (r *Repo) ListInRange(
	ctx context.Context,
	userID int,
	from, to *time.Time,
) (_ []*Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listinrange")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	if from != nil {
		span.SetAttributes(attribute.String("from", from.String()))
	}
	if to != nil {
		span.SetAttributes(attribute.String("to", to.String()))
	}

	workouts := make([]*Workout, 0)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM workouts
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR workout_date >= $2)
		  AND ($3::timestamptz IS NULL OR workout_date <= $3)
		ORDER BY workout_date ASC;
	`, workoutColumns),
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for rows.Next() {
		workout, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, workout)
	}

	return workouts, nil
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	workout, err := scanWorkout(r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM workouts
		WHERE id = $1 AND user_id = $2
	`, workoutColumns), id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return workout, nil
}

func (r *Repo) Create(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	err = r.db.QueryRow(ctx, `
		INSERT INTO workouts (
			user_id, workout_date, activity_type, source,
			calories_burned, distance_mi, workout_time_seconds,
			avg_pace_min_mi, max_pace_min_mi, avg_speed_mph, max_speed_mph,
			avg_heart_rate, steps, notes, external_link
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, date_submitted
	`,
		workout.UserID, workout.WorkoutDate, workout.ActivityType, workout.Source,
		workout.CaloriesBurned, workout.DistanceMi, workout.WorkoutTimeSeconds,
		workout.AvgPaceMinMi, workout.MaxPaceMinMi, workout.AvgSpeedMph, workout.MaxSpeedMph,
		workout.AvgHeartRate, workout.Steps, workout.Notes, workout.ExternalLink,
	).Scan(&workout.ID, &workout.DateSubmitted)
	if err != nil {
		return nil, err
	}
	return &workout, nil
}

// CreateBulk inserts all given workouts in a single transaction,
// all rows commit together or none of them do.
func (r *Repo) CreateBulk(ctx context.Context, workouts []Workout) (_ []*Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.createbulk")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("count", len(workouts)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	created := make([]*Workout, 0, len(workouts))
	for i := range workouts {
		workout := workouts[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO workouts (
				user_id, workout_date, activity_type, source,
				calories_burned, distance_mi, workout_time_seconds,
				avg_pace_min_mi, max_pace_min_mi, avg_speed_mph, max_speed_mph,
				avg_heart_rate, steps, notes, external_link
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING id, date_submitted
		`,
			workout.UserID, workout.WorkoutDate, workout.ActivityType, workout.Source,
			workout.CaloriesBurned, workout.DistanceMi, workout.WorkoutTimeSeconds,
			workout.AvgPaceMinMi, workout.MaxPaceMinMi, workout.AvgSpeedMph, workout.MaxSpeedMph,
			workout.AvgHeartRate, workout.Steps, workout.Notes, workout.ExternalLink,
		).Scan(&workout.ID, &workout.DateSubmitted)
		if err != nil {
			return nil, err
		}
		created = append(created, &workout)
	}

	return created, nil
}
