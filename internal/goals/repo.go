package goals

import (
	"context"
	"errors"
	"time"

	"github.com/arnoldcano/analyzemyrun/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrGoalNotFound = errors.New("goal not found")

// UpdateParams carries a partial update, nil fields stay unchanged.
// ClearCompleted sets completed back to null, un-completing the goal.
type UpdateParams struct {
	Type           *string
	Target         *string
	TargetDate     *time.Time
	Completed      *time.Time
	ClearCompleted bool
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) List(ctx context.Context, userID int) (_ []*Goal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	goals := make([]*Goal, 0)
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, type, target, target_date, date_created, completed
		FROM goals
		WHERE user_id = $1
		ORDER BY target_date ASC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for rows.Next() {
		goal := &Goal{}
		if err := rows.Scan(
			&goal.ID, &goal.UserID, &goal.Type, &goal.Target,
			&goal.TargetDate, &goal.DateCreated, &goal.Completed,
		); err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}

	return goals, nil
}

func (r *Repo) Create(ctx context.Context, goal Goal) (_ *Goal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	err = r.db.QueryRow(ctx, `
		INSERT INTO goals (user_id, type, target, target_date, completed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, date_created
	`,
		goal.UserID, goal.Type, goal.Target, goal.TargetDate, goal.Completed,
	).Scan(&goal.ID, &goal.DateCreated)
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// Update applies a partial update scoped to the owning user.
func (r *Repo) Update(
	ctx context.Context,
	userID, id int,
	params UpdateParams,
) (_ *Goal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.update")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	goal := &Goal{}
	err = r.db.QueryRow(ctx, `
		UPDATE goals SET
			type        = COALESCE($1::text, type),
			target      = COALESCE($2::text, target),
			target_date = COALESCE($3::timestamptz, target_date),
			completed   = CASE
				WHEN $5::bool THEN NULL
				ELSE COALESCE($4::timestamptz, completed)
			END
		WHERE id = $6 AND user_id = $7
		RETURNING id, user_id, type, target, target_date, date_created, completed
	`,
		params.Type, params.Target, params.TargetDate,
		params.Completed, params.ClearCompleted,
		id, userID,
	).Scan(
		&goal.ID, &goal.UserID, &goal.Type, &goal.Target,
		&goal.TargetDate, &goal.DateCreated, &goal.Completed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	return goal, nil
}

func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	cmdTag, err := r.db.Exec(ctx, `
		DELETE FROM goals WHERE id = $1 AND user_id = $2;
	`, id, userID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}
