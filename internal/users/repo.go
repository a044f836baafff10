package users

import (
	"context"
	"errors"

	"github.com/arnoldcano/analyzemyrun/internal/telemetry/tracing"
	"github.com/arnoldcano/analyzemyrun/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Create(ctx context.Context, user User) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	err = r.db.QueryRow(ctx, `
		INSERT INTO users (email, hashed_password, full_name, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`,
		user.Email,
		user.HashedPassword,
		user.FullName,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	user := &User{}
	err = r.db.
		QueryRow(ctx, `
			SELECT id, email, hashed_password, full_name, is_active, created_at
			FROM users
			WHERE id = $1
		`, id).
		Scan(
			&user.ID, &user.Email, &user.HashedPassword,
			&user.FullName, &user.IsActive, &user.CreatedAt,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getbyemail")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	user := &User{}
	err = r.db.
		QueryRow(ctx, `
			SELECT id, email, hashed_password, full_name, is_active, created_at
			FROM users
			WHERE email = $1
		`, email).
		Scan(
			&user.ID, &user.Email, &user.HashedPassword,
			&user.FullName, &user.IsActive, &user.CreatedAt,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
