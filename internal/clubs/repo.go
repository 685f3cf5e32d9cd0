package clubs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rowlab/rowlab/internal/telemetry/tracing"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, club Club) (_ *Club, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.clubs.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if club.ID == "" {
		club.ID = uuid.NewString()
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO club (id, name, created_at)
			VALUES ($1, $2, $3)
		RETURNING id;`,
		club.ID, club.Name, club.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id string
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.String("club.id", id))

	club.ID = id
	return &club, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Club, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.clubs.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("club.id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, created_at FROM club WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	clubs, err := r.rows2clubs(rows)
	if err != nil {
		return nil, err
	}

	if len(clubs) != 1 {
		return nil, ErrClubNotFound
	}

	return &clubs[0], nil
}

func (r *Repo) ListAll(ctx context.Context) (_ []Club, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.clubs.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, created_at FROM club ORDER BY name;`,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	clubs, err := r.rows2clubs(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2clubs: %w", err)
	}
	return clubs, nil
}

func (r *Repo) rows2clubs(rows pgx.Rows) ([]Club, error) {
	var clubs []Club
	for rows.Next() {
		var c Club
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		clubs = append(clubs, c)
	}

	if clubs == nil {
		clubs = make([]Club, 0)
	}

	return clubs, nil
}
