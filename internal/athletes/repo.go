package athletes

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

// ListParams filter the athletes. Zero values mean "no filter".
type ListParams struct {
	ClubID   string
	Category string
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const athleteColumns = `
	a.id, a.name, a.club_id, COALESCE(c.name, ''), a.category,
	a.mass_kg, a.height_cm, a.created_at`

func (r *Repo) Add(ctx context.Context, athlete Athlete) (_ *Athlete, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.athletes.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if athlete.ID == "" {
		athlete.ID = uuid.NewString()
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO athlete (id, name, club_id, category, mass_kg, height_cm, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;`,
		athlete.ID, athlete.Name, athlete.ClubID, athlete.Category,
		athlete.MassKg, athlete.HeightCm, athlete.CreatedAt,
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

	span.SetAttributes(attribute.String("athlete.id", id))

	athlete.ID = id
	return &athlete, nil
}

func (r *Repo) Update(ctx context.Context, athlete *Athlete) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.athletes.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("athlete.id", athlete.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE athlete SET
			name = $1, club_id = $2, category = $3, mass_kg = $4, height_cm = $5
		WHERE id = $6;`,
		athlete.Name, athlete.ClubID, athlete.Category,
		athlete.MassKg, athlete.HeightCm, athlete.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrAthleteNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.athletes.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("athlete.id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM athlete WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAthleteNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Athlete, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.athletes.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("athlete.id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+athleteColumns+`
			FROM athlete a
			LEFT JOIN club c ON a.club_id = c.id
			WHERE a.id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	athletes, err := r.rows2athletes(rows)
	if err != nil {
		return nil, err
	}

	if len(athletes) != 1 {
		return nil, ErrAthleteNotFound
	}

	return &athletes[0], nil
}

// ListAll returns the athletes matching the given filters, in the order
// they joined.
func (r *Repo) ListAll(ctx context.Context, params ListParams) (_ []Athlete, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.athletes.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("club.id", params.ClubID))
	span.SetAttributes(attribute.String("category", params.Category))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+athleteColumns+`
			FROM athlete a
			LEFT JOIN club c ON a.club_id = c.id
				WHERE ($1::text = '' OR a.club_id::text = $1)
				AND ($2::text = '' OR a.category = $2)
			ORDER BY a.created_at, a.id;`,
		params.ClubID, params.Category,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	athletes, err := r.rows2athletes(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2athletes: %w", err)
	}
	return athletes, nil
}

func (r *Repo) rows2athletes(rows pgx.Rows) ([]Athlete, error) {
	var athletes []Athlete
	for rows.Next() {
		var a Athlete
		if err := rows.Scan(
			&a.ID, &a.Name, &a.ClubID, &a.ClubName, &a.Category,
			&a.MassKg, &a.HeightCm, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		athletes = append(athletes, a)
	}

	if athletes == nil {
		athletes = make([]Athlete, 0)
	}

	return athletes, nil
}
