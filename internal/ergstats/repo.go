package ergstats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rowlab/rowlab/internal/telemetry/tracing"
)

// TestParams filter the stored tests. Zero values mean "no filter".
type TestParams struct {
	AthleteID string
	DistanceM float64
	From      *time.Time
	To        *time.Time
}

type ListParams struct {
	TestParams
	Page int
	Size int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const testColumns = `
	t.id, t.athlete_id, a.name, t.test_date, t.distance_m, t.time_s,
	t.strokes, t.mass_kg, t.height_cm, t.notes,
	t.pace_per_500_s, t.power_w, t.power_per_kg, t.created_at`

func (r *Repo) Add(ctx context.Context, test Test) (_ *Test, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.ergstats.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if test.ID == "" {
		test.ID = uuid.NewString()
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO erg_test
				(id, athlete_id, test_date, distance_m, time_s, strokes, mass_kg, height_cm, notes,
				 pace_per_500_s, power_w, power_per_kg, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id;`,
		test.ID, test.AthleteID, test.TestDate, test.DistanceM, test.TimeS,
		test.Strokes, test.MassKg, test.HeightCm, test.Notes,
		test.PacePer500S, test.PowerW, test.PowerPerKg, test.CreatedAt,
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

	span.SetAttributes(attribute.String("test.id", id))

	test.ID = id
	return &test, nil
}

func (r *Repo) Update(ctx context.Context, test *Test) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.ergstats.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("test.id", test.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE erg_test SET
			test_date = $1, distance_m = $2, time_s = $3, strokes = $4,
			mass_kg = $5, height_cm = $6, notes = $7,
			pace_per_500_s = $8, power_w = $9, power_per_kg = $10
		WHERE id = $11;`,
		test.TestDate, test.DistanceM, test.TimeS, test.Strokes,
		test.MassKg, test.HeightCm, test.Notes,
		test.PacePer500S, test.PowerW, test.PowerPerKg, test.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrTestNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.ergstats.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("test.id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM erg_test WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTestNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Test, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.ergstats.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("test.id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+testColumns+`
			FROM erg_test t
			JOIN athlete a ON t.athlete_id = a.id
			WHERE t.id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	tests, err := r.rows2tests(rows)
	if err != nil {
		return nil, err
	}

	if len(tests) != 1 {
		return nil, ErrTestNotFound
	}

	return &tests[0], nil
}

// ListAll returns all tests matching the given filters, most recent
// test date first.
func (r *Repo) ListAll(ctx context.Context, params TestParams) (_ []Test, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.ergstats.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("athlete.id", params.AthleteID))
	span.SetAttributes(attribute.Float64("distance", params.DistanceM))
	if params.From != nil {
		span.SetAttributes(attribute.String("from", params.From.String()))
	}
	if params.To != nil {
		span.SetAttributes(attribute.String("to", params.To.String()))
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+testColumns+`
			FROM erg_test t
			JOIN athlete a ON t.athlete_id = a.id
				WHERE ($1::text = '' OR t.athlete_id::text = $1)
				AND ($2::float8 = 0 OR t.distance_m = $2)
				AND ($3::date IS NULL OR t.test_date >= $3)
				AND ($4::date IS NULL OR t.test_date <= $4)
			ORDER BY t.test_date DESC, t.created_at DESC;`,
		params.AthleteID, params.DistanceM,
		params.From, params.To,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	tests, err := r.rows2tests(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2tests: %w", err)
	}
	return tests, nil
}

// ListForAthlete returns all stored tests of one athlete, the input the
// stats aggregation runs on.
func (r *Repo) ListForAthlete(ctx context.Context, athleteID string) ([]Test, error) {
	return r.ListAll(ctx, TestParams{AthleteID: athleteID})
}

// List is like ListAll, but returns the requested page only, together
// with the total count of matching tests.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Test, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.ergstats.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))
	span.SetAttributes(attribute.String("athlete.id", params.AthleteID))

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size
	countAll, err := r.TestsCount(ctx, params.TestParams)
	if err != nil {
		return nil, -1, err
	}

	if countAll <= limit {
		limit = countAll
		offset = 0
	}

	if countAll-offset < limit {
		offset = countAll - limit
	}

	span.SetAttributes(attribute.Int("count_all", countAll))
	span.SetAttributes(attribute.Int("limit", limit))
	span.SetAttributes(attribute.Int("offset", offset))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+testColumns+`
			FROM erg_test t
			JOIN athlete a ON t.athlete_id = a.id
				WHERE ($1::text = '' OR t.athlete_id::text = $1)
				AND ($2::float8 = 0 OR t.distance_m = $2)
			ORDER BY t.test_date DESC, t.created_at DESC
			LIMIT $3
			OFFSET $4;`,
		params.AthleteID, params.DistanceM,
		limit, offset,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	tests, err := r.rows2tests(rows)
	if err != nil {
		return nil, -1, err
	}
	return tests, countAll, nil
}

func (r *Repo) TestsCount(ctx context.Context, params TestParams) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.ergstats.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT COUNT(*) FROM erg_test
			WHERE ($1::text = '' OR athlete_id::text = $1)
			AND ($2::float8 = 0 OR distance_m = $2)
			AND ($3::date IS NULL OR test_date >= $3)
			AND ($4::date IS NULL OR test_date <= $4);
	`,
		params.AthleteID, params.DistanceM,
		params.From, params.To,
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

	return -1, errors.New("unexpected error, failed to get tests count")
}

func (r *Repo) rows2tests(rows pgx.Rows) ([]Test, error) {
	var tests []Test
	for rows.Next() {
		var t Test
		if err := rows.Scan(
			&t.ID, &t.AthleteID, &t.AthleteName, &t.TestDate, &t.DistanceM, &t.TimeS,
			&t.Strokes, &t.MassKg, &t.HeightCm, &t.Notes,
			&t.PacePer500S, &t.PowerW, &t.PowerPerKg, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}

	if tests == nil {
		tests = make([]Test, 0)
	}

	return tests, nil
}
