package ergstats

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rowlab/rowlab/internal/telemetry/tracing"
)

// Analyzer derives the display-ready analytics products out of the
// athlete's stored tests.
type Analyzer struct {
	repo testsRepo
}

func NewAnalyzer(repo testsRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

// Overview bundles everything the athlete's results page needs: the
// per-distance stats, predictions and zones (when a 2000m benchmark
// exists), the distance comparison and the full test list.
type Overview struct {
	AthleteID   string                    `json:"athleteId"`
	TestsCount  int                       `json:"testsCount"`
	Stats       map[string]DistanceBucket `json:"stats"`
	Predictions *PredictionSet            `json:"predictions,omitempty"`
	Zones       *TrainingZones            `json:"zones,omitempty"`
	Comparison  []DistanceComparisonRow   `json:"comparison"`
	AllTests    []Test                    `json:"allTests"`
}

func (a *Analyzer) AthleteStats(ctx context.Context, athleteID string) (_ AthleteStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.ergstats.athleteStats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("athlete.id", athleteID))

	tests, err := a.repo.ListForAthlete(ctx, athleteID)
	if err != nil {
		return AthleteStats{}, fmt.Errorf("list athlete tests: %w", err)
	}

	return Aggregate(tests), nil
}

func (a *Analyzer) Predictions(ctx context.Context, athleteID string) (_ *PredictionSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.ergstats.predictions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("athlete.id", athleteID))

	stats, err := a.AthleteStats(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	return Predict(stats)
}

func (a *Analyzer) TrainingZones(ctx context.Context, athleteID string) (_ *TrainingZones, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.ergstats.zones")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("athlete.id", athleteID))

	stats, err := a.AthleteStats(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	return ComputeZones(stats)
}

func (a *Analyzer) Progression(ctx context.Context, athleteID string, distanceM float64) (_ []ProgressionPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.ergstats.progression")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("athlete.id", athleteID))
	span.SetAttributes(attribute.Float64("distance", distanceM))

	tests, err := a.repo.ListForAthlete(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("list athlete tests: %w", err)
	}

	return ProgressionSeries(tests, distanceM), nil
}

func (a *Analyzer) Comparison(ctx context.Context, athleteID string) (_ []DistanceComparisonRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.ergstats.comparison")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("athlete.id", athleteID))

	stats, err := a.AthleteStats(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	return DistanceComparison(stats), nil
}

// Overview builds the whole analytics bundle with a single fetch of the
// athlete's tests. Missing 2000m benchmark is not an error here, the
// predictions and zones sections just stay empty.
func (a *Analyzer) Overview(ctx context.Context, athleteID string) (_ *Overview, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.ergstats.overview")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("athlete.id", athleteID))

	tests, err := a.repo.ListForAthlete(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("list athlete tests: %w", err)
	}

	stats := Aggregate(tests)
	overview := &Overview{
		AthleteID:  athleteID,
		TestsCount: stats.TestsCount,
		Stats:      stats.Labeled(),
		Comparison: DistanceComparison(stats),
		AllTests:   sortedByDateDesc(tests),
	}

	predictions, err := Predict(stats)
	if errors.Is(err, ErrNoBenchmark) {
		span.SetAttributes(attribute.Bool("benchmark.missing", true))
		return overview, nil
	}
	if err != nil {
		return nil, err
	}
	overview.Predictions = predictions

	zones, err := ComputeZones(stats)
	if err != nil {
		return nil, err
	}
	overview.Zones = zones

	return overview, nil
}

// sortedByDateDesc returns a fresh slice with the most recent tests
// first, the order the results page lists them in.
func sortedByDateDesc(tests []Test) []Test {
	sorted := make([]Test, len(tests))
	copy(sorted, tests)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].TestDate.Equal(sorted[j].TestDate) {
			return sorted[i].TestDate.After(sorted[j].TestDate)
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}
