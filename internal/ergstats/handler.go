package ergstats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/rowlab/rowlab/internal/telemetry/metrics"
	"github.com/rowlab/rowlab/internal/telemetry/tracing"
	"github.com/rowlab/rowlab/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=ergstats_test

type testsRepo interface {
	Add(ctx context.Context, test Test) (*Test, error)
	Get(ctx context.Context, id string) (*Test, error)
	List(ctx context.Context, params ListParams) (_ []Test, total int, err error)
	ListAll(ctx context.Context, params TestParams) ([]Test, error)
	ListForAthlete(ctx context.Context, athleteID string) ([]Test, error)
	Update(ctx context.Context, test *Test) error
	Delete(ctx context.Context, id string) error
}

// athleteProfiles provides the athlete's current body mass, used as the
// fallback when a submitted test carries none.
type athleteProfiles interface {
	CurrentMassKg(ctx context.Context, athleteID string) (*float64, error)
}

// submitGuard rejects accidental double submissions of the same test.
type submitGuard interface {
	FirstSubmission(ctx context.Context, t Test) (bool, error)
}

type DeleteTestResponse struct {
	DeletedID string `json:"deletedId"`
}

type UpdateTestResponse struct {
	UpdatedID string `json:"updatedId"`
}

type AddTestResponse struct {
	Test
	CountAtDistance int `json:"countAtDistance"`
}

type ListResponse struct {
	Tests []Test `json:"tests"`
	Total int    `json:"total"`
}

type AthleteStatsResponse struct {
	AthleteID  string                    `json:"athleteId"`
	TestsCount int                       `json:"testsCount"`
	Stats      map[string]DistanceBucket `json:"stats"`
	AllTests   []Test                    `json:"allTests"`
}

type Handler struct {
	repo           testsRepo
	profiles       athleteProfiles
	guard          submitGuard
	analyzer       *Analyzer
	metricsManager *metrics.Manager
}

func NewHandler(
	repo testsRepo,
	profiles athleteProfiles,
	guard submitGuard,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:           repo,
		profiles:       profiles,
		guard:          guard,
		analyzer:       NewAnalyzer(repo),
		metricsManager: metricsManager,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var test Test
	if err := json.NewDecoder(r.Body).Decode(&test); err != nil {
		log.Tracef("new erg test, unmarshal json params: %s", err)
		http.Error(w, "add erg test failed", http.StatusBadRequest)
		return
	}

	if test.AthleteID == "" {
		http.Error(w, "error, athlete id empty", http.StatusBadRequest)
		return
	}

	if test.TestDate.IsZero() {
		test.TestDate = time.Now().Truncate(24 * time.Hour)
	}
	if test.CreatedAt.IsZero() {
		test.CreatedAt = time.Now()
	}

	if test.MassKg == nil {
		massKg, err := handler.profiles.CurrentMassKg(ctx, test.AthleteID)
		if err != nil {
			// athlete not found surfaces later through the fk check
			log.Tracef("new erg test, athlete %s mass lookup: %s", test.AthleteID, err)
		} else {
			test.MassKg = massKg
		}
	}

	if err := test.Normalize(); err != nil {
		log.Tracef("new erg test, normalize: %s", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if handler.guard != nil {
		first, err := handler.guard.FirstSubmission(ctx, test)
		if err != nil {
			// on guard failure just let the submission through
			log.Warnf("erg test submit guard check failed: %s", err)
		} else if !first {
			http.Error(w, "same test submitted moments ago", http.StatusConflict)
			return
		}
	}

	addedTest, err := handler.repo.Add(ctx, test)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			http.Error(w, "athlete not found", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to add new erg test [athlete %s], [%s]: %s", test.AthleteID, DistanceLabel(test.DistanceM), err)
		http.Error(w, "error, failed to add new erg test", http.StatusInternalServerError)
		return
	}

	testsAtDistance, err := handler.repo.ListAll(ctx, TestParams{
		AthleteID: addedTest.AthleteID,
		DistanceM: addedTest.DistanceM,
	})
	if err != nil {
		// just log the error, no need to return error to the client
		log.Errorf("failed to count tests at distance [%s] [athlete %s]: %s", DistanceLabel(addedTest.DistanceM), addedTest.AthleteID, err)
	}

	addTestResponse := AddTestResponse{
		Test:            *addedTest,
		CountAtDistance: len(testsAtDistance),
	}

	addedTestJson, err := json.Marshal(addTestResponse)
	if err != nil {
		log.Errorf("failed to marshal new erg test: %s", err)
		http.Error(w, "error, failed to add new erg test", http.StatusInternalServerError)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterErgTests.Inc()
	}

	log.Debugf("new erg test added: %s", addedTestJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedTestJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.get")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	t, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTestNotFound) {
			http.Error(w, "test not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get erg test %s: %s", id, err)
		http.Error(w, "failed to get erg test", http.StatusInternalServerError)
		return
	}

	testJson, err := json.Marshal(t)
	if err != nil {
		log.Errorf("failed to marshal erg test: %s", err)
		http.Error(w, "failed to marshal erg test", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, testJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var test Test
	if err := json.NewDecoder(r.Body).Decode(&test); err != nil {
		log.Errorf("update erg test, unmarshal json params: %s", err)
		http.Error(w, "update erg test failed", http.StatusBadRequest)
		return
	}

	if test.ID == "" {
		http.Error(w, "error, test id empty", http.StatusBadRequest)
		return
	}

	currentTest, err := handler.repo.Get(ctx, test.ID)
	if err != nil {
		if errors.Is(err, ErrTestNotFound) {
			log.Debugf("erg test %s not found", test.ID)
			http.Error(w, "test not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get erg test %s: %s", test.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// measurements may have changed, rerun the derivation
	if err := test.Normalize(); err != nil {
		log.Tracef("update erg test, normalize: %s", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Debugf("update erg test %+v -> %+v", currentTest, test)

	if err := handler.repo.Update(ctx, &test); err != nil {
		log.Errorf("failed to update erg test [%s]: %s", test.ID, err)
		http.Error(w, "error, failed to update erg test", http.StatusInternalServerError)
		return
	}

	updateRespJson, err := json.Marshal(UpdateTestResponse{
		UpdatedID: test.ID,
	})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		http.Error(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(updateRespJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.delete")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	test, err := handler.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrTestNotFound) {
		log.Errorf("failed to get erg test %s: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	} else if errors.Is(err, ErrTestNotFound) {
		log.Debugf("erg test %s not found", id)
		http.Error(w, "test not found", http.StatusNotFound)
		return
	}

	log.Debugf("deleting erg test %+v", test)

	if err := handler.repo.Delete(ctx, id); err != nil {
		log.Errorf("failed to delete erg test %s: %s", id, err)
		http.Error(w, "test not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteTestResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.list")
	defer span.End()

	vars := mux.Vars(r)
	pageStr := vars["page"]
	page, err := strconv.Atoi(pageStr)
	if err != nil {
		log.Tracef("handle list erg tests, from <page> param: %s", err)
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	sizeStr := vars["size"]
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		log.Tracef("handle list erg tests, from <size> param: %s", err)
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}

	if page < 1 {
		http.Error(w, "invalid page (has to be non-zero value)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be non-zero value)", http.StatusBadRequest)
		return
	}

	var distanceM float64
	if distanceStr := r.URL.Query().Get("distance"); distanceStr != "" {
		distanceM, err = strconv.ParseFloat(distanceStr, 64)
		if err != nil {
			log.Errorf("failed to parse distance param: %s", err)
			http.Error(w, "failed to parse distance param", http.StatusBadRequest)
			return
		}
	}

	listParams := ListParams{
		TestParams: TestParams{
			AthleteID: r.URL.Query().Get("athlete_id"),
			DistanceM: distanceM,
		},
		Page: page,
		Size: size,
	}

	tests, total, err := handler.repo.List(ctx, listParams)
	if err != nil {
		log.Errorf("list erg tests error: %s", err)
		http.Error(w, "failed to get erg tests", http.StatusInternalServerError)
		return
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Tests: tests,
		Total: total,
	})
	if err != nil {
		log.Errorf("marshal erg tests error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listResponseJson, http.StatusOK)
}

func (handler *Handler) HandleAthleteStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.athleteStats")
	defer span.End()

	athleteID := mux.Vars(r)["id"]
	if athleteID == "" {
		http.Error(w, "error, athlete id empty", http.StatusBadRequest)
		return
	}

	tests, err := handler.repo.ListForAthlete(ctx, athleteID)
	if err != nil {
		log.Errorf("failed to list tests for athlete %s: %s", athleteID, err)
		http.Error(w, "failed to get athlete stats", http.StatusInternalServerError)
		return
	}

	stats := Aggregate(tests)
	statsResponse := AthleteStatsResponse{
		AthleteID:  athleteID,
		TestsCount: stats.TestsCount,
		Stats:      stats.Labeled(),
		AllTests:   sortedByDateDesc(tests),
	}

	statsRespJson, err := json.Marshal(statsResponse)
	if err != nil {
		log.Errorf("failed to marshal athlete stats: %s", err)
		http.Error(w, "failed to marshal athlete stats", http.StatusInternalServerError)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterAthleteStats.Inc()
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, statsRespJson, http.StatusOK)
}

func (handler *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.overview")
	defer span.End()

	athleteID := mux.Vars(r)["id"]
	if athleteID == "" {
		http.Error(w, "error, athlete id empty", http.StatusBadRequest)
		return
	}

	overview, err := handler.analyzer.Overview(ctx, athleteID)
	if err != nil {
		log.Errorf("failed to get overview for athlete %s: %s", athleteID, err)
		http.Error(w, "failed to get athlete overview", http.StatusInternalServerError)
		return
	}

	overviewJson, err := json.Marshal(overview)
	if err != nil {
		log.Errorf("failed to marshal athlete overview: %s", err)
		http.Error(w, "failed to marshal athlete overview", http.StatusInternalServerError)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterAthleteStats.Inc()
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, overviewJson, http.StatusOK)
}

func (handler *Handler) HandlePredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.predictions")
	defer span.End()

	athleteID := mux.Vars(r)["id"]
	if athleteID == "" {
		http.Error(w, "error, athlete id empty", http.StatusBadRequest)
		return
	}

	predictions, err := handler.analyzer.Predictions(ctx, athleteID)
	if err != nil {
		if errors.Is(err, ErrNoBenchmark) {
			http.Error(w, ErrNoBenchmark.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("failed to get predictions for athlete %s: %s", athleteID, err)
		http.Error(w, "failed to get predictions", http.StatusInternalServerError)
		return
	}

	predictionsJson, err := json.Marshal(predictions)
	if err != nil {
		log.Errorf("failed to marshal predictions: %s", err)
		http.Error(w, "failed to marshal predictions", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, predictionsJson, http.StatusOK)
}

func (handler *Handler) HandleTrainingZones(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.zones")
	defer span.End()

	athleteID := mux.Vars(r)["id"]
	if athleteID == "" {
		http.Error(w, "error, athlete id empty", http.StatusBadRequest)
		return
	}

	zones, err := handler.analyzer.TrainingZones(ctx, athleteID)
	if err != nil {
		if errors.Is(err, ErrNoBenchmark) {
			http.Error(w, ErrNoBenchmark.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("failed to get training zones for athlete %s: %s", athleteID, err)
		http.Error(w, "failed to get training zones", http.StatusInternalServerError)
		return
	}

	zonesJson, err := json.Marshal(zones)
	if err != nil {
		log.Errorf("failed to marshal training zones: %s", err)
		http.Error(w, "failed to marshal training zones", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, zonesJson, http.StatusOK)
}

func (handler *Handler) HandleProgression(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.progression")
	defer span.End()

	athleteID := mux.Vars(r)["id"]
	if athleteID == "" {
		http.Error(w, "error, athlete id empty", http.StatusBadRequest)
		return
	}

	distanceM := BenchmarkDistanceM
	if distanceStr := r.URL.Query().Get("distance"); distanceStr != "" {
		var err error
		distanceM, err = strconv.ParseFloat(distanceStr, 64)
		if err != nil {
			log.Errorf("failed to parse distance param: %s", err)
			http.Error(w, "failed to parse distance param", http.StatusBadRequest)
			return
		}
	}

	progression, err := handler.analyzer.Progression(ctx, athleteID, distanceM)
	if err != nil {
		log.Errorf("failed to get progression for athlete %s: %s", athleteID, err)
		http.Error(w, "failed to get progression", http.StatusInternalServerError)
		return
	}

	progressionJson, err := json.Marshal(progression)
	if err != nil {
		log.Errorf("failed to marshal progression: %s", err)
		http.Error(w, "failed to marshal progression", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, progressionJson, http.StatusOK)
}

func (handler *Handler) HandleComparison(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.ergstats.comparison")
	defer span.End()

	athleteID := mux.Vars(r)["id"]
	if athleteID == "" {
		http.Error(w, "error, athlete id empty", http.StatusBadRequest)
		return
	}

	comparison, err := handler.analyzer.Comparison(ctx, athleteID)
	if err != nil {
		log.Errorf("failed to get distance comparison for athlete %s: %s", athleteID, err)
		http.Error(w, "failed to get distance comparison", http.StatusInternalServerError)
		return
	}

	comparisonJson, err := json.Marshal(comparison)
	if err != nil {
		log.Errorf("failed to marshal distance comparison: %s", err)
		http.Error(w, "failed to marshal distance comparison", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, comparisonJson, http.StatusOK)
}
