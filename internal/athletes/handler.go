package athletes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/rowlab/rowlab/internal/telemetry/tracing"
	"github.com/rowlab/rowlab/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=athletes_test

type athletesRepo interface {
	Add(ctx context.Context, athlete Athlete) (*Athlete, error)
	Get(ctx context.Context, id string) (*Athlete, error)
	ListAll(ctx context.Context, params ListParams) ([]Athlete, error)
	Update(ctx context.Context, athlete *Athlete) error
	Delete(ctx context.Context, id string) error
}

// profileInvalidator drops stale profiles from the read-through cache
// after updates and deletes.
type profileInvalidator interface {
	Invalidate(athleteID string)
}

type DeleteAthleteResponse struct {
	DeletedID string `json:"deletedId"`
}

type UpdateAthleteResponse struct {
	UpdatedID string `json:"updatedId"`
}

type Handler struct {
	repo         athletesRepo
	profileCache profileInvalidator
}

func NewHandler(repo athletesRepo, profileCache profileInvalidator) *Handler {
	return &Handler{
		repo:         repo,
		profileCache: profileCache,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.athletes.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var athlete Athlete
	if err := json.NewDecoder(r.Body).Decode(&athlete); err != nil {
		log.Tracef("new athlete, unmarshal json params: %s", err)
		http.Error(w, "add athlete failed", http.StatusBadRequest)
		return
	}

	if err := athlete.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if athlete.CreatedAt.IsZero() {
		athlete.CreatedAt = time.Now()
	}

	addedAthlete, err := handler.repo.Add(ctx, athlete)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			http.Error(w, "club not found", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to add new athlete [%s]: %s", athlete.Name, err)
		http.Error(w, "error, failed to add new athlete", http.StatusInternalServerError)
		return
	}

	addedAthleteJson, err := json.Marshal(addedAthlete)
	if err != nil {
		log.Errorf("failed to marshal new athlete: %s", err)
		http.Error(w, "error, failed to add new athlete", http.StatusInternalServerError)
		return
	}

	log.Debugf("new athlete added: %s", addedAthlete.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedAthleteJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.athletes.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	athlete, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAthleteNotFound) {
			http.Error(w, "athlete not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get athlete %s: %s", id, err)
		http.Error(w, "failed to get athlete", http.StatusInternalServerError)
		return
	}

	athleteJson, err := json.Marshal(athlete)
	if err != nil {
		log.Errorf("failed to marshal athlete: %s", err)
		http.Error(w, "failed to marshal athlete", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, athleteJson, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.athletes.list")
	defer span.End()

	athletes, err := handler.repo.ListAll(ctx, ListParams{
		ClubID:   r.URL.Query().Get("club_id"),
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		log.Errorf("list athletes error: %s", err)
		http.Error(w, "failed to get athletes", http.StatusInternalServerError)
		return
	}

	athletesJson, err := json.Marshal(athletes)
	if err != nil {
		log.Errorf("marshal athletes error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, athletesJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.athletes.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var athlete Athlete
	if err := json.NewDecoder(r.Body).Decode(&athlete); err != nil {
		log.Errorf("update athlete, unmarshal json params: %s", err)
		http.Error(w, "update athlete failed", http.StatusBadRequest)
		return
	}

	if athlete.ID == "" {
		http.Error(w, "error, athlete id empty", http.StatusBadRequest)
		return
	}
	if err := athlete.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, &athlete); err != nil {
		if errors.Is(err, ErrAthleteNotFound) {
			http.Error(w, "athlete not found", http.StatusNotFound)
			return
		}
		if pkg.IsForeignKeyViolationError(err) {
			http.Error(w, "club not found", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to update athlete [%s]: %s", athlete.ID, err)
		http.Error(w, "error, failed to update athlete", http.StatusInternalServerError)
		return
	}

	// next mass lookup has to see the fresh profile
	handler.profileCache.Invalidate(athlete.ID)

	updateRespJson, err := json.Marshal(UpdateAthleteResponse{
		UpdatedID: athlete.ID,
	})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		http.Error(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(updateRespJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.athletes.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrAthleteNotFound) {
			http.Error(w, "athlete not found", http.StatusNotFound)
			return
		}
		if pkg.IsForeignKeyViolationError(err) {
			http.Error(w, "athlete still has erg tests recorded", http.StatusConflict)
			return
		}
		log.Errorf("failed to delete athlete %s: %s", id, err)
		http.Error(w, "athlete not deleted", http.StatusInternalServerError)
		return
	}

	handler.profileCache.Invalidate(id)

	deleteRespJson, err := json.Marshal(DeleteAthleteResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}
