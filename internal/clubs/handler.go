package clubs

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

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=clubs_test

type clubsRepo interface {
	Add(ctx context.Context, club Club) (*Club, error)
	Get(ctx context.Context, id string) (*Club, error)
	ListAll(ctx context.Context) ([]Club, error)
}

type Handler struct {
	repo clubsRepo
}

func NewHandler(repo clubsRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.clubs.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var club Club
	if err := json.NewDecoder(r.Body).Decode(&club); err != nil {
		log.Tracef("new club, unmarshal json params: %s", err)
		http.Error(w, "add club failed", http.StatusBadRequest)
		return
	}

	if club.Name == "" {
		http.Error(w, "error, club name empty", http.StatusBadRequest)
		return
	}

	if club.CreatedAt.IsZero() {
		club.CreatedAt = time.Now()
	}

	addedClub, err := handler.repo.Add(ctx, club)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			http.Error(w, "club with that name already exists", http.StatusConflict)
			return
		}
		log.Errorf("failed to add new club [%s]: %s", club.Name, err)
		http.Error(w, "error, failed to add new club", http.StatusInternalServerError)
		return
	}

	addedClubJson, err := json.Marshal(addedClub)
	if err != nil {
		log.Errorf("failed to marshal new club: %s", err)
		http.Error(w, "error, failed to add new club", http.StatusInternalServerError)
		return
	}

	log.Debugf("new club added: %s", addedClub.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedClubJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.clubs.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	club, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrClubNotFound) {
			http.Error(w, "club not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get club %s: %s", id, err)
		http.Error(w, "failed to get club", http.StatusInternalServerError)
		return
	}

	clubJson, err := json.Marshal(club)
	if err != nil {
		log.Errorf("failed to marshal club: %s", err)
		http.Error(w, "failed to marshal club", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, clubJson, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.clubs.list")
	defer span.End()

	clubs, err := handler.repo.ListAll(ctx)
	if err != nil {
		log.Errorf("list clubs error: %s", err)
		http.Error(w, "failed to get clubs", http.StatusInternalServerError)
		return
	}

	clubsJson, err := json.Marshal(clubs)
	if err != nil {
		log.Errorf("marshal clubs error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, clubsJson, http.StatusOK)
}
