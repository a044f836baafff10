package goals

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arnoldcano/analyzemyrun/internal/auth"
	"github.com/arnoldcano/analyzemyrun/internal/telemetry/metrics"
	"github.com/arnoldcano/analyzemyrun/internal/telemetry/tracing"
	"github.com/arnoldcano/analyzemyrun/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type goalsRepo interface {
	List(ctx context.Context, userID int) ([]*Goal, error)
	Create(ctx context.Context, goal Goal) (*Goal, error)
	Update(ctx context.Context, userID, id int, params UpdateParams) (*Goal, error)
	Delete(ctx context.Context, userID, id int) error
}

type Handler struct {
	repo    goalsRepo
	metrics *metrics.Manager
}

func NewHandler(repo goalsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metricsManager,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	goals, err := h.repo.List(ctx, userID)
	if err != nil {
		log.Errorf("list goals for user [%d]: %s", userID, err)
		http.Error(w, "failed to list goals", http.StatusInternalServerError)
		return
	}

	goalsJson, err := json.Marshal(goals)
	if err != nil {
		log.Errorf("list goals, marshal: %s", err)
		http.Error(w, "failed to list goals", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, goalsJson)
}

type createGoalRequest struct {
	Type       string     `json:"type"`
	Target     string     `json:"target"`
	TargetDate *time.Time `json:"target_date"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.new")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new goal, unmarshal json params: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Type) == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Target) == "" {
		http.Error(w, "target is required", http.StatusBadRequest)
		return
	}
	if req.TargetDate == nil {
		http.Error(w, "target_date is required", http.StatusBadRequest)
		return
	}

	goal, err := h.repo.Create(ctx, Goal{
		UserID:     userID,
		Type:       strings.TrimSpace(req.Type),
		Target:     strings.TrimSpace(req.Target),
		TargetDate: *req.TargetDate,
	})
	if err != nil {
		log.Errorf("new goal for user [%d]: %s", userID, err)
		http.Error(w, "failed to add goal", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.CounterCreatedGoals.Inc()
	}

	goalJson, err := json.Marshal(goal)
	if err != nil {
		log.Errorf("new goal, marshal: %s", err)
		http.Error(w, "failed to add goal", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, goalJson, http.StatusCreated)
}

type updateGoalRequest struct {
	Type       *string    `json:"type"`
	Target     *string    `json:"target"`
	TargetDate *time.Time `json:"target_date"`
	// raw so an explicit null (clear) can be told apart from an absent field
	Completed json.RawMessage `json:"completed"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.update")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid goal id", http.StatusBadRequest)
		return
	}

	var req updateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update goal, unmarshal json params: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	params := UpdateParams{
		Type:       req.Type,
		Target:     req.Target,
		TargetDate: req.TargetDate,
	}
	if len(req.Completed) > 0 {
		if string(req.Completed) == "null" {
			params.ClearCompleted = true
		} else {
			var completed time.Time
			if err := json.Unmarshal(req.Completed, &completed); err != nil {
				http.Error(w, "invalid completed timestamp", http.StatusBadRequest)
				return
			}
			params.Completed = &completed
		}
	}

	goal, err := h.repo.Update(ctx, userID, id, params)
	if err != nil {
		if errors.Is(err, ErrGoalNotFound) {
			http.Error(w, "goal not found", http.StatusNotFound)
			return
		}
		log.Errorf("update goal [%d]: %s", id, err)
		http.Error(w, "failed to update goal", http.StatusInternalServerError)
		return
	}

	goalJson, err := json.Marshal(goal)
	if err != nil {
		log.Errorf("update goal, marshal: %s", err)
		http.Error(w, "failed to update goal", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, goalJson)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid goal id", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrGoalNotFound) {
			http.Error(w, "goal not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete goal [%d]: %s", id, err)
		http.Error(w, "failed to delete goal", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"message": "Goal deleted"}`)
}
