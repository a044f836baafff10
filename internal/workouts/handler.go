package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/arnoldcano/analyzemyrun/internal/auth"
	"github.com/arnoldcano/analyzemyrun/internal/telemetry/metrics"
	"github.com/arnoldcano/analyzemyrun/internal/telemetry/tracing"
	"github.com/arnoldcano/analyzemyrun/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
	maxUploadBytes   = 32 << 20
)

type workoutsRepo interface {
	List(ctx context.Context, params ListParams) ([]*Workout, error)
	Count(ctx context.Context, params WorkoutParams) (int, error)
	Get(ctx context.Context, userID, id int) (*Workout, error)
	Create(ctx context.Context, workout Workout) (*Workout, error)
	CreateBulk(ctx context.Context, workouts []Workout) ([]*Workout, error)
	ListInRange(ctx context.Context, userID int, from, to *time.Time) ([]*Workout, error)
}

type Handler struct {
	repo     workoutsRepo
	analyzer *Analyzer
	metrics  *metrics.Manager
}

func NewHandler(repo workoutsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:     repo,
		analyzer: NewAnalyzer(repo),
		metrics:  metricsManager,
	}
}

func userIDOrUnauthorized(w http.ResponseWriter, ctx context.Context) (int, bool) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, ctx)
	if !ok {
		return
	}

	query := r.URL.Query()

	skip := 0
	if skipStr := query.Get("skip"); skipStr != "" {
		parsed, err := strconv.Atoi(skipStr)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid skip parameter", http.StatusBadRequest)
			return
		}
		skip = parsed
	}

	limit := defaultListLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > maxListLimit {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	sortBy := query.Get("sort_by")
	if sortBy != "" && !SortColumnAllowed(sortBy) {
		http.Error(w, fmt.Sprintf("invalid sort_by field: %s", sortBy), http.StatusBadRequest)
		return
	}

	sortOrder := query.Get("sort_order")
	if sortOrder != "" && sortOrder != "asc" && sortOrder != "desc" {
		http.Error(w, "invalid sort_order, use asc or desc", http.StatusBadRequest)
		return
	}

	workoutParams := WorkoutParams{
		UserID:       userID,
		ActivityType: query.Get("activity_type"),
	}

	total, err := h.repo.Count(ctx, workoutParams)
	if err != nil {
		log.Errorf("list workouts, count: %s", err)
		http.Error(w, "failed to list workouts", http.StatusInternalServerError)
		return
	}

	items, err := h.repo.List(ctx, ListParams{
		WorkoutParams: workoutParams,
		SortBy:        sortBy,
		SortOrder:     sortOrder,
		Skip:          skip,
		Limit:         limit,
	})
	if err != nil {
		log.Errorf("list workouts: %s", err)
		http.Error(w, "failed to list workouts", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(ListResponse{Items: items, Total: total})
	if err != nil {
		log.Errorf("list workouts, marshal response: %s", err)
		http.Error(w, "failed to list workouts", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, ctx)
	if !ok {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	workout, err := h.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("get workout [%d]: %s", id, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}

	workoutJson, err := json.Marshal(workout)
	if err != nil {
		log.Errorf("get workout [%d], marshal: %s", id, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, workoutJson)
}

type createWorkoutRequest struct {
	WorkoutDate  *time.Time `json:"workout_date"`
	ActivityType string     `json:"activity_type"`
	Source       string     `json:"source"`

	CaloriesBurned     *int     `json:"calories_burned"`
	DistanceMi         *float64 `json:"distance_mi"`
	WorkoutTimeSeconds *int     `json:"workout_time_seconds"`
	AvgPaceMinMi       *float64 `json:"avg_pace_min_mi"`
	MaxPaceMinMi       *float64 `json:"max_pace_min_mi"`
	AvgSpeedMph        *float64 `json:"avg_speed_mph"`
	MaxSpeedMph        *float64 `json:"max_speed_mph"`
	AvgHeartRate       *int     `json:"avg_heart_rate"`
	Steps              *int     `json:"steps"`
	Notes              *string  `json:"notes"`
	ExternalLink       *string  `json:"external_link"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.new")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, ctx)
	if !ok {
		return
	}

	var req createWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new workout, unmarshal json params: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if req.WorkoutDate == nil {
		http.Error(w, "workout_date is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ActivityType) == "" {
		http.Error(w, "activity_type is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		http.Error(w, "source is required", http.StatusBadRequest)
		return
	}

	workout, err := h.repo.Create(ctx, Workout{
		UserID:             userID,
		WorkoutDate:        *req.WorkoutDate,
		ActivityType:       strings.TrimSpace(req.ActivityType),
		Source:             strings.TrimSpace(req.Source),
		CaloriesBurned:     req.CaloriesBurned,
		DistanceMi:         req.DistanceMi,
		WorkoutTimeSeconds: req.WorkoutTimeSeconds,
		AvgPaceMinMi:       req.AvgPaceMinMi,
		MaxPaceMinMi:       req.MaxPaceMinMi,
		AvgSpeedMph:        req.AvgSpeedMph,
		MaxSpeedMph:        req.MaxSpeedMph,
		AvgHeartRate:       req.AvgHeartRate,
		Steps:              req.Steps,
		Notes:              req.Notes,
		ExternalLink:       req.ExternalLink,
	})
	if err != nil {
		log.Errorf("new workout: %s", err)
		http.Error(w, "failed to add workout", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.CounterCreatedWorkouts.Inc()
	}

	workoutJson, err := json.Marshal(workout)
	if err != nil {
		log.Errorf("new workout, marshal: %s", err)
		http.Error(w, "failed to add workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutJson, http.StatusCreated)
}

type ImportResponse struct {
	ImportID string     `json:"import_id"`
	Items    []*Workout `json:"items"`
	Total    int        `json:"total"`
}

func (h *Handler) HandleUploadCSV(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.uploadcsv")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, ctx)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		log.Errorf("upload csv, parse multipart form: %s", err)
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("upload csv, close file: %s", err)
		}
	}()

	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".csv") {
		http.Error(w, "only .csv files are accepted", http.StatusBadRequest)
		return
	}

	importID := uuid.NewString()
	log.Debugf("import [%s]: user [%d] uploading [%s]", importID, userID, fileHeader.Filename)

	parsed, err := ParseCSV(file, userID)
	if err != nil {
		log.Errorf("import [%s] failed: %s", importID, err)
		http.Error(w, fmt.Sprintf("csv import failed: %s", err), http.StatusBadRequest)
		return
	}

	created, err := h.repo.CreateBulk(ctx, parsed)
	if err != nil {
		log.Errorf("import [%s], bulk insert: %s", importID, err)
		http.Error(w, "csv import failed", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.CounterCsvImports.Inc()
		h.metrics.CounterImportedWorkouts.Add(float64(len(created)))
	}
	log.Debugf("import [%s]: created %d workouts", importID, len(created))

	respJson, err := json.Marshal(ImportResponse{
		ImportID: importID,
		Items:    created,
		Total:    len(created),
	})
	if err != nil {
		log.Errorf("import [%s], marshal response: %s", importID, err)
		http.Error(w, "csv import failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func windowFromQuery(r *http.Request) (Window, error) {
	query := r.URL.Query()

	daysStr := query.Get("days")
	if daysStr == "" {
		return Window{}, errors.New("days parameter is required")
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil || days < AllTime {
		return Window{}, fmt.Errorf("invalid days parameter: %q", daysStr)
	}

	return NewWindow(days, query.Get("start_date"), query.Get("end_date"), time.Now().UTC())
}

func (h *Handler) HandleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.analytics.summary")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, ctx)
	if !ok {
		return
	}

	window, err := windowFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.analyzer.Summary(ctx, userID, window)
	if err != nil {
		log.Errorf("analytics summary for user [%d]: %s", userID, err)
		http.Error(w, "failed to compute summary", http.StatusInternalServerError)
		return
	}

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		log.Errorf("analytics summary, marshal: %s", err)
		http.Error(w, "failed to compute summary", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, summaryJson)
}

func (h *Handler) HandleAnalyticsTrends(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.analytics.trends")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, ctx)
	if !ok {
		return
	}

	window, err := windowFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	metric := TrendMetric(query.Get("metric"))
	if !metric.Valid() {
		http.Error(w, "invalid metric, use distance, pace or time", http.StatusBadRequest)
		return
	}
	groupBy := TrendGroupBy(query.Get("group_by"))
	if !groupBy.Valid() {
		http.Error(w, "invalid group_by, use day, week or month", http.StatusBadRequest)
		return
	}

	trends, err := h.analyzer.Trends(ctx, userID, metric, groupBy, window)
	if err != nil {
		log.Errorf("analytics trends for user [%d]: %s", userID, err)
		http.Error(w, "failed to compute trends", http.StatusInternalServerError)
		return
	}

	trendsJson, err := json.Marshal(trends)
	if err != nil {
		log.Errorf("analytics trends, marshal: %s", err)
		http.Error(w, "failed to compute trends", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, trendsJson)
}
