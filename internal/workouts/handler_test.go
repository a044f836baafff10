package workouts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arnoldcano/analyzemyrun/internal/auth"
	"github.com/arnoldcano/analyzemyrun/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/workouts/", handler.HandleList).Methods("GET")
	r.HandleFunc("/workouts/", handler.HandleCreate).Methods("POST")
	r.HandleFunc("/workouts/upload-csv", handler.HandleUploadCSV).Methods("POST")
	r.HandleFunc("/workouts/analytics/summary", handler.HandleAnalyticsSummary).Methods("GET")
	r.HandleFunc("/workouts/analytics/trends", handler.HandleAnalyticsTrends).Methods("GET")
	r.HandleFunc("/workouts/{id}", handler.HandleGet).Methods("GET")
	return r
}

func authedRequest(t *testing.T, userID int, method, target string, body *bytes.Buffer) *http.Request {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	return req.WithContext(auth.ContextWithUserID(context.Background(), userID))
}

func TestHandler_HandleList(t *testing.T) {
	repo := newRepoMock()
	handler := NewHandler(repo, metrics.NewTestManager())
	router := newTestRouter(handler)

	base := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		activityType := "Running"
		if i%3 == 0 {
			activityType = "Cycling"
		}
		_, err := repo.Create(context.Background(), Workout{
			UserID:       1,
			WorkoutDate:  base.AddDate(0, 0, i),
			ActivityType: activityType,
			Source:       "test",
			DistanceMi:   floatPtr(float64(i)),
		})
		require.NoError(t, err)
	}

	t.Run("default page", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 1, "GET", "/workouts/", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 15, resp.Total)
		require.Len(t, resp.Items, 10)
		// default order is workout date descending
		assert.True(t, resp.Items[0].WorkoutDate.After(resp.Items[1].WorkoutDate))
	})

	t.Run("skip beyond count", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 1, "GET", "/workouts/?skip=100&limit=5", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 15, resp.Total)
		assert.Empty(t, resp.Items)
	})

	t.Run("activity type filter", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 1, "GET", "/workouts/?activity_type=Cycling&limit=100", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 5, resp.Total)
		assert.Len(t, resp.Items, 5)
		for _, item := range resp.Items {
			assert.Equal(t, "Cycling", item.ActivityType)
		}
	})

	t.Run("sort ascending by distance", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 1, "GET", "/workouts/?sort_by=distance_mi&sort_order=asc&limit=3", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Items, 3)
		assert.Equal(t, 0.0, *resp.Items[0].DistanceMi)
	})

	t.Run("other user sees nothing", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 99, "GET", "/workouts/", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Zero(t, resp.Total)
		assert.Empty(t, resp.Items)
	})

	t.Run("invalid params", func(t *testing.T) {
		for _, target := range []string{
			"/workouts/?skip=-1",
			"/workouts/?limit=0",
			"/workouts/?limit=101",
			"/workouts/?sort_by=id",
			"/workouts/?sort_by=notes",
			"/workouts/?sort_order=upwards",
		} {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, authedRequest(t, 1, "GET", target, nil))
			assert.Equal(t, http.StatusBadRequest, rr.Code, "target %s", target)
		}
	})
}

func TestHandler_HandleGet(t *testing.T) {
	repo := newRepoMock()
	handler := NewHandler(repo, metrics.NewTestManager())
	router := newTestRouter(handler)

	created, err := repo.Create(context.Background(), runOn(1, time.Now().UTC(), 3.1, 10.0, 1860))
	require.NoError(t, err)

	t.Run("own workout", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 1, "GET", fmt.Sprintf("/workouts/%d", created.ID), nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var workout Workout
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &workout))
		assert.Equal(t, created.ID, workout.ID)
	})

	t.Run("someone else's workout is not found", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 2, "GET", fmt.Sprintf("/workouts/%d", created.ID), nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("missing workout", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 1, "GET", "/workouts/12345", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandler_HandleCreate(t *testing.T) {
	repo := newRepoMock()
	metricsManager := metrics.NewTestManager()
	handler := NewHandler(repo, metricsManager)
	router := newTestRouter(handler)

	t.Run("created", func(t *testing.T) {
		reqJson, err := json.Marshal(createWorkoutRequest{
			WorkoutDate:  datePtr(time.Date(2024, 9, 5, 7, 0, 0, 0, time.UTC)),
			ActivityType: "Running",
			Source:       "api",
			DistanceMi:   floatPtr(3.1),
		})
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 1, "POST", "/workouts/", bytes.NewBuffer(reqJson)))
		require.Equal(t, http.StatusCreated, rr.Code)

		var workout Workout
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &workout))
		assert.NotZero(t, workout.ID)
		assert.Equal(t, 1, workout.UserID)
		assert.Equal(t, "api", workout.Source)
	})

	t.Run("mandatory fields", func(t *testing.T) {
		for name, req := range map[string]createWorkoutRequest{
			"no date": {ActivityType: "Running", Source: "api"},
			"no activity type": {
				WorkoutDate: datePtr(time.Now()), Source: "api",
			},
			"no source": {
				WorkoutDate: datePtr(time.Now()), ActivityType: "Running",
			},
		} {
			reqJson, err := json.Marshal(req)
			require.NoError(t, err)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, authedRequest(t, 1, "POST", "/workouts/", bytes.NewBuffer(reqJson)))
			assert.Equal(t, http.StatusBadRequest, rr.Code, name)
		}
	})
}

func csvUploadRequest(t *testing.T, userID int, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := authedRequest(t, userID, "POST", "/workouts/upload-csv", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandler_HandleUploadCSV(t *testing.T) {
	repo := newRepoMock()
	handler := NewHandler(repo, metrics.NewTestManager())
	router := newTestRouter(handler)

	csvContent := csvHeader + "\n" +
		"2024-09-05,Running,310,3.1,1860,10.0,8.5,6.0,7.1,garmin,,155,4200,\n" +
		"2024-09-07,Running,280,2.9,1800,10.2,9.0,5.9,6.6,garmin,,150,3900,\n"

	t.Run("happy path", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, csvUploadRequest(t, 1, "workouts.csv", csvContent))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp ImportResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ImportID)
		assert.Equal(t, 2, resp.Total)
		require.Len(t, resp.Items, 2)
		for _, item := range resp.Items {
			assert.NotZero(t, item.ID)
			assert.Equal(t, 1, item.UserID)
			assert.Equal(t, "garmin", item.Source)
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, csvUploadRequest(t, 1, "workouts.xlsx", csvContent))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), ".csv")
	})

	t.Run("bad row creates nothing", func(t *testing.T) {
		before, err := repo.Count(context.Background(), WorkoutParams{UserID: 7})
		require.NoError(t, err)
		require.Zero(t, before)

		badContent := csvContent +
			"never,Running,280,2.9,1800,10.2,9.0,5.9,6.6,garmin,,150,3900,\n"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, csvUploadRequest(t, 7, "workouts.csv", badContent))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "row 3")

		after, err := repo.Count(context.Background(), WorkoutParams{UserID: 7})
		require.NoError(t, err)
		assert.Zero(t, after)
	})

	t.Run("missing file", func(t *testing.T) {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		require.NoError(t, writer.Close())

		req := authedRequest(t, 1, "POST", "/workouts/upload-csv", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandler_HandleAnalyticsSummary(t *testing.T) {
	repo := newRepoMock()
	handler := NewHandler(repo, metrics.NewTestManager())
	router := newTestRouter(handler)

	_, err := repo.Create(context.Background(), runOn(1, time.Now().UTC().AddDate(0, 0, -1), 3.1, 10.0, 1860))
	require.NoError(t, err)

	t.Run("summary", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 1, "GET", "/workouts/analytics/summary?days=7", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var summary Summary
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
		assert.Equal(t, 1, summary.TotalRuns)
		assert.Equal(t, 3.1, summary.TotalDistanceMi)
	})

	t.Run("days is required", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(t, 1, "GET", "/workouts/analytics/summary", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("days and range conflict", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(
			t, 1, "GET",
			"/workouts/analytics/summary?days=7&start_date=2024-01-01&end_date=2024-03-31", nil,
		))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("explicit range with all-time days", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(
			t, 1, "GET",
			"/workouts/analytics/summary?days=-1&start_date=2020-01-01&end_date=2020-12-31", nil,
		))
		require.Equal(t, http.StatusOK, rr.Code)

		var summary Summary
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
		assert.Zero(t, summary.TotalRuns)
	})
}

func TestHandler_HandleAnalyticsTrends(t *testing.T) {
	repo := newRepoMock()
	handler := NewHandler(repo, metrics.NewTestManager())
	router := newTestRouter(handler)

	_, err := repo.Create(context.Background(), runOn(1, time.Now().UTC().AddDate(0, 0, -2), 3.0, 10.0, 1800))
	require.NoError(t, err)

	t.Run("distance by day", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(
			t, 1, "GET", "/workouts/analytics/trends?days=7&metric=distance&group_by=day", nil,
		))
		require.Equal(t, http.StatusOK, rr.Code)

		var trends Trends
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &trends))
		require.Len(t, trends.Points, 1)
		assert.Equal(t, 3.0, trends.Points[0].Value)
	})

	t.Run("invalid metric and group_by", func(t *testing.T) {
		for _, target := range []string{
			"/workouts/analytics/trends?days=7&metric=speed&group_by=day",
			"/workouts/analytics/trends?days=7&metric=distance&group_by=year",
		} {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, authedRequest(t, 1, "GET", target, nil))
			assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		}
	})
}

func TestHandler_Unauthenticated(t *testing.T) {
	handler := NewHandler(newRepoMock(), metrics.NewTestManager())
	router := newTestRouter(handler)

	req, err := http.NewRequest("GET", "/workouts/", strings.NewReader(""))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
