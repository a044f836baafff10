package workouts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/arnoldcano/analyzemyrun/internal/telemetry/tracing"
)

type TrendMetric string

const (
	TrendMetricDistance TrendMetric = "distance"
	TrendMetricPace     TrendMetric = "pace"
	TrendMetricTime     TrendMetric = "time"
)

func (m TrendMetric) Valid() bool {
	switch m {
	case TrendMetricDistance, TrendMetricPace, TrendMetricTime:
		return true
	}
	return false
}

type TrendGroupBy string

const (
	TrendGroupByDay   TrendGroupBy = "day"
	TrendGroupByWeek  TrendGroupBy = "week"
	TrendGroupByMonth TrendGroupBy = "month"
)

func (g TrendGroupBy) Valid() bool {
	switch g {
	case TrendGroupByDay, TrendGroupByWeek, TrendGroupByMonth:
		return true
	}
	return false
}

type WeeklyMileage struct {
	WeekStart  string  `json:"week_start"`
	DistanceMi float64 `json:"distance_mi"`
}

type Achievement struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Date  string `json:"date"`
}

type PaceZones struct {
	Easy     int `json:"easy"`
	Moderate int `json:"moderate"`
	Tempo    int `json:"tempo"`
}

type Summary struct {
	TotalRuns        int             `json:"total_runs"`
	TotalDistanceMi  float64         `json:"total_distance_mi"`
	AvgDistanceMi    float64         `json:"avg_distance_mi"`
	LongestRunMi     float64         `json:"longest_run_mi"`
	BestPaceMinMi    *float64        `json:"best_pace_min_mi"`
	AvgPaceMinMi     *float64        `json:"avg_pace_min_mi"`
	TotalTimeSeconds int             `json:"total_time_seconds"`
	WeeklyMileage    []WeeklyMileage `json:"weekly_mileage"`
	Achievements     []Achievement   `json:"achievements"`
	PaceZones        PaceZones       `json:"pace_zones"`
}

type TrendPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

type Trends struct {
	Metric  TrendMetric  `json:"metric"`
	GroupBy TrendGroupBy `json:"group_by"`
	Points  []TrendPoint `json:"points"`
}

type analyzerRepo interface {
	ListInRange(ctx context.Context, userID int, from, to *time.Time) ([]*Workout, error)
}

// Analyzer computes run statistics over a user's workouts. Only workouts
// with activity type "Run" or "Running" qualify.
type Analyzer struct {
	repo analyzerRepo
}

func NewAnalyzer(repo analyzerRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

func isRun(w *Workout) bool {
	return w.ActivityType == "Run" || w.ActivityType == "Running"
}

// hasPace reports whether the workout recorded a usable pace. A zero pace
// comes from exports with no reading, it is not a real measurement.
func hasPace(w *Workout) bool {
	return w.AvgPaceMinMi != nil && *w.AvgPaceMinMi > 0
}

func distanceOf(w *Workout) float64 {
	if w.DistanceMi == nil {
		return 0
	}
	return *w.DistanceMi
}

func timeSecondsOf(w *Workout) int {
	if w.WorkoutTimeSeconds == nil {
		return 0
	}
	return *w.WorkoutTimeSeconds
}

func mondayOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func (a *Analyzer) runsInWindow(
	ctx context.Context,
	userID int,
	window Window,
) ([]*Workout, error) {
	workouts, err := a.repo.ListInRange(ctx, userID, window.From, window.To)
	if err != nil {
		return nil, err
	}

	runs := make([]*Workout, 0, len(workouts))
	for _, w := range workouts {
		if isRun(w) {
			runs = append(runs, w)
		}
	}
	return runs, nil
}

func (a *Analyzer) Summary(
	ctx context.Context,
	userID int,
	window Window,
) (_ *Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.summary")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	runs, err := a.runsInWindow(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		WeeklyMileage: []WeeklyMileage{},
		Achievements:  []Achievement{},
	}
	if len(runs) == 0 {
		return summary, nil
	}

	summary.TotalRuns = len(runs)

	// runs come back sorted by workout date ascending, so on equal
	// distances or paces the earliest run wins
	var longestRun *Workout
	var bestPaceRun *Workout
	var paceSum float64
	var pacedCount int
	weekly := map[time.Time]float64{}

	for _, run := range runs {
		distance := distanceOf(run)
		summary.TotalDistanceMi += distance
		summary.TotalTimeSeconds += timeSecondsOf(run)

		if longestRun == nil || distance > distanceOf(longestRun) {
			longestRun = run
		}
		if hasPace(run) {
			paceSum += *run.AvgPaceMinMi
			pacedCount++
			if bestPaceRun == nil || *run.AvgPaceMinMi < *bestPaceRun.AvgPaceMinMi {
				bestPaceRun = run
			}
		}

		weekStart := mondayOfWeek(run.WorkoutDate)
		weekly[weekStart] += distance
	}

	summary.AvgDistanceMi = summary.TotalDistanceMi / float64(len(runs))
	summary.LongestRunMi = distanceOf(longestRun)

	if pacedCount > 0 {
		bestPace := *bestPaceRun.AvgPaceMinMi
		avgPace := paceSum / float64(pacedCount)
		summary.BestPaceMinMi = &bestPace
		summary.AvgPaceMinMi = &avgPace

		// classify each paced run against the run set's own mean pace
		for _, run := range runs {
			if !hasPace(run) {
				continue
			}
			switch pace := *run.AvgPaceMinMi; {
			case pace > avgPace*1.1:
				summary.PaceZones.Easy++
			case pace <= avgPace*0.9:
				summary.PaceZones.Tempo++
			default:
				summary.PaceZones.Moderate++
			}
		}
	}

	weekStarts := make([]time.Time, 0, len(weekly))
	for weekStart := range weekly {
		weekStarts = append(weekStarts, weekStart)
	}
	sort.Slice(weekStarts, func(i, j int) bool {
		return weekStarts[i].Before(weekStarts[j])
	})
	for _, weekStart := range weekStarts {
		summary.WeeklyMileage = append(summary.WeeklyMileage, WeeklyMileage{
			WeekStart:  weekStart.Format("2006-01-02"),
			DistanceMi: weekly[weekStart],
		})
	}

	summary.Achievements = append(summary.Achievements, Achievement{
		Title: "Longest run",
		Value: fmt.Sprintf("%.2f mi", distanceOf(longestRun)),
		Date:  longestRun.WorkoutDate.Format("2006-01-02"),
	})
	if bestPaceRun != nil {
		summary.Achievements = append(summary.Achievements, Achievement{
			Title: "Best pace",
			Value: fmt.Sprintf("%.2f min/mi", *bestPaceRun.AvgPaceMinMi),
			Date:  bestPaceRun.WorkoutDate.Format("2006-01-02"),
		})
	}

	return summary, nil
}

func bucketStart(t time.Time, groupBy TrendGroupBy) time.Time {
	switch groupBy {
	case TrendGroupByWeek:
		return mondayOfWeek(t)
	case TrendGroupByMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return startOfDay(t)
	}
}

func (a *Analyzer) Trends(
	ctx context.Context,
	userID int,
	metric TrendMetric,
	groupBy TrendGroupBy,
	window Window,
) (_ *Trends, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.trends")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if !metric.Valid() {
		return nil, fmt.Errorf("invalid metric: %q", metric)
	}
	if !groupBy.Valid() {
		return nil, fmt.Errorf("invalid group_by: %q", groupBy)
	}

	runs, err := a.runsInWindow(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	sums := map[time.Time]float64{}
	pacedCounts := map[time.Time]int{}
	for _, run := range runs {
		bucket := bucketStart(run.WorkoutDate, groupBy)
		switch metric {
		case TrendMetricDistance:
			sums[bucket] += distanceOf(run)
		case TrendMetricTime:
			sums[bucket] += float64(timeSecondsOf(run))
		case TrendMetricPace:
			// a bucket where no run recorded a pace has an undefined
			// mean and is omitted entirely
			if !hasPace(run) {
				continue
			}
			sums[bucket] += *run.AvgPaceMinMi
			pacedCounts[bucket]++
		}
	}

	buckets := make([]time.Time, 0, len(sums))
	for bucket := range sums {
		buckets = append(buckets, bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Before(buckets[j])
	})

	trends := &Trends{
		Metric:  metric,
		GroupBy: groupBy,
		Points:  make([]TrendPoint, 0, len(buckets)),
	}
	for _, bucket := range buckets {
		value := sums[bucket]
		if metric == TrendMetricPace {
			value /= float64(pacedCounts[bucket])
		}
		trends.Points = append(trends.Points, TrendPoint{
			Period: bucket.Format("2006-01-02"),
			Value:  value,
		})
	}

	return trends, nil
}
