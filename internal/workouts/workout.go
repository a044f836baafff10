package workouts

import "time"

// Workout is a single recorded exercise session. The submission timestamp
// and the workout timestamp are distinct: the former says when the record
// entered the system, the latter when the activity happened.
type Workout struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	DateSubmitted time.Time `json:"date_submitted"`
	WorkoutDate   time.Time `json:"workout_date"`
	ActivityType  string    `json:"activity_type"`
	Source        string    `json:"source"`

	// measurements are optional, absence is meaningful
	// (a walk may have no pace, a bike ride no steps)
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

type ListResponse struct {
	Items []*Workout `json:"items"`
	Total int        `json:"total"`
}
