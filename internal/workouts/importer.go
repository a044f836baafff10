package workouts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// requiredColumns must all be present in an uploaded CSV header.
// Avg Heart Rate, Steps and Notes are tolerated absent.
var requiredColumns = []string{
	"Workout Date",
	"Activity Type",
	"Calories Burned (kCal)",
	"Distance (mi)",
	"Workout Time (seconds)",
	"Avg Pace (min/mi)",
	"Max Pace (min/mi)",
	"Avg Speed (mi/h)",
	"Max Speed (mi/h)",
	"Source",
	"Link",
}

// monthReplacer normalizes verbose and dotted month names to the
// three-letter abbreviations understood by the date layouts. Longer forms
// come before their prefixes ("September" and "Sept." before "Sept"), so
// the replacer never leaves a stray dot behind. The irregular four-letter
// "Sept" maps to "Sep" too.
var monthReplacer = strings.NewReplacer(
	"January", "Jan",
	"Jan.", "Jan",
	"February", "Feb",
	"Feb.", "Feb",
	"March", "Mar",
	"Mar.", "Mar",
	"April", "Apr",
	"Apr.", "Apr",
	"June", "Jun",
	"Jun.", "Jun",
	"July", "Jul",
	"Jul.", "Jul",
	"August", "Aug",
	"Aug.", "Aug",
	"September", "Sep",
	"Sept.", "Sep",
	"Sept", "Sep",
	"October", "Oct",
	"Oct.", "Oct",
	"November", "Nov",
	"Nov.", "Nov",
	"December", "Dec",
	"Dec.", "Dec",
)

// dateLayouts are tried in order, first match wins. MM/DD comes before
// DD/MM, so an ambiguous date like 03/04/2024 resolves to US ordering.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
}

func parseDate(value string) (time.Time, error) {
	normalized := monthReplacer.Replace(strings.Join(strings.Fields(value), " "))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", value)
}

// safeInt coerces a CSV cell to an integer. Empty or unparseable input
// becomes nil when allowNull, zero otherwise. Fractions are truncated.
// With zeroAsNull a parsed zero also becomes nil, since a true zero is
// not a meaningful reading for fields like heart rate or steps.
func safeInt(value string, allowNull, zeroAsNull bool) *int {
	value = strings.TrimSpace(value)
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		if allowNull {
			return nil
		}
		zero := 0
		return &zero
	}
	v := int(parsed)
	if zeroAsNull && v == 0 {
		return nil
	}
	return &v
}

// safeFloat coerces a CSV cell to a float, defaulting to 0.0 on empty
// or unparseable input.
func safeFloat(value string) *float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		zero := 0.0
		return &zero
	}
	return &parsed
}

// cleanNotes strips the b'...' byte-literal artifacts some exporters
// leave around free-text notes.
func cleanNotes(value string) *string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "b'")
	value = strings.TrimSuffix(value, "'")
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

type RowError struct {
	Row   int // 1-based data row number, header excluded
	Cause error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Cause)
}

func (e *RowError) Unwrap() error {
	return e.Cause
}

// ParseCSV reads an exported workouts CSV and converts every data row to a
// workout owned by the given user. Any bad row fails the whole parse, so a
// partial file never reaches the database.
func ParseCSV(reader io.Reader, userID int) ([]Workout, error) {
	csvReader := csv.NewReader(reader)

	header, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv file")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columnIndex := make(map[string]int, len(header))
	for i, name := range header {
		columnIndex[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, required := range requiredColumns {
		if _, ok := columnIndex[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	cell := func(record []string, column string) string {
		idx, ok := columnIndex[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var workouts []Workout
	for rowNum := 1; ; rowNum++ {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &RowError{Row: rowNum, Cause: err}
		}

		workoutDate, err := parseDate(cell(record, "Workout Date"))
		if err != nil {
			return nil, &RowError{Row: rowNum, Cause: err}
		}

		activityType := strings.TrimSpace(cell(record, "Activity Type"))
		if activityType == "" {
			return nil, &RowError{Row: rowNum, Cause: errors.New("empty activity type")}
		}

		workout := Workout{
			UserID:             userID,
			WorkoutDate:        workoutDate,
			ActivityType:       activityType,
			Source:             strings.TrimSpace(cell(record, "Source")),
			CaloriesBurned:     safeInt(cell(record, "Calories Burned (kCal)"), false, false),
			DistanceMi:         safeFloat(cell(record, "Distance (mi)")),
			WorkoutTimeSeconds: safeInt(cell(record, "Workout Time (seconds)"), false, false),
			AvgPaceMinMi:       safeFloat(cell(record, "Avg Pace (min/mi)")),
			MaxPaceMinMi:       safeFloat(cell(record, "Max Pace (min/mi)")),
			AvgSpeedMph:        safeFloat(cell(record, "Avg Speed (mi/h)")),
			MaxSpeedMph:        safeFloat(cell(record, "Max Speed (mi/h)")),
			AvgHeartRate:       safeInt(cell(record, "Avg Heart Rate"), true, true),
			Steps:              safeInt(cell(record, "Steps"), true, true),
			Notes:              cleanNotes(cell(record, "Notes")),
		}
		if link := strings.TrimSpace(cell(record, "Link")); link != "" {
			workout.ExternalLink = &link
		}

		workouts = append(workouts, workout)
	}

	return workouts, nil
}
