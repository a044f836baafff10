package workouts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain will run goleak after all tests have been run in the package
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParseDate(t *testing.T) {
	sept5 := time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"2024-09-05", sept5},
		{"Sep 5, 2024", sept5},
		{"Sept 5, 2024", sept5},
		{"September 5, 2024", sept5},
		// dotted abbreviations normalize without leaving a stray dot
		{"Sept. 5, 2024", sept5},
		{"Oct. 5, 2024", time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)},
		{"Jan. 2, 2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"09/05/2024", sept5},
		{"2024-09-05 14:30:00", time.Date(2024, 9, 5, 14, 30, 0, 0, time.UTC)},
		// 13 is not a valid month, so the day/month fallback kicks in
		{"13/05/2024", time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)},
		// ambiguous dates resolve to US ordering
		{"03/04/2024", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		// repeated whitespace collapses
		{"Sept  5,   2024", sept5},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			parsed, err := parseDate(tc.input)
			require.NoError(t, err)
			assert.True(t, tc.expected.Equal(parsed), "got %s", parsed)
		})
	}

	for _, invalid := range []string{"", "not a date", "2024/09/05", "32/13/2024"} {
		_, err := parseDate(invalid)
		assert.Error(t, err, "input %q", invalid)
	}
}

func TestSafeInt(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	assert.Nil(t, safeInt("", true, false))
	assert.Equal(t, intPtr(0), safeInt("", false, false))
	assert.Nil(t, safeInt("0", true, true))
	assert.Nil(t, safeInt("0", false, true))
	assert.Equal(t, intPtr(150), safeInt("150", false, false))
	assert.Equal(t, intPtr(12), safeInt("12.7", false, false))
	assert.Nil(t, safeInt("garbage", true, false))
	assert.Equal(t, intPtr(0), safeInt("garbage", false, false))
}

func TestSafeFloat(t *testing.T) {
	assert.Equal(t, 3.14, *safeFloat("3.14"))
	assert.Equal(t, 0.0, *safeFloat(""))
	assert.Equal(t, 0.0, *safeFloat("garbage"))
	assert.Equal(t, 5.0, *safeFloat(" 5 "))
}

func TestCleanNotes(t *testing.T) {
	assert.Nil(t, cleanNotes(""))
	assert.Nil(t, cleanNotes("   "))
	assert.Nil(t, cleanNotes("b''"))
	assert.Equal(t, "easy morning jog", *cleanNotes("b'easy morning jog'"))
	assert.Equal(t, "plain note", *cleanNotes("plain note"))
}

const csvHeader = "Workout Date,Activity Type,Calories Burned (kCal),Distance (mi)," +
	"Workout Time (seconds),Avg Pace (min/mi),Max Pace (min/mi),Avg Speed (mi/h)," +
	"Max Speed (mi/h),Source,Link,Avg Heart Rate,Steps,Notes"

func TestParseCSV(t *testing.T) {
	csvContent := csvHeader + "\n" +
		`"Sept 5, 2024",Running,310,3.1,1860,10.0,8.5,6.0,7.1,garmin,https://connect.garmin.com/a/1,155,4200,b'easy morning jog'` + "\n" +
		`2024-09-07,Walking,,1.2,2400,,,,,manual,,0,0,` + "\n"

	parsed, err := ParseCSV(strings.NewReader(csvContent), 42)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	run := parsed[0]
	assert.Equal(t, 42, run.UserID)
	assert.True(t, time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC).Equal(run.WorkoutDate))
	assert.Equal(t, "Running", run.ActivityType)
	assert.Equal(t, "garmin", run.Source)
	assert.Equal(t, 310, *run.CaloriesBurned)
	assert.Equal(t, 3.1, *run.DistanceMi)
	assert.Equal(t, 1860, *run.WorkoutTimeSeconds)
	assert.Equal(t, 10.0, *run.AvgPaceMinMi)
	assert.Equal(t, 155, *run.AvgHeartRate)
	assert.Equal(t, 4200, *run.Steps)
	assert.Equal(t, "easy morning jog", *run.Notes)
	assert.Equal(t, "https://connect.garmin.com/a/1", *run.ExternalLink)

	walk := parsed[1]
	assert.Equal(t, "Walking", walk.ActivityType)
	// empty cells default to zero for required numerics
	assert.Equal(t, 0, *walk.CaloriesBurned)
	assert.Equal(t, 0.0, *walk.AvgPaceMinMi)
	// zero heart rate and steps are not real readings
	assert.Nil(t, walk.AvgHeartRate)
	assert.Nil(t, walk.Steps)
	assert.Nil(t, walk.Notes)
	assert.Nil(t, walk.ExternalLink)
}

func TestParseCSV_OptionalColumnsAbsent(t *testing.T) {
	csvContent := "Workout Date,Activity Type,Calories Burned (kCal),Distance (mi)," +
		"Workout Time (seconds),Avg Pace (min/mi),Max Pace (min/mi),Avg Speed (mi/h)," +
		"Max Speed (mi/h),Source,Link\n" +
		"2024-09-05,Running,310,3.1,1860,10.0,8.5,6.0,7.1,garmin,\n"

	parsed, err := ParseCSV(strings.NewReader(csvContent), 1)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Nil(t, parsed[0].AvgHeartRate)
	assert.Nil(t, parsed[0].Steps)
	assert.Nil(t, parsed[0].Notes)
}

func TestParseCSV_MissingColumns(t *testing.T) {
	csvContent := "Workout Date,Activity Type,Distance (mi)\n2024-09-05,Running,3.1\n"

	_, err := ParseCSV(strings.NewReader(csvContent), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
	assert.Contains(t, err.Error(), "Calories Burned (kCal)")
	assert.Contains(t, err.Error(), "Source")
}

func TestParseCSV_BadRowAbortsAll(t *testing.T) {
	csvContent := csvHeader + "\n" +
		"2024-09-05,Running,310,3.1,1860,10.0,8.5,6.0,7.1,garmin,,,,\n" +
		"not a date,Running,280,2.9,1800,10.2,9.0,5.9,6.6,garmin,,,,\n"

	_, err := ParseCSV(strings.NewReader(csvContent), 1)
	require.Error(t, err)

	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 2, rowErr.Row)
	assert.Contains(t, err.Error(), "unrecognized date format")
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty csv file")

	// header only is fine, there is just nothing to import
	parsed, err := ParseCSV(strings.NewReader(csvHeader+"\n"), 1)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}
