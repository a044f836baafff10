package goals

import "time"

// Goal is a user-declared target. Type is an open string (distance, time,
// race, ...), and the target value is stored as text to accommodate
// heterogeneous target kinds ("26.2 mi", "sub 4:00 marathon").
type Goal struct {
	ID          int        `json:"id"`
	UserID      int        `json:"user_id"`
	Type        string     `json:"type"`
	Target      string     `json:"target"`
	TargetDate  time.Time  `json:"target_date"`
	DateCreated time.Time  `json:"date_created"`
	Completed   *time.Time `json:"completed"`
}
