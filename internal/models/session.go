package models

import "time"

// SessionStatus is the per-instance lifecycle state, strictly forward-only.
type SessionStatus string

const (
	SessionNotStarted SessionStatus = "لم تبدأ"
	SessionStarted    SessionStatus = "بدأت"
	SessionEnded      SessionStatus = "انتهت"
)

// Next returns the only legal successor state, or empty when terminal.
func (s SessionStatus) Next() SessionStatus {
	switch s {
	case SessionNotStarted:
		return SessionStarted
	case SessionStarted:
		return SessionEnded
	default:
		return ""
	}
}

// DayType distinguishes routine sessions from the Friday program.
type DayType string

const (
	DayTypeNormal DayType = "عادي"
	DayTypeFriday DayType = "جمعة"
)

// FridayActivity marks the Friday program mode a session belongs to.
type FridayActivity string

const (
	FridayEducational  FridayActivity = "تربوي"
	FridayRecreational FridayActivity = "ترفيهي"
)

// Session is one dated occurrence of a halqa's (or the Friday program's)
// meeting. Exactly one session exists per (halqa, date) for normal days;
// recreational Friday sessions are keyed by (date, stage) instead and carry
// no halqa.
type Session struct {
	ID             string          `db:"id" json:"id"`
	HalqaID        *string         `db:"halqa_id" json:"halqa_id,omitempty"`
	Date           time.Time       `db:"date" json:"date"`
	DayType        DayType         `db:"day_type" json:"day_type"`
	Status         SessionStatus   `db:"status" json:"status"`
	FridayActivity *FridayActivity `db:"friday_activity" json:"friday_activity,omitempty"`
	FridayStage    *Stage          `db:"friday_stage" json:"friday_stage,omitempty"`
	TimeBlock      *string         `db:"time_block" json:"time_block,omitempty"`
	Notes          *string         `db:"notes" json:"notes,omitempty"`
	StartedAt      *time.Time      `db:"started_at" json:"started_at,omitempty"`
	EndedAt        *time.Time      `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// SessionFilter defines query filters for session listings.
type SessionFilter struct {
	HalqaID  string
	DayType  DayType
	Status   SessionStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// AttendanceStats is the recomputed per-status tally exposed on a session.
type AttendanceStats map[AttendanceStatus]int

// SessionWithStats bundles a session with its recomputed attendance tally.
type SessionWithStats struct {
	Session
	Stats AttendanceStats `json:"attendance_stats"`
}
