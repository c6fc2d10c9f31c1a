package models

import "time"

// InterviewStatus is the lifecycle state of a scheduled interview.
type InterviewStatus string

const (
	InterviewScheduled   InterviewStatus = "scheduled"
	InterviewCompleted   InterviewStatus = "completed"
	InterviewCancelled   InterviewStatus = "cancelled"
	InterviewRescheduled InterviewStatus = "rescheduled"
)

// InterviewResult is the evaluation outcome recorded by the conductor.
type InterviewResult string

const (
	ResultAccepted InterviewResult = "accepted"
	ResultRejected InterviewResult = "rejected"
	ResultPending  InterviewResult = "pending"
)

// Valid returns true when the result is a supported value.
func (r InterviewResult) Valid() bool {
	switch r {
	case ResultAccepted, ResultRejected, ResultPending:
		return true
	default:
		return false
	}
}

// Interview is a reserved evaluation slot for a candidate student. The
// (date, slot) pair is capacity-bounded at reservation time.
type Interview struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	ScheduledDate time.Time        `db:"scheduled_date" json:"scheduled_date"`
	DayOfWeek     string           `db:"day_of_week" json:"day_of_week"`
	TimeSlot      string           `db:"time_slot" json:"time_slot"`
	Status        InterviewStatus  `db:"status" json:"status"`
	Result        *InterviewResult `db:"result" json:"result,omitempty"`
	Notes         *string          `db:"notes" json:"notes,omitempty"`
	ScheduledBy   string           `db:"scheduled_by" json:"scheduled_by"`
	ConductedAt   *time.Time       `db:"conducted_at" json:"conducted_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// InterviewDetail extends an interview with candidate metadata.
type InterviewDetail struct {
	Interview
	StudentName  string `db:"student_name" json:"student_name"`
	StudentStage Stage  `db:"student_stage" json:"student_stage"`
}
