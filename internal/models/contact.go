package models

import "time"

// ContactReason classifies why a guardian contact is owed.
type ContactReason string

const (
	ContactReasonInterview  ContactReason = "interview"
	ContactReasonAcceptance ContactReason = "acceptance"
	ContactReasonRejection  ContactReason = "rejection"
	ContactReasonAttendance ContactReason = "attendance"
)

// ContactEvent is the fire-and-forget "contact owed" notification emitted by
// the workflow services. The core never awaits or retries delivery itself;
// the dispatch queue does.
type ContactEvent struct {
	GuardianID string        `json:"guardian_id"`
	StudentID  string        `json:"student_id"`
	Reason     ContactReason `json:"reason"`
	Detail     string        `json:"detail,omitempty"`
}

// ContactLog is the persisted trace of a dispatched guardian contact.
type ContactLog struct {
	ID         string        `db:"id" json:"id"`
	GuardianID string        `db:"guardian_id" json:"guardian_id"`
	StudentID  string        `db:"student_id" json:"student_id"`
	Reason     ContactReason `db:"reason" json:"reason"`
	Detail     *string       `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}
