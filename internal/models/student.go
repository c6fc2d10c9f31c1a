package models

import "time"

// Stage is one of the four ordered education stages a student belongs to.
type Stage string

const (
	StagePrimary     Stage = "ابتدائي"
	StagePreparatory Stage = "إعدادي"
	StageSecondary   Stage = "ثانوي"
	StageUniversity  Stage = "جامعة"
)

// StageOrder lists stages in their natural order; the Friday recreational
// program assigns one time block per stage in this order.
var StageOrder = []Stage{StagePrimary, StagePreparatory, StageSecondary, StageUniversity}

// Valid returns true when the stage is a supported value.
func (s Stage) Valid() bool {
	for _, stage := range StageOrder {
		if s == stage {
			return true
		}
	}
	return false
}

// StudentStatus tracks regular participation after acceptance.
type StudentStatus string

const (
	StudentStatusRegular   StudentStatus = "منتظم"
	StudentStatusLapsed    StudentStatus = "منقطع"
	StudentStatusSuspended StudentStatus = "متوقف"
)

// ApplicationStatus is the intake pipeline state of a student.
type ApplicationStatus string

const (
	ApplicationNew                ApplicationStatus = "New"
	ApplicationFormGiven          ApplicationStatus = "FormGiven"
	ApplicationFormSubmitted      ApplicationStatus = "FormSubmitted"
	ApplicationInterviewScheduled ApplicationStatus = "InterviewScheduled"
	ApplicationInterviewCompleted ApplicationStatus = "InterviewCompleted"
	ApplicationAccepted           ApplicationStatus = "Accepted"
	ApplicationRejected           ApplicationStatus = "Rejected"
	ApplicationPending            ApplicationStatus = "Pending"
)

// Terminal reports whether no further intake transition is allowed.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// applicationTransitions encodes the intake DAG. Pending is a holding state
// that can still resolve to Accepted or Rejected.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationNew:                {ApplicationFormGiven},
	ApplicationFormGiven:          {ApplicationFormSubmitted},
	ApplicationFormSubmitted:      {ApplicationInterviewScheduled},
	ApplicationInterviewScheduled: {ApplicationInterviewCompleted, ApplicationAccepted, ApplicationRejected, ApplicationPending},
	ApplicationInterviewCompleted: {ApplicationAccepted, ApplicationRejected, ApplicationPending},
	ApplicationPending:            {ApplicationAccepted, ApplicationRejected},
}

// CanTransition reports whether moving from s to next is a legal intake step.
func (s ApplicationStatus) CanTransition(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Student represents a candidate or enrolled student. HalqaID is set if and
// only if the application status is Accepted.
type Student struct {
	ID                string            `db:"id" json:"id"`
	Name              string            `db:"name" json:"name"`
	Age               *int              `db:"age" json:"age,omitempty"`
	Stage             Stage             `db:"stage" json:"stage"`
	HalqaID           *string           `db:"halqa_id" json:"halqa_id,omitempty"`
	GuardianID        string            `db:"guardian_id" json:"guardian_id"`
	Status            StudentStatus     `db:"status" json:"status"`
	ApplicationStatus ApplicationStatus `db:"application_status" json:"application_status"`
	Notes             *string           `db:"notes" json:"notes,omitempty"`
	InterviewNotes    *string           `db:"interview_notes" json:"interview_notes,omitempty"`
	Active            bool              `db:"active" json:"active"`
	EnrolledAt        time.Time         `db:"enrolled_at" json:"enrolled_at"`
	FormGivenAt       *time.Time        `db:"form_given_at" json:"form_given_at,omitempty"`
	FormSubmittedAt   *time.Time        `db:"form_submitted_at" json:"form_submitted_at,omitempty"`
	AcceptedAt        *time.Time        `db:"accepted_at" json:"accepted_at,omitempty"`
	AcceptedBy        *string           `db:"accepted_by" json:"accepted_by,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// StudentFilter defines query filters for student listings.
type StudentFilter struct {
	Stage             Stage
	HalqaID           string
	ApplicationStatus ApplicationStatus
	ActiveOnly        bool
	Page              int
	PageSize          int
}
