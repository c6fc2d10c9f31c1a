package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "حاضر"
	AttendanceAbsent  AttendanceStatus = "غائب"
	AttendanceLate    AttendanceStatus = "متأخر"
	AttendanceExcused AttendanceStatus = "مستأذن"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// Attendance is the per-student, per-session presence record. The
// (student, session) pair is unique; re-submission overwrites.
type Attendance struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	SessionID     string           `db:"session_id" json:"session_id"`
	Status        AttendanceStatus `db:"status" json:"status"`
	AbsenceReason *string          `db:"absence_reason" json:"absence_reason,omitempty"`
	RecordedBy    string           `db:"recorded_by" json:"recorded_by"`
	RecordedAt    time.Time        `db:"recorded_at" json:"recorded_at"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceRow extends an attendance record with student metadata for
// reports and exports.
type AttendanceRow struct {
	Attendance
	StudentName  string `db:"student_name" json:"student_name"`
	StudentStage Stage  `db:"student_stage" json:"student_stage"`
}

// AttendanceRecordResult reports the outcome of one upsert within a batch.
type AttendanceRecordResult struct {
	StudentID string           `json:"student_id"`
	Status    AttendanceStatus `json:"status,omitempty"`
	OK        bool             `json:"ok"`
	Error     string           `json:"error,omitempty"`
}
