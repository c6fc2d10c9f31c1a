package models

import (
	"time"

	"github.com/lib/pq"
)

// Arabic weekday names used throughout the center's schedules.
const (
	DaySaturday  = "السبت"
	DaySunday    = "الأحد"
	DayMonday    = "الإثنين"
	DayTuesday   = "الثلاثاء"
	DayWednesday = "الأربعاء"
	DayThursday  = "الخميس"
	DayFriday    = "الجمعة"
)

var weekdayByName = map[string]time.Weekday{
	DaySaturday:  time.Saturday,
	DaySunday:    time.Sunday,
	DayMonday:    time.Monday,
	DayTuesday:   time.Tuesday,
	DayWednesday: time.Wednesday,
	DayThursday:  time.Thursday,
	DayFriday:    time.Friday,
}

var nameByWeekday = map[time.Weekday]string{
	time.Saturday:  DaySaturday,
	time.Sunday:    DaySunday,
	time.Monday:    DayMonday,
	time.Tuesday:   DayTuesday,
	time.Wednesday: DayWednesday,
	time.Thursday:  DayThursday,
	time.Friday:    DayFriday,
}

// WeekdayFromName resolves an Arabic day name to a time.Weekday.
func WeekdayFromName(name string) (time.Weekday, bool) {
	d, ok := weekdayByName[name]
	return d, ok
}

// WeekdayName returns the Arabic name for a weekday.
func WeekdayName(d time.Weekday) string {
	return nameByWeekday[d]
}

// Halqa is a recurring small-group instructional unit with a fixed weekly
// schedule and capacity.
type Halqa struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	TeacherID       string         `db:"teacher_id" json:"teacher_id"`
	SupervisorID    *string        `db:"supervisor_id" json:"supervisor_id,omitempty"`
	Days            pq.StringArray `db:"days" json:"days"`
	StartTime       string         `db:"start_time" json:"start_time"`
	EndTime         string         `db:"end_time" json:"end_time"`
	SessionDuration int            `db:"session_duration" json:"session_duration"`
	MaxStudents     int            `db:"max_students" json:"max_students"`
	Active          bool           `db:"active" json:"active"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// MeetsOn reports whether the halqa's weekly schedule includes the weekday.
func (h *Halqa) MeetsOn(day time.Weekday) bool {
	for _, name := range h.Days {
		if d, ok := weekdayByName[name]; ok && d == day {
			return true
		}
	}
	return false
}

// HalqaRoster extends a halqa with its accepted student count.
type HalqaRoster struct {
	Halqa
	StudentCount int `db:"student_count" json:"student_count"`
}
