package models

import (
	"fmt"
	"time"
)

// ClassSchedule defines a recurring weekly meeting of a CourseOffering.
// Start and end are wall-clock times in the tenant's zone ("HH:MM").
// Schedules are never hard-deleted: Archived preserves historical
// attendance while excluding the slot from active computation.
type ClassSchedule struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	OfferingID   string    `db:"offering_id" json:"offering_id"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	GraceMinutes int       `db:"grace_minutes" json:"grace_minutes"`
	Archived     bool      `db:"archived" json:"archived"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassScheduleDetail joins offering metadata onto a schedule.
type ClassScheduleDetail struct {
	ClassSchedule
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	CohortName  string `db:"cohort_name" json:"cohort_name"`
	SectionName string `db:"section_name" json:"section_name"`
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
}

// DefaultGraceMinutes applies when a schedule is created without an
// explicit grace period.
const DefaultGraceMinutes = 15

// MinuteOfDay parses an "HH:MM" clock time into minutes since midnight.
func MinuteOfDay(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ClockString renders minutes since midnight as zero-padded "HH:MM".
// Schedules persist this form so the text column sorts chronologically.
func ClockString(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// RangesOverlap reports whether the half-open ranges [s1,e1) and [s2,e2)
// overlap. Minutes since midnight on the same day.
func RangesOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}
