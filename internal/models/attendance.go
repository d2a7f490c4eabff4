package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLeave   AttendanceStatus = "LEAVE"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLeave:
		return true
	default:
		return false
	}
}

// AttendanceRecord is one student's status for one concrete session, the
// session being identified by (ClassScheduleID, Date). Records are created
// once per session batch and never mutated afterwards.
type AttendanceRecord struct {
	ID           string           `db:"id" json:"id"`
	TenantID     string           `db:"tenant_id" json:"tenant_id"`
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	OfferingID   string           `db:"offering_id" json:"offering_id"`
	ScheduleID   string           `db:"schedule_id" json:"schedule_id"`
	Date         time.Time        `db:"date" json:"date"`
	Status       AttendanceStatus `db:"status" json:"status"`
	MarkedBy     string           `db:"marked_by" json:"marked_by"`
	MarkedAt     time.Time        `db:"marked_at" json:"marked_at"`
}

// AttendanceCounts carries the raw per-status totals emitted after a
// submission and by the report read paths. Percentage semantics are left
// to reporting collaborators.
type AttendanceCounts struct {
	Present int `db:"present" json:"present"`
	Absent  int `db:"absent" json:"absent"`
	Leave   int `db:"leave" json:"leave"`
	Total   int `db:"total" json:"total"`
}

// SessionReportRow is one student's line in a per-session report.
type SessionReportRow struct {
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	StudentName  string           `db:"student_name" json:"student_name"`
	RollNumber   *string          `db:"roll_number" json:"roll_number,omitempty"`
	Status       AttendanceStatus `db:"status" json:"status"`
	MarkedAt     time.Time        `db:"marked_at" json:"marked_at"`
}

// SessionState is the time-lock state of an offering's day.
type SessionState string

const (
	// SessionActive means a session window is open and unmarked right now.
	SessionActive SessionState = "ACTIVE"
	// SessionUpcoming means today's next session has not opened yet.
	SessionUpcoming SessionState = "UPCOMING"
	// SessionNone means no further markable session remains today.
	SessionNone SessionState = "NONE"
)

// SessionStatus describes the current time-lock decision for a teacher's
// schedules, including why nothing is markable when State is NONE.
type SessionStatus struct {
	State          SessionState   `json:"state"`
	Reason         string         `json:"reason,omitempty"`
	Schedule       *ClassSchedule `json:"schedule,omitempty"`
	SecondsLeft    int            `json:"seconds_left,omitempty"`
	SecondsToStart int            `json:"seconds_to_start,omitempty"`
	LocalTime      time.Time      `json:"local_time"`
}
