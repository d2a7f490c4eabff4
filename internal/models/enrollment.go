package models

import "time"

// StudentEnrollment links one student to one CourseOffering. At most one
// row exists per (student, offering). Rows are created by propagation when
// offerings or students appear, or explicitly by an admin (repeaters).
type StudentEnrollment struct {
	ID         string    `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"tenant_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	OfferingID string    `db:"offering_id" json:"offering_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail joins student display data onto an enrollment, ordered
// by roll number for deterministic attendance sheets.
type EnrollmentDetail struct {
	StudentEnrollment
	StudentName string  `db:"student_name" json:"student_name"`
	RollNumber  *string `db:"roll_number" json:"roll_number,omitempty"`
}

// EnrollmentFilter scopes enrollment listings.
type EnrollmentFilter struct {
	StudentID  string
	OfferingID string
	Page       int
	PageSize   int
}
