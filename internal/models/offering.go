package models

import "time"

// CourseOffering assigns a teacher to teach one subject to one
// cohort+section. At most one offering may exist per
// (tenant, subject, cohort, section); this is a persisted uniqueness
// invariant, not a UI-level check.
type CourseOffering struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	CohortID  string    `db:"cohort_id" json:"cohort_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseOfferingDetail joins display metadata onto an offering.
type CourseOfferingDetail struct {
	CourseOffering
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	CohortName  string `db:"cohort_name" json:"cohort_name"`
	SectionName string `db:"section_name" json:"section_name"`
}

// OfferingFilter scopes offering listings.
type OfferingFilter struct {
	TeacherID string
	SubjectID string
	CohortID  string
	SectionID string
	Page      int
	PageSize  int
}
