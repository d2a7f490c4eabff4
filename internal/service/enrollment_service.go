package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type enrollmentStore interface {
	Begin(ctx context.Context) (*sqlx.Tx, error)
	Create(ctx context.Context, enrollment *models.StudentEnrollment) error
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.StudentEnrollment) error
	Exists(ctx context.Context, exec sqlx.ExtContext, studentID, offeringID string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error)
	ListByOffering(ctx context.Context, offeringID string) ([]models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentEnrollment, error)
	Delete(ctx context.Context, id string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListStudentsByCohortSection(ctx context.Context, cohortID, sectionID string) ([]models.User, error)
	ExistsAnyTenant(ctx context.Context, id string) (bool, error)
}

type offeringReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
	ListByCohortSection(ctx context.Context, cohortID, sectionID string) ([]models.CourseOffering, error)
	ExistsAnyTenant(ctx context.Context, id string) (bool, error)
}

type enrollmentAttendanceReader interface {
	CountByEnrollment(ctx context.Context, enrollmentID string) (int, error)
}

// EnrollStudentRequest describes an explicit enrollment, used for students
// retaking a course outside their own cohort+section.
type EnrollStudentRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	OfferingID string `json:"offering_id" validate:"required"`
}

// EnrollmentService maintains the student<->offering links. The two
// propagation triggers reconcile against the same predicate: every student
// whose cohort+section matches an offering is enrolled in it. Both are
// idempotent, so reruns and overlapping triggers converge on one row per
// (student, offering).
type EnrollmentService struct {
	repo       enrollmentStore
	students   studentReader
	offerings  offeringReader
	attendance enrollmentAttendanceReader
	logger     *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, students studentReader, offerings offeringReader, attendance enrollmentAttendanceReader, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, offerings: offerings, attendance: attendance, logger: logger}
}

// SyncOffering enrolls every matching student into a freshly created
// offering. Runs inside the offering's own transaction so the offering and
// its roster land atomically.
func (s *EnrollmentService) SyncOffering(ctx context.Context, tx *sqlx.Tx, offering *models.CourseOffering) (int, error) {
	students, err := s.students.ListStudentsByCohortSection(ctx, offering.CohortID, offering.SectionID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve students for offering")
	}
	created := 0
	for i := range students {
		exists, err := s.repo.Exists(ctx, tx, students[i].ID, offering.ID)
		if err != nil {
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if exists {
			continue
		}
		enrollment := &models.StudentEnrollment{
			StudentID:  students[i].ID,
			OfferingID: offering.ID,
			EnrolledAt: time.Now().UTC(),
		}
		if err := s.repo.CreateWithTx(ctx, tx, enrollment); err != nil {
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
		}
		created++
	}
	return created, nil
}

// SyncStudent enrolls a student into every offering matching their
// cohort+section. Runs inside the student creation transaction.
func (s *EnrollmentService) SyncStudent(ctx context.Context, tx *sqlx.Tx, student *models.User) (int, error) {
	if student.Role != models.RoleStudent || student.CohortID == nil || student.SectionID == nil {
		return 0, nil
	}
	offerings, err := s.offerings.ListByCohortSection(ctx, *student.CohortID, *student.SectionID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve offerings for student")
	}
	created := 0
	for i := range offerings {
		exists, err := s.repo.Exists(ctx, tx, student.ID, offerings[i].ID)
		if err != nil {
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if exists {
			continue
		}
		enrollment := &models.StudentEnrollment{
			StudentID:  student.ID,
			OfferingID: offerings[i].ID,
			EnrolledAt: time.Now().UTC(),
		}
		if err := s.repo.CreateWithTx(ctx, tx, enrollment); err != nil {
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
		}
		created++
	}
	return created, nil
}

// Enroll registers a student into an offering explicitly. Covers links the
// propagation predicate never produces, e.g. a repeater sitting in with a
// younger cohort's class.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollStudentRequest) (*models.StudentEnrollment, error) {
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "student", req.StudentID, s.students.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only students can be enrolled")
	}
	if _, err := s.offerings.FindByID(ctx, req.OfferingID); err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "offering", req.OfferingID, s.offerings.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	exists, err := s.repo.Exists(ctx, nil, req.StudentID, req.OfferingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this offering")
	}
	enrollment := &models.StudentEnrollment{
		StudentID:  req.StudentID,
		OfferingID: req.OfferingID,
		EnrolledAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// Unenroll removes an enrollment. Refused once attendance references it;
// the ledger is append-only and must stay resolvable.
func (s *EnrollmentService) Unenroll(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	count, err := s.attendance.CountByEnrollment(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance records")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrReferentialConflict, "enrollment has attendance records and cannot be removed")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	return nil
}

// Roster returns an offering's enrollments ordered by roll number.
func (s *EnrollmentService) Roster(ctx context.Context, offeringID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.offerings.FindByID(ctx, offeringID); err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "offering", offeringID, s.offerings.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	roster, err := s.repo.ListByOffering(ctx, offeringID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return roster, nil
}

// ListByStudent returns a student's enrollments.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.StudentEnrollment, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "student", studentID, s.students.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}
