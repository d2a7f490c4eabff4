package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type offeringStore interface {
	Begin(ctx context.Context) (*sqlx.Tx, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, offering *models.CourseOffering) error
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
	FindExisting(ctx context.Context, subjectID, cohortID, sectionID string) (*models.CourseOfferingDetail, error)
	List(ctx context.Context, filter models.OfferingFilter) ([]models.CourseOfferingDetail, int, error)
	DeleteWithTx(ctx context.Context, tx *sqlx.Tx, id string) error
	ExistsAnyTenant(ctx context.Context, id string) (bool, error)
}

type catalogReader interface {
	FindCohortByID(ctx context.Context, id string) (*models.Cohort, error)
	FindSectionByID(ctx context.Context, id string) (*models.Section, error)
	FindSubjectByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsAnyTenant(ctx context.Context, table, id string) (bool, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsAnyTenant(ctx context.Context, id string) (bool, error)
}

type offeringPropagator interface {
	SyncOffering(ctx context.Context, tx *sqlx.Tx, offering *models.CourseOffering) (int, error)
}

type offeringEnrollmentCleaner interface {
	DeleteByOfferingWithTx(ctx context.Context, tx *sqlx.Tx, offeringID string) error
}

type offeringAttendanceReader interface {
	CountByOffering(ctx context.Context, offeringID string) (int, error)
}

// CreateOfferingRequest assigns a teacher a subject for a cohort+section.
type CreateOfferingRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	CohortID  string `json:"cohort_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// CreateOfferingResponse returns the offering and how many students the
// propagation trigger enrolled.
type CreateOfferingResponse struct {
	Offering *models.CourseOffering `json:"offering"`
	Enrolled int                    `json:"enrolled"`
}

// OfferingService manages course offerings. Creation and its enrollment
// propagation commit in one transaction; deletion cascades to enrollments
// but is refused once attendance references the offering.
type OfferingService struct {
	repo        offeringStore
	catalog     catalogReader
	teachers    teacherReader
	propagation offeringPropagator
	enrollments offeringEnrollmentCleaner
	attendance  offeringAttendanceReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewOfferingService constructs OfferingService.
func NewOfferingService(repo offeringStore, catalog catalogReader, teachers teacherReader, propagation offeringPropagator, enrollments offeringEnrollmentCleaner, attendance offeringAttendanceReader, validate *validator.Validate, logger *zap.Logger) *OfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{repo: repo, catalog: catalog, teachers: teachers, propagation: propagation, enrollments: enrollments, attendance: attendance, validator: validate, logger: logger}
}

// Create registers an offering and enrolls the matching students.
func (s *OfferingService) Create(ctx context.Context, req CreateOfferingRequest) (*CreateOfferingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}

	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "teacher", req.TeacherID, s.teachers.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assigned user is not a teacher")
	}
	if _, err := s.catalog.FindSubjectByID(ctx, req.SubjectID); err != nil {
		if isNoRows(err) {
			return nil, s.catalogMiss(ctx, "subject", "subjects", req.SubjectID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if _, err := s.catalog.FindCohortByID(ctx, req.CohortID); err != nil {
		if isNoRows(err) {
			return nil, s.catalogMiss(ctx, "cohort", "cohorts", req.CohortID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	if _, err := s.catalog.FindSectionByID(ctx, req.SectionID); err != nil {
		if isNoRows(err) {
			return nil, s.catalogMiss(ctx, "section", "sections", req.SectionID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	existing, err := s.repo.FindExisting(ctx, req.SubjectID, req.CohortID, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check offering uniqueness")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("%s is already taught to %s %s by %s", existing.SubjectName, existing.CohortName, existing.SectionName, existing.TeacherName))
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	offering := &models.CourseOffering{
		TeacherID: req.TeacherID,
		SubjectID: req.SubjectID,
		CohortID:  req.CohortID,
		SectionID: req.SectionID,
	}
	if err := s.repo.CreateWithTx(ctx, tx, offering); err != nil {
		tx.Rollback()
		// A concurrent create that lost the unique-index race is a
		// duplicate, not an internal failure.
		if appErrors.Is(err, appErrors.ErrDuplicateEntry) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create offering")
	}
	enrolled, err := s.propagation.SyncOffering(ctx, tx, offering)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit offering")
	}

	s.logger.Info("offering created",
		zap.String("offering_id", offering.ID),
		zap.String("teacher_id", offering.TeacherID),
		zap.Int("enrolled", enrolled),
	)
	return &CreateOfferingResponse{Offering: offering, Enrolled: enrolled}, nil
}

func (s *OfferingService) catalogMiss(ctx context.Context, entity, table, id string) error {
	return resolveMiss(ctx, s.logger, entity, id, func(ctx context.Context, id string) (bool, error) {
		return s.catalog.ExistsAnyTenant(ctx, table, id)
	})
}

// Get returns an offering by id.
func (s *OfferingService) Get(ctx context.Context, id string) (*models.CourseOffering, error) {
	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "offering", id, s.repo.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	return offering, nil
}

// List returns offerings with display metadata.
func (s *OfferingService) List(ctx context.Context, filter models.OfferingFilter) ([]models.CourseOfferingDetail, *models.Pagination, error) {
	offerings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return offerings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Delete removes an offering and its enrollments in one transaction.
// Refused once attendance references the offering.
func (s *OfferingService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if isNoRows(err) {
			return resolveMiss(ctx, s.logger, "offering", id, s.repo.ExistsAnyTenant)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	count, err := s.attendance.CountByOffering(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance records")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrReferentialConflict, "offering has attendance records and cannot be deleted")
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	if err := s.enrollments.DeleteByOfferingWithTx(ctx, tx, id); err != nil {
		tx.Rollback()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollments")
	}
	if err := s.repo.DeleteWithTx(ctx, tx, id); err != nil {
		tx.Rollback()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete offering")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit deletion")
	}
	s.logger.Info("offering deleted", zap.String("offering_id", id))
	return nil
}
