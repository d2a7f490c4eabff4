package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type catalogStore interface {
	CreateCohort(ctx context.Context, cohort *models.Cohort) error
	CohortNameExists(ctx context.Context, name string) (bool, error)
	FindCohortByID(ctx context.Context, id string) (*models.Cohort, error)
	ListCohorts(ctx context.Context) ([]models.Cohort, error)
	DeleteCohort(ctx context.Context, id string) error

	CreateSection(ctx context.Context, section *models.Section) error
	SectionNameExists(ctx context.Context, name string) (bool, error)
	FindSectionByID(ctx context.Context, id string) (*models.Section, error)
	ListSections(ctx context.Context) ([]models.Section, error)
	DeleteSection(ctx context.Context, id string) error

	CreateSubject(ctx context.Context, subject *models.Subject) error
	SubjectCodeExists(ctx context.Context, code string) (bool, error)
	FindSubjectByID(ctx context.Context, id string) (*models.Subject, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	DeleteSubject(ctx context.Context, id string) error

	ExistsAnyTenant(ctx context.Context, table, id string) (bool, error)
}

type offeringCounter interface {
	CountBySubject(ctx context.Context, subjectID string) (int, error)
	CountByCohort(ctx context.Context, cohortID string) (int, error)
	CountBySection(ctx context.Context, sectionID string) (int, error)
}

type studentCounter interface {
	CountStudentsByCohort(ctx context.Context, cohortID string) (int, error)
	CountStudentsBySection(ctx context.Context, sectionID string) (int, error)
}

// CreateCohortRequest names a new cohort.
type CreateCohortRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateSectionRequest names a new section.
type CreateSectionRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateSubjectRequest registers a subject under a code.
type CreateSubjectRequest struct {
	Code string `json:"code" validate:"required,max=30"`
	Name string `json:"name" validate:"required,max=200"`
}

// CatalogService manages the cohort, section and subject catalogs.
// Identity checks are case-insensitive within the tenant; deletions are
// refused while dependents reference the entry.
type CatalogService struct {
	repo      catalogStore
	offerings offeringCounter
	students  studentCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo catalogStore, offerings offeringCounter, students studentCounter, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, offerings: offerings, students: students, validator: validate, logger: logger}
}

// CreateCohort registers a cohort with a tenant-unique name.
func (s *CatalogService) CreateCohort(ctx context.Context, req CreateCohortRequest) (*models.Cohort, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort payload")
	}
	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.CohortNameExists(ctx, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check cohort name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("cohort %q already exists", name))
	}
	cohort := &models.Cohort{Name: name}
	if err := s.repo.CreateCohort(ctx, cohort); err != nil {
		if appErrors.Is(err, appErrors.ErrDuplicateEntry) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cohort")
	}
	return cohort, nil
}

// ListCohorts returns the tenant's cohorts.
func (s *CatalogService) ListCohorts(ctx context.Context) ([]models.Cohort, error) {
	cohorts, err := s.repo.ListCohorts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohorts")
	}
	return cohorts, nil
}

// DeleteCohort removes a cohort with no students or offerings attached.
func (s *CatalogService) DeleteCohort(ctx context.Context, id string) error {
	if _, err := s.repo.FindCohortByID(ctx, id); err != nil {
		if isNoRows(err) {
			return s.miss(ctx, "cohort", "cohorts", id)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	students, err := s.students.CountStudentsByCohort(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if students > 0 {
		return appErrors.Clone(appErrors.ErrReferentialConflict, fmt.Sprintf("cohort has %d students and cannot be deleted", students))
	}
	offerings, err := s.offerings.CountByCohort(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count offerings")
	}
	if offerings > 0 {
		return appErrors.Clone(appErrors.ErrReferentialConflict, fmt.Sprintf("cohort has %d offerings and cannot be deleted", offerings))
	}
	if err := s.repo.DeleteCohort(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete cohort")
	}
	return nil
}

// CreateSection registers a section with a tenant-unique name.
func (s *CatalogService) CreateSection(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.SectionNameExists(ctx, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("section %q already exists", name))
	}
	section := &models.Section{Name: name}
	if err := s.repo.CreateSection(ctx, section); err != nil {
		if appErrors.Is(err, appErrors.ErrDuplicateEntry) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// ListSections returns the tenant's sections.
func (s *CatalogService) ListSections(ctx context.Context) ([]models.Section, error) {
	sections, err := s.repo.ListSections(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, nil
}

// DeleteSection removes a section with no students or offerings attached.
func (s *CatalogService) DeleteSection(ctx context.Context, id string) error {
	if _, err := s.repo.FindSectionByID(ctx, id); err != nil {
		if isNoRows(err) {
			return s.miss(ctx, "section", "sections", id)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	students, err := s.students.CountStudentsBySection(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if students > 0 {
		return appErrors.Clone(appErrors.ErrReferentialConflict, fmt.Sprintf("section has %d students and cannot be deleted", students))
	}
	offerings, err := s.offerings.CountBySection(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count offerings")
	}
	if offerings > 0 {
		return appErrors.Clone(appErrors.ErrReferentialConflict, fmt.Sprintf("section has %d offerings and cannot be deleted", offerings))
	}
	if err := s.repo.DeleteSection(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	return nil
}

// CreateSubject registers a subject with a tenant-unique code.
func (s *CatalogService) CreateSubject(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	code := strings.TrimSpace(req.Code)
	exists, err := s.repo.SubjectCodeExists(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("subject code %q already exists", code))
	}
	subject := &models.Subject{Code: code, Name: strings.TrimSpace(req.Name)}
	if err := s.repo.CreateSubject(ctx, subject); err != nil {
		if appErrors.Is(err, appErrors.ErrDuplicateEntry) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// ListSubjects returns the tenant's subjects.
func (s *CatalogService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// DeleteSubject removes a subject with no offerings attached.
func (s *CatalogService) DeleteSubject(ctx context.Context, id string) error {
	if _, err := s.repo.FindSubjectByID(ctx, id); err != nil {
		if isNoRows(err) {
			return s.miss(ctx, "subject", "subjects", id)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	offerings, err := s.offerings.CountBySubject(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count offerings")
	}
	if offerings > 0 {
		return appErrors.Clone(appErrors.ErrReferentialConflict, fmt.Sprintf("subject has %d offerings and cannot be deleted", offerings))
	}
	if err := s.repo.DeleteSubject(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

func (s *CatalogService) miss(ctx context.Context, entity, table, id string) error {
	return resolveMiss(ctx, s.logger, entity, id, func(ctx context.Context, id string) (bool, error) {
		return s.repo.ExistsAnyTenant(ctx, table, id)
	})
}
