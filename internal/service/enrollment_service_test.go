package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type mockEnrollmentStore struct {
	enrollments map[string]models.StudentEnrollment
	pairs       map[string]bool
	deleted     []string
	createErr   error
}

func pairKey(studentID, offeringID string) string { return studentID + "|" + offeringID }

func (m *mockEnrollmentStore) Begin(ctx context.Context) (*sqlx.Tx, error) { return nil, nil }

func (m *mockEnrollmentStore) Create(ctx context.Context, enrollment *models.StudentEnrollment) error {
	return m.CreateWithTx(ctx, nil, enrollment)
}

func (m *mockEnrollmentStore) CreateWithTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.StudentEnrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.StudentEnrollment)
	}
	if m.pairs == nil {
		m.pairs = make(map[string]bool)
	}
	if enrollment.ID == "" {
		enrollment.ID = "enr-" + enrollment.StudentID
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.pairs[pairKey(enrollment.StudentID, enrollment.OfferingID)] = true
	return nil
}

func (m *mockEnrollmentStore) Exists(ctx context.Context, exec sqlx.ExtContext, studentID, offeringID string) (bool, error) {
	return m.pairs[pairKey(studentID, offeringID)], nil
}

func (m *mockEnrollmentStore) FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentStore) ListByOffering(ctx context.Context, offeringID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.OfferingID == offeringID {
			out = append(out, models.EnrollmentDetail{StudentEnrollment: e})
		}
	}
	return out, nil
}

func (m *mockEnrollmentStore) ListByStudent(ctx context.Context, studentID string) ([]models.StudentEnrollment, error) {
	var out []models.StudentEnrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEnrollmentStore) Delete(ctx context.Context, id string) error {
	if e, ok := m.enrollments[id]; ok {
		delete(m.pairs, pairKey(e.StudentID, e.OfferingID))
		delete(m.enrollments, id)
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockStudentRoster struct {
	students map[string]*models.User
	byGroup  []models.User
}

func (m *mockStudentRoster) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRoster) ListStudentsByCohortSection(ctx context.Context, cohortID, sectionID string) ([]models.User, error) {
	return m.byGroup, nil
}

func (m *mockStudentRoster) ExistsAnyTenant(ctx context.Context, id string) (bool, error) {
	return false, nil
}

type mockOfferingCatalog struct {
	offerings map[string]*models.CourseOffering
	byGroup   []models.CourseOffering
	foreign   map[string]bool
}

func (m *mockOfferingCatalog) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	if o, ok := m.offerings[id]; ok {
		return o, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOfferingCatalog) ListByCohortSection(ctx context.Context, cohortID, sectionID string) ([]models.CourseOffering, error) {
	return m.byGroup, nil
}

func (m *mockOfferingCatalog) ExistsAnyTenant(ctx context.Context, id string) (bool, error) {
	return m.foreign[id], nil
}

type mockEnrollmentAttendance struct {
	counts map[string]int
}

func (m *mockEnrollmentAttendance) CountByEnrollment(ctx context.Context, enrollmentID string) (int, error) {
	return m.counts[enrollmentID], nil
}

func studentsNamed(ids ...string) []models.User {
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.User{ID: id, Role: models.RoleStudent})
	}
	return out
}

func TestSyncOfferingEnrollsMatchingStudents(t *testing.T) {
	repo := &mockEnrollmentStore{}
	students := &mockStudentRoster{byGroup: studentsNamed("s1", "s2", "s3", "s4", "s5")}
	svc := NewEnrollmentService(repo, students, &mockOfferingCatalog{}, &mockEnrollmentAttendance{}, zap.NewNop())

	offering := &models.CourseOffering{ID: "off-1", CohortID: "c1", SectionID: "sec1"}
	created, err := svc.SyncOffering(context.Background(), nil, offering)
	require.NoError(t, err)
	assert.Equal(t, 5, created)
	assert.Len(t, repo.enrollments, 5)
}

func TestSyncOfferingIsIdempotent(t *testing.T) {
	repo := &mockEnrollmentStore{}
	students := &mockStudentRoster{byGroup: studentsNamed("s1", "s2", "s3")}
	svc := NewEnrollmentService(repo, students, &mockOfferingCatalog{}, &mockEnrollmentAttendance{}, zap.NewNop())

	offering := &models.CourseOffering{ID: "off-1", CohortID: "c1", SectionID: "sec1"}
	_, err := svc.SyncOffering(context.Background(), nil, offering)
	require.NoError(t, err)

	created, err := svc.SyncOffering(context.Background(), nil, offering)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, repo.enrollments, 3)
}

func TestSyncStudentEnrollsIntoMatchingOfferings(t *testing.T) {
	repo := &mockEnrollmentStore{}
	offerings := &mockOfferingCatalog{byGroup: []models.CourseOffering{{ID: "off-1"}, {ID: "off-2"}}}
	svc := NewEnrollmentService(repo, &mockStudentRoster{}, offerings, &mockEnrollmentAttendance{}, zap.NewNop())

	cohort, section := "c1", "sec1"
	student := &models.User{ID: "s1", Role: models.RoleStudent, CohortID: &cohort, SectionID: &section}
	created, err := svc.SyncStudent(context.Background(), nil, student)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestSyncStudentSkipsNonStudents(t *testing.T) {
	repo := &mockEnrollmentStore{}
	svc := NewEnrollmentService(repo, &mockStudentRoster{}, &mockOfferingCatalog{}, &mockEnrollmentAttendance{}, zap.NewNop())

	created, err := svc.SyncStudent(context.Background(), nil, &models.User{ID: "t1", Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Empty(t, repo.enrollments)
}

func TestEnrollExplicitDuplicate(t *testing.T) {
	repo := &mockEnrollmentStore{pairs: map[string]bool{pairKey("s1", "off-1"): true}}
	students := &mockStudentRoster{students: map[string]*models.User{"s1": {ID: "s1", Role: models.RoleStudent}}}
	offerings := &mockOfferingCatalog{offerings: map[string]*models.CourseOffering{"off-1": {ID: "off-1"}}}
	svc := NewEnrollmentService(repo, students, offerings, &mockEnrollmentAttendance{}, zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "s1", OfferingID: "off-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestEnrollLosesUniqueRace(t *testing.T) {
	// Pre-check saw no pair, but a concurrent enroll won the unique index.
	repo := &mockEnrollmentStore{
		createErr: appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this offering"),
	}
	students := &mockStudentRoster{students: map[string]*models.User{"s1": {ID: "s1", Role: models.RoleStudent}}}
	offerings := &mockOfferingCatalog{offerings: map[string]*models.CourseOffering{"off-1": {ID: "off-1"}}}
	svc := NewEnrollmentService(repo, students, offerings, &mockEnrollmentAttendance{}, zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "s1", OfferingID: "off-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestEnrollCrossTenantOffering(t *testing.T) {
	students := &mockStudentRoster{students: map[string]*models.User{"s1": {ID: "s1", Role: models.RoleStudent}}}
	offerings := &mockOfferingCatalog{foreign: map[string]bool{"off-9": true}}
	svc := NewEnrollmentService(&mockEnrollmentStore{}, students, offerings, &mockEnrollmentAttendance{}, zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "s1", OfferingID: "off-9"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCrossTenant))
}

func TestUnenrollBlockedByAttendance(t *testing.T) {
	repo := &mockEnrollmentStore{enrollments: map[string]models.StudentEnrollment{"enr-1": {ID: "enr-1", StudentID: "s1", OfferingID: "off-1"}}}
	attendance := &mockEnrollmentAttendance{counts: map[string]int{"enr-1": 4}}
	svc := NewEnrollmentService(repo, &mockStudentRoster{}, &mockOfferingCatalog{}, attendance, zap.NewNop())

	err := svc.Unenroll(context.Background(), "enr-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferentialConflict))
	assert.Empty(t, repo.deleted)
}

func TestUnenrollWithoutAttendance(t *testing.T) {
	repo := &mockEnrollmentStore{
		enrollments: map[string]models.StudentEnrollment{"enr-1": {ID: "enr-1", StudentID: "s1", OfferingID: "off-1"}},
		pairs:       map[string]bool{pairKey("s1", "off-1"): true},
	}
	svc := NewEnrollmentService(repo, &mockStudentRoster{}, &mockOfferingCatalog{}, &mockEnrollmentAttendance{}, zap.NewNop())

	err := svc.Unenroll(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Contains(t, repo.deleted, "enr-1")
}
