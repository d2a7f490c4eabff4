package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type mockUserStore struct {
	*txSource
	emails  map[string]bool
	byID    map[string]*models.User
	created []*models.User
	inTx    []*models.User
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-new"
	m.created = append(m.created, user)
	return nil
}

func (m *mockUserStore) CreateWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	user.ID = "user-new"
	m.inTx = append(m.inTx, user)
	return nil
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return m.emails[email], nil
}

func (m *mockUserStore) ExistsAnyTenant(ctx context.Context, id string) (bool, error) {
	return false, nil
}

type mockStudentSync struct {
	enrolled int
	calls    int
}

func (m *mockStudentSync) SyncStudent(ctx context.Context, tx *sqlx.Tx, student *models.User) (int, error) {
	m.calls++
	return m.enrolled, nil
}

func studentRequest() CreateUserRequest {
	cohort, section := "c1", "sec1"
	return CreateUserRequest{
		Email:     "Student@School.edu",
		Password:  "passw0rd",
		FullName:  "A. Student",
		Role:      models.RoleStudent,
		CohortID:  &cohort,
		SectionID: &section,
	}
}

func TestCreateStudentEnrollsInOneTransaction(t *testing.T) {
	source, mock := newTxSource(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	store := &mockUserStore{txSource: source}
	sync := &mockStudentSync{enrolled: 4}
	svc := NewUserService(store, &mockCatalogLookup{}, sync, nil, nil)

	resp, err := svc.Create(context.Background(), studentRequest())
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Enrolled)
	assert.Equal(t, 1, sync.calls)
	require.Len(t, store.inTx, 1)
	assert.Empty(t, store.created)

	student := store.inTx[0]
	assert.Equal(t, "student@school.edu", student.Email)
	assert.True(t, student.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte("passw0rd")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTeacherSkipsPropagation(t *testing.T) {
	source, _ := newTxSource(t)
	store := &mockUserStore{txSource: source}
	sync := &mockStudentSync{}
	svc := NewUserService(store, &mockCatalogLookup{}, sync, nil, nil)

	resp, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "teacher@school.edu",
		Password: "passw0rd",
		FullName: "A. Teacher",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Enrolled)
	assert.Equal(t, 0, sync.calls)
	require.Len(t, store.created, 1)
}

func TestCreateStudentWithoutCohort(t *testing.T) {
	source, _ := newTxSource(t)
	svc := NewUserService(&mockUserStore{txSource: source}, &mockCatalogLookup{}, &mockStudentSync{}, nil, nil)

	req := studentRequest()
	req.CohortID = nil
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCreateUserRejectsAdminRole(t *testing.T) {
	source, _ := newTxSource(t)
	svc := NewUserService(&mockUserStore{txSource: source}, &mockCatalogLookup{}, &mockStudentSync{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "boss@school.edu",
		Password: "passw0rd",
		FullName: "The Boss",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	source, _ := newTxSource(t)
	store := &mockUserStore{txSource: source, emails: map[string]bool{"teacher@school.edu": true}}
	svc := NewUserService(store, &mockCatalogLookup{}, &mockStudentSync{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "Teacher@School.edu",
		Password: "passw0rd",
		FullName: "A. Teacher",
		Role:     models.RoleTeacher,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateEntry))
}

func TestCreateStudentUnknownCohort(t *testing.T) {
	source, _ := newTxSource(t)
	catalog := &mockCatalogLookup{missing: map[string]bool{"cohorts/c1": true}}
	svc := NewUserService(&mockUserStore{txSource: source}, catalog, &mockStudentSync{}, nil, nil)

	_, err := svc.Create(context.Background(), studentRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
