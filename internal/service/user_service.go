package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type userStore interface {
	Begin(ctx context.Context) (*sqlx.Tx, error)
	Create(ctx context.Context, user *models.User) error
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ExistsAnyTenant(ctx context.Context, id string) (bool, error)
}

type studentPropagator interface {
	SyncStudent(ctx context.Context, tx *sqlx.Tx, student *models.User) (int, error)
}

// CreateUserRequest registers a teacher or student account. Students must
// carry the cohort+section pair that drives enrollment propagation.
type CreateUserRequest struct {
	Email      string          `json:"email" validate:"required,email"`
	Password   string          `json:"password" validate:"required,min=6"`
	FullName   string          `json:"full_name" validate:"required,max=200"`
	Role       models.UserRole `json:"role" validate:"required"`
	RollNumber *string         `json:"roll_number"`
	CohortID   *string         `json:"cohort_id"`
	SectionID  *string         `json:"section_id"`
}

// CreateUserResponse returns the new account and, for students, how many
// offerings the propagation trigger enrolled them into.
type CreateUserResponse struct {
	User     *models.User `json:"user"`
	Enrolled int          `json:"enrolled"`
}

// UserService manages teacher and student accounts. Creating a student
// commits the account and its propagated enrollments in one transaction.
type UserService struct {
	repo        userStore
	catalog     catalogReader
	propagation studentPropagator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo userStore, catalog catalogReader, propagation studentPropagator, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, catalog: catalog, propagation: propagation, validator: validate, logger: logger}
}

// Create registers a new teacher or student.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*CreateUserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !req.Role.Valid() || req.Role == models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be TEACHER or STUDENT")
	}
	if req.Role == models.RoleStudent && (req.CohortID == nil || req.SectionID == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "students require a cohort and section")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	taken, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("email %s is already registered", email))
	}

	if req.Role == models.RoleStudent {
		if _, err := s.catalog.FindCohortByID(ctx, *req.CohortID); err != nil {
			if isNoRows(err) {
				return nil, resolveMiss(ctx, s.logger, "cohort", *req.CohortID, func(ctx context.Context, id string) (bool, error) {
					return s.catalog.ExistsAnyTenant(ctx, "cohorts", id)
				})
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
		}
		if _, err := s.catalog.FindSectionByID(ctx, *req.SectionID); err != nil {
			if isNoRows(err) {
				return nil, resolveMiss(ctx, s.logger, "section", *req.SectionID, func(ctx context.Context, id string) (bool, error) {
					return s.catalog.ExistsAnyTenant(ctx, "sections", id)
				})
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		RollNumber:   req.RollNumber,
		CohortID:     req.CohortID,
		SectionID:    req.SectionID,
		Active:       true,
	}

	if req.Role != models.RoleStudent {
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
		}
		return &CreateUserResponse{User: user}, nil
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	if err := s.repo.CreateWithTx(ctx, tx, user); err != nil {
		tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	enrolled, err := s.propagation.SyncStudent(ctx, tx, user)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit student")
	}

	s.logger.Info("student created",
		zap.String("user_id", user.ID),
		zap.Int("enrolled", enrolled),
	)
	return &CreateUserResponse{User: user, Enrolled: enrolled}, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "user", id, s.repo.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns users with pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
