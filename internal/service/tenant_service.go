package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/tenancy"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type tenantStore interface {
	Begin(ctx context.Context) (*sqlx.Tx, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, tenant *models.Tenant) error
	Current(ctx context.Context) (*models.Tenant, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	UpdateTimezone(ctx context.Context, timezone string) error
}

type adminUserWriter interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error
}

// UpdateTenantSettingsRequest changes the tenant's mutable settings. The
// code is not here: it is immutable after provisioning.
type UpdateTenantSettingsRequest struct {
	Timezone string `json:"timezone" validate:"required"`
}

// TenantService provisions tenants and manages their settings. Signup is
// the one flow that legitimately runs without a resolved tenant, so its
// code-uniqueness probe carries the bypass scope.
type TenantService struct {
	repo            tenantStore
	users           adminUserWriter
	audit           auditWriter
	validator       *validator.Validate
	logger          *zap.Logger
	defaultTimezone string
	codeAttempts    int
}

// NewTenantService constructs TenantService.
func NewTenantService(repo tenantStore, users adminUserWriter, audit auditWriter, validate *validator.Validate, logger *zap.Logger, defaultTimezone string, codeAttempts int) *TenantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTimezone == "" {
		defaultTimezone = "Asia/Karachi"
	}
	if codeAttempts <= 0 {
		codeAttempts = 25
	}
	return &TenantService{repo: repo, users: users, audit: audit, validator: validate, logger: logger, defaultTimezone: defaultTimezone, codeAttempts: codeAttempts}
}

// codePrefix derives the three-letter prefix of a tenant code from the
// institution name: its first three letters uppercased, padded with 'X'
// when the name is short on letters.
func codePrefix(name string) string {
	var letters []rune
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
			if len(letters) == 3 {
				break
			}
		}
	}
	for len(letters) < 3 {
		letters = append(letters, 'X')
	}
	return string(letters)
}

// generateCode produces a tenant code "PRE-1234" unique across all
// tenants. Attempts are bounded so a saturated prefix fails loudly rather
// than spinning.
func (s *TenantService) generateCode(ctx context.Context, name string) (string, error) {
	prefix := codePrefix(name)
	probeCtx := tenancy.WithBypass(ctx)
	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		code := fmt.Sprintf("%s-%04d", prefix, rand.Intn(10000))
		exists, err := s.repo.CodeExists(probeCtx, code)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to probe tenant code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("could not allocate a unique code for prefix %s", prefix))
}

// Signup provisions a tenant and its admin account in one transaction.
func (s *TenantService) Signup(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = s.defaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timezone %q", timezone))
	}

	code, err := s.generateCode(ctx, req.TenantName)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	tenant := &models.Tenant{
		Name:       strings.TrimSpace(req.TenantName),
		Code:       code,
		AdminEmail: strings.ToLower(req.AdminEmail),
		Timezone:   timezone,
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	if err := s.repo.CreateWithTx(ctx, tx, tenant); err != nil {
		tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tenant")
	}
	admin := &models.User{
		TenantID:     tenant.ID,
		Email:        strings.ToLower(req.AdminEmail),
		PasswordHash: string(hash),
		FullName:     req.AdminName,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := s.users.CreateWithTx(ctx, tx, admin); err != nil {
		tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin account")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit signup")
	}

	if s.audit != nil {
		if err := s.audit.Create(ctx, &models.AuditLog{
			TenantID:   &tenant.ID,
			UserID:     &admin.ID,
			Action:     models.AuditActionTenantSignup,
			Resource:   "tenant",
			ResourceID: &tenant.ID,
		}); err != nil {
			s.logger.Warn("failed to record signup audit log", zap.Error(err))
		}
	}

	s.logger.Info("tenant provisioned",
		zap.String("tenant_id", tenant.ID),
		zap.String("code", tenant.Code),
	)
	return &models.SignupResponse{
		Tenant: *tenant,
		Admin: models.UserInfo{
			ID:       admin.ID,
			TenantID: admin.TenantID,
			Email:    admin.Email,
			FullName: admin.FullName,
			Role:     admin.Role,
		},
	}, nil
}

// Current returns the active tenant's profile.
func (s *TenantService) Current(ctx context.Context) (*models.Tenant, error) {
	tenant, err := s.repo.Current(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}
	return tenant, nil
}

// UpdateSettings changes the tenant's timezone.
func (s *TenantService) UpdateSettings(ctx context.Context, req UpdateTenantSettingsRequest) (*models.Tenant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timezone %q", req.Timezone))
	}
	if err := s.repo.UpdateTimezone(ctx, req.Timezone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timezone")
	}
	return s.Current(ctx)
}
