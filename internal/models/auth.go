package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user. The tenant code
// identifies the institution before the tenant scope is known.
type LoginRequest struct {
	TenantCode string `json:"tenant_code" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// SignupRequest provisions a new tenant together with its admin account.
type SignupRequest struct {
	TenantName string `json:"tenant_name" validate:"required,max=200"`
	Timezone   string `json:"timezone"`
	AdminEmail string `json:"admin_email" validate:"required,email"`
	AdminName  string `json:"admin_name" validate:"required"`
	Password   string `json:"password" validate:"required,min=6"`
}

// SignupResponse reports the generated tenant code.
type SignupResponse struct {
	Tenant Tenant   `json:"tenant"`
	Admin  UserInfo `json:"admin"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens. TenantID is the
// single source for per-request tenant resolution.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
