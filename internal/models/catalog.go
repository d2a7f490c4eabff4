package models

import "time"

// Cohort represents an academic intake (e.g. "2023-Fall"). Scoped to a
// tenant; name uniqueness is case-insensitive within the tenant.
type Cohort struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Section represents a class section (e.g. "CS-A").
type Section struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subject represents an academic subject (e.g. "CS-101 Data Structures").
// Code uniqueness is case-insensitive within the tenant.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CatalogFilter scopes catalog listings.
type CatalogFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortOrder string
}
