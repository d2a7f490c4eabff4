package models

import "time"

// Tenant represents one isolated institution's data partition. Its code is
// human-entered at login and immutable after creation; the timezone drives
// the time-locked attendance window.
type Tenant struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Code       string    `db:"code" json:"code"`
	AdminEmail string    `db:"admin_email" json:"admin_email"`
	Timezone   string    `db:"timezone" json:"timezone"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
