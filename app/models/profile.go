package models

import "time"

// Profile is a local user. Rows are owned by the authentication subsystem;
// billing only reads them.
type Profile struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(200);index" json:"email"`
	FullName  string    `gorm:"type:varchar(150);default:''" json:"full_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DisplayName returns the full name or falls back to the email address.
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}
