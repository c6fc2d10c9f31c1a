package models

import "time"

// Guardian is the contact identity owned by a student at creation.
type Guardian struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Phone           string    `db:"phone" json:"phone"`
	AlternatePhone  *string   `db:"alternate_phone" json:"alternate_phone,omitempty"`
	Relationship    string    `db:"relationship" json:"relationship"`
	WhatsAppEnabled bool      `db:"whatsapp_enabled" json:"whatsapp_enabled"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
