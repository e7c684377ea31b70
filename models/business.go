package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Business is a tenant. Every other row is scoped by BusinessID.
type Business struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	Name           string    `gorm:"not null"`
	WhatsAppNumber string    // sender number; empty falls back to the configured default
}

func (b *Business) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}
