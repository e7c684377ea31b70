package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Contact struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_business_phone,priority:1" json:"businessId"`

	Phone      string     `gorm:"not null;uniqueIndex:idx_business_phone,priority:2" json:"phone"`
	Name       string     `json:"name"`
	Stage      Stage      `gorm:"type:varchar(20);not null;default:'New';index" json:"stage"`
	LastActive *time.Time `json:"lastActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Contact) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Stage == "" {
		c.Stage = StageNew
	}
	return
}
