package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactTag has set semantics: at most one row per (contact, tag).
type ContactTag struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;index;not null" json:"businessId"`
	ContactID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contact_tag,priority:1" json:"contactId"`
	Tag        string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_contact_tag,priority:2" json:"tag"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (t *ContactTag) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
