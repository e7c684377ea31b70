package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PipelineHistory is an append-only audit row for every stage change.
type PipelineHistory struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;index;not null" json:"businessId"`
	ContactID  uuid.UUID `gorm:"type:uuid;index;not null" json:"contactId"`
	FromStage  Stage     `gorm:"type:varchar(20)" json:"fromStage"`
	ToStage    Stage     `gorm:"type:varchar(20);not null" json:"toStage"`
	ChangedAt  time.Time `gorm:"not null" json:"changedAt"`
}

func (PipelineHistory) TableName() string {
	return "pipeline_history"
}

func (h *PipelineHistory) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.ChangedAt.IsZero() {
		h.ChangedAt = time.Now().UTC()
	}
	return
}
