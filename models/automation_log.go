package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AutomationStatusSuccess = "success"
	AutomationStatusFailed  = "failed"
)

// AutomationLog records one action-execution attempt.
type AutomationLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID   uuid.UUID      `gorm:"type:uuid;index;not null" json:"businessId"`
	RuleID       uuid.UUID      `gorm:"type:uuid;index;not null" json:"ruleId"`
	Trigger      Trigger        `gorm:"column:trigger_type;type:varchar(32);index" json:"trigger"`
	ContactID    *uuid.UUID     `gorm:"type:uuid;index" json:"contactId,omitempty"`
	Status       string         `gorm:"type:varchar(20);not null" json:"status"`
	TriggerData  datatypes.JSON `json:"triggerData"`
	ErrorMessage string         `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func (l *AutomationLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return
}
