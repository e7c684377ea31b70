package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AutomationRule is tenant-scoped declarative configuration: when Trigger fires
// and Condition matches the event payload, Action runs. The follow-up
// scheduler also writes one-shot rows with Trigger = scheduled_followup.
type AutomationRule struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index:idx_rule_business_trigger,priority:1" json:"businessId"`

	Name         string    `json:"name"`
	Trigger      Trigger   `gorm:"column:trigger_type;type:varchar(32);not null;index:idx_rule_business_trigger,priority:2" json:"trigger"`
	Condition    Condition `gorm:"type:jsonb" json:"condition"`
	Action       Action    `gorm:"type:jsonb;not null" json:"action"`
	DelayMinutes int       `gorm:"not null" json:"delayMinutes"`
	IsActive     bool      `gorm:"not null" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *AutomationRule) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
