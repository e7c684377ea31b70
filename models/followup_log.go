package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FollowUpStatusSent   = "sent"
	FollowUpStatusFailed = "failed"
)

// FollowUpLog records one sweep send attempt for a contact.
type FollowUpLog struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID        uuid.UUID `gorm:"type:uuid;index;not null" json:"businessId"`
	ContactID         uuid.UUID `gorm:"type:uuid;index;not null" json:"contactId"`
	Stage             Stage     `gorm:"type:varchar(20)" json:"stage"`
	Message           string    `gorm:"type:text" json:"message"`
	Status            string    `gorm:"type:varchar(20)" json:"status"` // sent, failed
	ErrorMessage      string    `gorm:"type:text" json:"errorMessage,omitempty"`
	ProviderMessageID string    `gorm:"type:varchar(64)" json:"providerMessageId,omitempty"`
	SentAt            time.Time `json:"sentAt"`
}

func (l *FollowUpLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return
}
