package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is an append-only conversation entry. Rows are never updated.
type Message struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;index;not null" json:"businessId"`
	ContactID  uuid.UUID `gorm:"type:uuid;index:idx_contact_sent,priority:1;not null" json:"contactId"`

	Direction         Direction `gorm:"type:varchar(10);not null" json:"direction"`
	Content           string    `gorm:"type:text" json:"content"`
	Status            string    `gorm:"type:varchar(20)" json:"status"` // received, sent, failed
	ProviderMessageID string    `gorm:"type:varchar(64)" json:"providerMessageId,omitempty"`
	SentAt            time.Time `gorm:"index:idx_contact_sent,priority:2;not null" json:"sentAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	return
}
