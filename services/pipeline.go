package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wacrm-backend/models"
)

// addTag inserts the tag unless the contact already has it. The unique index
// on (contact_id, tag) is the race guard.
func addTag(tx *gorm.DB, businessID, contactID uuid.UUID, tag string) error {
	row := models.ContactTag{
		BusinessID: businessID,
		ContactID:  contactID,
		Tag:        tag,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contact_id"}, {Name: "tag"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("services: add tag %q: %w", tag, err)
	}
	return nil
}

// changeStage moves contact to stage and appends a PipelineHistory row. It
// reports false without writing anything when the stage is unchanged.
func changeStage(tx *gorm.DB, contact *models.Contact, to models.Stage, at time.Time) (bool, error) {
	if contact.Stage == to {
		return false, nil
	}
	from := contact.Stage

	result := tx.Model(&models.Contact{}).
		Where("business_id = ? AND id = ?", contact.BusinessID, contact.ID).
		Updates(map[string]interface{}{"stage": to, "updated_at": at})
	if result.Error != nil {
		return false, fmt.Errorf("services: update stage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, notFoundErrorf("contact %s", contact.ID)
	}

	history := models.PipelineHistory{
		BusinessID: contact.BusinessID,
		ContactID:  contact.ID,
		FromStage:  from,
		ToStage:    to,
		ChangedAt:  at,
	}
	if err := tx.Create(&history).Error; err != nil {
		return false, fmt.Errorf("services: write pipeline history: %w", err)
	}

	contact.Stage = to
	contact.UpdatedAt = at
	return true, nil
}

// recordOutbound appends an outbound message sent by the core.
func recordOutbound(tx *gorm.DB, businessID, contactID uuid.UUID, content, providerID string, at time.Time) error {
	msg := models.Message{
		BusinessID:        businessID,
		ContactID:         contactID,
		Direction:         models.DirectionOutbound,
		Content:           content,
		Status:            "sent",
		ProviderMessageID: providerID,
		SentAt:            at,
	}
	if err := tx.Create(&msg).Error; err != nil {
		return fmt.Errorf("services: record outbound message: %w", err)
	}
	return nil
}

// stageChangedEvent builds the stage_changed trigger for a completed move.
func stageChangedEvent(contact *models.Contact, from models.Stage) TriggerEvent {
	id := contact.ID
	return TriggerEvent{
		Trigger:    models.TriggerStageChanged,
		BusinessID: contact.BusinessID,
		ContactID:  &id,
		Payload: map[string]interface{}{
			"from_stage": string(from),
			"to_stage":   string(contact.Stage),
			"stage":      string(contact.Stage),
			"name":       contact.Name,
			"phone":      contact.Phone,
		},
	}
}
