package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"wacrm-backend/models"
	"wacrm-backend/utils"
)

// ContactService owns contacts and their conversations. Every write that
// matters to automation is announced on the trigger bus.
type ContactService struct {
	db  *gorm.DB
	bus TriggerBus
	now func() time.Time
}

func NewContactService(db *gorm.DB, bus TriggerBus) *ContactService {
	return &ContactService{
		db:  db,
		bus: bus,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ContactInput is the payload for creating a contact.
type ContactInput struct {
	Phone string       `json:"phone" validate:"required"`
	Name  string       `json:"name" validate:"max=255"`
	Stage models.Stage `json:"stage"`
}

func (s *ContactService) CreateContact(ctx context.Context, businessID uuid.UUID, in ContactInput) (*models.Contact, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, validationErrorf("%v", err)
	}
	phone := utils.NormalizePhone(in.Phone)
	if !utils.ValidatePhone(phone) {
		return nil, validationErrorf("invalid phone number %q", in.Phone)
	}
	if in.Stage != "" && !in.Stage.Valid() {
		return nil, validationErrorf("unknown stage %q", in.Stage)
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.Contact{}).Where("business_id = ? AND phone = ?", businessID, phone).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("services: check contact phone: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: contact with phone %s already exists", ErrConflict, phone)
	}

	contact := models.Contact{
		BusinessID: businessID,
		Phone:      phone,
		Name:       strings.TrimSpace(in.Name),
		Stage:      in.Stage,
	}
	if err := db.Create(&contact).Error; err != nil {
		return nil, fmt.Errorf("services: create contact: %w", err)
	}

	s.bus.TriggerAutomation(ctx, contactCreatedEvent(&contact))
	return &contact, nil
}

// ListContacts returns the business's contacts, newest first, optionally
// narrowed to one stage.
func (s *ContactService) ListContacts(ctx context.Context, businessID uuid.UUID, stage models.Stage) ([]models.Contact, error) {
	q := s.db.WithContext(ctx).Where("business_id = ?", businessID)
	if stage != "" {
		if !stage.Valid() {
			return nil, validationErrorf("unknown stage %q", stage)
		}
		q = q.Where("stage = ?", stage)
	}
	var contacts []models.Contact
	if err := q.Order("created_at DESC").Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("services: list contacts: %w", err)
	}
	return contacts, nil
}

func (s *ContactService) GetContact(ctx context.Context, businessID, contactID uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, contactID).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErrorf("contact %s", contactID)
		}
		return nil, fmt.Errorf("services: get contact: %w", err)
	}
	return &contact, nil
}

// MoveStage is the manual pipeline move. Moving to the current stage is a
// no-op and fires nothing.
func (s *ContactService) MoveStage(ctx context.Context, businessID, contactID uuid.UUID, stage models.Stage) (*models.Contact, error) {
	if !stage.Valid() {
		return nil, validationErrorf("unknown stage %q", stage)
	}
	contact, err := s.GetContact(ctx, businessID, contactID)
	if err != nil {
		return nil, err
	}

	from := contact.Stage
	var changed bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err = changeStage(tx, contact, stage, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.bus.TriggerAutomation(ctx, stageChangedEvent(contact, from))
	}
	return contact, nil
}

// ListMessages returns the conversation in chronological order.
func (s *ContactService) ListMessages(ctx context.Context, businessID, contactID uuid.UUID) ([]models.Message, error) {
	if _, err := s.GetContact(ctx, businessID, contactID); err != nil {
		return nil, err
	}
	var msgs []models.Message
	err := s.db.WithContext(ctx).Where("business_id = ? AND contact_id = ?", businessID, contactID).
		Order("sent_at ASC").Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("services: list messages: %w", err)
	}
	return msgs, nil
}

// InboundMessage is a normalized message received from the provider.
type InboundMessage struct {
	Phone             string
	ProfileName       string
	Content           string
	ProviderMessageID string
}

// RecordInbound stores a received message, creating the contact on first
// contact, and fires contact_created and message_received.
func (s *ContactService) RecordInbound(ctx context.Context, businessID uuid.UUID, in InboundMessage) (*models.Message, *models.Contact, error) {
	phone := utils.NormalizePhone(in.Phone)
	if !utils.ValidatePhone(phone) {
		return nil, nil, validationErrorf("invalid phone number %q", in.Phone)
	}
	now := s.now()

	var business models.Business
	err := s.db.WithContext(ctx).Select("id").Where("id = ?", businessID).First(&business).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil, notFoundErrorf("business %s not found", businessID)
	case err != nil:
		return nil, nil, fmt.Errorf("services: load business: %w", err)
	}

	var (
		contact models.Contact
		msg     models.Message
		created bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("business_id = ? AND phone = ?", businessID, phone).First(&contact).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			contact = models.Contact{
				BusinessID: businessID,
				Phone:      phone,
				Name:       strings.TrimSpace(in.ProfileName),
				LastActive: &now,
			}
			if err := tx.Create(&contact).Error; err != nil {
				return fmt.Errorf("services: create contact: %w", err)
			}
			created = true
		case err != nil:
			return fmt.Errorf("services: load contact: %w", err)
		default:
			if err := tx.Model(&contact).Update("last_active", now).Error; err != nil {
				return fmt.Errorf("services: touch contact: %w", err)
			}
			contact.LastActive = &now
		}

		msg = models.Message{
			BusinessID:        businessID,
			ContactID:         contact.ID,
			Direction:         models.DirectionInbound,
			Content:           in.Content,
			Status:            "received",
			ProviderMessageID: in.ProviderMessageID,
			SentAt:            now,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("services: store inbound message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Debug().Str("business_id", businessID.String()).Str("contact_id", contact.ID.String()).
		Bool("new_contact", created).Msg("inbound message recorded")

	if created {
		s.bus.TriggerAutomation(ctx, contactCreatedEvent(&contact))
	}
	id := contact.ID
	s.bus.TriggerAutomation(ctx, TriggerEvent{
		Trigger:    models.TriggerMessageReceived,
		BusinessID: businessID,
		ContactID:  &id,
		Payload: map[string]interface{}{
			"message_id": msg.ID.String(),
			"content":    msg.Content,
			"phone":      contact.Phone,
			"name":       contact.Name,
			"stage":      string(contact.Stage),
		},
	})
	return &msg, &contact, nil
}

func contactCreatedEvent(contact *models.Contact) TriggerEvent {
	id := contact.ID
	return TriggerEvent{
		Trigger:    models.TriggerContactCreated,
		BusinessID: contact.BusinessID,
		ContactID:  &id,
		Payload: map[string]interface{}{
			"phone": contact.Phone,
			"name":  contact.Name,
			"stage": string(contact.Stage),
		},
	}
}
