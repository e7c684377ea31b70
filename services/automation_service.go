package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"wacrm-backend/models"
)

// errSkipped marks an action that was deliberately not executed.
var errSkipped = errors.New("action skipped")

// AutomationService is the rule engine. It matches trigger events against
// stored rules, evaluates conditions, runs actions and logs every attempt.
type AutomationService struct {
	db      *gorm.DB
	gateway MessagingGateway
	now     func() time.Time
}

func NewAutomationService(db *gorm.DB, gateway MessagingGateway) *AutomationService {
	return &AutomationService{
		db:      db,
		gateway: gateway,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// TriggerAutomation is the entry point for event producers. Errors and
// panics are logged and never reach the caller.
func (s *AutomationService) TriggerAutomation(ctx context.Context, event TriggerEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("trigger", string(event.Trigger)).
				Str("business_id", event.BusinessID.String()).Msg("automation dispatch panicked")
		}
	}()

	if err := s.dispatch(ctx, event); err != nil {
		log.Error().Err(err).Str("trigger", string(event.Trigger)).
			Str("business_id", event.BusinessID.String()).Msg("automation dispatch failed")
	}
}

func (s *AutomationService) dispatch(ctx context.Context, event TriggerEvent) error {
	var rules []models.AutomationRule
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND trigger_type = ? AND is_active = ?", event.BusinessID, event.Trigger, true).
		Find(&rules).Error
	if err != nil {
		return fmt.Errorf("services: load rules for %s: %w", event.Trigger, err)
	}

	for i := range rules {
		// Each rule sees its own copy of the payload.
		s.runRule(ctx, &rules[i], event, event.snapshot())
	}
	return nil
}

func (s *AutomationService) runRule(ctx context.Context, rule *models.AutomationRule, event TriggerEvent, payload map[string]interface{}) {
	logger := log.With().Str("rule_id", rule.ID.String()).Str("trigger", string(event.Trigger)).
		Str("business_id", event.BusinessID.String()).Logger()

	if !EvaluateCondition(rule.Condition, payload) {
		logger.Debug().Msg("automation condition not met")
		return
	}

	switch {
	case event.Trigger.IsFollowUp():
		if !followUpDue(rule, payload) {
			logger.Debug().Int("delay_minutes", rule.DelayMinutes).Msg("follow-up rule not due yet")
			return
		}
	case rule.DelayMinutes > 0:
		// No deferred queue: the action runs now.
		logger.Warn().Int("delay_minutes", rule.DelayMinutes).
			Msg("automation delay requested but not honored, executing immediately")
	}

	err := s.safeExecute(ctx, rule, event, payload)
	if rule.Trigger == models.TriggerScheduledFollowUp {
		s.retireOneShot(ctx, rule)
	}
	switch {
	case errors.Is(err, errSkipped):
		automationExecutions.WithLabelValues("skipped").Inc()
		return
	case err != nil:
		automationExecutions.WithLabelValues(models.AutomationStatusFailed).Inc()
		logger.Error().Err(err).Msg("automation action failed")
		s.writeLog(ctx, rule, payload, models.AutomationStatusFailed, err.Error())
	default:
		automationExecutions.WithLabelValues(models.AutomationStatusSuccess).Inc()
		logger.Info().Str("action", string(rule.Action.Type())).Msg("automation action executed")
		s.writeLog(ctx, rule, payload, models.AutomationStatusSuccess, "")
	}
}

// followUpDue reports whether the contact has been quiet for at least the
// rule's delay. The sweep supplies idle_minutes.
func followUpDue(rule *models.AutomationRule, payload map[string]interface{}) bool {
	if rule.DelayMinutes == 0 {
		return true
	}
	idle, ok := asNumber(payload[payloadIdleMinutes])
	return ok && idle >= float64(rule.DelayMinutes)
}

// retireOneShot deactivates a scheduled follow-up after its single run. The
// next inbound message re-arms it.
func (s *AutomationService) retireOneShot(ctx context.Context, rule *models.AutomationRule) {
	err := s.db.WithContext(ctx).Model(&models.AutomationRule{}).
		Where("id = ?", rule.ID).Update("is_active", false).Error
	if err != nil {
		log.Error().Err(err).Str("rule_id", rule.ID.String()).Msg("failed to retire scheduled follow-up")
	}
}

func (s *AutomationService) safeExecute(ctx context.Context, rule *models.AutomationRule, event TriggerEvent, payload map[string]interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return s.executeAction(ctx, rule, event.BusinessID, payload)
}

func (s *AutomationService) executeAction(ctx context.Context, rule *models.AutomationRule, businessID uuid.UUID, payload map[string]interface{}) error {
	db := s.db.WithContext(ctx)

	switch spec := rule.Action.Spec.(type) {
	case models.SendMessageAction:
		contact, err := s.resolveContact(ctx, businessID, payload)
		if err != nil {
			return err
		}
		text := renderTemplate(spec.Text(), contact.Name)
		if text == "" {
			return validationErrorf("send_message requires message or content")
		}
		sid, err := s.gateway.SendText(ctx, businessID, contact.Phone, text)
		if err != nil {
			return err
		}
		return recordOutbound(db, businessID, contact.ID, text, sid, s.now())

	case models.SendTemplateAction:
		contact, err := s.resolveContact(ctx, businessID, payload)
		if err != nil {
			return err
		}
		if spec.TemplateID == "" {
			return validationErrorf("send_template requires template_id")
		}
		sid, err := s.gateway.SendTemplate(ctx, businessID, contact.Phone, spec.TemplateID)
		if err != nil {
			return err
		}
		return recordOutbound(db, businessID, contact.ID, "template:"+spec.TemplateID, sid, s.now())

	case models.UpdateStageAction:
		if !spec.Stage.Valid() {
			return validationErrorf("invalid stage %q", spec.Stage)
		}
		contact, err := s.resolveContact(ctx, businessID, payload)
		if err != nil {
			return err
		}
		// Stage changes always leave a PipelineHistory row, same as the classifier.
		return db.Transaction(func(tx *gorm.DB) error {
			_, err := changeStage(tx, contact, spec.Stage, s.now())
			return err
		})

	case models.AddTagAction:
		if spec.Tag == "" {
			return validationErrorf("add_tag requires tag")
		}
		contactID, err := payloadContactID(payload)
		if err != nil {
			return err
		}
		return addTag(db, businessID, contactID, spec.Tag)

	default:
		log.Warn().Str("rule_id", rule.ID.String()).Str("action", string(rule.Action.Type())).
			Msg("unknown automation action type, skipping")
		return errSkipped
	}
}

func payloadContactID(payload map[string]interface{}) (uuid.UUID, error) {
	raw, ok := payload["contact_id"]
	if !ok || raw == nil {
		return uuid.Nil, validationErrorf("contact_id is required")
	}
	id, err := uuid.Parse(fmt.Sprint(raw))
	if err != nil {
		return uuid.Nil, validationErrorf("invalid contact_id %v", raw)
	}
	return id, nil
}

// resolveContact loads the payload's contact within the tenant.
func (s *AutomationService) resolveContact(ctx context.Context, businessID uuid.UUID, payload map[string]interface{}) (*models.Contact, error) {
	contactID, err := payloadContactID(payload)
	if err != nil {
		return nil, err
	}
	var contact models.Contact
	err = s.db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, contactID).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErrorf("contact %s", contactID)
		}
		return nil, fmt.Errorf("services: load contact: %w", err)
	}
	return &contact, nil
}

func (s *AutomationService) writeLog(ctx context.Context, rule *models.AutomationRule, payload map[string]interface{}, status, errMsg string) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	entry := models.AutomationLog{
		BusinessID:   rule.BusinessID,
		RuleID:       rule.ID,
		Trigger:      rule.Trigger,
		Status:       status,
		TriggerData:  datatypes.JSON(data),
		ErrorMessage: errMsg,
		CreatedAt:    s.now(),
	}
	if id, err := payloadContactID(payload); err == nil {
		entry.ContactID = &id
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Error().Err(err).Str("rule_id", rule.ID.String()).Msg("failed to write automation log")
	}
}

// RuleInput is the create payload for a rule.
type RuleInput struct {
	Name         string           `json:"name"`
	Trigger      models.Trigger   `json:"trigger"`
	Condition    models.Condition `json:"condition"`
	Action       models.Action    `json:"action"`
	DelayMinutes int              `json:"delayMinutes"`
	IsActive     *bool            `json:"isActive"`
}

// RuleUpdate carries optional changes; nil fields are left alone.
type RuleUpdate struct {
	Name         *string           `json:"name"`
	Trigger      *models.Trigger   `json:"trigger"`
	Condition    *models.Condition `json:"condition"`
	Action       *models.Action    `json:"action"`
	DelayMinutes *int              `json:"delayMinutes"`
	IsActive     *bool             `json:"isActive"`
}

// validateRule refuses unknown condition operators up front, although
// EvaluateCondition only treats them as a non-match.
func validateRule(trigger models.Trigger, cond models.Condition, action models.Action, delay int) error {
	if !trigger.Valid() {
		return validationErrorf("invalid trigger %q", trigger)
	}
	for key, cmp := range cond {
		if !knownOperator(cmp.Operator) {
			return validationErrorf("condition %q: unknown operator %q", key, cmp.Operator)
		}
	}
	if err := action.Validate(); err != nil {
		return validationErrorf("action: %v", err)
	}
	if delay < 0 {
		return validationErrorf("delayMinutes must be >= 0")
	}
	return nil
}

func (s *AutomationService) ListRules(ctx context.Context, businessID uuid.UUID, trigger models.Trigger) ([]models.AutomationRule, error) {
	q := s.db.WithContext(ctx).Where("business_id = ?", businessID)
	if trigger != "" {
		q = q.Where("trigger_type = ?", trigger)
	}
	var rules []models.AutomationRule
	if err := q.Order("created_at DESC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("services: list rules: %w", err)
	}
	return rules, nil
}

func (s *AutomationService) GetRule(ctx context.Context, businessID, ruleID uuid.UUID) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	err := s.db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, ruleID).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErrorf("rule %s", ruleID)
		}
		return nil, fmt.Errorf("services: get rule: %w", err)
	}
	return &rule, nil
}

func (s *AutomationService) CreateRule(ctx context.Context, businessID uuid.UUID, in RuleInput) (*models.AutomationRule, error) {
	if err := validateRule(in.Trigger, in.Condition, in.Action, in.DelayMinutes); err != nil {
		return nil, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	rule := models.AutomationRule{
		BusinessID:   businessID,
		Name:         in.Name,
		Trigger:      in.Trigger,
		Condition:    in.Condition,
		Action:       in.Action,
		DelayMinutes: in.DelayMinutes,
		IsActive:     active,
	}
	if err := s.db.WithContext(ctx).Create(&rule).Error; err != nil {
		return nil, fmt.Errorf("services: create rule: %w", err)
	}
	return &rule, nil
}

func (s *AutomationService) UpdateRule(ctx context.Context, businessID, ruleID uuid.UUID, in RuleUpdate) (*models.AutomationRule, error) {
	rule, err := s.GetRule(ctx, businessID, ruleID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		rule.Name = *in.Name
	}
	if in.Trigger != nil {
		rule.Trigger = *in.Trigger
	}
	if in.Condition != nil {
		rule.Condition = *in.Condition
	}
	if in.Action != nil {
		rule.Action = *in.Action
	}
	if in.DelayMinutes != nil {
		rule.DelayMinutes = *in.DelayMinutes
	}
	if in.IsActive != nil {
		rule.IsActive = *in.IsActive
	}
	if err := validateRule(rule.Trigger, rule.Condition, rule.Action, rule.DelayMinutes); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, fmt.Errorf("services: update rule: %w", err)
	}
	return rule, nil
}

func (s *AutomationService) DeleteRule(ctx context.Context, businessID, ruleID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, ruleID).
		Delete(&models.AutomationRule{})
	if result.Error != nil {
		return fmt.Errorf("services: delete rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundErrorf("rule %s", ruleID)
	}
	return nil
}

// ListLogs returns the newest execution records, optionally for one rule.
func (s *AutomationService) ListLogs(ctx context.Context, businessID uuid.UUID, ruleID *uuid.UUID, limit int) ([]models.AutomationLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Where("business_id = ?", businessID)
	if ruleID != nil {
		q = q.Where("rule_id = ?", *ruleID)
	}
	var logs []models.AutomationLog
	if err := q.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("services: list automation logs: %w", err)
	}
	return logs, nil
}
