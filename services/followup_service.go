package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"wacrm-backend/models"
	"wacrm-backend/utils"
)

const (
	// sweepPrefilter is the coarse staleness filter of the sweep query. The
	// per-rule threshold is checked again per contact.
	sweepPrefilter = 24 * time.Hour

	hotLeadWindow     = 7 * 24 * time.Hour
	hotLeadMinInbound = 3

	DefaultSweepSchedule = "@hourly"

	// Payload keys the sweep adds to follow-up trigger events.
	payloadFollowUpAttempts = "followup_attempts"
	payloadIdleMinutes      = "idle_minutes"
)

var hotLeadStages = []models.Stage{models.StageQualified, models.StageProposal, models.StageNegotiation}

// FollowUpService classifies inbound messages, schedules follow-ups and runs
// the periodic sweep for contacts that went quiet.
type FollowUpService struct {
	db         *gorm.DB
	gateway    MessagingGateway
	bus        TriggerBus
	rules      FollowUpRuleTable
	classifier *Classifier
	now        func() time.Time
}

func NewFollowUpService(db *gorm.DB, gateway MessagingGateway, bus TriggerBus, rules FollowUpRuleTable, classifier *Classifier) *FollowUpService {
	if rules == nil {
		rules = DefaultFollowUpRules()
	}
	if classifier == nil {
		classifier = NewClassifier(DefaultKeywords())
	}
	return &FollowUpService{
		db:         db,
		gateway:    gateway,
		bus:        bus,
		rules:      rules,
		classifier: classifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// OnInboundMessage reacts to one stored inbound message: classify it, move
// the contact to Won/Lost or tag it, and schedule a follow-up when the
// contact is still open. Outbound messages are ignored.
func (s *FollowUpService) OnInboundMessage(ctx context.Context, messageID uuid.UUID) error {
	db := s.db.WithContext(ctx)

	var msg models.Message
	if err := db.Where("id = ?", messageID).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErrorf("message %s", messageID)
		}
		return fmt.Errorf("services: load message: %w", err)
	}
	if msg.Direction != models.DirectionInbound {
		log.Debug().Str("message_id", messageID.String()).Msg("skipping classification of outbound message")
		return nil
	}

	var contact models.Contact
	err := db.Where("business_id = ? AND id = ?", msg.BusinessID, msg.ContactID).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErrorf("contact %s", msg.ContactID)
		}
		return fmt.Errorf("services: load contact: %w", err)
	}

	outcome := s.classifier.ClassifyDeal(msg.Content)
	dealClassifications.WithLabelValues(string(outcome)).Inc()
	logger := log.With().Str("business_id", contact.BusinessID.String()).
		Str("contact_id", contact.ID.String()).Str("outcome", string(outcome)).Logger()
	logger.Debug().Msg("classified inbound message")

	switch outcome {
	case DealWon, DealLost:
		stage, tag := models.StageWon, models.TagDealClosed
		if outcome == DealLost {
			stage, tag = models.StageLost, models.TagDealLost
		}
		from := contact.Stage
		var changed bool
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			if changed, err = changeStage(tx, &contact, stage, s.now()); err != nil {
				return err
			}
			return addTag(tx, contact.BusinessID, contact.ID, tag)
		})
		if err != nil {
			return fmt.Errorf("services: close deal: %w", err)
		}
		if changed {
			logger.Info().Str("from", string(from)).Str("to", string(stage)).Msg("deal stage changed by classifier")
			s.bus.TriggerAutomation(ctx, stageChangedEvent(&contact, from))
		}
		return nil

	case DealNeedsFollowUp:
		if err := addTag(db, contact.BusinessID, contact.ID, models.TagNeedsFollowUp); err != nil {
			return err
		}
	}

	if contact.Stage.IsTerminal() {
		return nil
	}
	return s.scheduleFollowUp(ctx, &contact)
}

// scheduleFollowUp arms the contact's scheduled_followup rule for its current
// stage. There is at most one such rule per contact: a later inbound message
// rewrites and re-activates it. Stages without a rule are a no-op.
func (s *FollowUpService) scheduleFollowUp(ctx context.Context, contact *models.Contact) error {
	rule, ok := s.rules.Lookup(contact.Stage)
	if !ok {
		return nil
	}

	oneShot := models.AutomationRule{
		BusinessID: contact.BusinessID,
		Name:       scheduledFollowUpName(contact.ID),
		Trigger:    models.TriggerScheduledFollowUp,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("business_id = ? AND trigger_type = ? AND name = ?",
			oneShot.BusinessID, oneShot.Trigger, oneShot.Name).First(&oneShot).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		oneShot.Condition = models.Condition{
			"contact_id": models.Literal(contact.ID.String()),
		}
		oneShot.Action = models.NewAction(models.SendMessageAction{Message: rule.Render(contact.Name)})
		oneShot.DelayMinutes = rule.DelayMinutes()
		oneShot.IsActive = true
		return tx.Save(&oneShot).Error
	})
	if err != nil {
		return fmt.Errorf("services: schedule follow-up: %w", err)
	}
	log.Info().Str("contact_id", contact.ID.String()).Str("stage", string(contact.Stage)).
		Int("delay_minutes", oneShot.DelayMinutes).Msg("follow-up scheduled")
	return nil
}

func scheduledFollowUpName(contactID uuid.UUID) string {
	return "followup:" + contactID.String()
}

// SweepResult summarizes one ProcessPendingFollowUps run.
type SweepResult struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ProcessPendingFollowUps nudges open contacts of every business whose
// conversation went quiet. A failure for one contact never stops the rest of
// the sweep. It is safe to call repeatedly.
func (s *FollowUpService) ProcessPendingFollowUps(ctx context.Context) SweepResult {
	return s.sweep(ctx, nil)
}

// ProcessPendingFollowUpsFor runs the sweep for a single business.
func (s *FollowUpService) ProcessPendingFollowUpsFor(ctx context.Context, businessID uuid.UUID) SweepResult {
	return s.sweep(ctx, &businessID)
}

func (s *FollowUpService) sweep(ctx context.Context, businessID *uuid.UUID) SweepResult {
	var res SweepResult
	now := s.now()
	logger := log.Logger
	if businessID != nil {
		logger = log.With().Str("business_id", businessID.String()).Logger()
	}

	quiet := s.db.Model(&models.Message{}).Select("contact_id").
		Group("contact_id").Having("MAX(sent_at) < ?", now.Add(-sweepPrefilter))

	query := s.db.WithContext(ctx).
		Where("stage NOT IN ?", []models.Stage{models.StageWon, models.StageLost}).
		Where("id IN (?)", quiet)
	if businessID != nil {
		query = query.Where("business_id = ?", *businessID)
	}

	var contacts []models.Contact
	if err := query.Find(&contacts).Error; err != nil {
		logger.Error().Err(err).Msg("follow-up sweep: failed to load candidates")
		return res
	}

	for i := range contacts {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("follow-up sweep interrupted")
			break
		}
		res.Checked++
		sent, err := s.processContact(ctx, &contacts[i], now)
		if err != nil {
			log.Error().Err(err).Str("business_id", contacts[i].BusinessID.String()).
				Str("contact_id", contacts[i].ID.String()).Bool("sent", sent).Msg("follow-up failed")
		}
		switch {
		case sent:
			res.Sent++
		case err != nil:
			res.Failed++
		default:
			res.Skipped++
		}
	}

	logger.Info().Int("checked", res.Checked).Int("sent", res.Sent).Int("skipped", res.Skipped).
		Int("failed", res.Failed).Msg("follow-up sweep completed")
	return res
}

// processContact makes at most one follow-up for the contact. Stored
// scheduled_followup rules go first, then custom_followup rules, and the
// built-in stage table only when no stored rule acted.
func (s *FollowUpService) processContact(ctx context.Context, contact *models.Contact, now time.Time) (sent bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("follow-up panicked: %v", r)
		}
	}()

	var last models.Message
	err = s.db.WithContext(ctx).Where("contact_id = ?", contact.ID).
		Order("sent_at DESC").First(&last).Error
	if err != nil {
		return false, fmt.Errorf("services: load last message: %w", err)
	}
	idle := now.Sub(last.SentAt)

	attempts, err := s.attempts(ctx, contact.ID)
	if err != nil {
		return false, err
	}

	if s.bus != nil {
		id := contact.ID
		for _, trigger := range []models.Trigger{models.TriggerScheduledFollowUp, models.TriggerCustomFollowUp} {
			s.bus.TriggerAutomation(ctx, TriggerEvent{
				Trigger:    trigger,
				BusinessID: contact.BusinessID,
				ContactID:  &id,
				Payload: map[string]interface{}{
					"stage":                    string(contact.Stage),
					"name":                     contact.Name,
					"phone":                    contact.Phone,
					payloadFollowUpAttempts:    attempts,
					payloadIdleMinutes:         int64(idle / time.Minute),
					"hours_since_last_message": utils.HoursBetween(last.SentAt, now),
				},
			})
			after, err := s.attempts(ctx, contact.ID)
			if err != nil {
				return false, err
			}
			if after > attempts {
				return true, nil
			}
		}
	}

	rule, ok := s.rules.Lookup(contact.Stage)
	if !ok {
		return false, nil
	}
	if attempts >= int64(rule.MaxFollowUps) {
		return false, nil
	}
	if utils.HoursBetween(last.SentAt, now) < float64(rule.HoursAfterLastMessage) {
		return false, nil
	}

	text := rule.Render(contact.Name)
	entry := models.FollowUpLog{
		BusinessID: contact.BusinessID,
		ContactID:  contact.ID,
		Stage:      contact.Stage,
		Message:    text,
		SentAt:     now,
	}

	sid, sendErr := s.gateway.SendText(ctx, contact.BusinessID, contact.Phone, text)
	if sendErr != nil {
		followUpsSent.WithLabelValues(models.FollowUpStatusFailed).Inc()
		entry.Status = models.FollowUpStatusFailed
		entry.ErrorMessage = sendErr.Error()
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			log.Error().Err(err).Str("contact_id", contact.ID.String()).Msg("failed to write follow-up log")
		}
		return false, sendErr
	}

	followUpsSent.WithLabelValues(models.FollowUpStatusSent).Inc()
	entry.Status = models.FollowUpStatusSent
	entry.ProviderMessageID = sid
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("services: write follow-up log: %w", err)
		}
		if err := addTag(tx, contact.BusinessID, contact.ID, models.TagFollowUpSent); err != nil {
			return err
		}
		return recordOutbound(tx, contact.BusinessID, contact.ID, text, sid, now)
	})
	if err != nil {
		// The message went out; only the bookkeeping failed.
		return true, err
	}
	return true, nil
}

// attempts counts follow-ups already made: the larger of followup-sent tag
// rows and follow-ups actually delivered, whether by the built-in table or by
// a stored follow-up rule.
func (s *FollowUpService) attempts(ctx context.Context, contactID uuid.UUID) (int64, error) {
	db := s.db.WithContext(ctx)

	var tags int64
	if err := db.Model(&models.ContactTag{}).
		Where("contact_id = ? AND tag = ?", contactID, models.TagFollowUpSent).
		Count(&tags).Error; err != nil {
		return 0, fmt.Errorf("services: count follow-up tags: %w", err)
	}

	var sends int64
	if err := db.Model(&models.FollowUpLog{}).
		Where("contact_id = ? AND status = ?", contactID, models.FollowUpStatusSent).
		Count(&sends).Error; err != nil {
		return 0, fmt.Errorf("services: count follow-up sends: %w", err)
	}

	var ruled int64
	if err := db.Model(&models.AutomationLog{}).
		Where("contact_id = ? AND status = ? AND trigger_type IN ?", contactID, models.AutomationStatusSuccess,
			[]models.Trigger{models.TriggerScheduledFollowUp, models.TriggerCustomFollowUp}).
		Count(&ruled).Error; err != nil {
		return 0, fmt.Errorf("services: count follow-up rule runs: %w", err)
	}

	if tags > sends+ruled {
		return tags, nil
	}
	return sends + ruled, nil
}

// HotLead is an engaged contact late in the pipeline.
type HotLead struct {
	Contact         models.Contact `json:"contact"`
	InboundCount    int            `json:"inboundCount"`
	LastInteraction time.Time      `json:"lastInteraction"`
}

// IdentifyHotLeads returns Qualified/Proposal/Negotiation contacts with at
// least three inbound messages in the last seven days, most recent first.
func (s *FollowUpService) IdentifyHotLeads(ctx context.Context, businessID uuid.UUID) ([]HotLead, error) {
	db := s.db.WithContext(ctx)
	since := s.now().Add(-hotLeadWindow)

	var msgs []models.Message
	err := db.Select("contact_id", "sent_at").
		Where("business_id = ? AND direction = ? AND sent_at >= ?", businessID, models.DirectionInbound, since).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("services: load recent messages: %w", err)
	}

	counts := make(map[uuid.UUID]int)
	latest := make(map[uuid.UUID]time.Time)
	for _, m := range msgs {
		counts[m.ContactID]++
		if m.SentAt.After(latest[m.ContactID]) {
			latest[m.ContactID] = m.SentAt
		}
	}

	var ids []uuid.UUID
	for id, n := range counts {
		if n >= hotLeadMinInbound {
			ids = append(ids, id)
		}
	}
	leads := []HotLead{}
	if len(ids) == 0 {
		return leads, nil
	}

	var contacts []models.Contact
	err = db.Where("business_id = ? AND id IN ? AND stage IN ?", businessID, ids, hotLeadStages).
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("services: load hot lead contacts: %w", err)
	}

	for _, c := range contacts {
		leads = append(leads, HotLead{
			Contact:         c,
			InboundCount:    counts[c.ID],
			LastInteraction: latest[c.ID],
		})
	}
	sort.Slice(leads, func(i, j int) bool {
		return leads[i].LastInteraction.After(leads[j].LastInteraction)
	})
	return leads, nil
}

// FollowUpStats aggregates pipeline outcomes for a business.
type FollowUpStats struct {
	TotalContacts int64 `json:"totalContacts"`
	WonDeals      int64 `json:"wonDeals"`
	LostDeals     int64 `json:"lostDeals"`
	FollowUpsSent int64 `json:"followUpsSent"`
	NeedsFollowUp int64 `json:"needsFollowUp"`
}

func (s *FollowUpService) GetFollowUpStats(ctx context.Context, businessID uuid.UUID) (FollowUpStats, error) {
	db := s.db.WithContext(ctx)
	var stats FollowUpStats

	contacts := func() *gorm.DB {
		return db.Model(&models.Contact{}).Where("business_id = ?", businessID)
	}
	if err := contacts().Count(&stats.TotalContacts).Error; err != nil {
		return stats, fmt.Errorf("services: count contacts: %w", err)
	}
	if err := contacts().Where("stage = ?", models.StageWon).Count(&stats.WonDeals).Error; err != nil {
		return stats, fmt.Errorf("services: count won: %w", err)
	}
	if err := contacts().Where("stage = ?", models.StageLost).Count(&stats.LostDeals).Error; err != nil {
		return stats, fmt.Errorf("services: count lost: %w", err)
	}

	taggedContacts := func(tag string, dest *int64) error {
		return db.Model(&models.ContactTag{}).
			Where("business_id = ? AND tag = ?", businessID, tag).
			Distinct("contact_id").Count(dest).Error
	}
	if err := taggedContacts(models.TagFollowUpSent, &stats.FollowUpsSent); err != nil {
		return stats, fmt.Errorf("services: count followed-up contacts: %w", err)
	}
	if err := taggedContacts(models.TagNeedsFollowUp, &stats.NeedsFollowUp); err != nil {
		return stats, fmt.Errorf("services: count needs-followup contacts: %w", err)
	}
	return stats, nil
}

// AnalyzeConversationSentiment scores the contact's latest inbound messages.
func (s *FollowUpService) AnalyzeConversationSentiment(ctx context.Context, businessID, contactID uuid.UUID) (Sentiment, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Contact{}).Where("business_id = ? AND id = ?", businessID, contactID).
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("services: load contact: %w", err)
	}
	if count == 0 {
		return "", notFoundErrorf("contact %s", contactID)
	}

	var texts []string
	err := db.Model(&models.Message{}).
		Where("business_id = ? AND contact_id = ? AND direction = ?", businessID, contactID, models.DirectionInbound).
		Order("sent_at DESC").Limit(SentimentWindow).
		Pluck("content", &texts).Error
	if err != nil {
		return "", fmt.Errorf("services: load messages: %w", err)
	}
	return s.classifier.ClassifySentiment(texts), nil
}

// CustomFollowUpRuleInput describes a tenant-defined follow-up.
type CustomFollowUpRuleInput struct {
	Stage                 models.Stage `json:"stage" validate:"required"`
	HoursAfterLastMessage int          `json:"hoursAfterLastMessage" validate:"min=1"`
	MessageTemplate       string       `json:"messageTemplate" validate:"required"`
	MaxFollowUps          int          `json:"maxFollowUps" validate:"min=1"`
}

// CreateCustomFollowUpRule stores a custom_followup rule. The built-in rule
// table is not changed. The attempt limit is kept in the condition as
// followup_attempts < maxFollowUps.
func (s *FollowUpService) CreateCustomFollowUpRule(ctx context.Context, businessID uuid.UUID, in CustomFollowUpRuleInput) (*models.AutomationRule, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, validationErrorf("%v", err)
	}
	spec := FollowUpRule{
		Stage:                 in.Stage,
		HoursAfterLastMessage: in.HoursAfterLastMessage,
		MessageTemplate:       in.MessageTemplate,
		MaxFollowUps:          in.MaxFollowUps,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	rule := models.AutomationRule{
		BusinessID: businessID,
		Name:       fmt.Sprintf("custom_followup:%s", in.Stage),
		Trigger:    models.TriggerCustomFollowUp,
		Condition: models.Condition{
			"stage":             models.Compare(models.OpEquals, string(in.Stage)),
			"followup_attempts": models.Compare(models.OpLessThan, in.MaxFollowUps),
		},
		Action:       models.NewAction(models.SendMessageAction{Message: in.MessageTemplate}),
		DelayMinutes: spec.DelayMinutes(),
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&rule).Error; err != nil {
		return nil, fmt.Errorf("services: create custom follow-up rule: %w", err)
	}
	return &rule, nil
}

// Start runs the sweep on schedule until the returned cron is stopped.
func (s *FollowUpService) Start(schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	cronLogger := cron.PrintfLogger(&log.Logger)
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	if _, err := c.AddFunc(schedule, func() {
		s.ProcessPendingFollowUps(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("services: schedule follow-up sweep %q: %w", schedule, err)
	}
	c.Start()
	log.Info().Str("schedule", schedule).Msg("follow-up scheduler started")
	return c, nil
}
