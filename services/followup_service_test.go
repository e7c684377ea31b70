package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wacrm-backend/models"
)

func newTestFollowUpService(t *testing.T) (*FollowUpService, *gorm.DB, *fakeGateway, *recordingBus) {
	t.Helper()
	db := newTestDB(t)
	gw := newFakeGateway()
	bus := &recordingBus{}
	svc := NewFollowUpService(db, gw, bus, nil, nil)
	svc.now = fixedClock
	return svc, db, gw, bus
}

func scheduledRules(t *testing.T, db *gorm.DB, businessID uuid.UUID) []models.AutomationRule {
	t.Helper()
	var rules []models.AutomationRule
	require.NoError(t, db.Where("business_id = ? AND trigger_type = ?", businessID, models.TriggerScheduledFollowUp).
		Find(&rules).Error)
	return rules
}

func TestOnInboundMessageWonClosesDeal(t *testing.T) {
	svc, db, _, bus := newTestFollowUpService(t)
	biz := uuid.New()
	contact := createContact(t, db, biz, "+15551110000", "Ana", models.StageNegotiation)
	msg := createMessage(t, db, contact, models.DirectionInbound, "Yes, let's go ahead", testNow)

	require.NoError(t, svc.OnInboundMessage(context.Background(), msg.ID))

	assert.Equal(t, models.StageWon, reloadContact(t, db, contact.ID).Stage)
	assert.Equal(t, []string{models.TagDealClosed}, tagsOf(t, db, contact.ID))

	var history []models.PipelineHistory
	require.NoError(t, db.Where("contact_id = ?", contact.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, models.StageNegotiation, history[0].FromStage)
	assert.Equal(t, models.StageWon, history[0].ToStage)

	require.Equal(t, []models.Trigger{models.TriggerStageChanged}, bus.Triggers())
	event := bus.Last()
	assert.Equal(t, "Negotiation", event.Payload["from_stage"])
	assert.Equal(t, "Won", event.Payload["to_stage"])
	require.NotNil(t, event.ContactID)
	assert.Equal(t, contact.ID, *event.ContactID)

	assert.Empty(t, scheduledRules(t, db, biz))
}

func TestOnInboundMessageLostClosesDeal(t *testing.T) {
	svc, db, _, _ := newTestFollowUpService(t)
	biz := uuid.New()
	contact := createContact(t, db, biz, "+15551110001", "Ben", models.StageProposal)
	msg := createMessage(t, db, contact, models.DirectionInbound, "Not interested, thanks", testNow)

	require.NoError(t, svc.OnInboundMessage(context.Background(), msg.ID))

	assert.Equal(t, models.StageLost, reloadContact(t, db, contact.ID).Stage)
	assert.Equal(t, []string{models.TagDealLost}, tagsOf(t, db, contact.ID))
	assert.Empty(t, scheduledRules(t, db, biz))
}

func TestOnInboundMessageAlreadyWonFiresNothing(t *testing.T) {
	svc, db, _, bus := newTestFollowUpService(t)
	biz := uuid.New()
	contact := createContact(t, db, biz, "+15551110002", "Cy", models.StageWon)
	msg := createMessage(t, db, contact, models.DirectionInbound, "yes", testNow)

	require.NoError(t, svc.OnInboundMessage(context.Background(), msg.ID))

	assert.Empty(t, bus.Triggers())
	assert.Equal(t, []string{models.TagDealClosed}, tagsOf(t, db, contact.ID))
}

func TestOnInboundMessageNeedsFollowUpSchedules(t *testing.T) {
	svc, db, _, _ := newTestFollowUpService(t)
	biz := uuid.New()
	contact := createContact(t, db, biz, "+15551110003", "Di", models.StageNew)
	msg := createMessage(t, db, contact, models.DirectionInbound, "I'll think about it", testNow)

	require.NoError(t, svc.OnInboundMessage(context.Background(), msg.ID))

	assert.Equal(t, models.StageNew, reloadContact(t, db, contact.ID).Stage)
	assert.Equal(t, []string{models.TagNeedsFollowUp}, tagsOf(t, db, contact.ID))

	rules := scheduledRules(t, db, biz)
	require.Len(t, rules, 1)
	rule := rules[0]
	assert.Equal(t, 24*60, rule.DelayMinutes)
	assert.True(t, rule.IsActive)
	assert.Equal(t, "followup:"+contact.ID.String(), rule.Name)
	assert.True(t, EvaluateCondition(rule.Condition, map[string]interface{}{"contact_id": contact.ID.String()}))
	assert.False(t, EvaluateCondition(rule.Condition, map[string]interface{}{"contact_id": uuid.NewString()}))

	action, ok := rule.Action.Spec.(models.SendMessageAction)
	require.True(t, ok)
	assert.Contains(t, action.Text(), "Hi Di!")
}

func TestOnInboundMessageNeutralSchedulesForStage(t *testing.T) {
	svc, db, _, _ := newTestFollowUpService(t)
	biz := uuid.New()
	contact := createContact(t, db, biz, "+15551110004", "", models.StageProposal)
	msg := createMessage(t, db, contact, models.DirectionInbound, "Can you send the brochure?", testNow)

	require.NoError(t, svc.OnInboundMessage(context.Background(), msg.ID))

	assert.Empty(t, tagsOf(t, db, contact.ID))
	rules := scheduledRules(t, db, biz)
	require.Len(t, rules, 1)
	assert.Equal(t, 48*60, rules[0].DelayMinutes)
	assert.Contains(t, rules[0].Action.Spec.(models.SendMessageAction).Text(), "Hi there,")
}

func TestOnInboundMessageIgnoresOutbound(t *testing.T) {
	svc, db, _, bus := newTestFollowUpService(t)
	biz := uuid.New()
	contact := createContact(t, db, biz, "+15551110005", "Ed", models.StageNew)
	msg := createMessage(t, db, contact, models.DirectionOutbound, "yes", testNow)

	require.NoError(t, svc.OnInboundMessage(context.Background(), msg.ID))

	assert.Equal(t, models.StageNew, reloadContact(t, db, contact.ID).Stage)
	assert.Empty(t, tagsOf(t, db, contact.ID))
	assert.Empty(t, bus.Triggers())
	assert.Empty(t, scheduledRules(t, db, biz))
}

func TestOnInboundMessageUnknownMessage(t *testing.T) {
	svc, _, _, _ := newTestFollowUpService(t)
	assert.ErrorIs(t, svc.OnInboundMessage(context.Background(), uuid.New()), ErrNotFound)
}

func TestOnInboundMessageKeepsOneScheduledRulePerContact(t *testing.T) {
	svc, db, _, _ := newTestFollowUpService(t)
	biz := uuid.New()
	contact := createContact(t, db, biz, "+15551110006", "Flo", models.StageNew)

	first := createMessage(t, db, contact, models.DirectionInbound, "Can you send prices?", testNow)
	require.NoError(t, svc.OnInboundMessage(context.Background(), first.ID))
	rules := scheduledRules(t, db, biz)
	require.Len(t, rules, 1)
	require.NoError(t, db.Model(&rules[0]).Update("is_active", false).Error)

	require.NoError(t, db.Model(contact).Update("stage", models.StageProposal).Error)
	second := createMessage(t, db, contact, models.DirectionInbound, "What about delivery?", testNow.Add(time.Hour))
	require.NoError(t, svc.OnInboundMessage(context.Background(), second.ID))

	rules = scheduledRules(t, db, biz)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].IsActive)
	assert.Equal(t, 48*60, rules[0].DelayMinutes)
}

func TestProcessPendingFollowUpsSendsToQuietContacts(t *testing.T) {
	svc, db, gw, _ := newTestFollowUpService(t)
	biz := uuid.New()
	quiet := createContact(t, db, biz, "+15552220000", "Ana", models.StageNew)
	createMessage(t, db, quiet, models.DirectionInbound, "hello", testNow.Add(-30*time.Hour))

	res := svc.ProcessPendingFollowUps(context.Background())
	assert.Equal(t, SweepResult{Checked: 1, Sent: 1}, res)

	sent := gw.Texts()
	require.Len(t, sent, 1)
	assert.Equal(t, quiet.Phone, sent[0].Phone)
	assert.Contains(t, sent[0].Body, "Hi Ana!")

	assert.Equal(t, []string{models.TagFollowUpSent}, tagsOf(t, db, quiet.ID))

	var entries []models.FollowUpLog
	require.NoError(t, db.Where("contact_id = ?", quiet.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, models.FollowUpStatusSent, entries[0].Status)
	assert.Equal(t, models.StageNew, entries[0].Stage)

	var outbound int64
	require.NoError(t, db.Model(&models.Message{}).
		Where("contact_id = ? AND direction = ?", quiet.ID, models.DirectionOutbound).Count(&outbound).Error)
	assert.EqualValues(t, 1, outbound)

	// The follow-up itself is now the latest message, so a rerun sends nothing.
	res = svc.ProcessPendingFollowUps(context.Background())
	assert.Equal(t, SweepResult{}, res)
	assert.Len(t, gw.Texts(), 1)
}

func TestProcessPendingFollowUpsSkips(t *testing.T) {
	svc, db, gw, _ := newTestFollowUpService(t)
	biz := uuid.New()
	old := testNow.Add(-30 * time.Hour)

	// Contacted waits 48h; 30h is not enough.
	tooRecent := createContact(t, db, biz, "+15552220001", "Ben", models.StageContacted)
	createMessage(t, db, tooRecent, models.DirectionInbound, "hi", old)

	// New allows 2 follow-ups; both are used.
	exhausted := createContact(t, db, biz, "+15552220002", "Cy", models.StageNew)
	createMessage(t, db, exhausted, models.DirectionInbound, "hi", old)
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&models.FollowUpLog{
			BusinessID: biz, ContactID: exhausted.ID, Stage: models.StageNew,
			Status: models.FollowUpStatusSent, SentAt: old.Add(-time.Duration(i+1) * 24 * time.Hour),
		}).Error)
	}

	// Terminal and silent contacts are never candidates.
	won := createContact(t, db, biz, "+15552220003", "Di", models.StageWon)
	createMessage(t, db, won, models.DirectionInbound, "hi", old)
	createContact(t, db, biz, "+15552220004", "Ed", models.StageNew)

	res := svc.ProcessPendingFollowUps(context.Background())

	assert.Equal(t, SweepResult{Checked: 2, Skipped: 2}, res)
	assert.Empty(t, gw.Texts())
}

func TestProcessPendingFollowUpsIsolatesFailures(t *testing.T) {
	svc, db, gw, _ := newTestFollowUpService(t)
	biz := uuid.New()
	old := testNow.Add(-72 * time.Hour)

	failing := createContact(t, db, biz, "+15553330000", "Ana", models.StageQualified)
	createMessage(t, db, failing, models.DirectionInbound, "hi", old)
	gw.failFor[failing.Phone] = true

	exploding := createContact(t, db, biz, "+15553330001", "Ben", models.StageQualified)
	createMessage(t, db, exploding, models.DirectionInbound, "hi", old)
	gw.panicFor[exploding.Phone] = true

	healthy := createContact(t, db, biz, "+15553330002", "Cy", models.StageQualified)
	createMessage(t, db, healthy, models.DirectionInbound, "hi", old)

	res := svc.ProcessPendingFollowUps(context.Background())

	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, gw.Texts(), 1)
	assert.Equal(t, healthy.Phone, gw.Texts()[0].Phone)

	var failed models.FollowUpLog
	require.NoError(t, db.Where("contact_id = ?", failing.ID).First(&failed).Error)
	assert.Equal(t, models.FollowUpStatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "provider unavailable")
	assert.Empty(t, tagsOf(t, db, failing.ID))
}

func TestProcessPendingFollowUpsFiresStoredFollowUpRules(t *testing.T) {
	db := newTestDB(t)
	gw := newFakeGateway()
	automations := NewAutomationService(db, gw)
	svc := NewFollowUpService(db, gw, automations, nil, nil)
	setClock := func(now time.Time) {
		automations.now = func() time.Time { return now }
		svc.now = func() time.Time { return now }
	}
	setClock(testNow)
	ctx := context.Background()
	biz := uuid.New()

	contact := createContact(t, db, biz, "+15554440000", "Ana", models.StageNew)
	msg := createMessage(t, db, contact, models.DirectionInbound, "Can you send prices?", testNow.Add(-30*time.Hour))
	require.NoError(t, svc.OnInboundMessage(ctx, msg.ID))
	custom, err := svc.CreateCustomFollowUpRule(ctx, biz, CustomFollowUpRuleInput{
		Stage:                 models.StageNew,
		HoursAfterLastMessage: 24,
		MessageTemplate:       "Any news, {name}?",
		MaxFollowUps:          3,
	})
	require.NoError(t, err)

	// The scheduled rule goes first and retires after one run.
	res := svc.ProcessPendingFollowUps(ctx)
	assert.Equal(t, SweepResult{Checked: 1, Sent: 1}, res)
	require.Len(t, gw.Texts(), 1)
	assert.Contains(t, gw.Texts()[0].Body, "Hi Ana!")
	scheduled := scheduledRules(t, db, biz)
	require.Len(t, scheduled, 1)
	assert.False(t, scheduled[0].IsActive)
	logs := logsFor(t, db, scheduled[0].ID)
	require.Len(t, logs, 1)
	assert.Equal(t, models.TriggerScheduledFollowUp, logs[0].Trigger)
	require.NotNil(t, logs[0].ContactID)
	assert.Equal(t, contact.ID, *logs[0].ContactID)

	// A day later the custom rule takes over.
	setClock(testNow.Add(30 * time.Hour))
	res = svc.ProcessPendingFollowUps(ctx)
	assert.Equal(t, SweepResult{Checked: 1, Sent: 1}, res)
	require.Len(t, gw.Texts(), 2)
	assert.Equal(t, "Any news, Ana?", gw.Texts()[1].Body)
	assert.Len(t, logsFor(t, db, custom.ID), 1)

	setClock(testNow.Add(60 * time.Hour))
	res = svc.ProcessPendingFollowUps(ctx)
	assert.Equal(t, SweepResult{Checked: 1, Sent: 1}, res)
	require.Len(t, gw.Texts(), 3)

	// Three follow-ups made: the custom limit and the built-in New limit
	// are both exhausted.
	setClock(testNow.Add(90 * time.Hour))
	res = svc.ProcessPendingFollowUps(ctx)
	assert.Equal(t, SweepResult{Checked: 1, Skipped: 1}, res)
	assert.Len(t, gw.Texts(), 3)

	var fallback int64
	require.NoError(t, db.Model(&models.FollowUpLog{}).Where("contact_id = ?", contact.ID).Count(&fallback).Error)
	assert.Zero(t, fallback)
}

func TestProcessPendingFollowUpsSendsTriggerPayload(t *testing.T) {
	svc, db, _, bus := newTestFollowUpService(t)
	biz := uuid.New()
	contact := createContact(t, db, biz, "+15554440001", "Bo", models.StageContacted)
	createMessage(t, db, contact, models.DirectionInbound, "hi", testNow.Add(-30*time.Hour))

	svc.ProcessPendingFollowUps(context.Background())

	require.Equal(t, []models.Trigger{models.TriggerScheduledFollowUp, models.TriggerCustomFollowUp}, bus.Triggers())
	payload := bus.Last().Payload
	assert.Equal(t, "Contacted", payload["stage"])
	assert.EqualValues(t, 0, payload[payloadFollowUpAttempts])
	assert.EqualValues(t, 30*60, payload[payloadIdleMinutes])
	require.NotNil(t, bus.Last().ContactID)
	assert.Equal(t, contact.ID, *bus.Last().ContactID)
}

func TestProcessPendingFollowUpsForScopesToBusiness(t *testing.T) {
	svc, db, gw, _ := newTestFollowUpService(t)
	mine, theirs := uuid.New(), uuid.New()
	old := testNow.Add(-30 * time.Hour)

	a := createContact(t, db, mine, "+15555550000", "Ana", models.StageNew)
	createMessage(t, db, a, models.DirectionInbound, "hi", old)
	b := createContact(t, db, theirs, "+15555550001", "Ben", models.StageNew)
	createMessage(t, db, b, models.DirectionInbound, "hi", old)

	res := svc.ProcessPendingFollowUpsFor(context.Background(), mine)
	assert.Equal(t, SweepResult{Checked: 1, Sent: 1}, res)
	require.Len(t, gw.Texts(), 1)
	assert.Equal(t, a.Phone, gw.Texts()[0].Phone)
	assert.Empty(t, tagsOf(t, db, b.ID))

	res = svc.ProcessPendingFollowUps(context.Background())
	assert.Equal(t, SweepResult{Checked: 1, Sent: 1}, res)
	assert.Equal(t, b.Phone, gw.Texts()[1].Phone)
}

func TestProcessPendingFollowUpsHonorsMaxFollowUpsOverride(t *testing.T) {
	rules, err := NewFollowUpRuleTable([]FollowUpRule{{
		Stage:                 models.StageNew,
		HoursAfterLastMessage: 24,
		MessageTemplate:       "Ping {name}",
		MaxFollowUps:          1,
	}})
	require.NoError(t, err)

	db := newTestDB(t)
	gw := newFakeGateway()
	svc := NewFollowUpService(db, gw, &recordingBus{}, rules, nil)
	svc.now = fixedClock
	biz := uuid.New()

	contact := createContact(t, db, biz, "+15556660000", "Cy", models.StageNew)
	createMessage(t, db, contact, models.DirectionInbound, "hi", testNow.Add(-30*time.Hour))
	require.NoError(t, addTag(db, biz, contact.ID, models.TagFollowUpSent))

	res := svc.ProcessPendingFollowUps(context.Background())

	assert.Equal(t, SweepResult{Checked: 1, Skipped: 1}, res)
	assert.Empty(t, gw.Texts())
}

func TestIdentifyHotLeads(t *testing.T) {
	svc, db, _, _ := newTestFollowUpService(t)
	ctx := context.Background()
	biz := uuid.New()

	addInbound := func(c *models.Contact, ages ...time.Duration) {
		for _, age := range ages {
			createMessage(t, db, c, models.DirectionInbound, "hi", testNow.Add(-age))
		}
	}

	hot := createContact(t, db, biz, "+15554440000", "Hot", models.StageQualified)
	addInbound(hot, time.Hour, 2*time.Hour, 3*time.Hour)

	hotter := createContact(t, db, biz, "+15554440001", "Hotter", models.StageNegotiation)
	addInbound(hotter, 10*time.Minute, 24*time.Hour, 48*time.Hour, 72*time.Hour)

	earlyStage := createContact(t, db, biz, "+15554440002", "Early", models.StageNew)
	addInbound(earlyStage, time.Hour, 2*time.Hour, 3*time.Hour, 4*time.Hour)

	stale := createContact(t, db, biz, "+15554440003", "Stale", models.StageProposal)
	addInbound(stale, time.Hour, 2*time.Hour, 8*24*time.Hour)

	other := createContact(t, db, uuid.New(), "+15554440004", "Other", models.StageProposal)
	addInbound(other, time.Hour, 2*time.Hour, 3*time.Hour)

	leads, err := svc.IdentifyHotLeads(ctx, biz)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, hotter.ID, leads[0].Contact.ID)
	assert.Equal(t, 4, leads[0].InboundCount)
	assert.Equal(t, hot.ID, leads[1].Contact.ID)
	assert.True(t, leads[0].LastInteraction.After(leads[1].LastInteraction))

	none, err := svc.IdentifyHotLeads(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetFollowUpStats(t *testing.T) {
	svc, db, _, _ := newTestFollowUpService(t)
	biz := uuid.New()

	createContact(t, db, biz, "+15555550000", "A", models.StageWon)
	createContact(t, db, biz, "+15555550001", "B", models.StageWon)
	createContact(t, db, biz, "+15555550002", "C", models.StageLost)
	nudged := createContact(t, db, biz, "+15555550003", "D", models.StageNew)
	waiting := createContact(t, db, biz, "+15555550004", "E", models.StageContacted)
	createContact(t, db, uuid.New(), "+15555550005", "F", models.StageWon)

	require.NoError(t, addTag(db, biz, nudged.ID, models.TagFollowUpSent))
	require.NoError(t, addTag(db, biz, nudged.ID, models.TagNeedsFollowUp))
	require.NoError(t, addTag(db, biz, waiting.ID, models.TagNeedsFollowUp))

	stats, err := svc.GetFollowUpStats(context.Background(), biz)
	require.NoError(t, err)
	assert.Equal(t, FollowUpStats{
		TotalContacts: 5,
		WonDeals:      2,
		LostDeals:     1,
		FollowUpsSent: 1,
		NeedsFollowUp: 2,
	}, stats)
}

func TestAnalyzeConversationSentiment(t *testing.T) {
	svc, db, _, _ := newTestFollowUpService(t)
	ctx := context.Background()
	biz := uuid.New()
	contact := createContact(t, db, biz, "+15556660000", "Ana", models.StageQualified)

	// Outside the window: the oldest message is overwhelmingly negative.
	createMessage(t, db, contact, models.DirectionInbound,
		"terrible bad worst problem issue poor slow refund angry disappointed expensive", testNow.Add(-11*time.Hour))
	for i := 10; i >= 1; i-- {
		createMessage(t, db, contact, models.DirectionInbound, "good", testNow.Add(-time.Duration(i)*time.Hour))
	}
	createMessage(t, db, contact, models.DirectionOutbound, "sorry, terrible delay", testNow)

	sentiment, err := svc.AnalyzeConversationSentiment(ctx, biz, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, SentimentPositive, sentiment)

	_, err = svc.AnalyzeConversationSentiment(ctx, uuid.New(), contact.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnalyzeConversationSentimentNoMessages(t *testing.T) {
	svc, db, _, _ := newTestFollowUpService(t)
	biz := uuid.New()
	contact := createContact(t, db, biz, "+15556660001", "Ben", models.StageNew)

	sentiment, err := svc.AnalyzeConversationSentiment(context.Background(), biz, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, SentimentNeutral, sentiment)
}

func TestCreateCustomFollowUpRule(t *testing.T) {
	svc, db, _, _ := newTestFollowUpService(t)
	ctx := context.Background()
	biz := uuid.New()

	rule, err := svc.CreateCustomFollowUpRule(ctx, biz, CustomFollowUpRuleInput{
		Stage:                 models.StageQualified,
		HoursAfterLastMessage: 36,
		MessageTemplate:       "Still keen, {name}?",
		MaxFollowUps:          2,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TriggerCustomFollowUp, rule.Trigger)
	assert.Equal(t, 36*60, rule.DelayMinutes)

	var stored models.AutomationRule
	require.NoError(t, db.Where("id = ?", rule.ID).First(&stored).Error)
	assert.True(t, EvaluateCondition(stored.Condition, map[string]interface{}{
		"stage": "Qualified", "followup_attempts": 1,
	}))
	assert.False(t, EvaluateCondition(stored.Condition, map[string]interface{}{
		"stage": "Qualified", "followup_attempts": 2,
	}))
	assert.False(t, EvaluateCondition(stored.Condition, map[string]interface{}{
		"stage": "Proposal", "followup_attempts": 0,
	}))

	for _, in := range []CustomFollowUpRuleInput{
		{Stage: models.StageWon, HoursAfterLastMessage: 1, MessageTemplate: "x", MaxFollowUps: 1},
		{Stage: "Someday", HoursAfterLastMessage: 1, MessageTemplate: "x", MaxFollowUps: 1},
		{Stage: models.StageNew, HoursAfterLastMessage: 0, MessageTemplate: "x", MaxFollowUps: 1},
		{Stage: models.StageNew, HoursAfterLastMessage: 1, MessageTemplate: "", MaxFollowUps: 1},
		{Stage: models.StageNew, HoursAfterLastMessage: 1, MessageTemplate: "x", MaxFollowUps: 0},
	} {
		_, err := svc.CreateCustomFollowUpRule(ctx, biz, in)
		assert.ErrorIs(t, err, ErrValidation, "%+v", in)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc, _, _, _ := newTestFollowUpService(t)

	_, err := svc.Start("every tuesday")
	assert.Error(t, err)

	c, err := svc.Start("")
	require.NoError(t, err)
	<-c.Stop().Done()
}
