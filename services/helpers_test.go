package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wacrm-backend/models"
)

// testNow is the fixed clock used by service tests.
var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

type sentMessage struct {
	BusinessID uuid.UUID
	Phone      string
	Body       string
}

// fakeGateway records sends. Phones listed in failFor return a SendError.
type fakeGateway struct {
	mu        sync.Mutex
	texts     []sentMessage
	templates []sentMessage
	failFor   map[string]bool
	panicFor  map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failFor: map[string]bool{}, panicFor: map[string]bool{}}
}

func (g *fakeGateway) SendText(_ context.Context, businessID uuid.UUID, phone, text string) (string, error) {
	return g.record(&g.texts, businessID, phone, text)
}

func (g *fakeGateway) SendTemplate(_ context.Context, businessID uuid.UUID, phone, templateID string) (string, error) {
	return g.record(&g.templates, businessID, phone, templateID)
}

func (g *fakeGateway) record(into *[]sentMessage, businessID uuid.UUID, phone, body string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.panicFor[phone] {
		panic("provider exploded")
	}
	if g.failFor[phone] {
		return "", &SendError{Phone: phone, Err: errors.New("provider unavailable")}
	}
	*into = append(*into, sentMessage{BusinessID: businessID, Phone: phone, Body: body})
	return fmt.Sprintf("SM%d", len(g.texts)+len(g.templates)), nil
}

func (g *fakeGateway) Texts() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.texts...)
}

// recordingBus captures trigger events instead of dispatching them.
type recordingBus struct {
	mu     sync.Mutex
	events []TriggerEvent
}

func (b *recordingBus) TriggerAutomation(_ context.Context, event TriggerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) Triggers() []models.Trigger {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Trigger, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Trigger)
	}
	return out
}

func (b *recordingBus) Last() TriggerEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events[len(b.events)-1]
}

func createBusiness(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	b := models.Business{Name: "Test business"}
	require.NoError(t, db.Create(&b).Error)
	return b.ID
}

func createContact(t *testing.T, db *gorm.DB, businessID uuid.UUID, phone, name string, stage models.Stage) *models.Contact {
	t.Helper()
	c := models.Contact{BusinessID: businessID, Phone: phone, Name: name, Stage: stage}
	require.NoError(t, db.Create(&c).Error)
	return &c
}

func createMessage(t *testing.T, db *gorm.DB, c *models.Contact, dir models.Direction, content string, at time.Time) *models.Message {
	t.Helper()
	m := models.Message{
		BusinessID: c.BusinessID,
		ContactID:  c.ID,
		Direction:  dir,
		Content:    content,
		Status:     "received",
		SentAt:     at,
	}
	require.NoError(t, db.Create(&m).Error)
	return &m
}

func createRule(t *testing.T, db *gorm.DB, businessID uuid.UUID, trigger models.Trigger, cond models.Condition, action models.ActionSpec) *models.AutomationRule {
	t.Helper()
	r := models.AutomationRule{
		BusinessID: businessID,
		Name:       string(trigger) + " rule",
		Trigger:    trigger,
		Condition:  cond,
		Action:     models.NewAction(action),
		IsActive:   true,
	}
	require.NoError(t, db.Create(&r).Error)
	return &r
}

func tagsOf(t *testing.T, db *gorm.DB, contactID uuid.UUID) []string {
	t.Helper()
	var tags []string
	require.NoError(t, db.Model(&models.ContactTag{}).Where("contact_id = ?", contactID).
		Order("tag").Pluck("tag", &tags).Error)
	return tags
}

func reloadContact(t *testing.T, db *gorm.DB, id uuid.UUID) models.Contact {
	t.Helper()
	var c models.Contact
	require.NoError(t, db.Where("id = ?", id).First(&c).Error)
	return c
}
