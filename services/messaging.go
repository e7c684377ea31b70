package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"

	"wacrm-backend/models"
)

// MessagingGateway sends outbound messages to a contact's phone and returns
// the provider message id.
type MessagingGateway interface {
	SendText(ctx context.Context, businessID uuid.UUID, phone, text string) (string, error)
	SendTemplate(ctx context.Context, businessID uuid.UUID, phone, templateID string) (string, error)
}

// TwilioConfig holds provider credentials and default sender numbers.
type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string
	PhoneNumber    string
}

// TwilioGateway delivers through the Twilio REST API. WhatsApp is used for
// E.164 numbers, SMS otherwise. A circuit breaker stops hammering the
// provider after repeated failures.
type TwilioGateway struct {
	db      *gorm.DB
	client  *twilio.RestClient
	cfg     TwilioConfig
	breaker *gobreaker.CircuitBreaker[string]
}

func NewTwilioGateway(db *gorm.DB, cfg TwilioConfig) *TwilioGateway {
	return &TwilioGateway{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		cfg: cfg,
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:    "twilio",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: providerHealthy,
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("messaging circuit breaker state changed")
			},
		}),
	}
}

// providerHealthy reports whether err leaves the provider healthy. Client
// errors such as a bad number are the caller's fault and never trip the
// breaker; rate limiting and 5xx do.
func providerHealthy(err error) bool {
	if err == nil {
		return true
	}
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		return restErr.Status >= 400 && restErr.Status < 500 && restErr.Status != 429
	}
	return false
}

func (g *TwilioGateway) SendText(ctx context.Context, businessID uuid.UUID, phone, text string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(text)
	return g.send(ctx, businessID, phone, params)
}

// SendTemplate sends an approved WhatsApp content template by its Twilio ContentSid.
func (g *TwilioGateway) SendTemplate(ctx context.Context, businessID uuid.UUID, phone, templateID string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetContentSid(templateID)
	return g.send(ctx, businessID, phone, params)
}

func (g *TwilioGateway) send(ctx context.Context, businessID uuid.UUID, phone string, params *twilioApi.CreateMessageParams) (string, error) {
	to, from, channel := route(phone, g.senderFor(ctx, businessID), g.cfg.PhoneNumber)
	params.SetTo(to)
	params.SetFrom(from)

	sid, err := g.breaker.Execute(func() (string, error) {
		resp, err := g.client.Api.CreateMessage(params)
		if err != nil {
			return "", err
		}
		if resp.Sid == nil {
			return "", nil
		}
		return *resp.Sid, nil
	})
	if err != nil {
		log.Error().Err(err).Str("business_id", businessID.String()).Str("phone", phone).
			Str("channel", channel).Msg("failed to send message")
		return "", &SendError{Phone: phone, Err: err}
	}

	log.Debug().Str("business_id", businessID.String()).Str("phone", phone).
		Str("channel", channel).Str("sid", sid).Msg("message sent")
	return sid, nil
}

// senderFor returns the tenant's WhatsApp sender, falling back to the default.
func (g *TwilioGateway) senderFor(ctx context.Context, businessID uuid.UUID) string {
	if g.db == nil {
		return g.cfg.WhatsAppNumber
	}
	var business models.Business
	err := g.db.WithContext(ctx).Select("whats_app_number").
		Where("id = ?", businessID).First(&business).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("business_id", businessID.String()).Msg("sender lookup failed, using default")
		}
		return g.cfg.WhatsAppNumber
	}
	if business.WhatsAppNumber == "" {
		return g.cfg.WhatsAppNumber
	}
	return business.WhatsAppNumber
}

// route picks the channel for phone: WhatsApp when it is in E.164 format with
// a leading '+', SMS otherwise.
func route(phone, whatsAppFrom, smsFrom string) (to, from, channel string) {
	if strings.HasPrefix(phone, "+") {
		return "whatsapp:" + phone, "whatsapp:" + strings.TrimPrefix(whatsAppFrom, "whatsapp:"), "whatsapp"
	}
	return phone, smsFrom, "sms"
}
