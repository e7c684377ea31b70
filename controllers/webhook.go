package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go/client"

	"wacrm-backend/services"
	"wacrm-backend/utils"
)

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// WebhookController receives inbound WhatsApp messages from Twilio. With an
// AuthToken set, requests without a valid X-Twilio-Signature are refused.
type WebhookController struct {
	Contacts  *services.ContactService
	FollowUps *services.FollowUpService
	AuthToken string
	// PublicURL is the origin Twilio signs against when the service sits
	// behind a proxy. Empty derives it from the request.
	PublicURL string
}

// TwilioInbound is the subset of Twilio's webhook form we use.
type TwilioInbound struct {
	From        string `form:"From" binding:"required"`
	Body        string `form:"Body"`
	MessageSid  string `form:"MessageSid"`
	ProfileName string `form:"ProfileName"`
}

// ReceiveWhatsApp stores the message, then runs automation and classification.
// Once the message is stored the provider always gets a 200 so it does not
// redeliver.
func (ctl *WebhookController) ReceiveWhatsApp(c *gin.Context) {
	businessID, ok := pathID(c, "businessId", "business")
	if !ok {
		return
	}

	if !ctl.signatureValid(c) {
		log.Warn().Str("business_id", businessID.String()).Str("ip", c.ClientIP()).
			Msg("rejected webhook with invalid signature")
		utils.RespondWithError(c, http.StatusForbidden, "Invalid signature")
		return
	}

	var input TwilioInbound
	if err := c.ShouldBind(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	msg, contact, err := ctl.Contacts.RecordInbound(ctx, businessID, services.InboundMessage{
		Phone:             input.From,
		ProfileName:       input.ProfileName,
		Content:           input.Body,
		ProviderMessageID: input.MessageSid,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to store message")
		return
	}

	if err := ctl.FollowUps.OnInboundMessage(ctx, msg.ID); err != nil {
		log.Error().Err(err).Str("business_id", businessID.String()).
			Str("contact_id", contact.ID.String()).Str("message_id", msg.ID.String()).
			Msg("failed to process inbound message")
	}

	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(emptyTwiML))
}

func (ctl *WebhookController) signatureValid(c *gin.Context) bool {
	if ctl.AuthToken == "" {
		return true
	}
	sig := c.GetHeader("X-Twilio-Signature")
	if sig == "" {
		return false
	}
	if err := c.Request.ParseForm(); err != nil {
		return false
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	validator := client.NewRequestValidator(ctl.AuthToken)
	return validator.Validate(ctl.requestURL(c), params, sig)
}

// requestURL rebuilds the URL Twilio signed.
func (ctl *WebhookController) requestURL(c *gin.Context) string {
	base := strings.TrimRight(ctl.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + c.Request.URL.RequestURI()
}
