package services

import (
	"context"

	"github.com/google/uuid"

	"wacrm-backend/models"
)

// TriggerEvent lives only for the duration of a dispatch.
type TriggerEvent struct {
	Trigger    models.Trigger
	BusinessID uuid.UUID
	ContactID  *uuid.UUID
	Payload    map[string]interface{}
}

// TriggerBus is the in-process seam between event producers (webhook,
// contacts, follow-up scheduler) and the rule engine. Implementations must
// not panic or report errors back to the producer.
type TriggerBus interface {
	TriggerAutomation(ctx context.Context, event TriggerEvent)
}

// snapshot copies the payload and injects contact_id when the event has one.
func (e TriggerEvent) snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		out[k] = v
	}
	if e.ContactID != nil {
		out["contact_id"] = e.ContactID.String()
	}
	return out
}
