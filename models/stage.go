package models

// Stage is a contact's position in the sales pipeline.
type Stage string

const (
	StageNew         Stage = "New"
	StageContacted   Stage = "Contacted"
	StageQualified   Stage = "Qualified"
	StageProposal    Stage = "Proposal"
	StageNegotiation Stage = "Negotiation"
	StageWon         Stage = "Won"
	StageLost        Stage = "Lost"
)

// Stages lists every pipeline stage in pipeline order.
var Stages = []Stage{
	StageNew,
	StageContacted,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageWon,
	StageLost,
}

// Valid reports whether s is one of the fixed pipeline stages.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further follow-up may be scheduled once reached.
func (s Stage) IsTerminal() bool {
	return s == StageWon || s == StageLost
}

// Trigger names an event kind that activates rule evaluation.
type Trigger string

const (
	TriggerContactCreated    Trigger = "contact_created"
	TriggerMessageReceived   Trigger = "message_received"
	TriggerStageChanged      Trigger = "stage_changed"
	TriggerScheduledFollowUp Trigger = "scheduled_followup"
	TriggerCustomFollowUp    Trigger = "custom_followup"
)

func (t Trigger) Valid() bool {
	switch t {
	case TriggerContactCreated, TriggerMessageReceived, TriggerStageChanged,
		TriggerScheduledFollowUp, TriggerCustomFollowUp:
		return true
	}
	return false
}

// IsFollowUp reports whether the trigger is fired by the follow-up sweep.
// Rules on these triggers measure their delay from the contact's last message.
func (t Trigger) IsFollowUp() bool {
	return t == TriggerScheduledFollowUp || t == TriggerCustomFollowUp
}

// Direction of a message relative to the business.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Tags written by the classifier and the follow-up sweep.
const (
	TagDealClosed    = "deal-closed"
	TagDealLost      = "deal-lost"
	TagNeedsFollowUp = "needs-followup"
	TagFollowUpSent  = "followup-sent"
)
