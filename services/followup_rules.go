package services

import (
	"fmt"
	"strings"

	"wacrm-backend/models"
)

// FollowUpRule says how long to wait after the last message before nudging a
// contact in Stage, what to send, and how many nudges at most.
type FollowUpRule struct {
	Stage                 models.Stage `json:"stage"`
	HoursAfterLastMessage int          `json:"hoursAfterLastMessage"`
	MessageTemplate       string       `json:"messageTemplate"`
	MaxFollowUps          int          `json:"maxFollowUps"`
}

// DelayMinutes converts the wait into the AutomationRule delay unit.
func (r FollowUpRule) DelayMinutes() int {
	return r.HoursAfterLastMessage * 60
}

// Render substitutes {name} in the template.
func (r FollowUpRule) Render(name string) string {
	return renderTemplate(r.MessageTemplate, name)
}

// renderTemplate replaces {name} with the contact's name, or "there" when
// the name is unknown.
func renderTemplate(tmpl, name string) string {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	return strings.ReplaceAll(tmpl, "{name}", name)
}

func (r FollowUpRule) Validate() error {
	switch {
	case !r.Stage.Valid():
		return validationErrorf("unknown stage %q", r.Stage)
	case r.Stage.IsTerminal():
		return validationErrorf("stage %q is terminal", r.Stage)
	case r.HoursAfterLastMessage <= 0:
		return validationErrorf("hoursAfterLastMessage must be positive")
	case strings.TrimSpace(r.MessageTemplate) == "":
		return validationErrorf("messageTemplate is required")
	case r.MaxFollowUps < 1:
		return validationErrorf("maxFollowUps must be at least 1")
	}
	return nil
}

// FollowUpRuleTable maps a pipeline stage to its follow-up rule. Terminal
// stages never have an entry.
type FollowUpRuleTable map[models.Stage]FollowUpRule

func DefaultFollowUpRules() FollowUpRuleTable {
	return FollowUpRuleTable{
		models.StageNew: {
			Stage:                 models.StageNew,
			HoursAfterLastMessage: 24,
			MessageTemplate:       "Hi {name}! Thanks for reaching out. Is there anything we can help you with?",
			MaxFollowUps:          2,
		},
		models.StageContacted: {
			Stage:                 models.StageContacted,
			HoursAfterLastMessage: 48,
			MessageTemplate:       "Hi {name}, just checking in. Do you have any questions for us?",
			MaxFollowUps:          2,
		},
		models.StageQualified: {
			Stage:                 models.StageQualified,
			HoursAfterLastMessage: 24,
			MessageTemplate:       "Hi {name}, have you had a chance to think it over? Happy to help with anything you need.",
			MaxFollowUps:          3,
		},
		models.StageProposal: {
			Stage:                 models.StageProposal,
			HoursAfterLastMessage: 48,
			MessageTemplate:       "Hi {name}, did you get a chance to review our proposal? Let us know if you'd like to change anything.",
			MaxFollowUps:          3,
		},
		models.StageNegotiation: {
			Stage:                 models.StageNegotiation,
			HoursAfterLastMessage: 24,
			MessageTemplate:       "Hi {name}, we'd love to close this out for you. Is there anything holding you back?",
			MaxFollowUps:          2,
		},
	}
}

// NewFollowUpRuleTable layers overrides on top of the defaults.
func NewFollowUpRuleTable(overrides []FollowUpRule) (FollowUpRuleTable, error) {
	table := DefaultFollowUpRules()
	for i, r := range overrides {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("followup rule %d: %w", i, err)
		}
		table[r.Stage] = r
	}
	return table, nil
}

// Lookup returns the rule for stage. Terminal stages never match.
func (t FollowUpRuleTable) Lookup(stage models.Stage) (FollowUpRule, bool) {
	if stage.IsTerminal() {
		return FollowUpRule{}, false
	}
	r, ok := t[stage]
	return r, ok
}
