package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"wacrm-backend/utils"
)

// ActionType discriminates the Action union.
type ActionType string

const (
	ActionSendMessage  ActionType = "send_message"
	ActionSendTemplate ActionType = "send_template"
	ActionUpdateStage  ActionType = "update_stage"
	ActionAddTag       ActionType = "add_tag"
)

// ActionSpec is implemented by every concrete action.
type ActionSpec interface {
	ActionType() ActionType
}

type SendMessageAction struct {
	Message string `json:"message,omitempty" validate:"required_without=Content"`
	Content string `json:"content,omitempty"`
}

func (SendMessageAction) ActionType() ActionType { return ActionSendMessage }

// Text returns the message body; message takes precedence over content.
func (a SendMessageAction) Text() string {
	if a.Message != "" {
		return a.Message
	}
	return a.Content
}

type SendTemplateAction struct {
	TemplateID string `json:"template_id" validate:"required"`
}

func (SendTemplateAction) ActionType() ActionType { return ActionSendTemplate }

type UpdateStageAction struct {
	Stage Stage `json:"stage" validate:"required"`
}

func (UpdateStageAction) ActionType() ActionType { return ActionUpdateStage }

type AddTagAction struct {
	Tag string `json:"tag" validate:"required,max=64"`
}

func (AddTagAction) ActionType() ActionType { return ActionAddTag }

// UnknownAction preserves an action whose type this build does not know.
type UnknownAction struct {
	Type ActionType
	Raw  json.RawMessage
}

func (a UnknownAction) ActionType() ActionType { return a.Type }

// Action is the stored rule directive: {"type": ..., type-specific fields}.
type Action struct {
	Spec ActionSpec
}

func NewAction(spec ActionSpec) Action {
	return Action{Spec: spec}
}

// Type returns the discriminator, or "" for an empty action.
func (a Action) Type() ActionType {
	if a.Spec == nil {
		return ""
	}
	return a.Spec.ActionType()
}

// Validate checks that the action has a known type and its required fields.
func (a Action) Validate() error {
	switch spec := a.Spec.(type) {
	case nil:
		return errors.New("action is required")
	case UnknownAction:
		return fmt.Errorf("unknown action type %q", spec.Type)
	case UpdateStageAction:
		if err := utils.ValidateStruct(spec); err != nil {
			return err
		}
		if !spec.Stage.Valid() {
			return fmt.Errorf("invalid stage %q", spec.Stage)
		}
		return nil
	default:
		return utils.ValidateStruct(spec)
	}
}

func (a Action) MarshalJSON() ([]byte, error) {
	switch spec := a.Spec.(type) {
	case nil:
		return []byte("null"), nil
	case UnknownAction:
		return spec.Raw, nil
	default:
		b, err := json.Marshal(spec)
		if err != nil {
			return nil, err
		}
		fields := map[string]interface{}{}
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
		fields["type"] = spec.ActionType()
		return json.Marshal(fields)
	}
}

func (a *Action) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		a.Spec = nil
		return nil
	}

	var head struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	var spec ActionSpec
	var err error
	switch head.Type {
	case ActionSendMessage:
		var s SendMessageAction
		err = json.Unmarshal(data, &s)
		spec = s
	case ActionSendTemplate:
		var s SendTemplateAction
		err = json.Unmarshal(data, &s)
		spec = s
	case ActionUpdateStage:
		var s UpdateStageAction
		err = json.Unmarshal(data, &s)
		spec = s
	case ActionAddTag:
		var s AddTagAction
		err = json.Unmarshal(data, &s)
		spec = s
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		spec = UnknownAction{Type: head.Type, Raw: raw}
	}
	if err != nil {
		return err
	}
	a.Spec = spec
	return nil
}

func (a Action) Value() (driver.Value, error) {
	b, err := a.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Action) Scan(value interface{}) error {
	return scanJSON(value, a)
}
