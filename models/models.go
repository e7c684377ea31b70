// Package models holds the gorm models and domain enums of the CRM core.
package models

// AllModels returns every model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&Business{},
		&Contact{},
		&Message{},
		&ContactTag{},
		&PipelineHistory{},
		&AutomationRule{},
		&AutomationLog{},
		&FollowUpLog{},
	}
}
