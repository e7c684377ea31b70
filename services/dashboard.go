package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"wacrm-backend/models"
	"wacrm-backend/utils"
)

const recentChangesLimit = 5

// PipelineOverview is the dashboard summary of a business's pipeline.
type PipelineOverview struct {
	TotalContacts int64                  `json:"totalContacts"`
	StageCounts   map[models.Stage]int64 `json:"stageCounts"`
	RecentChanges []RecentStageChange    `json:"recentChanges"`
}

type RecentStageChange struct {
	ContactID uuid.UUID    `json:"contactId"`
	Name      string       `json:"name"`
	FromStage models.Stage `json:"fromStage"`
	ToStage   models.Stage `json:"toStage"`
	When      string       `json:"when"` // e.g. "Today", "3 days ago"
}

// PipelineOverview counts contacts per stage and lists the latest moves.
// Every stage is present in StageCounts, zero or not.
func (s *ContactService) PipelineOverview(ctx context.Context, businessID uuid.UUID) (PipelineOverview, error) {
	db := s.db.WithContext(ctx)
	overview := PipelineOverview{
		StageCounts:   make(map[models.Stage]int64, len(models.Stages)),
		RecentChanges: []RecentStageChange{},
	}
	for _, st := range models.Stages {
		overview.StageCounts[st] = 0
	}

	var rows []struct {
		Stage models.Stage
		Count int64
	}
	err := db.Model(&models.Contact{}).Select("stage, COUNT(*) AS count").
		Where("business_id = ?", businessID).Group("stage").Scan(&rows).Error
	if err != nil {
		return overview, fmt.Errorf("services: count contacts by stage: %w", err)
	}
	for _, r := range rows {
		overview.StageCounts[r.Stage] = r.Count
		overview.TotalContacts += r.Count
	}

	var history []models.PipelineHistory
	err = db.Where("business_id = ?", businessID).Order("changed_at DESC").
		Limit(recentChangesLimit).Find(&history).Error
	if err != nil {
		return overview, fmt.Errorf("services: load recent stage changes: %w", err)
	}
	if len(history) == 0 {
		return overview, nil
	}

	ids := make([]uuid.UUID, 0, len(history))
	for _, h := range history {
		ids = append(ids, h.ContactID)
	}
	var contacts []models.Contact
	if err := db.Select("id", "name").Where("business_id = ? AND id IN ?", businessID, ids).
		Find(&contacts).Error; err != nil {
		return overview, fmt.Errorf("services: load contact names: %w", err)
	}
	names := make(map[uuid.UUID]string, len(contacts))
	for _, c := range contacts {
		names[c.ID] = c.Name
	}

	now := s.now()
	for _, h := range history {
		overview.RecentChanges = append(overview.RecentChanges, RecentStageChange{
			ContactID: h.ContactID,
			Name:      names[h.ContactID],
			FromStage: h.FromStage,
			ToStage:   h.ToStage,
			When:      utils.DaysAgo(h.ChangedAt, now),
		})
	}
	return overview, nil
}
