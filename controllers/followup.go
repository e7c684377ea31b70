package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wacrm-backend/services"
	"wacrm-backend/utils"
)

type FollowUpController struct {
	FollowUps *services.FollowUpService
}

func (ctl *FollowUpController) GetStats(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}

	stats, err := ctl.FollowUps.GetFollowUpStats(c.Request.Context(), businessID)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve follow-up stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (ctl *FollowUpController) GetHotLeads(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}

	leads, err := ctl.FollowUps.IdentifyHotLeads(c.Request.Context(), businessID)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve hot leads")
		return
	}
	c.JSON(http.StatusOK, leads)
}

func (ctl *FollowUpController) GetSentiment(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}
	contactID, ok := pathID(c, "id", "contact")
	if !ok {
		return
	}

	sentiment, err := ctl.FollowUps.AnalyzeConversationSentiment(c.Request.Context(), businessID, contactID)
	if err != nil {
		respondServiceError(c, err, "Failed to analyze sentiment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"contactId": contactID, "sentiment": sentiment})
}

// CreateRule stores a custom follow-up rule for the business
func (ctl *FollowUpController) CreateRule(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}

	var input services.CustomFollowUpRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	rule, err := ctl.FollowUps.CreateCustomFollowUpRule(c.Request.Context(), businessID, input)
	if err != nil {
		respondServiceError(c, err, "Failed to create follow-up rule")
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// ProcessPending runs the follow-up sweep on demand for the caller's business
// only. The scheduled run covers every business.
func (ctl *FollowUpController) ProcessPending(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctl.FollowUps.ProcessPendingFollowUpsFor(c.Request.Context(), businessID))
}
