package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wacrm-backend/models"
	"wacrm-backend/services"
	"wacrm-backend/utils"
)

type AutomationController struct {
	Automations *services.AutomationService
}

// GetRules lists automation rules, optionally filtered by ?trigger=
func (ctl *AutomationController) GetRules(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}

	trigger := models.Trigger(c.Query("trigger"))
	if trigger != "" && !trigger.Valid() {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid trigger")
		return
	}

	rules, err := ctl.Automations.ListRules(c.Request.Context(), businessID, trigger)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve automation rules")
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (ctl *AutomationController) GetRule(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}
	ruleID, ok := pathID(c, "id", "rule")
	if !ok {
		return
	}

	rule, err := ctl.Automations.GetRule(c.Request.Context(), businessID, ruleID)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve automation rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (ctl *AutomationController) CreateRule(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}

	var input services.RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	rule, err := ctl.Automations.CreateRule(c.Request.Context(), businessID, input)
	if err != nil {
		respondServiceError(c, err, "Failed to create automation rule")
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (ctl *AutomationController) UpdateRule(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}
	ruleID, ok := pathID(c, "id", "rule")
	if !ok {
		return
	}

	var input services.RuleUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	rule, err := ctl.Automations.UpdateRule(c.Request.Context(), businessID, ruleID, input)
	if err != nil {
		respondServiceError(c, err, "Failed to update automation rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (ctl *AutomationController) DeleteRule(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}
	ruleID, ok := pathID(c, "id", "rule")
	if !ok {
		return
	}

	if err := ctl.Automations.DeleteRule(c.Request.Context(), businessID, ruleID); err != nil {
		respondServiceError(c, err, "Failed to delete automation rule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Automation rule deleted successfully"})
}

// GetLogs returns execution records, optionally for ?ruleId= and capped by ?limit=
func (ctl *AutomationController) GetLogs(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}

	var ruleID *uuid.UUID
	if raw := c.Query("ruleId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid rule ID format")
			return
		}
		ruleID = &id
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	logs, err := ctl.Automations.ListLogs(c.Request.Context(), businessID, ruleID, limit)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve automation logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}
