package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wacrm-backend/models"
	"wacrm-backend/services"
	"wacrm-backend/utils"
)

type ContactController struct {
	Contacts *services.ContactService
}

// MoveStageInput is the body of a manual pipeline move.
type MoveStageInput struct {
	Stage models.Stage `json:"stage" binding:"required"`
}

// CreateContact creates a new contact for the business
func (ctl *ContactController) CreateContact(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}

	var input services.ContactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	contact, err := ctl.Contacts.CreateContact(c.Request.Context(), businessID, input)
	if err != nil {
		respondServiceError(c, err, "Failed to create contact")
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// GetContacts lists contacts, optionally filtered by ?stage=
func (ctl *ContactController) GetContacts(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}

	contacts, err := ctl.Contacts.ListContacts(c.Request.Context(), businessID, models.Stage(c.Query("stage")))
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve contacts")
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func (ctl *ContactController) GetContact(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}
	contactID, ok := pathID(c, "id", "contact")
	if !ok {
		return
	}

	contact, err := ctl.Contacts.GetContact(c.Request.Context(), businessID, contactID)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve contact")
		return
	}
	c.JSON(http.StatusOK, contact)
}

// UpdateStage moves a contact through the pipeline
func (ctl *ContactController) UpdateStage(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}
	contactID, ok := pathID(c, "id", "contact")
	if !ok {
		return
	}

	var input MoveStageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	contact, err := ctl.Contacts.MoveStage(c.Request.Context(), businessID, contactID, input.Stage)
	if err != nil {
		respondServiceError(c, err, "Failed to update stage")
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (ctl *ContactController) GetMessages(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}
	contactID, ok := pathID(c, "id", "contact")
	if !ok {
		return
	}

	msgs, err := ctl.Contacts.ListMessages(c.Request.Context(), businessID, contactID)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve messages")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// GetDashboardOverview summarizes the pipeline for the business
func (ctl *ContactController) GetDashboardOverview(c *gin.Context) {
	businessID, ok := utils.BusinessID(c)
	if !ok {
		return
	}

	overview, err := ctl.Contacts.PipelineOverview(c.Request.Context(), businessID)
	if err != nil {
		respondServiceError(c, err, "Failed to build dashboard")
		return
	}
	c.JSON(http.StatusOK, overview)
}
