package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wacrm-backend/config"
	"wacrm-backend/controllers"
	"wacrm-backend/services"
	"wacrm-backend/utils"
)

// Deps are the services the HTTP layer needs.
type Deps struct {
	JWTSecret        string
	CORSOrigins      []string
	// WebhookAuthToken signs inbound webhooks. Empty skips the check.
	WebhookAuthToken string
	WebhookBaseURL   string
	Contacts         *services.ContactService
	Automations      *services.AutomationService
	FollowUps        *services.FollowUpService
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	origins := make(map[string]bool, len(deps.CORSOrigins))
	for _, o := range deps.CORSOrigins {
		origins[o] = true
	}
	r.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			return origins[origin]
		},
	}))

	r.Use(config.RequestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhookController := controllers.WebhookController{
		Contacts:  deps.Contacts,
		FollowUps: deps.FollowUps,
		AuthToken: deps.WebhookAuthToken,
		PublicURL: deps.WebhookBaseURL,
	}
	contactController := controllers.ContactController{Contacts: deps.Contacts}
	automationController := controllers.AutomationController{Automations: deps.Automations}
	followUpController := controllers.FollowUpController{FollowUps: deps.FollowUps}

	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/whatsapp/:businessId", webhookController.ReceiveWhatsApp)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(deps.JWTSecret))
	{
		// Contact routes
		contacts := api.Group("/contacts")
		{
			contacts.POST("", contactController.CreateContact)
			contacts.GET("", contactController.GetContacts)
			contacts.GET("/:id", contactController.GetContact)
			contacts.PUT("/:id/stage", contactController.UpdateStage)
			contacts.GET("/:id/messages", contactController.GetMessages)
			contacts.GET("/:id/sentiment", followUpController.GetSentiment)
		}

		// Automation routes
		automations := api.Group("/automations")
		{
			automations.GET("", automationController.GetRules)
			automations.POST("", automationController.CreateRule)
			automations.GET("/logs", automationController.GetLogs)
			automations.GET("/:id", automationController.GetRule)
			automations.PUT("/:id", automationController.UpdateRule)
			automations.DELETE("/:id", automationController.DeleteRule)
		}

		// Dashboard routes
		api.GET("/dashboard", contactController.GetDashboardOverview)

		// Follow-up routes
		followups := api.Group("/followups")
		{
			followups.GET("/stats", followUpController.GetStats)
			followups.GET("/hot-leads", followUpController.GetHotLeads)
			followups.POST("/rules", followUpController.CreateRule)
			followups.POST("/process", followUpController.ProcessPending)
		}
	}

	return r
}
