package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	automationExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_automation_executions_total",
		Help: "Automation rule action executions by outcome.",
	}, []string{"status"})

	followUpsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_followups_sent_total",
		Help: "Follow-up sweep send attempts by outcome.",
	}, []string{"status"})

	dealClassifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_deal_classifications_total",
		Help: "Inbound messages classified by deal outcome.",
	}, []string{"outcome"})
)
