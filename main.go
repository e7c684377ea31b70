package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"wacrm-backend/config"
	"wacrm-backend/services"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// app holds the wired services shared by every command.
type app struct {
	cfg         *config.Config
	db          *gorm.DB
	contacts    *services.ContactService
	automations *services.AutomationService
	followUps   *services.FollowUpService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.InitLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := config.ConnectDB(cfg.DBDriver, cfg.DBURL)
	if err != nil {
		return nil, err
	}

	rules, err := services.NewFollowUpRuleTable(cfg.FollowUpRules())
	if err != nil {
		return nil, err
	}

	gateway := services.NewTwilioGateway(db, cfg.TwilioGatewayConfig())
	automations := services.NewAutomationService(db, gateway)
	return &app{
		cfg:         cfg,
		db:          db,
		contacts:    services.NewContactService(db, automations),
		automations: automations,
		followUps:   services.NewFollowUpService(db, gateway, automations, rules, nil),
	}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "wacrm",
		Short:        "WhatsApp CRM automation backend",
		SilenceUsage: true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newFollowUpsCmd())
	cmd.AddCommand(newBusinessCmd())
	cmd.AddCommand(newTokenCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wacrm %s (commit: %s)\n", Version, Commit)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
