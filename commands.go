package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"wacrm-backend/config"
	"wacrm-backend/models"
	"wacrm-backend/routes"
	"wacrm-backend/services"
	"wacrm-backend/utils"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, webhook receiver and follow-up scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if a.cfg.JWTSecret == "" {
				return errors.New("jwt_secret is required to serve the API")
			}
			if a.cfg.Twilio.VerifyWebhooks && a.cfg.Twilio.AuthToken == "" {
				return errors.New("twilio.auth_token is required while twilio.verify_webhooks is on")
			}
			if migrate {
				if err := config.Migrate(a.db); err != nil {
					return err
				}
			}

			scheduler, err := a.followUps.Start(a.cfg.FollowUps.Schedule)
			if err != nil {
				return err
			}
			defer func() { <-scheduler.Stop().Done() }()

			r := routes.SetupRouter(routes.Deps{
				JWTSecret:        a.cfg.JWTSecret,
				CORSOrigins:      a.cfg.CORS.Origins,
				WebhookAuthToken: a.cfg.WebhookAuthToken(),
				WebhookBaseURL:   a.cfg.Twilio.WebhookBaseURL,
				Contacts:         a.contacts,
				Automations:      a.automations,
				FollowUps:        a.followUps,
			})
			srv := &http.Server{
				Addr:              ":" + strconv.Itoa(a.cfg.Port),
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Int("routes", len(r.Routes())).Msg("server listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run database migrations before serving")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := config.Migrate(a.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newFollowUpsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "followups",
		Short: "Follow-up scheduler operations",
	}
	var businessID string
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Run one follow-up sweep now and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			var scope *uuid.UUID
			if businessID != "" {
				id, err := uuid.Parse(businessID)
				if err != nil {
					return fmt.Errorf("invalid business id %q: %w", businessID, err)
				}
				scope = &id
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			var res services.SweepResult
			if scope != nil {
				res = a.followUps.ProcessPendingFollowUpsFor(cmd.Context(), *scope)
			} else {
				res = a.followUps.ProcessPendingFollowUps(cmd.Context())
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	sweep.Flags().StringVar(&businessID, "business", "", "limit the sweep to one business ID")
	cmd.AddCommand(sweep)
	return cmd
}

func newBusinessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "business",
		Short: "Manage tenants",
	}

	var name, whatsApp string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a business and print its ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			business := models.Business{Name: name, WhatsAppNumber: whatsApp}
			if err := a.db.WithContext(cmd.Context()).Create(&business).Error; err != nil {
				return fmt.Errorf("create business: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), business.ID)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "business name")
	create.Flags().StringVar(&whatsApp, "whatsapp", "", "WhatsApp sender number (defaults to the configured number)")
	_ = create.MarkFlagRequired("name")
	cmd.AddCommand(create)
	return cmd
}

func newTokenCmd() *cobra.Command {
	var businessID, userID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a business",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(businessID); err != nil {
				return fmt.Errorf("invalid business id: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := utils.GenerateToken(cfg.JWTSecret, userID, businessID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&businessID, "business", "", "business ID")
	cmd.Flags().StringVar(&userID, "user", "cli", "subject recorded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("business")
	return cmd
}
