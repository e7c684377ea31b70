package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"

	"wacrm-backend/models"
	"wacrm-backend/services"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

const defaultConfigPath = "config.yaml"

type Config struct {
	Port      int             `koanf:"port"`
	DBDriver  string          `koanf:"db_driver"`
	DBURL     string          `koanf:"db_url"`
	JWTSecret string          `koanf:"jwt_secret"`
	LogLevel  string          `koanf:"log_level"`
	LogFormat string          `koanf:"log_format"`
	Twilio    TwilioConfig    `koanf:"twilio"`
	FollowUps FollowUpsConfig `koanf:"followups"`
	CORS      CORSConfig      `koanf:"cors"`
}

type TwilioConfig struct {
	AccountSID     string `koanf:"account_sid"`
	AuthToken      string `koanf:"auth_token"`
	WhatsAppNumber string `koanf:"whatsapp_number"`
	PhoneNumber    string `koanf:"phone_number"`
	// VerifyWebhooks checks X-Twilio-Signature on inbound webhooks.
	VerifyWebhooks bool   `koanf:"verify_webhooks"`
	// WebhookBaseURL is the public origin Twilio posts to, e.g.
	// https://crm.example.com. Empty derives it from the request.
	WebhookBaseURL string `koanf:"webhook_base_url"`
}

type FollowUpsConfig struct {
	Schedule string               `koanf:"schedule"`
	Rules    []FollowUpRuleConfig `koanf:"rules"`
}

// FollowUpRuleConfig overrides the built-in rule for one stage.
type FollowUpRuleConfig struct {
	Stage                 string `koanf:"stage"`
	HoursAfterLastMessage int    `koanf:"hours_after_last_message"`
	MessageTemplate       string `koanf:"message_template"`
	MaxFollowUps          int    `koanf:"max_follow_ups"`
}

type CORSConfig struct {
	Origins []string `koanf:"origins"`
}

func defaultConfig() Config {
	return Config{
		Port:      8080,
		DBDriver:  "postgres",
		LogLevel:  "info",
		LogFormat: "json",
		Twilio: TwilioConfig{
			VerifyWebhooks: true,
		},
		FollowUps: FollowUpsConfig{
			Schedule: services.DefaultSweepSchedule,
		},
		CORS: CORSConfig{
			Origins: []string{"http://localhost:3000"},
		},
	}
}

// Load reads .env (if present), then layers defaults, the optional YAML file
// and the environment, in that order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env file")
	}

	k := koanf.New(".")
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	path := os.Getenv(ConfigPathEnvVar)
	if path == "" {
		path = defaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	} else if os.Getenv(ConfigPathEnvVar) != "" {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}
	if origins, ok := k.Get("cors.origins").(string); ok {
		if err := k.Set("cors.origins", splitList(origins)); err != nil {
			return nil, fmt.Errorf("config: cors origins: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envKeys = map[string]string{
	"port":                    "port",
	"db_driver":               "db_driver",
	"db_url":                  "db_url",
	"database_url":            "db_url",
	"jwt_secret":              "jwt_secret",
	"log_level":               "log_level",
	"log_format":              "log_format",
	"twilio_account_sid":      "twilio.account_sid",
	"twilio_auth_token":       "twilio.auth_token",
	"twilio_whatsapp_number":  "twilio.whatsapp_number",
	"twilio_phone_number":     "twilio.phone_number",
	"twilio_verify_webhooks":  "twilio.verify_webhooks",
	"twilio_webhook_base_url": "twilio.webhook_base_url",
	"followups_schedule":      "followups.schedule",
	"cors_origins":            "cors.origins",
}

// envKey maps an environment variable to a config path. A double underscore
// separates nesting levels (TWILIO__AUTH_TOKEN). Unknown variables are dropped.
func envKey(name string) string {
	key := strings.ToLower(name)
	if path, ok := envKeys[key]; ok {
		return path
	}
	if strings.Contains(key, "__") {
		return strings.ReplaceAll(key, "__", ".")
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.DBURL == "" {
		return errors.New("config: db_url is required")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported db_driver %q", c.DBDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if _, err := services.NewFollowUpRuleTable(c.FollowUpRules()); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// FollowUpRules converts the configured overrides for the rule table.
func (c *Config) FollowUpRules() []services.FollowUpRule {
	rules := make([]services.FollowUpRule, 0, len(c.FollowUps.Rules))
	for _, r := range c.FollowUps.Rules {
		rules = append(rules, services.FollowUpRule{
			Stage:                 models.Stage(r.Stage),
			HoursAfterLastMessage: r.HoursAfterLastMessage,
			MessageTemplate:       r.MessageTemplate,
			MaxFollowUps:          r.MaxFollowUps,
		})
	}
	return rules
}

// WebhookAuthToken is the token inbound webhook signatures are checked
// against. Empty disables the check.
func (c *Config) WebhookAuthToken() string {
	if !c.Twilio.VerifyWebhooks {
		return ""
	}
	return c.Twilio.AuthToken
}

func (c *Config) TwilioGatewayConfig() services.TwilioConfig {
	return services.TwilioConfig{
		AccountSID:     c.Twilio.AccountSID,
		AuthToken:      c.Twilio.AuthToken,
		WhatsAppNumber: c.Twilio.WhatsAppNumber,
		PhoneNumber:    c.Twilio.PhoneNumber,
	}
}
