package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"app/internal/tier"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`

	// Object storage for uploaded source files
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Redis cache settings. Leaving REDIS_ADDR empty disables caching.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	CacheTTLSec   int    `envconfig:"CACHE_TTL_SEC" default:"300"`

	// Google Cloud settings. Leaving GCP_PROJECT_ID empty disables
	// Pub/Sub events and Secret Manager lookups.
	GCPProjectID        string `envconfig:"GCP_PROJECT_ID" default:""`
	PubSubPipelineTopic string `envconfig:"PUBSUB_PIPELINE_TOPIC" default:"pipeline-events"`
	PayPalSecretName    string `envconfig:"PAYPAL_SECRET_NAME" default:""`
	AIKeySecretName     string `envconfig:"AI_KEY_SECRET_NAME" default:""`

	// AI gateway settings
	AIEndpoint    string `envconfig:"AI_ENDPOINT" default:""`
	AIAPIKey      string `envconfig:"AI_API_KEY" default:""`
	AICustomerID  string `envconfig:"AI_CUSTOMER_ID" default:""`
	AIChatModel   string `envconfig:"AI_CHAT_MODEL" default:""`
	AIScriptModel string `envconfig:"AI_SCRIPT_MODEL" default:""`
	AIVideoModel  string `envconfig:"AI_VIDEO_MODEL" default:""`

	// Pipeline stage deadlines
	AnalyzeTimeoutSec int `envconfig:"ANALYZE_TIMEOUT_SEC" default:"30"`
	ScriptTimeoutSec  int `envconfig:"SCRIPT_TIMEOUT_SEC" default:"60"`
	RenderTimeoutSec  int `envconfig:"RENDER_TIMEOUT_SEC" default:"900"`

	// PayPal billing settings
	PayPalClientID     string `envconfig:"PAYPAL_CLIENT_ID" default:""`
	PayPalClientSecret string `envconfig:"PAYPAL_CLIENT_SECRET" default:""`
	PayPalEnvironment  string `envconfig:"PAYPAL_ENVIRONMENT" default:"sandbox"`
	PayPalWebhookID    string `envconfig:"PAYPAL_WEBHOOK_ID" default:""`
	StarterPlanID      string `envconfig:"PAYPAL_STARTER_PLAN_ID" default:""`
	ProPlanID          string `envconfig:"PAYPAL_PRO_PLAN_ID" default:""`
	EnterprisePlanID   string `envconfig:"PAYPAL_ENTERPRISE_PLAN_ID" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PlanIDs maps paid tiers to their configured PayPal plan IDs. Tiers
// without a configured plan are omitted.
func (c *Config) PlanIDs() map[tier.Tier]string {
	plans := make(map[tier.Tier]string)
	if c.StarterPlanID != "" {
		plans[tier.Starter] = c.StarterPlanID
	}
	if c.ProPlanID != "" {
		plans[tier.Pro] = c.ProPlanID
	}
	if c.EnterprisePlanID != "" {
		plans[tier.Enterprise] = c.EnterprisePlanID
	}
	return plans
}

// AnalyzeTimeout returns the analysis stage deadline.
func (c *Config) AnalyzeTimeout() time.Duration {
	return time.Duration(c.AnalyzeTimeoutSec) * time.Second
}

// ScriptTimeout returns the script stage deadline.
func (c *Config) ScriptTimeout() time.Duration {
	return time.Duration(c.ScriptTimeoutSec) * time.Second
}

// RenderTimeout returns the render stage deadline.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSec) * time.Second
}
