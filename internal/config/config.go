package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the carbonseed API service.
type Config struct {
	Addr          string        `env:"ADDR,default=:8080"`
	DBDSN         string        `env:"DB_DSN,required"`
	JWTSigningKey string        `env:"JWT_SIGNING_KEY,required"`
	TokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL,default=24h"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	NATSURL string `env:"NATS_URL"`

	MQTTBroker   string `env:"MQTT_BROKER"`
	MQTTClientID string `env:"MQTT_CLIENT_ID,default=carbonseed-ingest"`
	MQTTUsername string `env:"MQTT_USERNAME"`
	MQTTPassword string `env:"MQTT_PASSWORD"`

	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
	S3Region       string `env:"S3_REGION,default=us-east-1"`
	S3DisableTLS   bool   `env:"S3_DISABLE_TLS,default=false"`
	ReportBucket   string `env:"REPORT_BUCKET,default=carbonseed-reports"`
	AlertWebhook   string `env:"ALERT_WEBHOOK_URL"`
	AlertRulesFile string `env:"ALERT_RULES_FILE"`

	OTLPEndpoint   string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`

	// HeartbeatWindow is how long after its last reading a device still
	// counts as online.
	HeartbeatWindow time.Duration `env:"HEARTBEAT_WINDOW,default=5m"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
