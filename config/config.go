package config

import (
	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env          string `env:"ENVIRONMENT"`
	ServerPort   int    `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL      string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"savings.sqlite"`

	JWTSecret string `env:"JWT_SECRET"`

	// ReminderSecret guards the reminder-pass trigger route. The pass refuses
	// to run while it is unset.
	ReminderSecret string `env:"REMINDER_SECRET"`

	VAPID struct {
		PublicKey  string `env:"VAPID_PUBLIC_KEY"`
		PrivateKey string `env:"VAPID_PRIVATE_KEY"`
		Subject    string `env:"VAPID_SUBJECT" envDefault:"mailto:admin@example.com"`
	}

	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		SenderFrom  string `env:"MAILGUN_SENDER"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Sugar().Panicf("failed to parse environment: %v", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			log.Sugar().Panic("JWT_SECRET envvar must be populated")
		}
		log.Sugar().Info("JWT_SECRET is unset, using development default")
		cfg.JWTSecret = "development-secret"
	}
	if !cfg.HasVAPIDKeys() {
		log.Sugar().Info("VAPID keys are unset, reminder sending is disabled until configured")
	}

	return cfg
}

// HasVAPIDKeys reports whether the web-push key pair is configured. The
// reminder pass treats missing keys as a configuration error.
func (cfg *Config) HasVAPIDKeys() bool {
	return cfg.VAPID.PublicKey != "" && cfg.VAPID.PrivateKey != ""
}
