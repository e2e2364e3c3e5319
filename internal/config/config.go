package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type TelegramConfig struct {
	Token         string `yaml:"token"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type EvidenceConfig struct {
	Dir   string `yaml:"dir"`
	MaxMB int    `yaml:"max_mb"`
}

type VerificationConfig struct {
	// TTLMinutes = 0 desactiva la expiración de la verificación.
	TTLMinutes         int    `yaml:"ttl_minutes"`
	DefaultCountryCode string `yaml:"default_country_code"`
}

type ReviewConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	TreasuryTo   string `yaml:"treasury_to"`
}

// Enabled: el aviso por correo a tesorería es opcional.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.TreasuryTo != ""
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Evidence     EvidenceConfig     `yaml:"evidence"`
	Verification VerificationConfig `yaml:"verification"`
	Review       ReviewConfig       `yaml:"review"`
	Email        EmailConfig        `yaml:"email"`
}

// Load lee el yaml y aplica overrides desde variables de entorno: los secretos
// viajan por .env, no por el yaml versionado.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REVIEW_JWT_SECRET"); v != "" {
		cfg.Review.JWTSecret = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Email.SMTPPassword = v
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Evidence.Dir == "" {
		cfg.Evidence.Dir = "./evidencias"
	}
	if cfg.Evidence.MaxMB == 0 {
		cfg.Evidence.MaxMB = 10
	}
	if cfg.Verification.DefaultCountryCode == "" {
		cfg.Verification.DefaultCountryCode = "57"
	}

	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram token is required (TELEGRAM_BOT_TOKEN)")
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database url is required (DATABASE_URL)")
	}
	return &cfg, nil
}
