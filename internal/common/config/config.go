package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Adyen         AdyenConfig        `mapstructure:"adyen"`
	AWS           AWSConfig          `mapstructure:"aws"`
	Redis         RedisConfig        `mapstructure:"redis"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Notifications NotificationConfig `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// AdyenConfig holds the platform endpoints and credential names. The API key
// and HMAC key themselves live in the secret store and are resolved at
// startup by name.
type AdyenConfig struct {
	LEMBaseURL             string `mapstructure:"lem_base_url"`
	BalancePlatformBaseURL string `mapstructure:"balance_platform_base_url"`
	ManagementBaseURL      string `mapstructure:"management_base_url"`
	MerchantAccount        string `mapstructure:"merchant_account"`
	BalancePlatform        string `mapstructure:"balance_platform"`
	OnboardingTheme        string `mapstructure:"onboarding_theme"`
	OnboardingRedirectURL  string `mapstructure:"onboarding_redirect_url"`
	APIKeySecretName       string `mapstructure:"api_key_secret_name"`
	HMACKeySecretName      string `mapstructure:"hmac_key_secret_name"`
	Timeout                int    `mapstructure:"timeout"` // milliseconds
}

type AWSConfig struct {
	Region string `mapstructure:"region"`

	DynamoDB struct {
		MerchantTable      string `mapstructure:"merchant_table"`
		AccountHolderIndex string `mapstructure:"account_holder_index"`
	} `mapstructure:"dynamodb"`

	S3 struct {
		WebhookBucket string `mapstructure:"webhook_bucket"`
	} `mapstructure:"s3"`

	SNS struct {
		WebhookTopicARN string `mapstructure:"webhook_topic_arn"`
	} `mapstructure:"sns"`

	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"ses"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// TTL for psp-reference dedup keys, in seconds.
	DedupTTL int `mapstructure:"dedup_ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NotificationConfig holds settings for the onboarded-merchant notifier.
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Subject string `mapstructure:"subject"`
}
