package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like ADYEN_MERCHANT_ACCOUNT
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, e.g. config.production.yaml
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the first location that has one, so handlers
// behave the same when launched from the repo root or a package directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars expands ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "payersync-onboarding"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.Adyen.Timeout == 0 {
		cfg.Adyen.Timeout = 30000
	}
	if cfg.Adyen.APIKeySecretName == "" {
		cfg.Adyen.APIKeySecretName = "adyen/api-key"
	}
	if cfg.Adyen.HMACKeySecretName == "" {
		cfg.Adyen.HMACKeySecretName = "adyen/hmac-key"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.AWS.DynamoDB.AccountHolderIndex == "" {
		cfg.AWS.DynamoDB.AccountHolderIndex = "accountHolderId-index"
	}
	if cfg.Redis.DedupTTL == 0 {
		cfg.Redis.DedupTTL = 86400
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Notifications.Subject == "" {
		cfg.Notifications.Subject = "Merchant onboarding completed"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Adyen.LEMBaseURL == "" {
		return fmt.Errorf("adyen.lem_base_url is required")
	}
	if cfg.Adyen.BalancePlatformBaseURL == "" {
		return fmt.Errorf("adyen.balance_platform_base_url is required")
	}
	if cfg.Adyen.ManagementBaseURL == "" {
		return fmt.Errorf("adyen.management_base_url is required")
	}
	if cfg.Adyen.MerchantAccount == "" {
		return fmt.Errorf("adyen.merchant_account is required")
	}
	if cfg.AWS.DynamoDB.MerchantTable == "" {
		return fmt.Errorf("aws.dynamodb.merchant_table is required")
	}
	if cfg.AWS.S3.WebhookBucket == "" {
		return fmt.Errorf("aws.s3.webhook_bucket is required")
	}
	if cfg.AWS.SNS.WebhookTopicARN == "" {
		return fmt.Errorf("aws.sns.webhook_topic_arn is required")
	}
	return nil
}
