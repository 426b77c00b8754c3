package webhook

import (
	"fmt"
	"time"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	WebhookBucket string
	DedupTTL      time.Duration
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.WebhookBucket == "" {
		return fmt.Errorf("webhook bucket is required")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, custom *Config) *Config {
	if custom != nil {
		return custom
	}
	return &Config{
		Timeout:       time.Duration(appConfig.Adyen.Timeout) * time.Millisecond,
		WebhookBucket: appConfig.AWS.S3.WebhookBucket,
		DedupTTL:      time.Duration(appConfig.Redis.DedupTTL) * time.Second,
	}
}
