package onboarding

import (
	"fmt"
	"time"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/config"
)

type Config struct {
	Enabled               bool
	Timeout               time.Duration
	OnboardingTheme       string
	OnboardingRedirectURL string
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OnboardingRedirectURL == "" {
		return fmt.Errorf("onboarding redirect URL is required")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, custom *Config) *Config {
	if custom != nil {
		return custom
	}
	return &Config{
		Enabled:               true,
		Timeout:               time.Duration(appConfig.Adyen.Timeout) * time.Millisecond,
		OnboardingTheme:       appConfig.Adyen.OnboardingTheme,
		OnboardingRedirectURL: appConfig.Adyen.OnboardingRedirectURL,
	}
}
