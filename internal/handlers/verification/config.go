package verification

import (
	"fmt"
	"time"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, custom *Config) *Config {
	if custom != nil {
		return custom
	}
	return &Config{
		Timeout: time.Duration(appConfig.Adyen.Timeout) * time.Millisecond,
	}
}
