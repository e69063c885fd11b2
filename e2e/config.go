package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_DEBUG_JSON dumps full domain objects as JSON during scenarios.
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability.
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// Short SLA thresholds keep the escalation scenario fast.
	SLAWarning time.Duration `envconfig:"E2E_SLA_WARNING" default:"150ms"`
	SLABreach  time.Duration `envconfig:"E2E_SLA_BREACH" default:"300ms"`
	// E2E_SETTLE is the pause granted to asynchronous fanout between steps.
	Settle time.Duration `envconfig:"E2E_SETTLE" default:"500ms"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
