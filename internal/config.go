package internal

import (
	"fmt"
	"time"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	ListenAddr     string `env:"LISTEN_ADDR,required=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`

	BufferSize         int           `env:"BUFFER_SIZE,required=true"`
	DeliveryBufferSize int           `env:"DELIVERY_BUFFER_SIZE,required=true"`
	SinkTimeout        time.Duration `env:"SINK_TIMEOUT,required=true"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,required=true"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL,required=true"`

	SLAWarningThreshold time.Duration `env:"SLA_WARNING_THRESHOLD,required=true"`
	SLABreachThreshold  time.Duration `env:"SLA_BREACH_THRESHOLD,required=true"`
	EscalationAgentID   string        `env:"ESCALATION_AGENT_ID,required=true"`

	SessionTokenSecret   string        `env:"SESSION_TOKEN_SECRET,required=true"`
	SessionTokenDuration time.Duration `env:"SESSION_TOKEN_DURATION,required=true"`

	CharReplacement string `env:"CHARACTER_REPLACEMENT,required=true"`

	DebugPort *int `env:"DEBUG_PORT"`
}

// Validate checks the relations between values that tags cannot express.
func (c Config) Validate() error {
	if c.SLABreachThreshold <= c.SLAWarningThreshold {
		return fmt.Errorf("SLA_BREACH_THRESHOLD (%s) must exceed SLA_WARNING_THRESHOLD (%s)",
			c.SLABreachThreshold, c.SLAWarningThreshold)
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
