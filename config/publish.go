package config

import (
	"fmt"

	"github.com/kilianp07/simforecast/infra/mqtt"
)

// PublishConfig enables MQTT publication of forecast results.
type PublishConfig struct {
	Enabled bool        `json:"enabled"`
	MQTT    mqtt.Config `json:"mqtt"`
	// TopicPrefix is prepended to "position/<vehicle>" and "sequence".
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	Retain      bool   `json:"retain"`
	// TimeoutMS bounds connecting and publishing.
	TimeoutMS int `json:"timeout_ms"`
}

// SetDefaults applies sane defaults.
func (c *PublishConfig) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "simforecast"
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 2000
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "simforecast"
	}
}

// Validate checks mandatory fields.
func (c PublishConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("invalid qos %d", c.QoS)
	}
	return nil
}
