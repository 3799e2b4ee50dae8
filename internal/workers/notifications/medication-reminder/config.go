// internal/workers/notifications/medication-reminder/config.go
package medicationreminder

import (
	"time"

	"health-reminders/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig reads the worker timeout from the workers section, falling
// back to 30s.
func LoadConfig(cfg config.WorkerConfig) *Config {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{Timeout: timeout}
}
