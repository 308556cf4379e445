package flood

import (
	"time"

	"github.com/HeliosCommand/server/internal/agent/model"
)

// Config is read with envconfig; the CSV weight comes from the command line.
type Config struct {
	SensorDataPath string         `envconfig:"FLOOD_SENSOR_DATA_PATH" default:"data/flood_detection_data.csv"`
	BranchTimeout  time.Duration  `envconfig:"FLOOD_BRANCH_TIMEOUT" default:"90s"`
	MaxSteps       int            `envconfig:"FLOOD_DECISION_MAX_STEPS" default:"3"`
	MinSeverity    model.Severity `envconfig:"FLOOD_ALERT_MIN_SEVERITY" default:"HIGH"`
	AlertEmail     string         `envconfig:"USER_EMAIL"`
	AlertPhone     string         `envconfig:"RECIPIENT_PHONE_NUMBER"`
}

const (
	DefaultCSVWeight     = 0.5
	defaultBranchTimeout = 90 * time.Second
	defaultMaxSteps      = 3
)

func (c Config) branchTimeout() time.Duration {
	if c.BranchTimeout <= 0 {
		return defaultBranchTimeout
	}
	return c.BranchTimeout
}

func (c Config) maxSteps() int {
	if c.MaxSteps <= 0 {
		return defaultMaxSteps
	}
	return c.MaxSteps
}

func (c Config) minSeverity() model.Severity {
	if c.MinSeverity <= model.SeverityLow {
		return model.SeverityHigh
	}
	return c.MinSeverity
}
