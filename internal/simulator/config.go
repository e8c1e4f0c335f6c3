// Package simulator advances the mock executions so the console has live data.
package simulator

import "time"

// Config defines the simulator configuration.
type Config struct {
	Enabled bool `yaml:"enabled"`
	// Interval is the tick period.
	Interval time.Duration `yaml:"interval"`
	// FailureRate is the chance an attempt fails, in [0, 1].
	FailureRate float64 `yaml:"failure_rate"`
	// MaxAttempts bounds retries; the last failed attempt fails the activity.
	MaxAttempts int `yaml:"max_attempts"`
	// MinDuration and MaxDuration bound how long an attempt runs.
	MinDuration time.Duration `yaml:"min_duration"`
	MaxDuration time.Duration `yaml:"max_duration"`
	// SpawnEvery starts a new workflow from Templates at this period. Zero disables it.
	SpawnEvery time.Duration `yaml:"spawn_every"`
	// MaxRunning stops spawning while this many workflows are running.
	MaxRunning int        `yaml:"max_running"`
	Templates  []Template `yaml:"templates"`
	// Seed fixes the random source; zero uses the clock.
	Seed int64 `yaml:"seed"`
}

// Template is a workflow shape the simulator can start.
type Template struct {
	Type          string   `yaml:"type"`
	TaskQueue     string   `yaml:"task_queue"`
	ActivityQueue string   `yaml:"activity_queue"`
	Activities    []string `yaml:"activities"`
}

// DefaultConfig returns the default simulator configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Interval:    time.Second,
		FailureRate: 0.1,
		MaxAttempts: 3,
		MinDuration: 200 * time.Millisecond,
		MaxDuration: 4 * time.Second,
		SpawnEvery:  15 * time.Second,
		MaxRunning:  8,
		Templates: []Template{
			{
				Type:          "OrderFulfillment",
				TaskQueue:     "orders",
				ActivityQueue: "orders-activities",
				Activities:    []string{"ValidateOrder", "ChargePayment", "ReserveInventory", "ShipOrder", "SendConfirmation"},
			},
			{
				Type:          "InvoiceRun",
				TaskQueue:     "orders",
				ActivityQueue: "billing",
				Activities:    []string{"GenerateInvoice", "RenderPDF", "EmailInvoice"},
			},
			{
				Type:          "NotifyCustomer",
				TaskQueue:     "orders",
				ActivityQueue: "notifications",
				Activities:    []string{"LookupPreferences", "SendSMS"},
			},
		},
	}
}

// durationFor spreads attempt durations over [MinDuration, MaxDuration]
// using a stable hash of the attempt key.
func (c Config) durationFor(hash uint32) time.Duration {
	lo, hi := c.MinDuration, c.MaxDuration
	if lo <= 0 {
		lo = time.Millisecond
	}
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(uint64(hash)%uint64(hi-lo))
}
