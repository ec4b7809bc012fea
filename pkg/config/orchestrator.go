package config

import (
	"fmt"
	"sync"
	"time"
)

// SectionIDOrchestrator is the identifier for the orchestrator section.
const SectionIDOrchestrator = "orchestrator"

// Orchestrator timing defaults. The fan-out and sequential ceilings match the
// behavior callers depend on: a price scrape answers within half a minute,
// a barcode run may take minutes because every item is a full page round-trip.
const (
	DefaultFanOutTimeout     = 30 * time.Second
	DefaultSequentialTimeout = 5 * time.Minute
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultItemDelayMin      = 1 * time.Second
	DefaultItemDelayMax      = 2 * time.Second
)

// OrchestratorSection holds session timing knobs.
type OrchestratorSection struct {
	mu                sync.RWMutex
	fanOutTimeout     time.Duration
	sequentialTimeout time.Duration
	pollInterval      time.Duration
	itemDelayMin      time.Duration
	itemDelayMax      time.Duration
}

// NewOrchestratorSection creates the section with defaults applied.
func NewOrchestratorSection() *OrchestratorSection {
	return &OrchestratorSection{
		fanOutTimeout:     DefaultFanOutTimeout,
		sequentialTimeout: DefaultSequentialTimeout,
		pollInterval:      DefaultPollInterval,
		itemDelayMin:      DefaultItemDelayMin,
		itemDelayMax:      DefaultItemDelayMax,
	}
}

// ID returns the section identifier.
func (s *OrchestratorSection) ID() string { return SectionIDOrchestrator }

// Data returns the current configuration data. Durations are stored as
// milliseconds so the JSON file stays editable by hand.
func (s *OrchestratorSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"fan_out_timeout_ms":     s.fanOutTimeout.Milliseconds(),
		"sequential_timeout_ms":  s.sequentialTimeout.Milliseconds(),
		"poll_interval_ms":       s.pollInterval.Milliseconds(),
		"item_delay_min_ms":      s.itemDelayMin.Milliseconds(),
		"item_delay_max_ms":      s.itemDelayMax.Milliseconds(),
	}
}

// SetData applies persisted data over the defaults.
func (s *OrchestratorSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields := map[string]*time.Duration{
		"fan_out_timeout_ms":    &s.fanOutTimeout,
		"sequential_timeout_ms": &s.sequentialTimeout,
		"poll_interval_ms":      &s.pollInterval,
		"item_delay_min_ms":     &s.itemDelayMin,
		"item_delay_max_ms":     &s.itemDelayMax,
	}
	for key, target := range fields {
		if raw, ok := data[key]; ok {
			ms, err := asMillis(key, raw)
			if err != nil {
				return err
			}
			*target = ms
		}
	}
	return nil
}

// Validate checks the timing values for consistency.
func (s *OrchestratorSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.fanOutTimeout <= 0 || s.sequentialTimeout <= 0 {
		return fmt.Errorf("session timeouts must be positive")
	}
	if s.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if s.itemDelayMin < 0 || s.itemDelayMax < s.itemDelayMin {
		return fmt.Errorf("item delay bounds must satisfy 0 <= min <= max")
	}
	return nil
}

// FanOutTimeout returns the ceiling for fan-out sessions.
func (s *OrchestratorSection) FanOutTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fanOutTimeout
}

// SequentialTimeout returns the ceiling for sequential sessions.
func (s *OrchestratorSection) SequentialTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sequentialTimeout
}

// PollInterval returns the completion-check interval.
func (s *OrchestratorSection) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pollInterval
}

// ItemDelayBounds returns the randomized inter-item delay range for
// sequential sessions.
func (s *OrchestratorSection) ItemDelayBounds() (time.Duration, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemDelayMin, s.itemDelayMax
}

// asMillis coerces a JSON number into a millisecond duration.
func asMillis(key string, raw interface{}) (time.Duration, error) {
	switch v := raw.(type) {
	case float64:
		return time.Duration(v) * time.Millisecond, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	default:
		return 0, fmt.Errorf("invalid value for %s: expected number, got %T", key, raw)
	}
}
