package config

import (
	"fmt"
	"sync"
	"time"
)

// SectionIDBrowser is the identifier for the browser section.
const SectionIDBrowser = "browser"

// Browser defaults.
const (
	DefaultHeadless       = true
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultNavTimeout     = 30 * time.Second
)

// BrowserSection holds settings for the playwright worker layer.
type BrowserSection struct {
	mu             sync.RWMutex
	headless       bool
	viewportWidth  int
	viewportHeight int
	navTimeout     time.Duration
}

// NewBrowserSection creates the section with defaults applied.
func NewBrowserSection() *BrowserSection {
	return &BrowserSection{
		headless:       DefaultHeadless,
		viewportWidth:  DefaultViewportWidth,
		viewportHeight: DefaultViewportHeight,
		navTimeout:     DefaultNavTimeout,
	}
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string { return SectionIDBrowser }

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"headless":        s.headless,
		"viewport_width":  s.viewportWidth,
		"viewport_height": s.viewportHeight,
		"nav_timeout_ms":  s.navTimeout.Milliseconds(),
	}
}

// SetData applies persisted data over the defaults.
func (s *BrowserSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok := data["headless"]; ok {
		v, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("invalid value for headless: expected bool, got %T", raw)
		}
		s.headless = v
	}
	if raw, ok := data["viewport_width"]; ok {
		v, err := asInt("viewport_width", raw)
		if err != nil {
			return err
		}
		s.viewportWidth = v
	}
	if raw, ok := data["viewport_height"]; ok {
		v, err := asInt("viewport_height", raw)
		if err != nil {
			return err
		}
		s.viewportHeight = v
	}
	if raw, ok := data["nav_timeout_ms"]; ok {
		v, err := asMillis("nav_timeout_ms", raw)
		if err != nil {
			return err
		}
		s.navTimeout = v
	}
	return nil
}

// Validate checks the browser settings.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.viewportWidth <= 0 || s.viewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive")
	}
	if s.navTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	return nil
}

// Headless reports whether workers run without a visible window.
func (s *BrowserSection) Headless() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headless
}

// Viewport returns the worker viewport dimensions.
func (s *BrowserSection) Viewport() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewportWidth, s.viewportHeight
}

// NavTimeout returns the default navigation timeout.
func (s *BrowserSection) NavTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.navTimeout
}

func asInt(key string, raw interface{}) (int, error) {
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid value for %s: expected number, got %T", key, raw)
	}
}
