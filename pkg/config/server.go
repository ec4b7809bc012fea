package config

import (
	"fmt"
	"net"
	"sync"
)

// SectionIDServer is the identifier for the server section.
const SectionIDServer = "server"

// DefaultListenAddr is the default API listen address.
const DefaultListenAddr = "127.0.0.1:8792"

// ServerSection holds settings for the caller-facing API.
type ServerSection struct {
	mu         sync.RWMutex
	listenAddr string
}

// NewServerSection creates the section with defaults applied.
func NewServerSection() *ServerSection {
	return &ServerSection{listenAddr: DefaultListenAddr}
}

// ID returns the section identifier.
func (s *ServerSection) ID() string { return SectionIDServer }

// Data returns the current configuration data.
func (s *ServerSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"listen_addr": s.listenAddr,
	}
}

// SetData applies persisted data over the defaults.
func (s *ServerSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok := data["listen_addr"]; ok {
		v, ok := raw.(string)
		if !ok {
			return fmt.Errorf("invalid value for listen_addr: expected string, got %T", raw)
		}
		s.listenAddr = v
	}
	return nil
}

// Validate checks the listen address is well-formed.
func (s *ServerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, _, err := net.SplitHostPort(s.listenAddr); err != nil {
		return fmt.Errorf("invalid listen_addr %q: %w", s.listenAddr, err)
	}
	return nil
}

// ListenAddr returns the API listen address.
func (s *ServerSection) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listenAddr
}
