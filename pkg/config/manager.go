package config

import (
	"fmt"
	"sync"
)

// Section is a typed view over one named region of the configuration file.
// Sections own their defaults; SetData overlays persisted values on top.
type Section interface {
	// ID returns the stable section identifier used as the storage key
	ID() string

	// Data returns the current configuration data for persistence
	Data() map[string]interface{}

	// SetData applies persisted data over the section's defaults
	SetData(data map[string]interface{}) error

	// Validate checks the current configuration for consistency
	Validate() error
}

// Manager coordinates typed sections with a backing store.
type Manager struct {
	store    Store
	sections map[string]Section
	mu       sync.RWMutex
}

// NewManager creates a manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// RegisterSection adds a section to the manager. Section IDs must be unique.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := section.ID()
	if _, exists := m.sections[id]; exists {
		return fmt.Errorf("section %q already registered", id)
	}
	m.sections[id] = section
	return nil
}

// GetSection retrieves a registered section by ID.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	section, ok := m.sections[id]
	return section, ok
}

// LoadAll pushes persisted data into every registered section and validates.
func (m *Manager) LoadAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, section := range m.sections {
		data, err := m.store.GetSection(id)
		if err != nil {
			return fmt.Errorf("failed to load section %q: %w", id, err)
		}
		if err := section.SetData(data); err != nil {
			return fmt.Errorf("failed to apply section %q: %w", id, err)
		}
		if err := section.Validate(); err != nil {
			return fmt.Errorf("invalid configuration in section %q: %w", id, err)
		}
	}
	return nil
}

// SaveAll writes every section's current data back to the store.
func (m *Manager) SaveAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, section := range m.sections {
		if err := m.store.SetSection(id, section.Data()); err != nil {
			return fmt.Errorf("failed to store section %q: %w", id, err)
		}
	}
	return m.store.Save()
}
