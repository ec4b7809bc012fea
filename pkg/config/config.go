package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)

	if err := manager.RegisterSection(NewOrchestratorSection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewBrowserSection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewServerSection()); err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetOrchestrator returns the orchestrator section from global config, or nil
// if config is not initialized.
func GetOrchestrator() *OrchestratorSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDOrchestrator)
	if !ok {
		return nil
	}
	orch, ok := section.(*OrchestratorSection)
	if !ok {
		return nil
	}
	return orch
}

// GetBrowser returns the browser section from global config, or nil if config
// is not initialized.
func GetBrowser() *BrowserSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDBrowser)
	if !ok {
		return nil
	}
	browser, ok := section.(*BrowserSection)
	if !ok {
		return nil
	}
	return browser
}

// GetServer returns the server section from global config, or nil if config
// is not initialized.
func GetServer() *ServerSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDServer)
	if !ok {
		return nil
	}
	server, ok := section.(*ServerSection)
	if !ok {
		return nil
	}
	return server
}
