package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/allendavis-developer/cashgen-extension/pkg/logging"
)

// Manager owns the Playwright runtime and one shared browser process. Each
// worker gets its own browser context and page, so workers cannot observe one
// another's cookies or storage.
type Manager struct {
	mu      sync.Mutex
	log     *logging.Logger
	opts    Options
	pw      *playwright.Playwright
	browser playwright.Browser
	workers map[string]*playwrightWorker
	started bool
	closed  bool
}

// NewManager creates a manager with the given options. The browser process is
// launched lazily on the first StartWorker call.
func NewManager(opts Options) *Manager {
	logger, _ := logging.NewLogger("browser")
	return &Manager{
		log:     logger,
		opts:    opts.withDefaults(),
		workers: make(map[string]*playwrightWorker),
	}
}

// Initialize launches the Playwright driver and browser process. Safe to call
// more than once; subsequent calls are no-ops.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializeLocked()
}

func (m *Manager) initializeLocked() error {
	if m.closed {
		return fmt.Errorf("browser manager is shut down")
	}
	if m.started {
		return nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	m.pw = pw
	m.browser = browser
	m.started = true
	m.log.Infof("browser manager initialized (headless=%v)", m.opts.Headless)
	return nil
}

// StartWorker creates a new worker backed by a fresh browser context.
func (m *Manager) StartWorker(ctx context.Context) (Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.initializeLocked(); err != nil {
		return nil, err
	}
	if len(m.workers) >= m.opts.MaxWorkers {
		return nil, fmt.Errorf("worker limit reached (%d)", m.opts.MaxWorkers)
	}

	bctx, err := m.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.opts.ViewportWidth,
			Height: m.opts.ViewportHeight,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(m.opts.NavTimeout.Milliseconds()))

	w := newPlaywrightWorker(uuid.New().String(), bctx, page, m.opts.NavTimeout, m.log)
	w.onDestroyed = func(id string) { m.forget(id) }
	m.workers[w.id] = w

	m.log.Debugf("worker %s started (%d active)", w.id, len(m.workers))
	return w, nil
}

// GetWorker returns the worker with the given ID, if it is still open.
func (m *Manager) GetWorker(id string) (Worker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok {
		return nil, false
	}
	return w, true
}

// CloseWorker closes the identified worker. Closing an unknown or already
// closed worker is not an error.
func (m *Manager) CloseWorker(id string) error {
	m.mu.Lock()
	w, ok := m.workers[id]
	delete(m.workers, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return w.Close()
}

// WorkerCount returns the number of open workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}

// Shutdown closes every worker and stops the browser process and driver.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	workers := make([]*playwrightWorker, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	m.workers = make(map[string]*playwrightWorker)
	browser := m.browser
	pw := m.pw
	m.browser = nil
	m.pw = nil
	m.started = false
	m.closed = true
	m.mu.Unlock()

	for _, w := range workers {
		if err := w.Close(); err != nil {
			m.log.Warnf("failed to close worker %s: %v", w.id, err)
		}
	}
	if browser != nil {
		if err := browser.Close(); err != nil {
			m.log.Warnf("failed to close browser: %v", err)
		}
	}
	if pw != nil {
		if err := pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
	}
	m.log.Infof("browser manager shut down")
	return nil
}

// forget drops a worker from the map after its page was destroyed externally.
func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workers, id)
}
