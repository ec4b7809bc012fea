// Package browser provides the worker layer: isolated browser tabs driven
// through Playwright. The orchestrator only depends on the Worker and Factory
// interfaces, so tests substitute fakes and never touch a real browser.
package browser

import (
	"context"
	"time"
)

// Worker is one isolated page context performing page-level work. A worker's
// page survives navigations; its script world does not, which is why the
// orchestrator re-derives all sequential state from the checkpoint store on
// every load event.
type Worker interface {
	// ID returns the worker's unique identifier.
	ID() string

	// URL returns the page's current location.
	URL() string

	// Navigate loads the given URL and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Content returns the page's current HTML.
	Content(ctx context.Context) (string, error)

	// Fill sets the value of the input matching selector.
	Fill(ctx context.Context, selector, value string) error

	// Submit submits the form owning the control matching selector.
	Submit(ctx context.Context, selector string) error

	// Click clicks the element matching selector.
	Click(ctx context.Context, selector string) error

	// IsChecked reports the checked state of the control matching selector.
	IsChecked(ctx context.Context, selector string) (bool, error)

	// WaitForSelector waits until an element matching selector is attached.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// OnLoad subscribes to page load-complete events. The handler receives
	// the page's location at the time of the event.
	OnLoad(fn func(url string)) Subscription

	// OnNavigate subscribes to navigation-started events.
	OnNavigate(fn func(url string)) Subscription

	// OnClose subscribes to the page being closed, by us or externally.
	OnClose(fn func()) Subscription

	// Close destroys the worker and its page context.
	Close() error
}

// Factory creates workers. The Manager is the production implementation.
type Factory interface {
	StartWorker(ctx context.Context) (Worker, error)
}

// Subscription is an active event registration. Every terminal path of a
// session must call Unsubscribe on each handle it holds; a leaked listener
// acting on a removed session is neutralized by the registry but still wastes
// resources.
type Subscription interface {
	Unsubscribe()
}

// Options configures the worker layer.
type Options struct {
	// Headless controls whether pages run without a visible window
	Headless bool

	// ViewportWidth and ViewportHeight set the page viewport
	ViewportWidth  int
	ViewportHeight int

	// NavTimeout is the default timeout for navigation and selector waits
	NavTimeout time.Duration

	// MaxWorkers caps concurrently open worker contexts
	MaxWorkers int
}

// Defaults for the worker layer.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultNavTimeout     = 30 * time.Second
	DefaultMaxWorkers     = 8
)

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.ViewportWidth == 0 {
		o.ViewportWidth = DefaultViewportWidth
	}
	if o.ViewportHeight == 0 {
		o.ViewportHeight = DefaultViewportHeight
	}
	if o.NavTimeout == 0 {
		o.NavTimeout = DefaultNavTimeout
	}
	if o.MaxWorkers == 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}
	return o
}
