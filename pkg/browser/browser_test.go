package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()

	assert.Equal(t, DefaultViewportWidth, opts.ViewportWidth)
	assert.Equal(t, DefaultViewportHeight, opts.ViewportHeight)
	assert.Equal(t, DefaultNavTimeout, opts.NavTimeout)
	assert.Equal(t, DefaultMaxWorkers, opts.MaxWorkers)
}

func TestOptionsWithDefaultsKeepsExplicitValues(t *testing.T) {
	opts := Options{
		Headless:       true,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		NavTimeout:     5 * time.Second,
		MaxWorkers:     2,
	}.withDefaults()

	assert.True(t, opts.Headless)
	assert.Equal(t, 1920, opts.ViewportWidth)
	assert.Equal(t, 1080, opts.ViewportHeight)
	assert.Equal(t, 5*time.Second, opts.NavTimeout)
	assert.Equal(t, 2, opts.MaxWorkers)
}

func TestListenerSubscriptionUnsubscribesOnce(t *testing.T) {
	calls := 0
	sub := &listenerSubscription{remove: func() { calls++ }}

	sub.Unsubscribe()
	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Equal(t, 1, calls)
}
