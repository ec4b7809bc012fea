package orchestrator

import "time"

// watch polls the session until it completes and arms its single timeout.
// Completion resolves a full success; the timeout resolves a partial one.
// Whichever fires first wins; the loser finds the session gone and stops.
func (o *Orchestrator) watch(id string, timeout time.Duration) {
	go func() {
		ticker := time.NewTicker(o.opts.PollInterval)
		defer ticker.Stop()
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()

		for {
			select {
			case <-ticker.C:
				completed, expected, ok := o.registry.Progress(id)
				if !ok {
					return
				}
				if completed >= expected {
					o.registry.ResolveAccumulated(id, false)
					return
				}
			case <-deadline.C:
				o.registry.ResolveAccumulated(id, true)
				return
			}
		}
	}()
}
