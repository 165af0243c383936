package runner

import (
	"sync"
	"time"

	"digital.vasic.repoaudit/pkg/logging"
)

// startWatchdog logs a warning every interval while a check is
// still running. The returned stop function must be called
// when the check returns; it is safe to call more than once.
// A zero interval returns a no-op stop function.
func startWatchdog(
	interval time.Duration,
	logger logging.Logger,
	ruleName, checkName string,
) (stop func()) {
	if interval <= 0 {
		return func() {}
	}

	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		started := time.Now()
		for {
			select {
			case <-stopCh:
				return
			case now := <-ticker.C:
				logger.Warn("check still running",
					logging.RuleField(ruleName),
					logging.CheckField(checkName),
					logging.StringField("elapsed",
						now.Sub(started).Round(time.Millisecond).String()),
				)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopCh) })
	}
}
