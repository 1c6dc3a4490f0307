package session

import (
	"log/slog"
	"strings"
	"time"
)

// backoffDelay returns the rescan delay for attempt n, capped at maxSeconds.
func backoffDelay(attempt int, maxSeconds int) time.Duration {
	max := time.Duration(maxSeconds) * time.Second
	// 1<<30 seconds already exceeds any sane cap; avoid shifting further.
	if attempt >= 30 {
		return max
	}
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > max {
		return max
	}
	return delay
}

// scheduleRescan arms the rescan timer after the session returns to Idle or
// the radio becomes unavailable. Only active when AutoRescan is set; the
// attempt counter resets on Ready.
func (c *Controller) scheduleRescan() {
	if !c.opts.AutoRescan || (c.state != Idle && c.state != Unavailable) {
		return
	}
	delay := backoffDelay(c.rescanAttempt, c.opts.RescanMax)
	c.rescanAttempt++
	slog.Info("[SESSION] rescan scheduled", "attempt", c.rescanAttempt, "delay", delay)
	c.rescanTimer.Reset(delay)
}

func (c *Controller) onRescanTimer() {
	switch {
	case !c.radioOn:
		if err := c.reenableRadio(); err != nil {
			c.scheduleRescan()
		}
	case c.state == Idle:
		c.startScan()
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
