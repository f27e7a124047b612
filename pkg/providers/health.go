package providers

import "time"

// IsHealthy returns the current health status.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// Health returns detailed health information.
func (p *HTTPProvider) Health() Health {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

// record updates request counters and health after each call.
// Caller-side failures (auth, bad request) count as requests but do not
// mark the backend unhealthy.
func (p *HTTPProvider) record(success bool, err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	now := time.Now()
	p.health.TotalRequests++
	p.health.LastCheck = now

	if success {
		if !p.health.IsHealthy {
			p.logger.Info("provider marked healthy",
				"previous_failures", p.health.ConsecutiveFailures,
			)
		}
		p.health.IsHealthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = nil
		p.health.LastSuccessfulRequest = now
		return
	}

	p.health.FailedRequests++
	p.health.LastError = err
	if !countsAgainstHealth(err) {
		return
	}

	p.health.ConsecutiveFailures++
	// Mark unhealthy after N consecutive failures (circuit breaker)
	if p.health.ConsecutiveFailures >= p.config.UnhealthyThreshold && p.health.IsHealthy {
		p.health.IsHealthy = false
		p.logger.Warn("provider marked unhealthy",
			"consecutive_failures", p.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// countsAgainstHealth reports whether err indicates a backend problem
// rather than a caller problem.
func countsAgainstHealth(err error) bool {
	switch err.(type) {
	case *NetworkError, *TimeoutError, *UnavailableError, *RateLimitError:
		return true
	}
	return false
}
