package fetch

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"legalcrawl/internal/config"
)

// proxyEntry is one endpoint in the pool: its dedicated client plus the
// health-scoring state that decides whether it is currently eligible.
type proxyEntry struct {
	addr          string
	client        *http.Client
	mu            sync.Mutex
	strikes       int
	cooldownUntil time.Time
}

// proxyPool is the C3 "shared resource with fair acquisition" (spec §5):
// round-robin selection across the configured endpoints, skipping any
// currently quarantined for repeated failures. Grounded in
// original_source/docker-crawler/crawler/legal_crawler/proxy_manager.py's
// FreeProxyManager, whose get_proxy/blacklist_proxy pair is the same
// acquire/penalize shape, adapted here to round-robin-with-cooldown
// instead of blacklist-forever so a proxy can recover.
type proxyPool struct {
	mu      sync.Mutex
	entries []*proxyEntry
	next    int
}

func newProxyPool(cfg *config.Config, addrs []string) (*proxyPool, error) {
	p := &proxyPool{}
	for _, raw := range addrs {
		proxyURL, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		p.entries = append(p.entries, &proxyEntry{
			addr:   raw,
			client: newHTTPClient(cfg, proxyURL),
		})
	}
	return p, nil
}

func (p *proxyPool) empty() bool {
	return p == nil || len(p.entries) == 0
}

// acquire returns the next healthy proxy in round-robin order, or nil if
// every proxy is currently quarantined.
func (p *proxyPool) acquire() *proxyEntry {
	if p.empty() {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for i := 0; i < len(p.entries); i++ {
		idx := (p.next + i) % len(p.entries)
		e := p.entries[idx]

		e.mu.Lock()
		available := now.After(e.cooldownUntil)
		e.mu.Unlock()

		if available {
			p.next = (idx + 1) % len(p.entries)
			return e
		}
	}
	return nil
}

// proxyFailureThreshold is how many consecutive failures quarantine a
// proxy (ported from the teacher's FreeProxyManager.blacklist_proxy,
// which quarantines on the first failure; this pool gives a proxy a
// couple of tries before penalizing it, since a single transient failure
// from a free/rotating proxy is common and not necessarily disqualifying).
const proxyFailureThreshold = 2

// proxyCooldownBase is the first quarantine duration; it doubles per
// additional consecutive failure past the threshold, capped at
// proxyCooldownMax.
const (
	proxyCooldownBase = 30 * time.Second
	proxyCooldownMax  = 10 * time.Minute
)

// recordFailure quarantines e once it accumulates proxyFailureThreshold
// consecutive failures, with exponentially increasing cooldown so a
// persistently bad proxy is tried less and less often (spec §5
// "failing proxies are quarantined for a cooldown").
func (e *proxyEntry) recordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strikes++
	if e.strikes < proxyFailureThreshold {
		return
	}
	cooldown := proxyCooldownBase << uint(e.strikes-proxyFailureThreshold)
	if cooldown > proxyCooldownMax || cooldown <= 0 {
		cooldown = proxyCooldownMax
	}
	e.cooldownUntil = time.Now().Add(cooldown)
}

// recordSuccess resets e's strike count, letting a proxy that recovers
// after a cooldown earn back full trust.
func (e *proxyEntry) recordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strikes = 0
	e.cooldownUntil = time.Time{}
}
