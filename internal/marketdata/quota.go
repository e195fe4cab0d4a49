package marketdata

import (
	"sync"
	"time"
)

// ProviderQuota fixes the request budget for one external API. A zero field
// means that dimension is unlimited.
type ProviderQuota struct {
	PerMinute int
	PerDay    int
}

// DefaultQuotas mirrors the free-plan limits of the configured providers.
var DefaultQuotas = map[string]ProviderQuota{
	ProviderAlphaVantage: {PerMinute: 5, PerDay: 25},
	ProviderFinnhub:      {PerMinute: 60, PerDay: 1000},
	ProviderNewsAPI:      {PerDay: 1000},
	ProviderCoinGecko:    {PerMinute: 30},
	ProviderYahoo:        {PerMinute: 30},
	ProviderYahooSearch:  {PerMinute: 20},
	ProviderYahooMovers:  {PerMinute: 10},
}

type quotaEntry struct {
	requests  []time.Time
	daily     int
	lastReset time.Time
}

// QuotaLimiter tracks outbound request budgets per provider: a sliding
// one-minute window plus a daily counter that resets 24h after the last reset.
//
// CanRequest and RecordRequest are separate calls with no atomicity between
// them, so under concurrent callers the quota is a soft, best-effort limit.
// State is process-local and lost on restart.
type QuotaLimiter struct {
	mu     sync.Mutex
	quotas map[string]ProviderQuota
	state  map[string]*quotaEntry
	now    func() time.Time
}

// NewQuotaLimiter builds a limiter over the given quota table. A nil table
// uses DefaultQuotas; a nil clock uses time.Now.
func NewQuotaLimiter(quotas map[string]ProviderQuota, now func() time.Time) *QuotaLimiter {
	if quotas == nil {
		quotas = DefaultQuotas
	}
	if now == nil {
		now = time.Now
	}
	return &QuotaLimiter{
		quotas: quotas,
		state:  make(map[string]*quotaEntry),
		now:    now,
	}
}

// CanRequest reports whether the named provider has budget left. Unknown
// providers are always allowed.
func (l *QuotaLimiter) CanRequest(provider string) bool {
	quota, ok := l.quotas[provider]
	if !ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry := l.entryLocked(provider, now)

	if now.Sub(entry.lastReset) > 24*time.Hour {
		entry.daily = 0
		entry.lastReset = now
	}

	if quota.PerDay > 0 && entry.daily >= quota.PerDay {
		return false
	}

	if quota.PerMinute > 0 {
		cutoff := now.Add(-time.Minute)
		live := entry.requests[:0]
		for _, t := range entry.requests {
			if t.After(cutoff) {
				live = append(live, t)
			}
		}
		entry.requests = live
		if len(entry.requests) >= quota.PerMinute {
			return false
		}
	}

	return true
}

// RecordRequest appends the current timestamp to the provider's window and
// bumps its daily counter. Call immediately before issuing the gated request.
func (l *QuotaLimiter) RecordRequest(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry := l.entryLocked(provider, now)
	entry.requests = append(entry.requests, now)
	entry.daily++
}

func (l *QuotaLimiter) entryLocked(provider string, now time.Time) *quotaEntry {
	entry, ok := l.state[provider]
	if !ok {
		entry = &quotaEntry{lastReset: now}
		l.state[provider] = entry
	}
	return entry
}
