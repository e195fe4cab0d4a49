package marketdata

import (
	"testing"
	"time"
)

func TestQuotaLimiterMinuteWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	limiter := NewQuotaLimiter(map[string]ProviderQuota{"p": {PerMinute: 3}}, clock)

	for i := 0; i < 3; i++ {
		if !limiter.CanRequest("p") {
			t.Fatalf("request %d should be allowed", i+1)
		}
		limiter.RecordRequest("p")
	}
	if limiter.CanRequest("p") {
		t.Fatal("4th request within the minute should be denied")
	}

	// Entries strictly older than one minute fall out of the window.
	now = now.Add(61 * time.Second)
	if !limiter.CanRequest("p") {
		t.Fatal("window should have slid after a minute")
	}
}

func TestQuotaLimiterDailyBudget(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	limiter := NewQuotaLimiter(map[string]ProviderQuota{"p": {PerDay: 2}}, clock)

	limiter.RecordRequest("p")
	now = now.Add(2 * time.Hour)
	limiter.RecordRequest("p")
	if limiter.CanRequest("p") {
		t.Fatal("daily budget exhausted, request should be denied")
	}

	// The window is anchored at the first request, not the last one.
	now = now.Add(21 * time.Hour) // 23h after the first request
	if limiter.CanRequest("p") {
		t.Fatal("still inside the 24h window")
	}
	now = now.Add(2 * time.Hour) // 25h after the first request
	if !limiter.CanRequest("p") {
		t.Fatal("daily counter should reset after 24h")
	}
}

func TestQuotaLimiterUnknownProviderUnlimited(t *testing.T) {
	limiter := NewQuotaLimiter(map[string]ProviderQuota{}, nil)
	for i := 0; i < 100; i++ {
		if !limiter.CanRequest("unlisted") {
			t.Fatal("providers without a quota entry are unlimited")
		}
		limiter.RecordRequest("unlisted")
	}
}

func TestQuotaLimiterZeroDimensionsUnlimited(t *testing.T) {
	limiter := NewQuotaLimiter(map[string]ProviderQuota{"p": {PerMinute: 0, PerDay: 1}}, nil)
	if !limiter.CanRequest("p") {
		t.Fatal("zero per-minute quota means that dimension is unchecked")
	}
	limiter.RecordRequest("p")
	if limiter.CanRequest("p") {
		t.Fatal("daily dimension should still bind")
	}
}
