package middleware

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlanCacheStale(t *testing.T) {
	now := time.Now()
	fresh := strconv.FormatInt(now.Unix(), 10)
	expired := strconv.FormatInt(now.Add(-2*planRefreshInterval).Unix(), 10)

	tests := []struct {
		name      string
		plan      string
		checkedAt string
		stale     bool
	}{
		{"empty plan", "", fresh, true},
		{"fresh cache", "premium", fresh, false},
		{"expired cache", "premium", expired, true},
		{"missing timestamp", "premium", "", true},
		{"garbage timestamp", "premium", "not-a-number", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.stale, planCacheStale(tt.plan, tt.checkedAt, now))
		})
	}
}

func TestPlanCacheStaleAfterInterval(t *testing.T) {
	// A plan cached now must be re-read once the interval passes, so a
	// webhook-driven plan change shows up without a re-login.
	checkedAt := strconv.FormatInt(time.Now().Unix(), 10)

	assert.False(t, planCacheStale("standard", checkedAt, time.Now()))
	assert.True(t, planCacheStale("standard", checkedAt, time.Now().Add(planRefreshInterval+time.Second)))
}
