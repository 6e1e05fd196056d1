package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserHashesPassword(t *testing.T) {
	user, err := CreateUser("alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret-pass", user.Password)
	assert.True(t, user.CheckPassword("s3cret-pass"))
	assert.False(t, user.CheckPassword("wrong"))
	assert.Equal(t, STATUS_INACTIVE, user.Status)
}

func TestGenerateActivationToken(t *testing.T) {
	user := &User{Name: "bob", Email: "bob@example.com"}

	require.NoError(t, user.GenerateActivationToken())

	assert.Len(t, user.ActivationToken, 64)
	assert.NotNil(t, user.ActivationSentAt)
}

func TestHasActiveSubscription(t *testing.T) {
	future := time.Now().Add(30 * 24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name   string
		user   User
		active bool
	}{
		{
			name:   "free plan",
			user:   User{Plan: "free"},
			active: false,
		},
		{
			name:   "empty plan",
			user:   User{},
			active: false,
		},
		{
			name:   "active premium",
			user:   User{Plan: "premium", SubscriptionStatus: BillingStatusActive, SubscriptionEndDate: &future},
			active: true,
		},
		{
			name:   "trialing standard",
			user:   User{Plan: "standard", SubscriptionStatus: BillingStatusTrialing, SubscriptionEndDate: &future},
			active: true,
		},
		{
			name:   "past due keeps access until the period ends",
			user:   User{Plan: "premium", SubscriptionStatus: BillingStatusPastDue, SubscriptionEndDate: &future},
			active: true,
		},
		{
			name:   "expired period",
			user:   User{Plan: "premium", SubscriptionStatus: BillingStatusActive, SubscriptionEndDate: &past},
			active: false,
		},
		{
			name:   "canceled status",
			user:   User{Plan: "premium", SubscriptionStatus: BillingStatusCanceled, SubscriptionEndDate: &future},
			active: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, tt.user.HasActiveSubscription())
		})
	}
}
