package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Delay(t *testing.T) {
	t.Run("fixed delay", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute, Backoff: false}
		assert.Equal(t, time.Minute, policy.Delay(1))
		assert.Equal(t, time.Minute, policy.Delay(2))
		assert.Equal(t, time.Minute, policy.Delay(3))
	})

	t.Run("exponential backoff doubles per attempt", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 4, BaseDelay: time.Minute, Backoff: true}
		assert.Equal(t, time.Minute, policy.Delay(1))
		assert.Equal(t, 2*time.Minute, policy.Delay(2))
		assert.Equal(t, 4*time.Minute, policy.Delay(3))
		assert.Equal(t, 8*time.Minute, policy.Delay(4))
	})
}

func TestJob_Expired(t *testing.T) {
	now := time.Now()

	t.Run("no deadline never expires", func(t *testing.T) {
		j := &Job{}
		assert.False(t, j.Expired(now))
	})

	t.Run("before deadline", func(t *testing.T) {
		deadline := now.Add(time.Minute)
		j := &Job{ExpiresAt: &deadline}
		assert.False(t, j.Expired(now))
	})

	t.Run("past deadline", func(t *testing.T) {
		deadline := now.Add(-time.Minute)
		j := &Job{ExpiresAt: &deadline}
		assert.True(t, j.Expired(now))
	})
}

func TestJob_RetryPolicy(t *testing.T) {
	j := &Job{MaxAttempts: 3, RetryDelay: 30 * time.Second, RetryBackoff: true}
	policy := j.RetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 30*time.Second, policy.BaseDelay)
	assert.True(t, policy.Backoff)
}
