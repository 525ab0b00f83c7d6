package policy_test

import (
	"testing"

	"schedule-service/internal/policy"

	"github.com/stretchr/testify/assert"
)

func TestCanMutate(t *testing.T) {
	assert.True(t, policy.CanMutate(5, 5))
	assert.False(t, policy.CanMutate(6, 5))
	assert.False(t, policy.CanMutate(0, 5))
}

func TestAudienceMatch(t *testing.T) {
	assert.True(t, policy.AudienceMatch("B21", "CS", "B21", "CS"))
	assert.False(t, policy.AudienceMatch("B22", "CS", "B21", "CS"), "batch mismatch")
	assert.False(t, policy.AudienceMatch("B21", "EEE", "B21", "CS"), "department mismatch")
	assert.False(t, policy.AudienceMatch("", "", "B21", "CS"))
}

func TestGateAllow(t *testing.T) {
	gate := policy.NewGate("shared-secret")

	assert.True(t, gate.Allow("shared-secret"))
	assert.False(t, gate.Allow("wrong"))
	assert.False(t, gate.Allow(""))
	assert.False(t, gate.Allow("shared-secret "), "whitespace is significant")
}
