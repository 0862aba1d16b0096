package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApprovalStatusIsTerminal(t *testing.T) {
	assert.False(t, ApprovalStatusPending.IsTerminal())
	assert.True(t, ApprovalStatusApproved.IsTerminal())
	assert.True(t, ApprovalStatusRejected.IsTerminal())
	assert.True(t, ApprovalStatusCancelled.IsTerminal())
	assert.True(t, ApprovalStatusExpired.IsTerminal())
}

func TestApprovalRequestTypeIsValid(t *testing.T) {
	assert.True(t, ApprovalTypeMenuPublish.IsValid())
	assert.True(t, ApprovalTypeRefund.IsValid())
	assert.False(t, ApprovalRequestType("menu_unpublish").IsValid())
	assert.False(t, ApprovalRequestType("").IsValid())
}

func TestApprovalRequestRiskLevel(t *testing.T) {
	t.Run("access and refund actions are always high", func(t *testing.T) {
		assert.Equal(t, RiskLevelHigh, (&ApprovalRequest{RequestType: ApprovalTypeAccessGrant}).RiskLevel())
		assert.Equal(t, RiskLevelHigh, (&ApprovalRequest{RequestType: ApprovalTypeAccessRevoke, Priority: ApprovalPriorityLow}).RiskLevel())
		assert.Equal(t, RiskLevelHigh, (&ApprovalRequest{RequestType: ApprovalTypeRefund}).RiskLevel())
	})

	t.Run("urgent priority bumps to medium", func(t *testing.T) {
		request := &ApprovalRequest{RequestType: ApprovalTypeMenuPublish, Priority: ApprovalPriorityUrgent}
		assert.Equal(t, RiskLevelMedium, request.RiskLevel())
	})

	t.Run("everything else is low", func(t *testing.T) {
		request := &ApprovalRequest{RequestType: ApprovalTypeMenuPublish, Priority: ApprovalPriorityHigh}
		assert.Equal(t, RiskLevelLow, request.RiskLevel())
	})
}
