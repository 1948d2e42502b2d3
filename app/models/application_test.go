package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatApplicationID(t *testing.T) {
	assert.Equal(t, "MEM-2026-000042", FormatApplicationID(2026, 42))
	assert.Equal(t, "MEM-2027-000001", FormatApplicationID(2027, 1))
}

func TestActiveStage(t *testing.T) {
	assert.Equal(t, StageBlock, (&Application{Status: AppStatusBlockReview}).ActiveStage())
	assert.Equal(t, StageDistrict, (&Application{Status: AppStatusDistrictReview}).ActiveStage())
	assert.Equal(t, StageState, (&Application{Status: AppStatusStateReview}).ActiveStage())
	assert.Equal(t, "", (&Application{Status: AppStatusDraft}).ActiveStage())
	assert.Equal(t, "", (&Application{Status: AppStatusApproved}).ActiveStage())
}

func TestStageReviewStatus(t *testing.T) {
	assert.Equal(t, AppStatusBlockReview, StageReviewStatus(StageBlock))
	assert.Equal(t, AppStatusDistrictReview, StageReviewStatus(StageDistrict))
	assert.Equal(t, AppStatusStateReview, StageReviewStatus(StageState))
	assert.Equal(t, "", StageReviewStatus("unknown"))
}

func TestStageDecisionDefaultsToPending(t *testing.T) {
	app := &Application{
		Approvals: []ApprovalStatus{
			{Stage: StageBlock, Decision: DecisionApproved},
		},
	}
	assert.Equal(t, DecisionApproved, app.StageDecision(StageBlock))
	assert.Equal(t, DecisionPending, app.StageDecision(StageDistrict))
}

func TestCloneIsDeep(t *testing.T) {
	paidAt := time.Now()
	prev := uint(9)
	app := &Application{
		ID:       1,
		MemberID: 42,
		Status:   AppStatusPaymentPending,
		Approvals: []ApprovalStatus{
			{Stage: StageBlock, Decision: DecisionApproved},
		},
		Payment:               &PaymentRecord{Plan: PlanAnnual, TotalAmount: 500, PaidAt: &paidAt},
		PreviousApplicationID: &prev,
	}

	clone := app.Clone()
	require.NotNil(t, clone)

	clone.Approvals[0].Decision = DecisionRejected
	clone.Payment.TotalAmount = 999
	*clone.PreviousApplicationID = 77

	assert.Equal(t, DecisionApproved, app.Approvals[0].Decision)
	assert.Equal(t, int64(500), app.Payment.TotalAmount)
	assert.Equal(t, uint(9), *app.PreviousApplicationID)

	var nilApp *Application
	assert.Nil(t, nilApp.Clone())
}

func TestIsTerminalAndUnderReview(t *testing.T) {
	assert.True(t, (&Application{Status: AppStatusRejected}).IsTerminal())
	assert.False(t, (&Application{Status: AppStatusActive}).IsTerminal())
	assert.True(t, (&Application{Status: AppStatusStateReview}).IsUnderReview())
	assert.False(t, (&Application{Status: AppStatusApproved}).IsUnderReview())
}
