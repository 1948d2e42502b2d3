package stageview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanghsetu/memberdesk/app/models"
)

func TestEvaluateNilApplicationFallback(t *testing.T) {
	view := Evaluate(nil)

	require.Len(t, view.Stages, 4)
	for _, row := range view.Stages {
		assert.Equal(t, StatePending, row.State)
	}
	assert.Equal(t, 0, view.CompletedCount)
	assert.Equal(t, 4, view.TotalCount)
	assert.Equal(t, 0, view.Percentage)
}

func TestEvaluateBlockApprovedDistrictActive(t *testing.T) {
	actioned := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	app := &models.Application{
		Status: models.AppStatusDistrictReview,
		Approvals: []models.ApprovalStatus{
			{Stage: models.StageBlock, Decision: models.DecisionApproved, AdminName: "Block Admin", ActionDate: &actioned},
			{Stage: models.StageDistrict, Decision: models.DecisionPending},
			{Stage: models.StageState, Decision: models.DecisionPending},
		},
	}

	view := Evaluate(app)
	require.Len(t, view.Stages, 4)

	assert.Equal(t, StateCompleted, view.Stages[0].State)
	assert.Equal(t, "Block Admin", view.Stages[0].AdminName)
	assert.Equal(t, "2026-03-14", view.Stages[0].ActionDate)
	assert.Equal(t, StateInProgress, view.Stages[1].State)
	assert.Equal(t, StatePending, view.Stages[2].State)
	assert.Equal(t, StatePending, view.Stages[3].State)

	assert.Equal(t, 1, view.CompletedCount)
	assert.Equal(t, 25, view.Percentage)
}

func TestEvaluateRejectionForcesLaterStagesPending(t *testing.T) {
	app := &models.Application{
		Status: models.AppStatusRejected,
		Approvals: []models.ApprovalStatus{
			{Stage: models.StageBlock, Decision: models.DecisionApproved},
			{Stage: models.StageDistrict, Decision: models.DecisionRejected, Remarks: "incomplete documents"},
			// Stale data after the rejection must not surface
			{Stage: models.StageState, Decision: models.DecisionApproved},
		},
	}

	view := Evaluate(app)

	assert.Equal(t, StateCompleted, view.Stages[0].State)
	assert.Equal(t, StateRejected, view.Stages[1].State)
	assert.Equal(t, "incomplete documents", view.Stages[1].Remarks)
	assert.Equal(t, StatePending, view.Stages[2].State)
	assert.Equal(t, StatePending, view.Stages[3].State)
	assert.Equal(t, 1, view.CompletedCount)
}

func TestEvaluatePaymentRow(t *testing.T) {
	approvals := []models.ApprovalStatus{
		{Stage: models.StageBlock, Decision: models.DecisionApproved},
		{Stage: models.StageDistrict, Decision: models.DecisionApproved},
		{Stage: models.StageState, Decision: models.DecisionApproved},
	}

	approved := Evaluate(&models.Application{Status: models.AppStatusApproved, Approvals: approvals})
	assert.Equal(t, StateInProgress, approved.Stages[3].State)
	assert.Equal(t, 75, approved.Percentage)

	pending := Evaluate(&models.Application{Status: models.AppStatusPaymentPending, Approvals: approvals})
	assert.Equal(t, StateInProgress, pending.Stages[3].State)

	active := Evaluate(&models.Application{Status: models.AppStatusActive, Approvals: approvals})
	assert.Equal(t, StateCompleted, active.Stages[3].State)
	assert.Equal(t, 4, active.CompletedCount)
	assert.Equal(t, 100, active.Percentage)
}

func TestEvaluateMissingApprovalRecords(t *testing.T) {
	// Submission failed halfway: no approval rows yet, status still block review
	view := Evaluate(&models.Application{Status: models.AppStatusBlockReview})

	assert.Equal(t, StateInProgress, view.Stages[0].State)
	assert.Equal(t, StatePending, view.Stages[1].State)
	assert.Equal(t, StatePending, view.Stages[2].State)
}
