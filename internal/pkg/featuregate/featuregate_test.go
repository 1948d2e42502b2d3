package featuregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sanghsetu/memberdesk/app/models"
)

func unpaidMember() *models.Member {
	return &models.Member{ID: 1, PaymentStatus: models.PAYMENT_PENDING}
}

func TestEvaluateNilMember(t *testing.T) {
	snap := Evaluate(nil, nil)

	assert.Equal(t, VariantIncomplete, snap.DashboardVariant)
	assert.False(t, snap.Has(CapDirectory))
	assert.NotEmpty(t, snap.LockedReason)
}

func TestEvaluateDecisionTable(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		variant DashboardVariant
	}{
		{"draft", models.AppStatusDraft, VariantIncomplete},
		{"submitted", models.AppStatusSubmitted, VariantUnderReview},
		{"block review", models.AppStatusBlockReview, VariantUnderReview},
		{"district review", models.AppStatusDistrictReview, VariantUnderReview},
		{"state review", models.AppStatusStateReview, VariantUnderReview},
		{"approved", models.AppStatusApproved, VariantPaymentDue},
		{"payment pending", models.AppStatusPaymentPending, VariantPaymentDue},
		{"active", models.AppStatusActive, VariantFull},
		{"rejected", models.AppStatusRejected, VariantRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Evaluate(unpaidMember(), &models.Application{Status: tt.status})
			assert.Equal(t, tt.variant, snap.DashboardVariant)
		})
	}
}

func TestEvaluateUnderReviewLocksMemberFeatures(t *testing.T) {
	snap := Evaluate(unpaidMember(), &models.Application{Status: models.AppStatusDistrictReview})

	assert.Equal(t, VariantUnderReview, snap.DashboardVariant)
	assert.True(t, snap.Has(CapDashboard))
	assert.True(t, snap.Has(CapNotifications))
	assert.True(t, snap.Has(CapSettings))
	assert.True(t, snap.Has(CapHelp))
	assert.False(t, snap.Has(CapDirectory))
	assert.False(t, snap.Has(CapEvents))
	assert.False(t, snap.Has(CapIDCard))
	assert.NotEmpty(t, snap.LockedReason)
}

func TestEvaluatePaidMemberGetsFullNav(t *testing.T) {
	member := unpaidMember()
	member.PaymentStatus = models.PAYMENT_COMPLETED

	// Paid members see everything regardless of the application record
	snap := Evaluate(member, nil)

	assert.Equal(t, VariantFull, snap.DashboardVariant)
	assert.True(t, snap.Has(CapDirectory))
	assert.True(t, snap.Has(CapIDCard))
	assert.Empty(t, snap.LockedReason)
}

func TestEvaluatePaymentDueUnlocksPayment(t *testing.T) {
	snap := Evaluate(unpaidMember(), &models.Application{Status: models.AppStatusApproved})

	assert.True(t, snap.Has(CapPayment))
	assert.False(t, snap.Has(CapDirectory))
}

func TestEvaluateRejectedIncludesRemarks(t *testing.T) {
	app := &models.Application{
		Status: models.AppStatusRejected,
		Approvals: []models.ApprovalStatus{
			{Stage: models.StageBlock, Decision: models.DecisionApproved},
			{Stage: models.StageDistrict, Decision: models.DecisionRejected, Remarks: "incomplete documents"},
		},
	}

	snap := Evaluate(unpaidMember(), app)

	assert.Equal(t, VariantRejected, snap.DashboardVariant)
	assert.True(t, snap.Has(CapReapply))
	assert.Contains(t, snap.LockedReason, "incomplete documents")
}

func TestEvaluateUnknownStatusFailsClosed(t *testing.T) {
	snap := Evaluate(unpaidMember(), &models.Application{Status: "archived"})

	assert.Equal(t, VariantIncomplete, snap.DashboardVariant)
	assert.False(t, snap.Has(CapDirectory))
	assert.False(t, snap.Has(CapPayment))
}

func TestEvaluateNoApplication(t *testing.T) {
	snap := Evaluate(unpaidMember(), nil)
	assert.Equal(t, VariantIncomplete, snap.DashboardVariant)
}
