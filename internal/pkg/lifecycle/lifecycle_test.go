package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanghsetu/memberdesk/app/models"
)

func completeMember() *models.Member {
	return &models.Member{
		ID:            7,
		Name:          "Asha Kumari",
		Email:         "asha@example.com",
		Phone:         "9876543210",
		Occupation:    "Teacher",
		Address:       "12 Main Road",
		State:         "Bihar",
		District:      "Patna",
		Block:         "Phulwari",
		PaymentStatus: models.PAYMENT_PENDING,
	}
}

func submittedApplication(t *testing.T) *models.Application {
	t.Helper()
	app := &models.Application{Status: models.AppStatusDraft}
	require.NoError(t, Submit(app, completeMember(), map[string]interface{}{"referrer": "none"}))
	return app
}

func TestSubmitRequiresCompleteProfile(t *testing.T) {
	member := completeMember()
	member.Phone = ""

	app := &models.Application{Status: models.AppStatusDraft}
	err := Submit(app, member, nil)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "profile", ve.Field)
	assert.Equal(t, models.AppStatusDraft, app.Status)
}

func TestSubmitLandsInBlockReview(t *testing.T) {
	app := submittedApplication(t)

	// draft -> block review in one step, never observable as bare submitted
	assert.Equal(t, models.AppStatusBlockReview, app.Status)
	assert.Equal(t, models.StageBlock, app.ActiveStage())
	require.NotNil(t, app.SubmittedAt)
	require.Len(t, app.Approvals, 3)
	for _, ap := range app.Approvals {
		assert.Equal(t, models.DecisionPending, ap.Decision)
	}
	assert.Equal(t, "Bihar", app.State)
	assert.Equal(t, "Patna", app.District)
	assert.Equal(t, "Phulwari", app.Block)
}

func TestSubmitOnlyFromDraft(t *testing.T) {
	app := submittedApplication(t)

	err := Submit(app, completeMember(), nil)
	var se *IllegalStateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "submit", se.Operation)
}

func TestDecideAdvancesThroughStagesInOrder(t *testing.T) {
	app := submittedApplication(t)

	require.NoError(t, Decide(app, models.StageBlock, models.DecisionApproved, 10, "Block Admin", ""))
	assert.Equal(t, models.AppStatusDistrictReview, app.Status)

	require.NoError(t, Decide(app, models.StageDistrict, models.DecisionApproved, 11, "District Admin", ""))
	assert.Equal(t, models.AppStatusStateReview, app.Status)

	require.NoError(t, Decide(app, models.StageState, models.DecisionApproved, 12, "State Admin", "welcome"))
	assert.Equal(t, models.AppStatusApproved, app.Status)

	for _, ap := range app.Approvals {
		assert.Equal(t, models.DecisionApproved, ap.Decision)
		assert.NotNil(t, ap.ActionDate)
	}
}

func TestDecideRejectsOutOfOrderStage(t *testing.T) {
	app := submittedApplication(t)

	// District decision while block review is active must not land
	err := Decide(app, models.StageDistrict, models.DecisionApproved, 11, "District Admin", "")

	var te *InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, models.StageDistrict, te.Stage)
	assert.Equal(t, models.StageBlock, te.ActiveStage)

	// No mutation on failure
	assert.Equal(t, models.AppStatusBlockReview, app.Status)
	assert.Equal(t, models.DecisionPending, app.StageDecision(models.StageDistrict))
	assert.Nil(t, app.ApprovalFor(models.StageDistrict).ActionDate)
}

func TestDecideRejectionIsTerminal(t *testing.T) {
	app := submittedApplication(t)
	require.NoError(t, Decide(app, models.StageBlock, models.DecisionApproved, 10, "Block Admin", ""))

	require.NoError(t, Decide(app, models.StageDistrict, models.DecisionRejected, 11, "District Admin", "incomplete documents"))
	assert.Equal(t, models.AppStatusRejected, app.Status)
	assert.True(t, app.IsTerminal())

	// Nothing can move a rejected application
	err := Decide(app, models.StageState, models.DecisionApproved, 12, "State Admin", "")
	var te *InvalidTransitionError
	require.ErrorAs(t, err, &te)

	err = InitiatePayment(app, models.PlanAnnual, 500, "ref")
	var se *IllegalStateError
	require.ErrorAs(t, err, &se)
}

func TestDecideValidatesDecision(t *testing.T) {
	app := submittedApplication(t)

	err := Decide(app, models.StageBlock, "maybe", 10, "Block Admin", "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "decision", ve.Field)
}

func TestPaymentTwoPhase(t *testing.T) {
	app := submittedApplication(t)
	member := completeMember()
	require.NoError(t, Decide(app, models.StageBlock, models.DecisionApproved, 10, "Block Admin", ""))
	require.NoError(t, Decide(app, models.StageDistrict, models.DecisionApproved, 11, "District Admin", ""))
	require.NoError(t, Decide(app, models.StageState, models.DecisionApproved, 12, "State Admin", ""))

	require.NoError(t, InitiatePayment(app, models.PlanAnnual, 500, "PAY-1"))
	assert.Equal(t, models.AppStatusPaymentPending, app.Status)
	require.NotNil(t, app.Payment)
	assert.Nil(t, app.Payment.PaidAt)
	assert.Equal(t, models.PAYMENT_PENDING, member.PaymentStatus)

	paidAt := time.Now()
	require.NoError(t, ConfirmPayment(app, member, paidAt))
	assert.Equal(t, models.AppStatusActive, app.Status)
	assert.Equal(t, models.PAYMENT_COMPLETED, member.PaymentStatus)
	require.NotNil(t, app.Payment.PaidAt)

	// A second confirmation must not land
	err := ConfirmPayment(app, member, time.Now())
	var se *IllegalStateError
	require.ErrorAs(t, err, &se)
}

func TestInitiatePaymentOnlyWhenApproved(t *testing.T) {
	app := submittedApplication(t)

	err := InitiatePayment(app, models.PlanAnnual, 500, "PAY-1")
	var se *IllegalStateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.AppStatusBlockReview, app.Status)
	assert.Nil(t, app.Payment)
}

func TestInitiatePaymentValidatesPlanAndAmount(t *testing.T) {
	app := submittedApplication(t)
	require.NoError(t, Decide(app, models.StageBlock, models.DecisionApproved, 10, "Block Admin", ""))
	require.NoError(t, Decide(app, models.StageDistrict, models.DecisionApproved, 11, "District Admin", ""))
	require.NoError(t, Decide(app, models.StageState, models.DecisionApproved, 12, "State Admin", ""))

	var ve *ValidationError
	require.ErrorAs(t, InitiatePayment(app, "monthly", 500, "r"), &ve)
	require.ErrorAs(t, InitiatePayment(app, models.PlanAnnual, 0, "r"), &ve)
	assert.Equal(t, models.AppStatusApproved, app.Status)
}

func TestNextAction(t *testing.T) {
	assert.Equal(t, "complete_profile", NextAction(nil))
	assert.Equal(t, "submit_application", NextAction(&models.Application{Status: models.AppStatusDraft}))
	assert.Equal(t, "await_review", NextAction(&models.Application{Status: models.AppStatusDistrictReview}))
	assert.Equal(t, "pay_membership_fee", NextAction(&models.Application{Status: models.AppStatusApproved}))
	assert.Equal(t, "reapply", NextAction(&models.Application{Status: models.AppStatusRejected}))
	assert.Equal(t, "none", NextAction(&models.Application{Status: models.AppStatusActive}))
}
