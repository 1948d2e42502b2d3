package lifecycle

import (
	"encoding/json"
	"time"

	"github.com/sanghsetu/memberdesk/app/models"
)

// nextStatusAfterApproval returns the status the application advances to when
// the given stage is approved.
func nextStatusAfterApproval(stage string) string {
	switch stage {
	case models.StageBlock:
		return models.AppStatusDistrictReview
	case models.StageDistrict:
		return models.AppStatusStateReview
	case models.StageState:
		return models.AppStatusApproved
	}
	return ""
}

// Submit moves a draft application into block review. The submission is
// atomic: draft -> submitted -> block_review happens in one step so no
// application is ever observable in the bare submitted state. Requires a
// fully completed profile.
func Submit(app *models.Application, member *models.Member, details map[string]interface{}) error {
	if app.Status != models.AppStatusDraft {
		return &IllegalStateError{Operation: "submit", Status: app.Status}
	}
	if !member.IsProfileComplete() {
		return &ValidationError{
			Field:   "profile",
			Message: "profile must be 100% complete before submission",
		}
	}
	if member.State == "" || member.District == "" || member.Block == "" {
		return &ValidationError{
			Field:   "address",
			Message: "state, district and block are required for approver routing",
		}
	}

	profileSnapshot, err := json.Marshal(member)
	if err != nil {
		return &ValidationError{Field: "profile", Message: err.Error()}
	}
	detailsSnapshot, err := json.Marshal(details)
	if err != nil {
		return &ValidationError{Field: "details", Message: err.Error()}
	}

	now := time.Now()
	app.MemberID = member.ID
	app.State = member.State
	app.District = member.District
	app.Block = member.Block
	app.SubmittedAt = &now
	app.ProfileSnapshotJSON = string(profileSnapshot)
	app.DetailsJSON = string(detailsSnapshot)
	app.Status = models.AppStatusBlockReview
	app.Approvals = []models.ApprovalStatus{
		{Stage: models.StageBlock, Decision: models.DecisionPending},
		{Stage: models.StageDistrict, Decision: models.DecisionPending},
		{Stage: models.StageState, Decision: models.DecisionPending},
	}
	return nil
}

// Decide applies an admin decision to the given stage. The stage must be the
// currently active review stage; anything else fails with
// InvalidTransitionError and leaves the application untouched. Approval
// advances to the next stage (or approved after the state stage); rejection
// is terminal.
func Decide(app *models.Application, stage, decision string, adminID uint, adminName, remarks string) error {
	if decision != models.DecisionApproved && decision != models.DecisionRejected {
		return &ValidationError{Field: "decision", Message: "decision must be approved or rejected"}
	}
	if !app.IsUnderReview() {
		return &InvalidTransitionError{Stage: stage, Status: app.Status}
	}
	active := app.ActiveStage()
	if stage != active {
		return &InvalidTransitionError{Stage: stage, ActiveStage: active, Status: app.Status}
	}

	approval := app.ApprovalFor(stage)
	if approval == nil {
		return &IllegalStateError{Operation: "decide", Status: app.Status}
	}
	if approval.Decision != models.DecisionPending {
		return &IllegalStateError{Operation: "decide", Status: app.Status}
	}

	now := time.Now()
	approval.Decision = decision
	approval.AdminID = adminID
	approval.AdminName = adminName
	approval.Remarks = remarks
	approval.ActionDate = &now

	if decision == models.DecisionRejected {
		app.Status = models.AppStatusRejected
		return nil
	}
	app.Status = nextStatusAfterApproval(stage)
	return nil
}

// InitiatePayment creates the payment record and moves the application to
// payment_pending. Valid only from approved. The record stays unconfirmed
// until the gateway callback lands in ConfirmPayment.
func InitiatePayment(app *models.Application, plan string, totalAmount int64, reference string) error {
	if app.Status != models.AppStatusApproved {
		return &IllegalStateError{Operation: "pay", Status: app.Status}
	}
	if plan != models.PlanAnnual && plan != models.PlanLifetime {
		return &ValidationError{Field: "plan", Message: "plan must be annual or lifetime"}
	}
	if totalAmount <= 0 {
		return &ValidationError{Field: "total_amount", Message: "amount must be positive"}
	}

	app.Payment = &models.PaymentRecord{
		ApplicationRecordID: app.ID,
		Plan:                plan,
		TotalAmount:         totalAmount,
		Reference:           reference,
	}
	app.Status = models.AppStatusPaymentPending
	return nil
}

// ConfirmPayment completes the two-phase payment: payment_pending -> active.
// Also flips the member's payment status, which unlocks the full feature set.
func ConfirmPayment(app *models.Application, member *models.Member, paidAt time.Time) error {
	if app.Status != models.AppStatusPaymentPending {
		return &IllegalStateError{Operation: "confirm_payment", Status: app.Status}
	}
	if app.Payment == nil {
		return &IllegalStateError{Operation: "confirm_payment", Status: app.Status}
	}
	if app.Payment.PaidAt != nil {
		return &IllegalStateError{Operation: "confirm_payment", Status: models.AppStatusActive}
	}

	app.Payment.PaidAt = &paidAt
	app.Status = models.AppStatusActive
	member.PaymentStatus = models.PAYMENT_COMPLETED
	return nil
}

// NextAction names the step the member has to take next, used by dashboards.
func NextAction(app *models.Application) string {
	if app == nil {
		return "complete_profile"
	}
	switch app.Status {
	case models.AppStatusDraft:
		return "submit_application"
	case models.AppStatusBlockReview, models.AppStatusDistrictReview, models.AppStatusStateReview, models.AppStatusSubmitted:
		return "await_review"
	case models.AppStatusApproved:
		return "pay_membership_fee"
	case models.AppStatusPaymentPending:
		return "await_payment_confirmation"
	case models.AppStatusActive:
		return "none"
	case models.AppStatusRejected:
		return "reapply"
	}
	return "none"
}
