package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Application status values. The order of the review states is fixed:
// block review, then district review, then state review.
const (
	AppStatusDraft          = "draft"
	AppStatusSubmitted      = "submitted"
	AppStatusBlockReview    = "block_review"
	AppStatusDistrictReview = "district_review"
	AppStatusStateReview    = "state_review"
	AppStatusApproved       = "approved"
	AppStatusPaymentPending = "payment_pending"
	AppStatusActive         = "active"
	AppStatusRejected       = "rejected"
)

// Approval stages, in review order.
const (
	StageBlock    = "block"
	StageDistrict = "district"
	StageState    = "state"
)

// Approval decisions.
const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Payment plans.
const (
	PlanAnnual   = "annual"
	PlanLifetime = "lifetime"
)

// OrderedStages returns the approval stages in review order.
func OrderedStages() []string {
	return []string{StageBlock, StageDistrict, StageState}
}

// StageReviewStatus maps an approval stage to the application status that
// parks an application at that stage.
func StageReviewStatus(stage string) string {
	switch stage {
	case StageBlock:
		return AppStatusBlockReview
	case StageDistrict:
		return AppStatusDistrictReview
	case StageState:
		return AppStatusStateReview
	}
	return ""
}

// Application is the membership request record tracked through the three
// approval stages and the final payment step. One non-terminal Application
// exists per member; rejected records stay archived and a re-application
// creates a new row referencing the old one.
type Application struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	ApplicationID         string         `gorm:"uniqueIndex;type:varchar(30)" json:"application_id"`
	MemberID              uint           `gorm:"not null;index" json:"member_id"`
	Member                Member         `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	State                 string         `gorm:"type:varchar(100);index" json:"state"`
	District              string         `gorm:"type:varchar(100);index" json:"district"`
	Block                 string         `gorm:"type:varchar(100);index" json:"block"`
	Status                string         `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`
	SubmittedAt           *time.Time     `gorm:"type:timestamp;default:null" json:"submitted_at"`
	DetailsJSON           string         `gorm:"type:longtext" json:"details_json"`
	ProfileSnapshotJSON   string         `gorm:"type:longtext" json:"profile_snapshot_json"`
	Approvals             []ApprovalStatus `gorm:"foreignKey:ApplicationRecordID" json:"approvals"`
	Payment               *PaymentRecord `gorm:"foreignKey:ApplicationRecordID" json:"payment,omitempty"`
	PreviousApplicationID *uint          `gorm:"default:null" json:"previous_application_id,omitempty"`
	StatusViewCount       uint64         `gorm:"default:0" json:"status_view_count"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

// ApprovalStatus is the decision record for a single stage. It is created when
// the Application enters the stage's review and mutated exactly once by the
// assigned approver.
type ApprovalStatus struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	ApplicationRecordID uint       `gorm:"not null;index" json:"application_record_id"`
	Stage               string     `gorm:"type:varchar(20);not null" json:"stage" validate:"oneof=block district state"`
	Decision            string     `gorm:"type:varchar(20);not null;default:'pending'" json:"decision" validate:"oneof=pending approved rejected"`
	AdminID             uint       `gorm:"default:null" json:"admin_id,omitempty"`
	AdminName           string     `gorm:"type:varchar(150);default:null" json:"admin_name,omitempty"`
	Remarks             string     `gorm:"type:text;default:null" json:"remarks,omitempty"`
	ActionDate          *time.Time `gorm:"type:timestamp;default:null" json:"action_date,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// PaymentRecord stores the membership fee payment. Created once the
// Application reaches approved; immutable after confirmation.
type PaymentRecord struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	ApplicationRecordID uint       `gorm:"not null;uniqueIndex" json:"application_record_id"`
	Plan                string     `gorm:"type:varchar(20);not null" json:"plan" validate:"oneof=annual lifetime"`
	TotalAmount         int64      `gorm:"not null" json:"total_amount"`
	Reference           string     `gorm:"type:varchar(64);index" json:"reference"`
	PaidAt              *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// FormatApplicationID renders the human-readable application ID for a given
// year and per-year sequence number, e.g. MEM-2026-000042.
func FormatApplicationID(year int, seq uint) string {
	return fmt.Sprintf("MEM-%d-%06d", year, seq)
}

// IsTerminal reports whether the application can no longer move forward.
// Rejected is the only terminal sink; active is the completed end state.
func (a *Application) IsTerminal() bool {
	return a.Status == AppStatusRejected
}

// IsUnderReview reports whether the application sits in one of the three
// review states.
func (a *Application) IsUnderReview() bool {
	switch a.Status {
	case AppStatusBlockReview, AppStatusDistrictReview, AppStatusStateReview:
		return true
	}
	return false
}

// ActiveStage returns the stage currently under review, or "" when the
// application is not in a review state.
func (a *Application) ActiveStage() string {
	switch a.Status {
	case AppStatusBlockReview:
		return StageBlock
	case AppStatusDistrictReview:
		return StageDistrict
	case AppStatusStateReview:
		return StageState
	}
	return ""
}

// ApprovalFor returns the approval record for the given stage, or nil.
func (a *Application) ApprovalFor(stage string) *ApprovalStatus {
	for i := range a.Approvals {
		if a.Approvals[i].Stage == stage {
			return &a.Approvals[i]
		}
	}
	return nil
}

// StageDecision returns the decision for the given stage, defaulting to
// pending when no approval record exists yet.
func (a *Application) StageDecision(stage string) string {
	if ap := a.ApprovalFor(stage); ap != nil {
		return ap.Decision
	}
	return DecisionPending
}

// Clone returns a deep copy of the application snapshot. Writers hand out
// clones so readers never observe a half-updated approvals/status pairing.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Approvals = make([]ApprovalStatus, len(a.Approvals))
	copy(cp.Approvals, a.Approvals)
	if a.Payment != nil {
		p := *a.Payment
		cp.Payment = &p
	}
	if a.PreviousApplicationID != nil {
		prev := *a.PreviousApplicationID
		cp.PreviousApplicationID = &prev
	}
	return &cp
}
