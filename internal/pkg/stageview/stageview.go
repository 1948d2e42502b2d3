package stageview

import (
	"github.com/sanghsetu/memberdesk/app/models"
)

// State of one row in the status page progress view.
type State string

const (
	StateCompleted  State = "completed"
	StateInProgress State = "in-progress"
	StateRejected   State = "rejected"
	StatePending    State = "pending"
)

// Stage keys shown on the status page: the three review stages plus the
// payment readiness row.
const (
	KeyBlock    = "block"
	KeyDistrict = "district"
	KeyState    = "state"
	KeyPayment  = "payment"
)

// StageView is one derived row of the application progress display.
type StageView struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	State      State  `json:"state"`
	AdminName  string `json:"admin_name,omitempty"`
	Remarks    string `json:"remarks,omitempty"`
	ActionDate string `json:"action_date,omitempty"`
}

// View is the full derived progress for a status page render.
type View struct {
	Stages         []StageView `json:"stages"`
	CompletedCount int         `json:"completed_count"`
	TotalCount     int         `json:"total_count"`
	Percentage     int         `json:"percentage"`
}

var stageLabels = map[string]string{
	KeyBlock:    "Block Approval",
	KeyDistrict: "District Approval",
	KeyState:    "State Approval",
	KeyPayment:  "Membership Payment",
}

// Evaluate derives the four stage view rows from an application. It is pure
// and never fails: a nil application yields the fixed all-pending fallback so
// callers always render deterministically.
func Evaluate(app *models.Application) View {
	view := View{
		Stages:     make([]StageView, 0, 4),
		TotalCount: 4,
	}

	if app == nil {
		for _, key := range append(models.OrderedStages(), KeyPayment) {
			view.Stages = append(view.Stages, StageView{Key: key, Label: stageLabels[key], State: StatePending})
		}
		return view
	}

	active := app.ActiveStage()
	rejected := false

	for _, stage := range models.OrderedStages() {
		row := StageView{Key: stage, Label: stageLabels[stage], State: StatePending}
		if rejected {
			// Stages after a rejection are unreachable, always pending.
			view.Stages = append(view.Stages, row)
			continue
		}

		decision := models.DecisionPending
		if ap := app.ApprovalFor(stage); ap != nil {
			decision = ap.Decision
			row.AdminName = ap.AdminName
			row.Remarks = ap.Remarks
			if ap.ActionDate != nil {
				row.ActionDate = ap.ActionDate.UTC().Format("2006-01-02")
			}
		}

		switch decision {
		case models.DecisionApproved:
			row.State = StateCompleted
			view.CompletedCount++
		case models.DecisionRejected:
			row.State = StateRejected
			rejected = true
		default:
			if stage == active {
				row.State = StateInProgress
			}
		}
		view.Stages = append(view.Stages, row)
	}

	payment := StageView{Key: KeyPayment, Label: stageLabels[KeyPayment], State: StatePending}
	if !rejected {
		switch app.Status {
		case models.AppStatusActive:
			payment.State = StateCompleted
			view.CompletedCount++
		case models.AppStatusApproved, models.AppStatusPaymentPending:
			payment.State = StateInProgress
		}
	}
	view.Stages = append(view.Stages, payment)

	view.Percentage = int(float64(view.CompletedCount)/float64(view.TotalCount)*100 + 0.5)
	return view
}
