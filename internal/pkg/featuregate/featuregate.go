package featuregate

import (
	"github.com/sanghsetu/memberdesk/app/models"
)

// Capability keys consumed by navigation and route guards.
type Capability string

const (
	CapDashboard     Capability = "dashboard"
	CapNotifications Capability = "notifications"
	CapSettings      Capability = "settings"
	CapHelp          Capability = "help"
	CapDirectory     Capability = "directory"
	CapEvents        Capability = "events"
	CapResources     Capability = "resources"
	CapIDCard        Capability = "id_card"
	CapPayment       Capability = "payment"
	CapReapply       Capability = "reapply"
)

// DashboardVariant selects which dashboard surface the member should see.
// Callers redirect when the rendered route does not match the variant.
type DashboardVariant string

const (
	VariantFull        DashboardVariant = "full"
	VariantIncomplete  DashboardVariant = "incomplete"
	VariantUnderReview DashboardVariant = "under_review"
	VariantPaymentDue  DashboardVariant = "payment_due"
	VariantRejected    DashboardVariant = "rejected"
)

// Snapshot is the ephemeral derived authorization state. It has no lifecycle
// of its own and is recomputed from Member + Application on every evaluation.
type Snapshot struct {
	NavItems         []Capability     `json:"nav_items"`
	DashboardVariant DashboardVariant `json:"dashboard_variant"`
	LockedReason     string           `json:"locked_reason,omitempty"`
}

// restrictedNav is the capability set available before the membership fee is
// settled.
func restrictedNav() []Capability {
	return []Capability{CapDashboard, CapNotifications, CapSettings, CapHelp}
}

// fullNav is the capability set for paid, active members.
func fullNav() []Capability {
	return []Capability{
		CapDashboard, CapNotifications, CapSettings, CapHelp,
		CapDirectory, CapEvents, CapResources, CapIDCard,
	}
}

// Has reports whether the snapshot enables the given capability.
func (s Snapshot) Has(cap Capability) bool {
	for _, c := range s.NavItems {
		if c == cap {
			return true
		}
	}
	return false
}

// Evaluate derives the gate snapshot from the member's payment status and the
// application's lifecycle status. Pure; never errors. Unknown or missing
// state degrades to the restricted incomplete-profile view.
func Evaluate(member *models.Member, app *models.Application) Snapshot {
	if member == nil {
		return Snapshot{
			NavItems:         restrictedNav(),
			DashboardVariant: VariantIncomplete,
			LockedReason:     "Sign in to access the member portal",
		}
	}

	if member.HasPaid() {
		return Snapshot{
			NavItems:         fullNav(),
			DashboardVariant: VariantFull,
		}
	}

	status := models.AppStatusDraft
	if app != nil {
		status = app.Status
	}

	switch status {
	case models.AppStatusDraft:
		return Snapshot{
			NavItems:         restrictedNav(),
			DashboardVariant: VariantIncomplete,
			LockedReason:     "Complete your profile and submit your membership application",
		}
	case models.AppStatusSubmitted, models.AppStatusBlockReview, models.AppStatusDistrictReview, models.AppStatusStateReview:
		return Snapshot{
			NavItems:         restrictedNav(),
			DashboardVariant: VariantUnderReview,
			LockedReason:     "Your application is under review",
		}
	case models.AppStatusApproved, models.AppStatusPaymentPending:
		nav := append(restrictedNav(), CapPayment)
		return Snapshot{
			NavItems:         nav,
			DashboardVariant: VariantPaymentDue,
			LockedReason:     "Your application is approved, proceed to payment",
		}
	case models.AppStatusActive:
		// Application finished but the member record has not caught up yet;
		// treat as paid so a confirmed payment is never locked out.
		return Snapshot{
			NavItems:         fullNav(),
			DashboardVariant: VariantFull,
		}
	case models.AppStatusRejected:
		reason := "Your application was rejected"
		if app != nil {
			for _, ap := range app.Approvals {
				if ap.Decision == models.DecisionRejected && ap.Remarks != "" {
					reason = "Your application was rejected: " + ap.Remarks
					break
				}
			}
		}
		nav := append(restrictedNav(), CapReapply)
		return Snapshot{
			NavItems:         nav,
			DashboardVariant: VariantRejected,
			LockedReason:     reason,
		}
	}

	// Unknown status from a newer backend: fail closed to the restricted view.
	return Snapshot{
		NavItems:         restrictedNav(),
		DashboardVariant: VariantIncomplete,
		LockedReason:     "Complete your profile and submit your membership application",
	}
}
