package repository

import (
	"fmt"
	"time"

	"github.com/sanghsetu/memberdesk/app/models"
	"gorm.io/gorm"
)

// applicationRepository implements the ApplicationRepository interface
type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository creates a new application repository instance
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// Create persists a new application and assigns its human-readable
// application ID from the per-year sequence. ID assignment and insert happen
// in one transaction so concurrent submissions cannot collide.
func (r *applicationRepository) Create(app *models.Application) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if app.ApplicationID == "" {
			year := time.Now().Year()
			var count int64
			prefix := fmt.Sprintf("MEM-%d-%%", year)
			if err := tx.Model(&models.Application{}).
				Unscoped().
				Where("application_id LIKE ?", prefix).
				Count(&count).Error; err != nil {
				return err
			}
			app.ApplicationID = models.FormatApplicationID(year, uint(count)+1)
		}
		return tx.Create(app).Error
	})
}

// GetByID retrieves an application with its approvals and payment
func (r *applicationRepository) GetByID(id uint) (*models.Application, error) {
	var app models.Application
	err := r.db.Preload("Approvals").Preload("Payment").First(&app, id).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// GetByApplicationID retrieves an application by its human-readable ID
func (r *applicationRepository) GetByApplicationID(applicationID string) (*models.Application, error) {
	var app models.Application
	err := r.db.Preload("Approvals").Preload("Payment").
		Where("application_id = ?", applicationID).First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// GetActiveByMemberID returns the member's current non-terminal application.
// Rejected records are archived and ignored here; at most one non-terminal
// application exists per member.
func (r *applicationRepository) GetActiveByMemberID(memberID uint) (*models.Application, error) {
	var app models.Application
	err := r.db.Preload("Approvals").Preload("Payment").
		Where("member_id = ? AND status <> ?", memberID, models.AppStatusRejected).
		Order("created_at DESC").
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListByMemberID returns all applications of a member, newest first,
// including archived rejected records.
func (r *applicationRepository) ListByMemberID(memberID uint) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.Preload("Approvals").Preload("Payment").
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

// Save persists the complete application snapshot including approvals and
// payment in one transaction. Callers always save whole records; there are
// no partial-field writes.
func (r *applicationRepository) Save(app *models.Application) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(app).Error; err != nil {
			return err
		}
		return nil
	})
}

// regionFilter narrows a stage queue to the admin's region keys. A block
// admin sees only their block, a district admin their district, a state
// admin their state.
func regionFilter(q *gorm.DB, stage, state, district, block string) *gorm.DB {
	if state != "" {
		q = q.Where("state = ?", state)
	}
	switch stage {
	case models.StageBlock:
		if district != "" {
			q = q.Where("district = ?", district)
		}
		if block != "" {
			q = q.Where("block = ?", block)
		}
	case models.StageDistrict:
		if district != "" {
			q = q.Where("district = ?", district)
		}
	}
	return q
}

// ListPendingForStage returns the review queue for a stage, oldest first,
// filtered by the approver's region
func (r *applicationRepository) ListPendingForStage(stage, state, district, block string, offset, limit int) ([]models.Application, error) {
	status := models.StageReviewStatus(stage)
	if status == "" {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}

	var apps []models.Application
	q := r.db.Preload("Approvals").Where("status = ?", status)
	q = regionFilter(q, stage, state, district, block)
	err := q.Order("submitted_at ASC").Offset(offset).Limit(limit).Find(&apps).Error
	return apps, err
}

// CountPendingForStage counts the review queue for a stage within a region
func (r *applicationRepository) CountPendingForStage(stage, state, district, block string) (int64, error) {
	status := models.StageReviewStatus(stage)
	if status == "" {
		return 0, fmt.Errorf("unknown stage %q", stage)
	}

	var count int64
	q := r.db.Model(&models.Application{}).Where("status = ?", status)
	q = regionFilter(q, stage, state, district, block)
	err := q.Count(&count).Error
	return count, err
}

// CountByStatus returns application counts grouped by lifecycle status
func (r *applicationRepository) CountByStatus() (map[string]int64, error) {
	var results []struct {
		Status string
		Count  int64
	}
	err := r.db.Model(&models.Application{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(results))
	for _, result := range results {
		counts[result.Status] = result.Count
	}
	return counts, nil
}

// IncrementStatusViews applies a batched status-page view count increment
func (r *applicationRepository) IncrementStatusViews(id uint, delta int64) error {
	return r.db.Model(&models.Application{}).Where("id = ?", id).
		UpdateColumn("status_view_count", gorm.Expr("status_view_count + ?", delta)).Error
}

// GetDailyStats returns daily application submission counts for a date range
func (r *applicationRepository) GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error) {
	var results []struct {
		Date  string `json:"date"`
		Count int64  `json:"count"`
	}

	err := r.db.Model(&models.Application{}).
		Select("DATE_FORMAT(submitted_at, '%Y-%m-%d') as date, COUNT(*) as count").
		Where("submitted_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE_FORMAT(submitted_at, '%Y-%m-%d')").
		Order("date").
		Find(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get daily application stats: %w", err)
	}

	dailyStats := make([]models.DailyStats, len(results))
	for i, result := range results {
		dailyStats[i] = models.DailyStats{
			Date:  result.Date,
			Count: int(result.Count),
		}
	}

	return dailyStats, nil
}
