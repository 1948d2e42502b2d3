package repository

import (
	"time"

	"github.com/sanghsetu/memberdesk/app/models"
	"gorm.io/gorm"
)

// MemberRepository defines the interface for member-related database operations
type MemberRepository interface {
	Create(member *models.Member) error
	GetByID(id uint) (*models.Member, error)
	GetByEmail(email string) (*models.Member, error)
	Update(member *models.Member) error
	Delete(id uint) error
	List(offset, limit int) ([]models.Member, error)
	Count() (int64, error)
	Search(query string) ([]models.Member, error)
	GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error)
}

// ApplicationRepository defines the interface for application-related database
// operations. Save persists the complete record including approvals and
// payment in one transaction.
type ApplicationRepository interface {
	Create(app *models.Application) error
	GetByID(id uint) (*models.Application, error)
	GetByApplicationID(applicationID string) (*models.Application, error)
	GetActiveByMemberID(memberID uint) (*models.Application, error)
	ListByMemberID(memberID uint) ([]models.Application, error)
	Save(app *models.Application) error
	ListPendingForStage(stage, state, district, block string, offset, limit int) ([]models.Application, error)
	CountPendingForStage(stage, state, district, block string) (int64, error)
	CountByStatus() (map[string]int64, error)
	IncrementStatusViews(id uint, delta int64) error
	GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error)
}

// NotificationRepository defines the interface for member notifications
type NotificationRepository interface {
	Create(n *models.Notification) error
	ListByMemberID(memberID uint, offset, limit int) ([]models.Notification, error)
	CountUnread(memberID uint) (int64, error)
	MarkRead(memberID, notificationID uint) error
}

// QueueRepository defines the interface for cache/queue inspection operations
type QueueRepository interface {
	GetAllKeys() ([]string, error)
	GetValue(key string) (string, error)
	GetTTL(key string) (time.Duration, error)
	DeleteKey(key string) (int64, error)
	GetListLength(key string) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Member       MemberRepository
	Application  ApplicationRepository
	Notification NotificationRepository
	Queue        QueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Member:       NewMemberRepository(db),
		Application:  NewApplicationRepository(db),
		Notification: NewNotificationRepository(db),
		Queue:        NewQueueRepository(),
	}
}
