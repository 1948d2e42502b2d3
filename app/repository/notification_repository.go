package repository

import (
	"github.com/sanghsetu/memberdesk/app/models"
	"gorm.io/gorm"
)

// notificationRepository implements the NotificationRepository interface
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository instance
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create creates a new notification
func (r *notificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

// ListByMemberID returns a member's notifications, newest first
func (r *notificationRepository) ListByMemberID(memberID uint, offset, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("member_id = ?", memberID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// CountUnread counts a member's unread notifications
func (r *notificationRepository) CountUnread(memberID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("member_id = ? AND is_read = ?", memberID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks a single notification as read, scoped to the member
func (r *notificationRepository) MarkRead(memberID, notificationID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND member_id = ?", notificationID, memberID).
		Update("is_read", true).Error
}
