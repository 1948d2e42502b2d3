package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/app/repository"
	"github.com/sanghsetu/memberdesk/internal/pkg/mail"
)

// processNotifyJob writes the in-portal notification and, when an email
// address rides along, delivers the message via SMTP. Email failure does not
// fail the job: the in-portal feed is the source of record.
func (q *Queue) processNotifyJob(ctx context.Context, job *Job) error {
	_ = ctx
	payload, err := NotifyJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid notify payload: %w", err)
	}

	repo := repository.GetGlobalFactory().GetNotificationRepository()
	notification := &models.Notification{
		MemberID:    payload.MemberID,
		Type:        payload.Type,
		Content:     payload.Content,
		ReferenceID: payload.ApplicationID,
	}
	if err := repo.Create(notification); err != nil {
		return fmt.Errorf("failed to store notification for member %d: %w", payload.MemberID, err)
	}

	if payload.Email != "" {
		if err := mail.SendMail(payload.Email, payload.Subject, payload.Content); err != nil {
			log.Warnf("[JobQueue] Email delivery to member %d failed: %v", payload.MemberID, err)
		}
	}
	return nil
}
