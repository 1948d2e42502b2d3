package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/app/repository"
)

// processSaveApplicationJob flushes a queued write-behind application save to
// the database. The payload carries the complete snapshot; last write wins.
func (q *Queue) processSaveApplicationJob(ctx context.Context, job *Job) error {
	_ = ctx
	payload, err := SaveApplicationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid save_application payload: %w", err)
	}

	var app models.Application
	if err := json.Unmarshal([]byte(payload.ApplicationJSON), &app); err != nil {
		return fmt.Errorf("invalid application snapshot in job %s: %w", job.ID, err)
	}

	repo := repository.GetGlobalFactory().GetApplicationRepository()
	if app.ID == 0 {
		return repo.Create(&app)
	}
	return repo.Save(&app)
}
