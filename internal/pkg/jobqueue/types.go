package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeSaveApplication JobType = "save_application"
	JobTypeNotifyDecision  JobType = "notify_decision"
	JobTypeNotifyPayment   JobType = "notify_payment"
	JobTypeFlushCounters   JobType = "flush_counters"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// SaveApplicationJobPayload carries a pending application write-behind. The
// full application snapshot rides along so the retry writes the complete
// record atomically, never individual fields.
type SaveApplicationJobPayload struct {
	MemberID        uint   `json:"member_id"`
	ApplicationJSON string `json:"application_json"`
}

// ToMap converts the payload to a map for storage
func (p SaveApplicationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"member_id":        p.MemberID,
		"application_json": p.ApplicationJSON,
	}
}

// SaveApplicationJobPayloadFromMap creates a payload from a map
func SaveApplicationJobPayloadFromMap(data map[string]interface{}) (*SaveApplicationJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload SaveApplicationJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// NotifyJobPayload carries a member notification (decision or payment) plus
// the optional email delivery.
type NotifyJobPayload struct {
	MemberID      uint   `json:"member_id"`
	ApplicationID uint   `json:"application_id"`
	Type          string `json:"type"`
	Content       string `json:"content"`
	Email         string `json:"email,omitempty"`
	Subject       string `json:"subject,omitempty"`
}

// ToMap converts the payload to a map for storage
func (p NotifyJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"member_id":      p.MemberID,
		"application_id": p.ApplicationID,
		"type":           p.Type,
		"content":        p.Content,
		"email":          p.Email,
		"subject":        p.Subject,
	}
}

// NotifyJobPayloadFromMap creates a payload from a map
func NotifyJobPayloadFromMap(data map[string]interface{}) (*NotifyJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload NotifyJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
