package jobqueue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/sanghsetu/memberdesk/app/models"
	metrics "github.com/sanghsetu/memberdesk/internal/pkg/metrics/counter"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue:  NewQueue(3),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	// Flush batched status-view counters to MySQL every minute
	m.counterFlushTicker = time.NewTicker(1 * time.Minute)
	m.wg.Add(1)
	go m.counterFlushWorker()
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks")
	close(m.stopCh)
	m.running = false

	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}

	m.queue.Stop()
	m.wg.Wait()
}

// counterFlushWorker periodically drains the Redis view counters to MySQL
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			// Final flush so counts survive a restart
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Final counter flush failed: %v", err)
			}
			return
		case <-m.counterFlushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush failed: %v", err)
			}
		}
	}
}

// processFlushCountersJob allows an explicit flush via the queue (admin action)
func (q *Queue) processFlushCountersJob(job *Job) error {
	_ = job
	return metrics.FlushAll()
}

// EnqueueSave queues a write-behind save of the full application snapshot.
// Satisfies the appstore.PendingQueue interface.
func (m *Manager) EnqueueSave(app *models.Application) error {
	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("failed to marshal application for member %d: %w", app.MemberID, err)
	}
	payload := SaveApplicationJobPayload{
		MemberID:        app.MemberID,
		ApplicationJSON: string(data),
	}
	_, err = m.queue.EnqueueJob(JobTypeSaveApplication, payload.ToMap())
	return err
}

// EnqueueNotification queues an in-portal notification plus optional email.
func (m *Manager) EnqueueNotification(jobType JobType, payload NotifyJobPayload) error {
	_, err := m.queue.EnqueueJob(jobType, payload.ToMap())
	return err
}
