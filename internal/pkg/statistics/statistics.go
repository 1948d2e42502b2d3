package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/internal/pkg/cache"
	"github.com/sanghsetu/memberdesk/internal/pkg/database"
)

const (
	CacheKeyMembersTotal      = "statistics:members:total"
	CacheKeyApplicationsTotal = "statistics:applications:total"
	CacheKeyApplicationsDaily = "statistics:applications:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyStatusCount       = "statistics:applications:status:%s"
	CacheKeyPendingStage      = "statistics:applications:pending:%s"
	CacheExpiration           = 30 * time.Minute
)

// StatisticsData holds the aggregate figures shown on the admin dashboard
type StatisticsData struct {
	TotalMembers      int            `json:"total_members"`
	TotalApplications int            `json:"total_applications"`
	TodaySubmissions  int            `json:"today_submissions"`
	ByStatus          map[string]int `json:"by_status"`
	PendingByStage    map[string]int `json:"pending_by_stage"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cached figures are due for a refresh
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when the interval has elapsed
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next read to refresh the cache
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// trackedStatuses are the application statuses reported on the dashboard
var trackedStatuses = []string{
	models.AppStatusDraft,
	models.AppStatusBlockReview,
	models.AppStatusDistrictReview,
	models.AppStatusStateReview,
	models.AppStatusApproved,
	models.AppStatusPaymentPending,
	models.AppStatusActive,
	models.AppStatusRejected,
}

// UpdateStatisticsCache recomputes all dashboard figures and stores them in Redis
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalMembers int64
	if err := db.Model(&models.Member{}).Count(&totalMembers).Error; err != nil {
		log.Printf("Error counting members: %v", err)
		return err
	}

	var totalApplications int64
	if err := db.Model(&models.Application{}).Count(&totalApplications).Error; err != nil {
		log.Printf("Error counting applications: %v", err)
		return err
	}

	// Count today's submissions
	var todaySubmissions int64
	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.Application{}).Where("submitted_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todaySubmissions).Error; err != nil {
		log.Printf("Error counting today's submissions: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyMembersTotal, strconv.FormatInt(totalMembers, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyApplicationsTotal, strconv.FormatInt(totalApplications, 10), CacheExpiration); err != nil {
		return err
	}
	dailyKey := fmt.Sprintf(CacheKeyApplicationsDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todaySubmissions, 10), CacheExpiration); err != nil {
		return err
	}

	for _, status := range trackedStatuses {
		var count int64
		if err := db.Model(&models.Application{}).Where("status = ?", status).Count(&count).Error; err != nil {
			log.Printf("Error counting applications with status %s: %v", status, err)
			return err
		}
		key := fmt.Sprintf(CacheKeyStatusCount, status)
		if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			return err
		}
	}

	for _, stage := range models.OrderedStages() {
		var count int64
		if err := db.Model(&models.Application{}).Where("status = ?", models.StageReviewStatus(stage)).Count(&count).Error; err != nil {
			log.Printf("Error counting pending applications for stage %s: %v", stage, err)
			return err
		}
		key := fmt.Sprintf(CacheKeyPendingStage, stage)
		if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			return err
		}
	}

	log.Printf("Statistics updated in cache: members=%d applications=%d today=%d",
		totalMembers, totalApplications, todaySubmissions)

	return nil
}

// cachedCount reads a cached counter, falling back to the given query on a miss
func cachedCount(key string, query func() (int64, error)) int {
	val, err := cache.Get(key)
	if err != nil {
		count, qerr := query()
		if qerr != nil {
			log.Printf("Error computing statistic %s: %v", key, qerr)
			return 0
		}
		if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching statistic %s: %v", key, err)
		}
		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return int(count)
}

// GetTotalMembers returns the member count from cache or database
func GetTotalMembers() int {
	return cachedCount(CacheKeyMembersTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Member{}).Count(&count).Error
		return count, err
	})
}

// GetTotalApplications returns the application count from cache or database
func GetTotalApplications() int {
	return cachedCount(CacheKeyApplicationsTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Application{}).Count(&count).Error
		return count, err
	})
}

// GetTodaySubmissions returns the number of applications submitted today
func GetTodaySubmissions() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyApplicationsDaily, today)

	return cachedCount(dailyKey, func() (int64, error) {
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)
		var count int64
		err := database.GetDB().Model(&models.Application{}).
			Where("submitted_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error
		return count, err
	})
}

// GetStatusCount returns how many applications currently hold the given status
func GetStatusCount(status string) int {
	key := fmt.Sprintf(CacheKeyStatusCount, status)
	return cachedCount(key, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Application{}).Where("status = ?", status).Count(&count).Error
		return count, err
	})
}

// GetPendingForStage returns how many applications are waiting at the given stage
func GetPendingForStage(stage string) int {
	key := fmt.Sprintf(CacheKeyPendingStage, stage)
	return cachedCount(key, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Application{}).
			Where("status = ?", models.StageReviewStatus(stage)).Count(&count).Error
		return count, err
	})
}

// GetStatisticsData returns all dashboard figures as one structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	byStatus := make(map[string]int, len(trackedStatuses))
	for _, status := range trackedStatuses {
		byStatus[status] = GetStatusCount(status)
	}
	pending := make(map[string]int, len(models.OrderedStages()))
	for _, stage := range models.OrderedStages() {
		pending[stage] = GetPendingForStage(stage)
	}

	return StatisticsData{
		TotalMembers:      GetTotalMembers(),
		TotalApplications: GetTotalApplications(),
		TodaySubmissions:  GetTodaySubmissions(),
		ByStatus:          byStatus,
		PendingByStage:    pending,
	}
}
