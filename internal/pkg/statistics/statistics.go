package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/soundhaven/soundhaven/app/models"
	"github.com/soundhaven/soundhaven/internal/pkg/cache"
	"github.com/soundhaven/soundhaven/internal/pkg/database"
)

const (
	CacheKeyTracksTotal = "statistics:tracks:total"
	CacheKeyPlaysDaily  = "statistics:plays:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers       = "statistics:users:total"
	CacheExpiration     = 30 * time.Minute
)

// StatisticsData holds the aggregate counters shown on the landing page.
type StatisticsData struct {
	TodayPlays  int
	TotalUsers  int
	TotalTracks int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached counters are stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached counters when the interval expired.
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

// ResetCacheUpdateTimer forces the next read to refresh the cache.
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalTracks int64
	if err := db.Model(&models.Track{}).Count(&totalTracks).Error; err != nil {
		log.Printf("Error counting total tracks: %v", err)
		return err
	}

	var todayPlays int64
	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.PlayEvent{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayPlays).Error; err != nil {
		log.Printf("Error counting today's plays: %v", err)
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyTracksTotal, strconv.FormatInt(totalTracks, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total tracks: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyPlaysDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayPlays, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's plays: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}

	return nil
}

// GetTotalTracks returns the total number of tracks from cache or database
func GetTotalTracks() int {
	val, err := cache.Get(CacheKeyTracksTotal)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.Track{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total tracks: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyTracksTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total tracks: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTodayPlays returns the number of plays registered today from cache or database
func GetTodayPlays() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyPlaysDaily, today)

	val, err := cache.Get(dailyKey)
	if err != nil {
		var count int64
		db := database.GetDB()
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)

		if err := db.Model(&models.PlayEvent{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error; err != nil {
			log.Printf("Error counting today's plays: %v", err)
			return 0
		}

		if err := cache.Set(dailyKey, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching today's plays: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	val, err := cache.Get(CacheKeyUsers)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total users: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyUsers, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total users: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetStatisticsData returns all statistics data as StatisticsData structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TodayPlays:  GetTodayPlays(),
		TotalUsers:  GetTotalUsers(),
		TotalTracks: GetTotalTracks(),
	}
}
