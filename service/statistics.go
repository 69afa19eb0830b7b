package service

import (
	"log"
	"time"

	"github.com/ariebrainware/telemed-api/model"
	cache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

const (
	snapshotKey      = "statistics:snapshot"
	snapshotLifetime = 30 * time.Second
)

var trackedStatistics = []string{
	model.StatPatients,
	model.StatDoctors,
	model.StatAppointments,
	model.StatPrescriptions,
	model.StatReviews,
}

// NewStatisticsCache returns the cache shared by Statistics values.
func NewStatisticsCache() *cache.Cache {
	return cache.New(snapshotLifetime, time.Minute)
}

// Statistics maintains the public platform counters.
type Statistics struct {
	DB    *gorm.DB
	Cache *cache.Cache
}

// Increment adds one to the named counter and drops the cached snapshot.
func (s *Statistics) Increment(name string) error {
	if err := model.IncrementStatistic(s.DB, name); err != nil {
		return err
	}
	if s.Cache != nil {
		s.Cache.Delete(snapshotKey)
	}
	return nil
}

// Record is Increment for callers that must not fail on a counter error.
// It is safe on a nil receiver.
func (s *Statistics) Record(name string) {
	if s == nil || s.DB == nil {
		return
	}
	if err := s.Increment(name); err != nil {
		log.Printf("failed to increment statistic %s: %v", name, err)
	}
}

// Snapshot returns every tracked counter, zero when never incremented.
func (s *Statistics) Snapshot() (map[string]int64, error) {
	if s.Cache != nil {
		if v, ok := s.Cache.Get(snapshotKey); ok {
			return copyCounts(v.(map[string]int64)), nil
		}
	}

	var rows []model.Statistic
	if err := s.DB.Find(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(trackedStatistics))
	for _, name := range trackedStatistics {
		counts[name] = 0
	}
	for _, r := range rows {
		counts[r.Name] = r.Total
	}

	if s.Cache != nil {
		s.Cache.Set(snapshotKey, copyCounts(counts), cache.DefaultExpiration)
	}
	return counts, nil
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
