package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"weathertracker/internal/weather"
	"weathertracker/pkg/logger"
)

// systemUser attributes scheduler-driven observations. Telegram ids of real
// users are always positive.
var systemUser = weather.User{TelegramID: 0}

// Scheduler periodically fetches weather for configured cities through the
// full provider chain, keeping history warm and feeding websocket clients.
type Scheduler struct {
	scheduler *gocron.Scheduler
	provider  weather.Provider
	cities    []string
	interval  time.Duration
	log       *zap.SugaredLogger
}

// New creates a new Scheduler.
func New(cities []string, interval time.Duration, provider weather.Provider) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		provider:  provider,
		cities:    cities,
		interval:  interval,
		log:       logger.Get().With("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		s.log.Info("no cities configured, nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.log.Debug("running weather fetch job")

		var wg sync.WaitGroup
		for _, city := range s.cities {
			city := city
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if _, err := s.provider.Fetch(ctx, city, systemUser); err != nil {
					s.log.Warnw("scheduled fetch failed", "city", city, "error", err)
				}
			}()
		}
		wg.Wait()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
