// Package scheduler drives the recurring broadcast pipeline. Independent
// cron entries tick at minute, hour and day granularity; each tick selects
// the live campaigns whose schedule type matches, evaluates their compiled
// trigger rules and runs the due ones.
package scheduler

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/molevo/broadcast-backend/internal/model"
	"github.com/molevo/broadcast-backend/internal/repository"
	"github.com/molevo/broadcast-backend/internal/schedule"
)

// CampaignRunner executes the send pipeline for one due campaign.
type CampaignRunner interface {
	Run(c *model.Campaign) error
}

type Scheduler struct {
	Campaigns repository.CampaignRepositoryInterface
	Runner    CampaignRunner
	Log       *zap.Logger

	// DailyHour is the local hour of the daily tick.
	DailyHour int

	// Now is swappable in tests.
	Now func() time.Time

	c *cron.Cron
}

func New(campaigns repository.CampaignRepositoryInterface, runner CampaignRunner, dailyHour int, log *zap.Logger) *Scheduler {
	return &Scheduler{
		Campaigns: campaigns,
		Runner:    runner,
		Log:       log,
		DailyHour: dailyHour,
		Now:       time.Now,
	}
}

// Start registers the tick entries and starts the cron loop. Each job runs
// in its own goroutine, so an overrunning tick never delays the next timer.
func (s *Scheduler) Start() error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.c = cron.New(cron.WithParser(parser))

	// offsets keep the three granularities from ticking at the same instant
	entries := []struct {
		spec string
		job  func()
	}{
		{"1 * * * * *", s.MinuteTick},
		{"10 10 * * * *", s.HourTick},
		{fmt.Sprintf("20 20 %d * * *", s.DailyHour), s.DailyTick},
	}
	for _, e := range entries {
		if _, err := s.c.AddFunc(e.spec, e.job); err != nil {
			return err
		}
	}

	s.c.Start()
	return nil
}

func (s *Scheduler) Stop() {
	if s.c != nil {
		s.c.Stop()
	}
}

func (s *Scheduler) MinuteTick() {
	now := s.Now()
	tick := schedule.Tick{At: now, Granularity: schedule.Minute}
	s.runTick(tick, []string{"minute"})
}

func (s *Scheduler) HourTick() {
	now := s.Now()
	tick := schedule.Tick{At: now, Granularity: schedule.Hour}
	s.runTick(tick, []string{"hour"})
}

// DailyTick also covers the day-of-month, month and year candidates, then
// stamps lastRunAt in one batch for the month/year campaigns that fired.
func (s *Scheduler) DailyTick() {
	now := s.Now()
	tick := schedule.Tick{At: now, Granularity: schedule.Day}
	types := []string{"day", strconv.Itoa(now.Day()), "month", "year"}

	fired := s.runTick(tick, types)

	stamp := []int64{}
	for _, c := range fired {
		if c.StampsLastRun() {
			stamp = append(stamp, c.ID)
		}
	}
	if err := s.Campaigns.MarkLastRun(stamp, now); err != nil {
		s.Log.Error("failed to stamp lastRunAt", zap.Int64s("campaign_ids", stamp), zap.Error(err))
	}
}

// runTick evaluates and runs all due candidates concurrently. Failures are
// isolated per campaign: one broken campaign never aborts the tick. The
// returned slice lists the campaigns that actually fired.
func (s *Scheduler) runTick(tick schedule.Tick, types []string) []*model.Campaign {
	candidates, err := s.Campaigns.DueForTypes(types)
	if err != nil {
		s.Log.Error("due campaign query failed", zap.Strings("types", types), zap.Error(err))
		return nil
	}

	s.Log.Debug("tick",
		zap.String("granularity", string(tick.Granularity)),
		zap.Int("candidates", len(candidates)))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fired []*model.Campaign
	)

	for _, candidate := range candidates {
		rule, err := schedule.Compile(candidate.ScheduleDate)
		if err != nil {
			s.Log.Warn("skipping campaign with bad schedule",
				zap.Int64("campaign_id", candidate.ID), zap.Error(err))
			continue
		}
		if !rule.Due(tick, candidate.LastRunAt) {
			continue
		}

		wg.Add(1)
		go func(c *model.Campaign) {
			defer wg.Done()
			if err := s.runCampaign(c); err != nil {
				s.Log.Error("campaign run failed", zap.Int64("campaign_id", c.ID), zap.Error(err))
				return
			}
			mu.Lock()
			fired = append(fired, c)
			mu.Unlock()
		}(candidate)
	}

	wg.Wait()
	return fired
}

func (s *Scheduler) runCampaign(c *model.Campaign) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic running campaign %d: %v", c.ID, r)
		}
	}()
	return s.Runner.Run(c)
}
