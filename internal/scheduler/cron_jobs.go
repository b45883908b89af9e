package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"staking-rewards-system/internal/config"
	"staking-rewards-system/internal/service"
	"staking-rewards-system/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ErrAlreadyRunning is returned when a reward run is requested while one
// is still in flight. Scheduled ticks skip silently; manual triggers
// surface it as a conflict.
var ErrAlreadyRunning = errors.New("reward calculation already running")

type JobState string

const (
	JobStateIdle    JobState = "idle"
	JobStateRunning JobState = "running"
	JobStateError   JobState = "error"
)

const (
	JobRewardCalculation = "reward_calculation"
	JobDailyStats        = "daily_statistics"
	JobWeeklyStats       = "weekly_statistics"
	JobMonthlyStats      = "monthly_statistics"
	JobSnapshots         = "portfolio_snapshots"
)

// healthWindow is how recent the last run must be for the scheduler to
// report healthy: one daily cycle plus an hour of slack.
const healthWindow = 25 * time.Hour

type RewardRunner interface {
	RunRewardCron(ctx context.Context) service.RewardCronResult
}

type StatisticsRunner interface {
	CalculateDailyStatistics(ctx context.Context) service.BatchResult
	CalculateWeeklyStatistics(ctx context.Context) service.BatchResult
	CalculateMonthlyStatistics(ctx context.Context) service.BatchResult
}

type SnapshotRunner interface {
	CreateDailySnapshots(ctx context.Context) service.BatchResult
	CleanupOldPortfolioSnapshots(ctx context.Context) (int64, error)
}

type Status struct {
	State      JobState        `json:"state"`
	LastRun    *time.Time      `json:"last_run"`
	NextRun    *time.Time      `json:"next_run"`
	LastError  string          `json:"last_error,omitempty"`
	ActiveJobs map[string]bool `json:"active_jobs"`
}

// CronScheduler owns the job status record. All mutation goes through
// begin/finish under the mutex, so the timer ticks and concurrent manual
// triggers cannot race on it.
type CronScheduler struct {
	cron       *cron.Cron
	rewards    RewardRunner
	stats      StatisticsRunner
	snapshots  SnapshotRunner
	cfg        config.CronConfig
	runTimeout time.Duration

	mu        sync.Mutex
	state     JobState
	lastRun   *time.Time
	lastError string
	active    map[string]int
}

func NewCronScheduler(rewards RewardRunner, stats StatisticsRunner, snapshots SnapshotRunner, cfg config.CronConfig) *CronScheduler {
	timeout := time.Duration(cfg.RunTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &CronScheduler{
		cron:       cron.New(),
		rewards:    rewards,
		stats:      stats,
		snapshots:  snapshots,
		cfg:        cfg,
		runTimeout: timeout,
		state:      JobStateIdle,
		active:     make(map[string]int),
	}
}

func (s *CronScheduler) Start() error {
	jobs := []struct {
		spec string
		run  func()
	}{
		{s.cfg.RewardSchedule, s.scheduledRewardRun},
		{s.cfg.DailyStatsSchedule, s.scheduledDailyRun},
		{s.cfg.WeeklyStatsSchedule, s.scheduledWeeklyRun},
		{s.cfg.MonthlyStatsSchedule, s.scheduledMonthlyRun},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return fmt.Errorf("invalid cron schedule %q: %w", job.spec, err)
		}
	}

	s.cron.Start()
	logger.Info("Cron scheduler started")
	return nil
}

func (s *CronScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

func (s *CronScheduler) scheduledRewardRun() {
	result, err := s.TriggerRewardCalculation(context.Background())
	if errors.Is(err, ErrAlreadyRunning) {
		logger.Warn("Scheduled reward run skipped: previous run still in progress")
		return
	}
	logger.WithFields(map[string]interface{}{
		"success":          result.Success,
		"daily_processed":  result.DailyRewards.Processed,
		"compounds":        result.CompoundRewards.Processed,
		"stakes_completed": result.StakesCompleted,
		"errors":           len(result.Errors),
	}).Info("Scheduled reward run finished")
}

// scheduledDailyRun rolls up yesterday's statistics, then snapshots
// portfolios. Snapshots go last because their growth figures read state
// the statistics pass settles.
func (s *CronScheduler) scheduledDailyRun() {
	stats := s.TriggerDailyStats(context.Background())
	logger.WithFields(map[string]interface{}{
		"success":   stats.Success,
		"processed": stats.Processed,
		"errors":    len(stats.Errors),
	}).Info("Scheduled daily statistics finished")

	snapshots, deleted := s.TriggerSnapshots(context.Background())
	logger.WithFields(map[string]interface{}{
		"success":   snapshots.Success,
		"processed": snapshots.Processed,
		"purged":    deleted,
		"errors":    len(snapshots.Errors),
	}).Info("Scheduled portfolio snapshots finished")
}

func (s *CronScheduler) scheduledWeeklyRun() {
	result := s.TriggerWeeklyStats(context.Background())
	logger.WithFields(map[string]interface{}{
		"success":   result.Success,
		"processed": result.Processed,
		"errors":    len(result.Errors),
	}).Info("Scheduled weekly statistics finished")
}

func (s *CronScheduler) scheduledMonthlyRun() {
	result := s.TriggerMonthlyStats(context.Background())
	logger.WithFields(map[string]interface{}{
		"success":   result.Success,
		"processed": result.Processed,
		"errors":    len(result.Errors),
	}).Info("Scheduled monthly statistics finished")
}

// TriggerRewardCalculation runs the reward cron synchronously. At most
// one run may be in flight; a second request is refused, not queued.
func (s *CronScheduler) TriggerRewardCalculation(ctx context.Context) (service.RewardCronResult, error) {
	if !s.begin(JobRewardCalculation, true) {
		return service.RewardCronResult{}, ErrAlreadyRunning
	}

	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	result := s.rewards.RunRewardCron(ctx)
	if ctx.Err() != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("run aborted: %v", ctx.Err()))
	}

	s.finish(JobRewardCalculation, result.Success, len(result.Errors))
	return result, nil
}

// Statistics triggers carry no run lock; the per-period skip-if-exists
// checks make overlapping runs harmless.
func (s *CronScheduler) TriggerDailyStats(ctx context.Context) service.BatchResult {
	return s.runStats(ctx, JobDailyStats, s.stats.CalculateDailyStatistics)
}

func (s *CronScheduler) TriggerWeeklyStats(ctx context.Context) service.BatchResult {
	return s.runStats(ctx, JobWeeklyStats, s.stats.CalculateWeeklyStatistics)
}

func (s *CronScheduler) TriggerMonthlyStats(ctx context.Context) service.BatchResult {
	return s.runStats(ctx, JobMonthlyStats, s.stats.CalculateMonthlyStatistics)
}

func (s *CronScheduler) runStats(ctx context.Context, job string, run func(context.Context) service.BatchResult) service.BatchResult {
	s.begin(job, false)

	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	result := run(ctx)
	if ctx.Err() != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("run aborted: %v", ctx.Err()))
	}

	s.finish(job, result.Success, len(result.Errors))
	return result
}

// TriggerSnapshots creates today's snapshots and then purges expired
// ones; the purge count is returned alongside the batch result.
func (s *CronScheduler) TriggerSnapshots(ctx context.Context) (service.BatchResult, int64) {
	s.begin(JobSnapshots, false)

	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	result := s.snapshots.CreateDailySnapshots(ctx)

	deleted, err := s.snapshots.CleanupOldPortfolioSnapshots(ctx)
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("snapshot cleanup failed: %v", err))
	}
	if ctx.Err() != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("run aborted: %v", ctx.Err()))
	}

	s.finish(JobSnapshots, result.Success, len(result.Errors))
	return result, deleted
}

// begin and finish track overlapping runs per job by count, so one
// run finishing cannot mark a still-running sibling as done.
func (s *CronScheduler) begin(job string, exclusive bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exclusive && s.active[job] > 0 {
		return false
	}
	s.active[job]++
	s.state = JobStateRunning
	return true
}

func (s *CronScheduler) finish(job string, success bool, errCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active[job]--
	if s.active[job] <= 0 {
		delete(s.active, job)
	}
	now := time.Now().UTC()
	s.lastRun = &now

	if !success {
		s.state = JobStateError
		s.lastError = fmt.Sprintf("%s finished with %d errors", job, errCount)
		return
	}
	if len(s.active) == 0 {
		s.state = JobStateIdle
		s.lastError = ""
	}
}

func (s *CronScheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := map[string]bool{
		JobRewardCalculation: s.active[JobRewardCalculation] > 0,
		JobDailyStats:        s.active[JobDailyStats] > 0,
		JobWeeklyStats:       s.active[JobWeeklyStats] > 0,
		JobMonthlyStats:      s.active[JobMonthlyStats] > 0,
		JobSnapshots:         s.active[JobSnapshots] > 0,
	}

	var nextRun *time.Time
	for _, entry := range s.cron.Entries() {
		next := entry.Next
		if next.IsZero() {
			continue
		}
		if nextRun == nil || next.Before(*nextRun) {
			n := next
			nextRun = &n
		}
	}

	return Status{
		State:      s.state,
		LastRun:    s.lastRun,
		NextRun:    nextRun,
		LastError:  s.lastError,
		ActiveJobs: jobs,
	}
}

// Healthy reports whether the scheduler is quiescent and has completed a
// run within the health window.
func (s *CronScheduler) Healthy() bool {
	status := s.Status()
	return status.State != JobStateRunning &&
		status.LastRun != nil &&
		time.Since(*status.LastRun) < healthWindow
}
