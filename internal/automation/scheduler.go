package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// Job is one scheduled task.
type Job struct {
	Name     string
	Schedule cron.Schedule
	Run      func(ctx context.Context)

	next time.Time
}

// Next returns the job's next activation time. It is zero until the
// scheduler has started.
func (j *Job) Next() time.Time {
	return j.next
}

// Scheduler is a cooperative polling loop. Every interval it runs all due
// jobs one at a time, so jobs never overlap. A job that falls behind runs
// once, not once per missed activation.
type Scheduler struct {
	interval time.Duration
	logger   logrus.FieldLogger
	now      func() time.Time

	jobs    []*Job
	started bool
}

// NewScheduler returns a scheduler that polls every interval.
func NewScheduler(interval time.Duration, logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		interval: interval,
		logger:   logger.WithField("component", "scheduler"),
		now:      time.Now,
	}
}

// Add registers run under name with a cron expression. Standard five-field
// expressions and descriptors ("@daily", "@every 4h") are accepted.
func (s *Scheduler) Add(name, spec string, run func(ctx context.Context)) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	job := &Job{Name: name, Schedule: sched, Run: run}
	if s.started {
		job.next = sched.Next(s.now())
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Jobs returns the registered jobs in registration order.
func (s *Scheduler) Jobs() []*Job {
	return s.jobs
}

// start computes each job's first activation from the current time.
func (s *Scheduler) start() {
	now := s.now()
	for _, j := range s.jobs {
		j.next = j.Schedule.Next(now)
		s.logger.WithFields(logrus.Fields{"job": j.Name, "next": j.next}).Info("job scheduled")
	}
	s.started = true
}

// RunPending runs every job whose activation time has passed and returns how
// many ran. Each job's next activation is computed after it finishes.
func (s *Scheduler) RunPending(ctx context.Context) int {
	if !s.started {
		s.start()
	}
	ran := 0
	for _, j := range s.jobs {
		if ctx.Err() != nil {
			return ran
		}
		if s.now().Before(j.next) {
			continue
		}
		logger := s.logger.WithField("job", j.Name)
		logger.Info("running job")
		start := time.Now()
		j.Run(ctx)
		j.next = j.Schedule.Next(s.now())
		ran++
		logger.WithFields(logrus.Fields{"duration": time.Since(start), "next": j.next}).Info("job finished")
	}
	return ran
}

// Run polls until ctx is cancelled. It never returns on its own.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.started {
		s.start()
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunPending(ctx)
		}
	}
}

// Scheduler returns a scheduler holding d's three recurring operations,
// timed by the schedule section of its config.
func (d *Driver) Scheduler() (*Scheduler, error) {
	s := NewScheduler(d.cfg.PollInterval.Duration, d.logger)
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context)
	}{
		{"cost_analysis", d.cfg.Schedule.CostAnalysis, func(ctx context.Context) { d.RunCostAnalysis(ctx) }},
		{"usage_monitoring", d.cfg.Schedule.UsageMonitoring, func(ctx context.Context) { d.RunUsageMonitoring(ctx) }},
		{"service_audit", d.cfg.Schedule.ServiceAudit, func(ctx context.Context) { d.RunServiceAudit(ctx) }},
	}
	for _, j := range jobs {
		if err := s.Add(j.name, j.spec, j.run); err != nil {
			return nil, err
		}
	}
	return s, nil
}
