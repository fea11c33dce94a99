package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job names, also used as metric labels.
const (
	JobScheduledPayouts = "scheduled_payouts"
	JobOTPPurge         = "otp_purge"
)

// jobTimeout bounds one run so a hung store cannot stall the next tick forever.
const jobTimeout = 5 * time.Minute

type ScheduledRunner interface {
	RunDueScheduled(ctx context.Context, limit int) (int, error)
}

type OTPPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type JobObserver interface {
	ObserveJob(job string, err error)
}

// Config holds the cron schedules. They accept the robfig descriptors such as "@every 1m".
type Config struct {
	ScheduledPayouts string
	OTPPurge         string
	BatchSize        int
}

// Scheduler drives the engine's background work: releasing delayed payouts whose
// window elapsed and purging dead OTPs.
type Scheduler struct {
	cron     *cron.Cron
	payouts  ScheduledRunner
	otps     OTPPurger
	observer JobObserver
	cfg      Config
	log      zerolog.Logger
}

func New(payouts ScheduledRunner, otps OTPPurger, observer JobObserver, cfg Config, baseLogger *zerolog.Logger) *Scheduler {
	log := baseLogger.With().Str("component", "scheduler").Logger()
	cronLog := cronLogger{log: log}
	c := cron.New(cron.WithChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	))
	return &Scheduler{
		cron:     c,
		payouts:  payouts,
		otps:     otps,
		observer: observer,
		cfg:      cfg,
		log:      log,
	}
}

// Start registers the jobs and starts the cron loop. An invalid schedule is an error;
// an empty schedule disables the job.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		expr string
		run  func()
	}{
		{JobScheduledPayouts, s.cfg.ScheduledPayouts, s.RunScheduledPayouts},
		{JobOTPPurge, s.cfg.OTPPurge, s.PurgeOTPs},
	}
	for _, j := range jobs {
		if j.expr == "" {
			s.log.Warn().Str("job", j.name).Msg("Job disabled (empty schedule)")
			continue
		}
		if _, err := s.cron.AddFunc(j.expr, j.run); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", j.name, j.expr, err)
		}
		s.log.Info().Str("job", j.name).Str("schedule", j.expr).Msg("Job scheduled")
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunScheduledPayouts executes every scheduled payout whose delay has elapsed.
func (s *Scheduler) RunScheduledPayouts() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.payouts.RunDueScheduled(ctx, s.cfg.BatchSize)
	s.observe(JobScheduledPayouts, err)
	if err != nil {
		s.log.Error().Err(err).Int("processed", n).Msg("Scheduled payout run failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("processed", n).Msg("Scheduled payouts released")
	}
}

// PurgeOTPs deletes expired one-time codes.
func (s *Scheduler) PurgeOTPs() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.otps.PurgeExpired(ctx)
	s.observe(JobOTPPurge, err)
	if err != nil {
		s.log.Error().Err(err).Msg("OTP purge failed")
		return
	}
	s.log.Debug().Int64("purged", n).Msg("Expired OTPs purged")
}

func (s *Scheduler) observe(job string, err error) {
	if s.observer != nil {
		s.observer.ObserveJob(job, err)
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
