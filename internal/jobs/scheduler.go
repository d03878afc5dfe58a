package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"courtbook/api/internal/repository"
)

// Scheduler runs the storage hygiene sweeps. Correctness never depends on
// them: every read already filters on expiry, the reaper only reclaims
// rows.
type Scheduler struct {
	cron     *cron.Cron
	sessions *repository.SessionRepository
	otps     *repository.OTPRepository
	log      zerolog.Logger
}

func NewScheduler(sessions *repository.SessionRepository, otps *repository.OTPRepository, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sessions: sessions,
		otps:     otps,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 */15 * * * *", s.purgeSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 */5 * * * *", s.purgeChallenges); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for in-flight sweeps, bounded so shutdown cannot hang on a
// stuck delete.
func (s *Scheduler) Stop() {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("session purge failed")
		return
	}
	if removed > 0 {
		s.log.Debug().Int64("removed", removed).Msg("expired sessions purged")
	}
}

func (s *Scheduler) purgeChallenges() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.otps.DeleteDead(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("otp purge failed")
		return
	}
	if removed > 0 {
		s.log.Debug().Int64("removed", removed).Msg("dead otp challenges purged")
	}
}
