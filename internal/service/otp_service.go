package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"courtbook/api/internal/config"
	"courtbook/api/internal/ids"
	"courtbook/api/internal/mailer"
	"courtbook/api/internal/models"
	"courtbook/api/internal/repository"
	"courtbook/api/internal/security"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidOTPPurpose   = errors.New("invalid otp purpose")
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired otp")
	ErrMaxAttemptsExceeded = errors.New("max otp attempts exceeded")
)

// RateLimitedError reports a throttled issuance along with the wait the
// client should render.
type RateLimitedError struct {
	SecondsLeft int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %ds", e.SecondsLeft)
}

type ChallengeStore interface {
	CreateInvalidatingPrior(ctx context.Context, challenge models.OTPChallenge) error
	FindLive(ctx context.Context, userID int64, code string, purpose models.OTPPurpose) (models.OTPChallenge, error)
	PenalizeGuesses(ctx context.Context, userID int64, purpose models.OTPPurpose) error
	Consume(ctx context.Context, id string) error
	Retire(ctx context.Context, id string) error
}

type CooldownStore interface {
	Reserve(ctx context.Context, email string, cooldown time.Duration) (bool, error)
	Get(ctx context.Context, email string) (models.RateLimitRecord, error)
}

type OTPService struct {
	users      UserStore
	challenges ChallengeStore
	cooldowns  CooldownStore
	mail       mailer.Mailer
	audit      *AuditRecorder
	cfg        *config.AppConfig
	log        zerolog.Logger
}

func NewOTPService(
	users UserStore,
	challenges ChallengeStore,
	cooldowns CooldownStore,
	mail mailer.Mailer,
	audit *AuditRecorder,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *OTPService {
	return &OTPService{
		users:      users,
		challenges: challenges,
		cooldowns:  cooldowns,
		mail:       mail,
		audit:      audit,
		cfg:        cfg,
		log:        log,
	}
}

type GenerateResult struct {
	// Code is set only outside production, for interactive and test flows.
	Code      string
	ExpiresAt time.Time
}

// Generate issues a fresh challenge for (email, purpose), retiring any
// prior unused challenge of the same purpose. Mail dispatch is fired off
// asynchronously; a delivery failure is logged, never surfaced, because the
// challenge was still validly created.
func (s *OTPService) Generate(ctx context.Context, email string, purpose models.OTPPurpose, client ClientContext) (GenerateResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !models.ValidOTPPurpose(purpose) {
		return GenerateResult{}, ErrInvalidOTPPurpose
	}

	reserved, err := s.cooldowns.Reserve(ctx, email, s.cfg.OTP.Cooldown)
	if err != nil {
		return GenerateResult{}, err
	}
	if !reserved {
		return GenerateResult{}, &RateLimitedError{SecondsLeft: s.secondsLeft(ctx, email)}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return GenerateResult{}, ErrUserNotFound
		}
		return GenerateResult{}, err
	}

	code, err := security.GenerateOTPCode()
	if err != nil {
		return GenerateResult{}, err
	}

	challenge := models.OTPChallenge{
		ID:          ids.New(),
		UserID:      user.ID,
		Code:        code,
		Purpose:     purpose,
		MaxAttempts: s.cfg.OTP.MaxAttempts,
		ExpiresAt:   time.Now().Add(s.cfg.OTP.TTL),
	}
	if err := s.challenges.CreateInvalidatingPrior(ctx, challenge); err != nil {
		return GenerateResult{}, err
	}

	s.audit.Record(ctx, &user.ID, models.AuditActionOTPGenerate, client, true, string(purpose))

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.mail.SendOTP(sendCtx, email, code, purpose); err != nil {
			s.log.Error().Err(err).Str("email", email).Str("purpose", string(purpose)).
				Msg("otp mail dispatch failed")
		}
	}()

	result := GenerateResult{ExpiresAt: challenge.ExpiresAt}
	if !s.cfg.Production() {
		result.Code = code
	}
	return result, nil
}

// Verify consumes a challenge. Wrong codes charge the guess budget of every
// live challenge for the pair; a challenge whose budget is spent dies even
// when the submitted code is right.
func (s *OTPService) Verify(ctx context.Context, email string, code string, purpose models.OTPPurpose, client ClientContext) (int64, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !models.ValidOTPPurpose(purpose) {
		return 0, ErrInvalidOTPPurpose
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrInvalidOrExpiredOTP
		}
		return 0, err
	}

	challenge, err := s.challenges.FindLive(ctx, user.ID, code, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrChallengeNotFound) {
			if penErr := s.challenges.PenalizeGuesses(ctx, user.ID, purpose); penErr != nil {
				s.log.Error().Err(penErr).Int64("user_id", user.ID).Msg("penalize otp guesses")
			}
			s.audit.Record(ctx, &user.ID, models.AuditActionOTPVerify, client, false, "code mismatch")
			return 0, ErrInvalidOrExpiredOTP
		}
		return 0, err
	}

	if challenge.Exhausted() {
		if err := s.challenges.Retire(ctx, challenge.ID); err != nil {
			s.log.Error().Err(err).Str("challenge_id", challenge.ID).Msg("retire exhausted challenge")
		}
		s.audit.Record(ctx, &user.ID, models.AuditActionOTPVerify, client, false, "attempts exhausted")
		return 0, ErrMaxAttemptsExceeded
	}

	// Consume is single-shot at the store; losing a race to another
	// verifier of the same code reads the same as a dead challenge.
	if err := s.challenges.Consume(ctx, challenge.ID); err != nil {
		if errors.Is(err, repository.ErrChallengeNotFound) {
			s.audit.Record(ctx, &user.ID, models.AuditActionOTPVerify, client, false, "challenge already consumed")
			return 0, ErrInvalidOrExpiredOTP
		}
		return 0, err
	}

	if purpose == models.OTPPurposeEmailVerification {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return 0, err
		}
	}

	s.audit.Record(ctx, &user.ID, models.AuditActionOTPVerify, client, true, string(purpose))
	return user.ID, nil
}

type StatusResult struct {
	CanRequest  bool
	SecondsLeft int
}

// Status is a read-only cooldown check for countdown rendering.
func (s *OTPService) Status(ctx context.Context, email string) (StatusResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	record, err := s.cooldowns.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrRateLimitNotFound) {
			return StatusResult{CanRequest: true}, nil
		}
		return StatusResult{}, err
	}

	now := time.Now()
	return StatusResult{
		CanRequest:  CanIssue(record, now, s.cfg.OTP.Cooldown),
		SecondsLeft: SecondsLeft(record, now, s.cfg.OTP.Cooldown),
	}, nil
}

func (s *OTPService) secondsLeft(ctx context.Context, email string) int {
	record, err := s.cooldowns.Get(ctx, email)
	if err != nil {
		return int(s.cfg.OTP.Cooldown.Seconds())
	}
	left := SecondsLeft(record, time.Now(), s.cfg.OTP.Cooldown)
	if left <= 0 {
		left = 1
	}
	return left
}
