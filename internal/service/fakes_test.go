package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"courtbook/api/internal/models"
	"courtbook/api/internal/repository"
)

// In-memory store doubles mirroring the postgres repositories closely
// enough to exercise the service rules without a database.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[int64]*models.User{}}
}

func (f *fakeUserStore) Create(ctx context.Context, user models.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.Email {
			return 0, repository.ErrDuplicateEmail
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.byID[user.ID] = &user
	return user.ID, nil
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return *u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int64) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return *u, nil
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) RecordLoginFailure(ctx context.Context, id int64, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return 0, nil, repository.ErrUserNotFound
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= threshold {
		until := time.Now().Add(lockFor)
		u.LockedUntil = &until
	}
	return u.FailedLoginAttempts, u.LockedUntil, nil
}

func (f *fakeUserStore) ResetLoginFailures(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
	}
	return nil
}

func (f *fakeUserStore) MarkVerified(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsVerified = true
	return nil
}

type fakeSessionStore struct {
	mu      sync.Mutex
	byToken map[string]*models.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{byToken: map[string]*models.Session{}}
}

func (f *fakeSessionStore) Create(ctx context.Context, session models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.CreatedAt = time.Now()
	f.byToken[session.Token] = &session
	return nil
}

func (f *fakeSessionStore) FindActiveByToken(ctx context.Context, token string) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byToken[token]
	if !ok || !s.Live(time.Now()) {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return *s, nil
}

func (f *fakeSessionStore) FindActiveByRefreshToken(ctx context.Context, refreshToken string) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, s := range f.byToken {
		if s.RefreshToken == refreshToken && s.IsActive && now.Before(s.RefreshExpiresAt) {
			return *s, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (f *fakeSessionStore) Deactivate(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byToken[token]; ok {
		s.IsActive = false
	}
	return nil
}

func (f *fakeSessionStore) DeactivateAllForUser(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byToken {
		if s.UserID == userID {
			s.IsActive = false
		}
	}
	return nil
}

type fakeChallengeStore struct {
	mu         sync.Mutex
	challenges []*models.OTPChallenge
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{}
}

func (f *fakeChallengeStore) CreateInvalidatingPrior(ctx context.Context, challenge models.OTPChallenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.challenges {
		if c.UserID == challenge.UserID && c.Purpose == challenge.Purpose && !c.Used {
			c.Used = true
		}
	}
	challenge.CreatedAt = time.Now()
	f.challenges = append(f.challenges, &challenge)
	return nil
}

func (f *fakeChallengeStore) FindLive(ctx context.Context, userID int64, code string, purpose models.OTPPurpose) (models.OTPChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var live []*models.OTPChallenge
	now := time.Now()
	for _, c := range f.challenges {
		if c.UserID == userID && c.Code == code && c.Purpose == purpose && !c.Used && !c.Expired(now) {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		return models.OTPChallenge{}, repository.ErrChallengeNotFound
	}
	sort.Slice(live, func(i, j int) bool { return live[i].CreatedAt.After(live[j].CreatedAt) })
	return *live[0], nil
}

func (f *fakeChallengeStore) PenalizeGuesses(ctx context.Context, userID int64, purpose models.OTPPurpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, c := range f.challenges {
		if c.UserID == userID && c.Purpose == purpose && !c.Used && !c.Expired(now) {
			c.Attempts++
		}
	}
	return nil
}

func (f *fakeChallengeStore) Consume(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.challenges {
		if c.ID == id && !c.Used {
			c.Used = true
			return nil
		}
	}
	return repository.ErrChallengeNotFound
}

func (f *fakeChallengeStore) Retire(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.challenges {
		if c.ID == id {
			c.Used = true
		}
	}
	return nil
}

type fakeCooldownStore struct {
	mu      sync.Mutex
	records map[string]models.RateLimitRecord
}

func newFakeCooldownStore() *fakeCooldownStore {
	return &fakeCooldownStore{records: map[string]models.RateLimitRecord{}}
}

func (f *fakeCooldownStore) Reserve(ctx context.Context, email string, cooldown time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	if record, ok := f.records[email]; ok && now.Before(record.LastSentAt.Add(cooldown)) {
		return false, nil
	}
	f.records[email] = models.RateLimitRecord{
		Email:      email,
		LastSentAt: now,
		ResetAt:    now.Add(cooldown),
	}
	return true, nil
}

func (f *fakeCooldownStore) Get(ctx context.Context, email string) (models.RateLimitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[email]
	if !ok {
		return models.RateLimitRecord{}, repository.ErrRateLimitNotFound
	}
	return record, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (f *fakeAuditStore) Insert(ctx context.Context, entry models.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) ListRecent(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AuditEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	codes []string
	err   error
}

func (f *fakeMailer) SendOTP(ctx context.Context, email string, code string, purpose models.OTPPurpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	f.codes = append(f.codes, code)
	return nil
}
