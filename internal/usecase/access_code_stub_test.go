package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/core/port"
	"github.com/VickyKR37/autobook/internal/repository"
)

// memoryProfileRepository keeps profiles in memory and mirrors the store's conflict semantics.
type memoryProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]domain.UserProfile

	createErr  error
	setErr     error
	findErr    error
	getErr     error
	createCall int
	setCalls   int
	findCalls  int
}

func newMemoryProfileRepository() *memoryProfileRepository {
	return &memoryProfileRepository{profiles: make(map[string]domain.UserProfile)}
}

func (m *memoryProfileRepository) Create(_ context.Context, profile domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCall++
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.profiles[profile.AccountID]; ok {
		return repository.ErrAlreadyExists
	}
	for _, existing := range m.profiles {
		if existing.Email == profile.Email {
			return repository.ErrEmailTaken
		}
	}
	m.profiles[profile.AccountID] = profile
	return nil
}

func (m *memoryProfileRepository) SetHashedAccessCode(_ context.Context, accountID string, hashed string, issuedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	profile, ok := m.profiles[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	profile.HashedAccessCode = hashed
	at := issuedAt
	profile.AccessCodeIssuedAt = &at
	m.profiles[accountID] = profile
	return nil
}

func (m *memoryProfileRepository) FindByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, profile := range m.profiles {
		if profile.Email == strings.ToLower(strings.TrimSpace(email)) {
			copy := profile
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *memoryProfileRepository) GetByAccountID(_ context.Context, accountID string) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	profile, ok := m.profiles[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := profile
	return &copy, nil
}

func (m *memoryProfileRepository) put(profile domain.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.AccountID] = profile
}

func (m *memoryProfileRepository) get(accountID string) (domain.UserProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[accountID]
	return profile, ok
}

// stubHasher is a transparent stand-in for the slow hasher.
type stubHasher struct {
	mu          sync.Mutex
	hashErr     error
	verifyErr   error
	hashCalls   int
	verifyCalls int
}

func (h *stubHasher) Hash(code string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hashCalls++
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + code, nil
}

func (h *stubHasher) Verify(code, encoded string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.verifyCalls++
	if h.verifyErr != nil {
		return false, h.verifyErr
	}
	return encoded == "hashed:"+code, nil
}

// sequenceGenerator hands out predefined codes in order.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	err   error
	calls int
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	if g.calls >= len(g.codes) {
		return "", errors.New("sequence exhausted")
	}
	code := g.codes[g.calls]
	g.calls++
	return code, nil
}

type recordingPublisher struct {
	mu          sync.Mutex
	regenerated []domain.AccessCodeRegeneratedEvent
	attempts    []domain.MechanicAccessAttemptEvent
	err         error
}

func (p *recordingPublisher) PublishAccessCodeRegenerated(_ context.Context, event domain.AccessCodeRegeneratedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regenerated = append(p.regenerated, event)
	return p.err
}

func (p *recordingPublisher) PublishMechanicAccessAttempt(_ context.Context, event domain.MechanicAccessAttemptEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts = append(p.attempts, event)
	return p.err
}

type recordingMetrics struct {
	issued      map[string]int
	validations map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{issued: map[string]int{}, validations: map[string]int{}}
}

func (m *recordingMetrics) ObserveIssued(trigger string)     { m.issued[trigger]++ }
func (m *recordingMetrics) ObserveValidation(outcome string) { m.validations[outcome]++ }

type fakeRateLimitStore struct {
	mu          sync.Mutex
	count       int
	oldest      time.Time
	allowErr    error
	recordCalls int
	lastKey     string
}

func (f *fakeRateLimitStore) Allow(_ context.Context, identifier string, limit int, _ time.Duration, now time.Time) (port.RateLimitDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastKey = identifier
	if f.allowErr != nil {
		return port.RateLimitDecision{}, f.allowErr
	}
	if f.count >= limit {
		return port.RateLimitDecision{Count: f.count, Oldest: f.oldest}, nil
	}
	f.recordCalls++
	f.count++
	if f.oldest.IsZero() {
		f.oldest = now
	}
	return port.RateLimitDecision{Allowed: true, Count: f.count, Oldest: f.oldest}, nil
}
