package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/infra/security"
	"github.com/VickyKR37/autobook/internal/repository"
)

func newIssuanceFixture(t *testing.T, codes ...string) (*IssuanceService, *memoryProfileRepository, *stubHasher, *recordingPublisher) {
	t.Helper()
	profiles := newMemoryProfileRepository()
	hasher := &stubHasher{}
	events := &recordingPublisher{}
	svc := NewIssuanceService(profiles, hasher, &sequenceGenerator{codes: codes}, events, zaptest.NewLogger(t))
	return svc, profiles, hasher, events
}

func TestIssuanceService_OnAccountCreated_CreatesProfile(t *testing.T) {
	fixed := time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC)
	svc, profiles, _, _ := newIssuanceFixture(t, "AB12CD")
	svc.WithClock(func() time.Time { return fixed })
	metrics := newRecordingMetrics()
	svc.WithMetrics(metrics)

	issued, err := svc.OnAccountCreated(context.Background(), "u1", "  Owner@Example.com ")
	if err != nil {
		t.Fatalf("OnAccountCreated returned error: %v", err)
	}
	if issued == nil || issued.Code != "AB12CD" {
		t.Fatalf("expected issued code AB12CD, got %+v", issued)
	}
	if issued.Email != "owner@example.com" {
		t.Fatalf("expected normalized email, got %q", issued.Email)
	}

	stored, ok := profiles.get("u1")
	if !ok {
		t.Fatal("expected profile to be stored")
	}
	if stored.HashedAccessCode != "hashed:AB12CD" {
		t.Fatalf("expected hashed code to be stored, got %q", stored.HashedAccessCode)
	}
	if stored.HashedAccessCode == issued.Code {
		t.Fatal("plaintext code must not be stored")
	}
	if !stored.CreatedAt.Equal(fixed) || stored.AccessCodeIssuedAt == nil || !stored.AccessCodeIssuedAt.Equal(fixed) {
		t.Fatalf("unexpected timestamps: created=%v issued=%v", stored.CreatedAt, stored.AccessCodeIssuedAt)
	}
	if metrics.issued[IssueTriggerAccountCreated] != 1 {
		t.Fatalf("expected one issuance metric, got %v", metrics.issued)
	}
}

func TestIssuanceService_OnAccountCreated_MissingEmailSkips(t *testing.T) {
	svc, profiles, hasher, _ := newIssuanceFixture(t, "AB12CD")

	issued, err := svc.OnAccountCreated(context.Background(), "u1", "   ")
	if err != nil {
		t.Fatalf("expected no error for missing email, got %v", err)
	}
	if issued != nil {
		t.Fatalf("expected no issued code, got %+v", issued)
	}
	if profiles.createCall != 0 {
		t.Fatalf("expected no profile creation, got %d calls", profiles.createCall)
	}
	if hasher.hashCalls != 0 {
		t.Fatalf("expected no hashing, got %d calls", hasher.hashCalls)
	}
}

func TestIssuanceService_OnAccountCreated_MissingAccountID(t *testing.T) {
	svc, _, _, _ := newIssuanceFixture(t, "AB12CD")

	_, err := svc.OnAccountCreated(context.Background(), " ", "owner@example.com")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestIssuanceService_OnAccountCreated_Idempotent(t *testing.T) {
	svc, profiles, _, _ := newIssuanceFixture(t, "AB12CD", "ZZ99QQ")

	if _, err := svc.OnAccountCreated(context.Background(), "u1", "owner@example.com"); err != nil {
		t.Fatalf("first OnAccountCreated returned error: %v", err)
	}
	before, _ := profiles.get("u1")

	issued, err := svc.OnAccountCreated(context.Background(), "u1", "owner@example.com")
	if err != nil {
		t.Fatalf("second OnAccountCreated returned error: %v", err)
	}
	if issued != nil {
		t.Fatalf("expected no code on repeated creation, got %+v", issued)
	}

	after, _ := profiles.get("u1")
	if after.HashedAccessCode != before.HashedAccessCode {
		t.Fatalf("hash overwritten on repeated creation: before=%q after=%q", before.HashedAccessCode, after.HashedAccessCode)
	}
}

func TestIssuanceService_OnAccountCreated_EmailTaken(t *testing.T) {
	svc, profiles, _, _ := newIssuanceFixture(t, "AB12CD", "ZZ99QQ")

	if _, err := svc.OnAccountCreated(context.Background(), "u1", "owner@example.com"); err != nil {
		t.Fatalf("OnAccountCreated returned error: %v", err)
	}

	_, err := svc.OnAccountCreated(context.Background(), "u2", "OWNER@example.com")
	if !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, ok := profiles.get("u2"); ok {
		t.Fatal("expected no profile for the conflicting account")
	}
}

func TestIssuanceService_OnAccountCreated_StoreFailureReported(t *testing.T) {
	svc, profiles, _, _ := newIssuanceFixture(t, "AB12CD", "ZZ99QQ")
	profiles.createErr = errors.New("connection reset")

	_, err := svc.OnAccountCreated(context.Background(), "u1", "owner@example.com")
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if profiles.createCall != 1 {
		t.Fatalf("expected exactly one create attempt, got %d", profiles.createCall)
	}
}

func TestIssuanceService_OnAccountCreated_HashFailure(t *testing.T) {
	svc, profiles, hasher, _ := newIssuanceFixture(t, "AB12CD")
	hasher.hashErr = security.ErrHashing

	_, err := svc.OnAccountCreated(context.Background(), "u1", "owner@example.com")
	if !errors.Is(err, ErrInternal) || !errors.Is(err, security.ErrHashing) {
		t.Fatalf("expected internal hashing error, got %v", err)
	}
	if profiles.createCall != 0 {
		t.Fatalf("expected no store write after hashing failure, got %d", profiles.createCall)
	}
}

func TestIssuanceService_RegenerateAccessCode_ReplacesHash(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, profiles, _, events := newIssuanceFixture(t, "AB12CD", "ZZ99QQ")

	if _, err := svc.OnAccountCreated(context.Background(), "u1", "owner@example.com"); err != nil {
		t.Fatalf("OnAccountCreated returned error: %v", err)
	}
	svc.WithClock(func() time.Time { return fixed })

	issued, err := svc.RegenerateAccessCode(context.Background(), "u1")
	if err != nil {
		t.Fatalf("RegenerateAccessCode returned error: %v", err)
	}
	if issued.Code != "ZZ99QQ" {
		t.Fatalf("expected ZZ99QQ, got %q", issued.Code)
	}

	stored, _ := profiles.get("u1")
	if stored.HashedAccessCode != "hashed:ZZ99QQ" {
		t.Fatalf("expected replaced hash, got %q", stored.HashedAccessCode)
	}
	if stored.AccessCodeIssuedAt == nil || !stored.AccessCodeIssuedAt.Equal(fixed) {
		t.Fatalf("expected issued at %v, got %v", fixed, stored.AccessCodeIssuedAt)
	}
	if len(events.regenerated) != 1 || events.regenerated[0].AccountID != "u1" {
		t.Fatalf("expected one regenerated event for u1, got %+v", events.regenerated)
	}
}

func TestIssuanceService_RegenerateAccessCode_Unauthenticated(t *testing.T) {
	svc, profiles, _, _ := newIssuanceFixture(t, "AB12CD")

	_, err := svc.RegenerateAccessCode(context.Background(), "")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if profiles.setCalls != 0 {
		t.Fatalf("expected no store update, got %d", profiles.setCalls)
	}
}

func TestIssuanceService_RegenerateAccessCode_StoreFailures(t *testing.T) {
	tests := []struct {
		name   string
		setErr error
		seed   bool
	}{
		{name: "missing profile", seed: false},
		{name: "store unavailable", setErr: errors.New("timeout"), seed: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, profiles, _, events := newIssuanceFixture(t, "ZZ99QQ")
			if tc.seed {
				profiles.put(domain.UserProfile{AccountID: "u1", Email: "owner@example.com", HashedAccessCode: "hashed:AB12CD"})
			}
			profiles.setErr = tc.setErr

			_, err := svc.RegenerateAccessCode(context.Background(), "u1")
			if !errors.Is(err, ErrInternal) {
				t.Fatalf("expected ErrInternal, got %v", err)
			}
			if len(events.regenerated) != 0 {
				t.Fatalf("expected no event on failure, got %d", len(events.regenerated))
			}
		})
	}
}

func TestIssuanceService_RegenerateAccessCode_PublishFailureIgnored(t *testing.T) {
	svc, profiles, _, events := newIssuanceFixture(t, "ZZ99QQ")
	profiles.put(domain.UserProfile{AccountID: "u1", Email: "owner@example.com", HashedAccessCode: "hashed:AB12CD"})
	events.err = errors.New("broker down")

	issued, err := svc.RegenerateAccessCode(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected publish failure to be ignored, got %v", err)
	}
	if issued.Code != "ZZ99QQ" {
		t.Fatalf("expected ZZ99QQ, got %q", issued.Code)
	}
}

func TestIssuanceService_AccessCodeStatus(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, profiles, _, _ := newIssuanceFixture(t)
	profiles.put(domain.UserProfile{AccountID: "u1", Email: "owner@example.com", HashedAccessCode: "hashed:AB12CD", AccessCodeIssuedAt: &issuedAt})
	profiles.put(domain.UserProfile{AccountID: "u2", Email: "pending@example.com"})

	status, err := svc.AccessCodeStatus(context.Background(), "u1")
	if err != nil {
		t.Fatalf("AccessCodeStatus returned error: %v", err)
	}
	if !status.Provisioned || status.IssuedAt == nil || !status.IssuedAt.Equal(issuedAt) {
		t.Fatalf("unexpected status %+v", status)
	}

	status, err = svc.AccessCodeStatus(context.Background(), "u2")
	if err != nil {
		t.Fatalf("AccessCodeStatus returned error: %v", err)
	}
	if status.Provisioned {
		t.Fatal("expected unprovisioned status for profile without code")
	}

	if _, err := svc.AccessCodeStatus(context.Background(), "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if _, err := svc.AccessCodeStatus(context.Background(), ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
