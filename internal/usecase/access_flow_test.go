package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/VickyKR37/autobook/internal/infra/security"
)

type accessFlow struct {
	issuance   *IssuanceService
	validation *ValidationService
	profiles   *memoryProfileRepository
}

func newAccessFlow(t *testing.T, codes ...string) *accessFlow {
	t.Helper()

	hasher, err := security.NewCodeHasher(security.HasherConfig{
		Argon2: security.Argon2Config{
			Memory:      8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Pepper: "flow-pepper",
	})
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	profiles := newMemoryProfileRepository()
	events := &recordingPublisher{}

	return &accessFlow{
		issuance:   NewIssuanceService(profiles, hasher, &sequenceGenerator{codes: codes}, events, log),
		validation: NewValidationService(nil, profiles, hasher, nil, events, log),
		profiles:   profiles,
	}
}

func TestAccessFlow_IssuedCodeValidates(t *testing.T) {
	ctx := context.Background()
	flow := newAccessFlow(t, "AB12CD")

	issued, err := flow.issuance.OnAccountCreated(ctx, "u1", "owner@example.com")
	require.NoError(t, err)
	require.NotNil(t, issued)
	require.Equal(t, "AB12CD", issued.Code)

	stored, ok := flow.profiles.get("u1")
	require.True(t, ok)
	require.NotContains(t, stored.HashedAccessCode, "AB12CD")

	grant, err := flow.validation.ValidateAccess(ctx, "owner@example.com", "AB12CD")
	require.NoError(t, err)
	require.Equal(t, "u1", grant.OwnerAccountID)
}

func TestAccessFlow_WrongCodeDenied(t *testing.T) {
	ctx := context.Background()
	flow := newAccessFlow(t, "AB12CD")

	_, err := flow.issuance.OnAccountCreated(ctx, "u1", "owner@example.com")
	require.NoError(t, err)

	grant, err := flow.validation.ValidateAccess(ctx, "owner@example.com", "WRONG1")
	require.Nil(t, grant)
	require.ErrorIs(t, err, ErrAccessDenied)
	require.Equal(t, AccessDeniedMessage, "Invalid owner email or access code.")
}

func TestAccessFlow_RegenerateRevokesPreviousCode(t *testing.T) {
	ctx := context.Background()
	flow := newAccessFlow(t, "AB12CD", "ZZ99QQ")

	_, err := flow.issuance.OnAccountCreated(ctx, "u1", "owner@example.com")
	require.NoError(t, err)

	issued, err := flow.issuance.RegenerateAccessCode(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "ZZ99QQ", issued.Code)

	_, err = flow.validation.ValidateAccess(ctx, "owner@example.com", "AB12CD")
	require.ErrorIs(t, err, ErrAccessDenied)

	grant, err := flow.validation.ValidateAccess(ctx, "owner@example.com", "ZZ99QQ")
	require.NoError(t, err)
	require.Equal(t, "u1", grant.OwnerAccountID)
}

func TestAccessFlow_ConcurrentRegenerationLastWriteWins(t *testing.T) {
	ctx := context.Background()
	flow := newAccessFlow(t, "AB12CD", "ZZ99QQ", "QQ11ZZ")

	_, err := flow.issuance.OnAccountCreated(ctx, "u1", "owner@example.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	codes := make([]string, 2)
	errs := make([]error, 2)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			issued, err := flow.issuance.RegenerateAccessCode(ctx, "u1")
			errs[i] = err
			if issued != nil {
				codes[i] = issued.Code
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.ElementsMatch(t, []string{"ZZ99QQ", "QQ11ZZ"}, codes)

	granted := 0
	for _, code := range codes {
		if _, err := flow.validation.ValidateAccess(ctx, "owner@example.com", code); err == nil {
			granted++
		} else {
			require.ErrorIs(t, err, ErrAccessDenied)
		}
	}
	require.Equal(t, 1, granted, "only the code persisted last may validate")

	_, err = flow.validation.ValidateAccess(ctx, "owner@example.com", "AB12CD")
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestAccessFlow_MissingEmailIsInvalidArgument(t *testing.T) {
	flow := newAccessFlow(t)

	_, err := flow.validation.ValidateAccess(context.Background(), "", "AB12CD")
	require.ErrorIs(t, err, ErrInvalidArgument)

	var invalid *InvalidArgumentError
	require.True(t, errors.As(err, &invalid))
	require.NotEmpty(t, invalid.Message)
}

func TestAccessFlow_RegenerateWithoutCallerIsUnauthenticated(t *testing.T) {
	flow := newAccessFlow(t, "ZZ99QQ")

	_, err := flow.issuance.RegenerateAccessCode(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAccessFlow_RepeatedAccountCreatedKeepsFirstCode(t *testing.T) {
	ctx := context.Background()
	flow := newAccessFlow(t, "AB12CD", "ZZ99QQ")

	_, err := flow.issuance.OnAccountCreated(ctx, "u1", "owner@example.com")
	require.NoError(t, err)
	first, _ := flow.profiles.get("u1")

	issued, err := flow.issuance.OnAccountCreated(ctx, "u1", "owner@example.com")
	require.NoError(t, err)
	require.Nil(t, issued)

	second, _ := flow.profiles.get("u1")
	require.Equal(t, first.HashedAccessCode, second.HashedAccessCode)

	_, err = flow.validation.ValidateAccess(ctx, "owner@example.com", "AB12CD")
	require.NoError(t, err)
}

func TestAccessFlow_LowercaseCodeAccepted(t *testing.T) {
	ctx := context.Background()
	flow := newAccessFlow(t, "AB12CD")

	_, err := flow.issuance.OnAccountCreated(ctx, "u1", "owner@example.com")
	require.NoError(t, err)

	grant, err := flow.validation.ValidateAccess(ctx, "Owner@Example.com", " ab12cd ")
	require.NoError(t, err)
	require.Equal(t, "u1", grant.OwnerAccountID)
}
