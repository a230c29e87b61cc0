package repositories_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	"github.com/purrfectstays/waitlist-api/internal/infrastructure/repositories"
	"github.com/purrfectstays/waitlist-api/test/mocks"
)

func TestCachingRepository_GetByIDReadThrough(t *testing.T) {
	userID := uuid.New()
	innerCalls := 0
	inner := &mocks.WaitlistRepositoryMock{
		GetByIDFn: func(ctx context.Context, id uuid.UUID) (*waitlist.User, error) {
			innerCalls++
			return &waitlist.User{ID: id, Email: "jane@example.com", Name: "Jane"}, nil
		},
	}
	cache := mocks.NewCacheMock()
	repo := repositories.NewCachingWaitlistRepository(inner, cache, time.Minute)

	for i := 0; i < 3; i++ {
		u, err := repo.GetByID(context.Background(), userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Email != "jane@example.com" {
			t.Fatalf("unexpected user: %+v", u)
		}
	}
	if innerCalls != 1 {
		t.Fatalf("expected a single store hit, got %d", innerCalls)
	}
}

func TestCachingRepository_GetByTokenNeverCached(t *testing.T) {
	token := strings.Repeat("a", 64)
	innerCalls := 0
	inner := &mocks.WaitlistRepositoryMock{
		GetByTokenFn: func(ctx context.Context, got string) (*waitlist.User, error) {
			innerCalls++
			return &waitlist.User{ID: uuid.New(), Email: "jane@example.com", VerificationToken: &token}, nil
		},
	}
	cache := mocks.NewCacheMock()
	repo := repositories.NewCachingWaitlistRepository(inner, cache, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetByToken(context.Background(), token); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if innerCalls != 2 {
		t.Fatalf("token lookups must always hit the store, got %d hits for 2 calls", innerCalls)
	}
	if len(cache.Data) != 0 {
		t.Fatalf("token lookups must not populate the cache")
	}
}

func TestCachingRepository_ConsumeTokenInvalidates(t *testing.T) {
	userID := uuid.New()
	verified := false
	inner := &mocks.WaitlistRepositoryMock{
		GetByIDFn: func(ctx context.Context, id uuid.UUID) (*waitlist.User, error) {
			return &waitlist.User{ID: id, Email: "jane@example.com", IsVerified: verified}, nil
		},
		ConsumeTokenFn: func(ctx context.Context, id uuid.UUID, issuedAfter time.Time) (bool, error) {
			verified = true
			return true, nil
		},
	}
	cache := mocks.NewCacheMock()
	repo := repositories.NewCachingWaitlistRepository(inner, cache, time.Minute)

	// warm the cache with the unverified row
	if _, err := repo.GetByID(context.Background(), userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	consumed, err := repo.ConsumeToken(context.Background(), userID, time.Now().Add(-time.Hour))
	if err != nil || !consumed {
		t.Fatalf("unexpected consume result: %v %v", consumed, err)
	}

	u, err := repo.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.IsVerified {
		t.Fatalf("stale unverified row served after consumption")
	}
}

func TestCachingRepository_ConsumeTokenInvalidatesEmailWarmedEntry(t *testing.T) {
	userID := uuid.New()
	token := strings.Repeat("a", 64)
	sentAt := time.Now()
	verified := false
	inner := &mocks.WaitlistRepositoryMock{
		GetByEmailFn: func(ctx context.Context, email string) (*waitlist.User, error) {
			u := &waitlist.User{ID: userID, Email: email, IsVerified: verified}
			if !verified {
				u.VerificationToken = &token
				u.VerificationSentAt = &sentAt
			}
			return u, nil
		},
		ConsumeTokenFn: func(ctx context.Context, id uuid.UUID, issuedAfter time.Time) (bool, error) {
			verified = true
			return true, nil
		},
	}
	cache := mocks.NewCacheMock()
	repo := repositories.NewCachingWaitlistRepository(inner, cache, time.Minute)

	// warm the cache through the email lookup only
	if _, err := repo.GetByEmail(context.Background(), "jane@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	consumed, err := repo.ConsumeToken(context.Background(), userID, time.Now().Add(-time.Hour))
	if err != nil || !consumed {
		t.Fatalf("unexpected consume result: %v %v", consumed, err)
	}

	u, err := repo.GetByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.IsVerified {
		t.Fatalf("stale unverified row served from the email key after consumption")
	}
}

func TestCachingRepository_CachedEntryKeepsPendingState(t *testing.T) {
	userID := uuid.New()
	token := strings.Repeat("b", 64)
	sentAt := time.Now().Truncate(time.Second)
	innerCalls := 0
	inner := &mocks.WaitlistRepositoryMock{
		GetByEmailFn: func(ctx context.Context, email string) (*waitlist.User, error) {
			innerCalls++
			return &waitlist.User{
				ID: userID, Email: email,
				VerificationToken: &token, VerificationSentAt: &sentAt,
			}, nil
		},
	}
	cache := mocks.NewCacheMock()
	repo := repositories.NewCachingWaitlistRepository(inner, cache, time.Minute)

	if _, err := repo.GetByEmail(context.Background(), "jane@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := repo.GetByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if innerCalls != 1 {
		t.Fatalf("second read must be a cache hit, got %d store hits", innerCalls)
	}
	// the cache hit must round-trip the full pending state, not the API view
	if u.VerificationToken == nil || *u.VerificationToken != token {
		t.Fatalf("cached entry lost the verification token")
	}
	if u.VerificationSentAt == nil || !u.VerificationSentAt.Equal(sentAt) {
		t.Fatalf("cached entry lost the token issuance time")
	}
	if _, ok := u.State().(waitlist.Pending); !ok {
		t.Fatalf("cache hit must still read as Pending, got %T", u.State())
	}
}

func TestCachingRepository_CacheErrorsFallThrough(t *testing.T) {
	userID := uuid.New()
	inner := &mocks.WaitlistRepositoryMock{
		GetByIDFn: func(ctx context.Context, id uuid.UUID) (*waitlist.User, error) {
			return &waitlist.User{ID: id, Email: "jane@example.com"}, nil
		},
	}
	repo := repositories.NewCachingWaitlistRepository(inner, &mocks.FailingCacheMock{}, time.Minute)

	u, err := repo.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("cache failure must not surface, got %v", err)
	}
	if u.Email != "jane@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
}
