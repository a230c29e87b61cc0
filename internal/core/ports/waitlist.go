package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
)

// WaitlistRepository defines the data operations for waitlist registrations.
type WaitlistRepository interface {
	Create(ctx context.Context, user *waitlist.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*waitlist.User, error)
	GetByEmail(ctx context.Context, email string) (*waitlist.User, error)
	GetByToken(ctx context.Context, token string) (*waitlist.User, error)

	// ConsumeToken flips the user to verified and clears the token in one
	// conditional update keyed by id. issuedAfter bounds token freshness.
	// Returns false with a nil error when no unverified row matched, which
	// callers treat as a concurrent consumption.
	ConsumeToken(ctx context.Context, id uuid.UUID, issuedAfter time.Time) (bool, error)

	// ForceVerify is the narrowed retry: update by id only, no state predicate.
	ForceVerify(ctx context.Context, id uuid.UUID) error

	// SetToken stores a fresh token on an unverified user (resend path).
	SetToken(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) error

	// LatestWelcomeCandidate returns the most recently updated
	// verified-and-quiz-completed user.
	LatestWelcomeCandidate(ctx context.Context) (*waitlist.User, error)
}

// RegistrationService creates waitlist users and dispatches verification emails.
type RegistrationService interface {
	Register(ctx context.Context, req *waitlist.RegisterRequest) (*waitlist.RegistrationResult, error)
	ResendVerification(ctx context.Context, email string) (*waitlist.EmailDispatchOutcome, error)
}

// VerificationService consumes verification tokens at most once.
type VerificationService interface {
	Verify(ctx context.Context, token string) (*waitlist.VerificationResult, error)
}

// WelcomeService sends the post-quiz welcome email.
type WelcomeService interface {
	SendWelcome(ctx context.Context, req *waitlist.WelcomeEmailRequest) (string, error)
	SendWelcomeLatest(ctx context.Context) (string, error)
}
