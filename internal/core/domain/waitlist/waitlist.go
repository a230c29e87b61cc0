package waitlist

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a waitlist registration. The verification token doubles as the
// pending-state marker: it is set while the email is unverified and cleared
// exactly once when the token is consumed.
type User struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	Email              string     `json:"email" db:"email"`
	Name               string     `json:"name" db:"name"`
	UserType           UserType   `json:"user_type" db:"user_type"`
	IsVerified         bool       `json:"is_verified" db:"is_verified"`
	VerificationToken  *string    `json:"-" db:"verification_token"`
	VerificationSentAt *time.Time `json:"-" db:"verification_sent_at"`
	QuizCompleted      bool       `json:"quiz_completed" db:"quiz_completed"`
	WaitlistPosition   int        `json:"waitlist_position" db:"waitlist_position"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

type UserType string

const (
	UserTypeCatParent    UserType = "cat-parent"
	UserTypeCatteryOwner UserType = "cattery-owner"
)

func (t UserType) String() string {
	return string(t)
}

func (t UserType) IsValid() bool {
	switch t {
	case UserTypeCatParent, UserTypeCatteryOwner:
		return true
	default:
		return false
	}
}

// VerificationState is the tagged form of the token lifecycle:
// Pending carries the live token, Verified carries nothing.
type VerificationState interface {
	isVerificationState()
}

// Pending means the token is set and the email unverified.
type Pending struct {
	Token  string
	SentAt time.Time
}

// Verified means the token has been consumed.
type Verified struct{}

func (Pending) isVerificationState()  {}
func (Verified) isVerificationState() {}

// State derives the tagged verification state from the row.
func (u *User) State() VerificationState {
	if u.IsVerified || u.VerificationToken == nil {
		return Verified{}
	}
	p := Pending{Token: *u.VerificationToken}
	if u.VerificationSentAt != nil {
		p.SentAt = *u.VerificationSentAt
	}
	return p
}

// Expired reports whether the token was issued longer than ttl ago.
func (p Pending) Expired(ttl time.Duration, now time.Time) bool {
	if p.SentAt.IsZero() {
		return false
	}
	return now.Sub(p.SentAt) > ttl
}

// NormalizeEmail lowercases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest is the body of POST /send-verification-email. A well-formed
// caller-supplied token is honored for legacy clients, otherwise the service
// generates one.
type RegisterRequest struct {
	Email             string   `json:"email" validate:"required,email,max=254"`
	Name              string   `json:"name" validate:"required,max=100"`
	UserType          UserType `json:"userType" validate:"required,oneof=cat-parent cattery-owner"`
	VerificationToken string   `json:"verificationToken,omitempty" validate:"omitempty,len=64,hexadecimal"`
}

// VerifyEmailRequest is the POST body of /verify-email.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required,min=32"`
}

// ResendVerificationRequest re-issues a token for an unverified registration.
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// WelcomeEmailRequest is the body of POST /send-welcome-email. An empty body
// selects the batch variant, which targets the most recently updated
// verified-and-quiz-completed user.
type WelcomeEmailRequest struct {
	Email            string   `json:"email" validate:"required,email,max=254"`
	Name             string   `json:"name" validate:"required,max=100"`
	WaitlistPosition int      `json:"waitlistPosition" validate:"required,min=1"`
	UserType         UserType `json:"userType" validate:"required,oneof=cat-parent cattery-owner"`
}

// EmailDispatchOutcome reports the best-effort email side effect separately
// from the committed registration, so callers can retry the send on its own.
type EmailDispatchOutcome struct {
	Sent      bool   `json:"sent"`
	MessageID string `json:"message_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// RegistrationResult is the two-phase outcome of a registration: the committed
// user plus the independent email dispatch result.
type RegistrationResult struct {
	User                 *User                `json:"user"`
	VerificationToken    string               `json:"verification_token"`
	EmailDispatchOutcome EmailDispatchOutcome `json:"email_dispatch"`
}

// VerificationResult identifies the verified user so the caller can resume
// its onboarding flow.
type VerificationResult struct {
	UserID          uuid.UUID `json:"user_id"`
	UserType        UserType  `json:"user_type"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	AlreadyVerified bool      `json:"-"`
	Message         string    `json:"message"`
}
