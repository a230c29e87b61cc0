package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	"github.com/purrfectstays/waitlist-api/internal/core/ports"
	"github.com/purrfectstays/waitlist-api/internal/pkg/validate"
)

type RegistrationService struct {
	repo        ports.WaitlistRepository
	emailSender ports.EmailSender
	logger      *logrus.Logger
}

func NewRegistrationService(repo ports.WaitlistRepository, emailSender ports.EmailSender, logger *logrus.Logger) ports.RegistrationService {
	return &RegistrationService{
		repo:        repo,
		emailSender: emailSender,
		logger:      logger,
	}
}

// Register creates an unverified waitlist user with a single-use token and
// dispatches the verification email. The email send is best-effort: its
// failure is reported in the outcome but never rolls back the created row,
// so the resend path can work from the same token.
func (s *RegistrationService) Register(ctx context.Context, req *waitlist.RegisterRequest) (*waitlist.RegistrationResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	token := req.VerificationToken
	if token == "" {
		var err error
		token, err = generateVerificationToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}
	}

	now := time.Now()
	newUser := &waitlist.User{
		ID:                 uuid.New(),
		Email:              waitlist.NormalizeEmail(req.Email),
		Name:               validate.SanitizeName(req.Name),
		UserType:           req.UserType,
		IsVerified:         false,
		VerificationToken:  &token,
		VerificationSentAt: &now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		if errors.Is(err, waitlist.ErrAlreadyRegistered) {
			return nil, waitlist.ErrAlreadyRegistered
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": newUser.Email}).WithError(err).Error("failed to create waitlist user")
		}
		return nil, fmt.Errorf("%w: %v", waitlist.ErrDependencyUnavailable, err)
	}

	outcome := s.dispatchVerificationEmail(ctx, newUser, token)

	return &waitlist.RegistrationResult{
		User:                 newUser,
		VerificationToken:    token,
		EmailDispatchOutcome: outcome,
	}, nil
}

// ResendVerification issues a fresh token for an existing unverified user and
// re-sends the verification email.
func (s *RegistrationService) ResendVerification(ctx context.Context, email string) (*waitlist.EmailDispatchOutcome, error) {
	usr, err := s.repo.GetByEmail(ctx, waitlist.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if usr.IsVerified {
		return nil, fmt.Errorf("email already verified")
	}

	token, err := generateVerificationToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	if err := s.repo.SetToken(ctx, usr.ID, token, now); err != nil {
		return nil, fmt.Errorf("failed to store verification token: %w", err)
	}

	outcome := s.dispatchVerificationEmail(ctx, usr, token)
	return &outcome, nil
}

func (s *RegistrationService) dispatchVerificationEmail(ctx context.Context, usr *waitlist.User, token string) waitlist.EmailDispatchOutcome {
	messageID, err := s.emailSender.SendVerificationEmail(ctx, usr.Email, token, usr.Name)
	if err != nil {
		// Log but don't fail: the row and token remain valid for a resend.
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"user_id": usr.ID,
				"email":   usr.Email,
			}).WithError(err).Warn("failed to send verification email")
		}
		return waitlist.EmailDispatchOutcome{Sent: false, Reason: dispatchFailureReason(err)}
	}
	return waitlist.EmailDispatchOutcome{Sent: true, MessageID: messageID}
}

// dispatchFailureReason maps a send error to a caller-safe reason string.
func dispatchFailureReason(err error) string {
	var rl *waitlist.RateLimitedError
	switch {
	case errors.Is(err, waitlist.ErrProviderNotConfigured):
		return "email provider is not configured"
	case errors.As(err, &rl):
		return "email provider rate limited"
	default:
		return "email delivery failed"
	}
}

// generateVerificationToken returns a 64-char hex token from 32 random bytes.
func generateVerificationToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
