package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	"github.com/purrfectstays/waitlist-api/internal/core/ports"
	"github.com/purrfectstays/waitlist-api/internal/pkg/validate"
)

type WelcomeService struct {
	repo        ports.WaitlistRepository
	emailSender ports.EmailSender
	logger      *logrus.Logger
}

func NewWelcomeService(repo ports.WaitlistRepository, emailSender ports.EmailSender, logger *logrus.Logger) ports.WelcomeService {
	return &WelcomeService{
		repo:        repo,
		emailSender: emailSender,
		logger:      logger,
	}
}

// SendWelcome dispatches the queue-position welcome email to a specific user.
// Provider throttling and credential problems pass through typed so the HTTP
// layer can distinguish retryable from terminal.
func (s *WelcomeService) SendWelcome(ctx context.Context, req *waitlist.WelcomeEmailRequest) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", err
	}

	usr, err := s.repo.GetByEmail(ctx, waitlist.NormalizeEmail(req.Email))
	if err != nil {
		return "", err
	}

	return s.send(ctx, usr.Email, validate.SanitizeName(req.Name), req.WaitlistPosition, req.UserType)
}

// SendWelcomeLatest is the batch/cron variant: it targets the most recently
// updated verified-and-quiz-completed user and takes everything from the row.
func (s *WelcomeService) SendWelcomeLatest(ctx context.Context) (string, error) {
	usr, err := s.repo.LatestWelcomeCandidate(ctx)
	if err != nil {
		return "", err
	}
	return s.send(ctx, usr.Email, usr.Name, usr.WaitlistPosition, usr.UserType)
}

func (s *WelcomeService) send(ctx context.Context, email, name string, position int, userType waitlist.UserType) (string, error) {
	messageID, err := s.emailSender.SendWelcomeEmail(ctx, email, name, position, userType)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": email, "position": position}).WithError(err).Error("failed to send welcome email")
		}
		return "", err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"email": email, "position": position, "message_id": messageID}).Info("welcome email sent")
	}
	return messageID, nil
}
