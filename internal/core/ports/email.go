package ports

import (
	"context"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
)

// EmailSender defines the interface for outbound email. Both methods return the
// provider message id on success.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email, token, userName string) (string, error)
	SendWelcomeEmail(ctx context.Context, email, userName string, position int, userType waitlist.UserType) (string, error)
}
