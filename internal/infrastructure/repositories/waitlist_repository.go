package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	"github.com/purrfectstays/waitlist-api/internal/core/ports"
	"github.com/purrfectstays/waitlist-api/internal/infrastructure/db"
)

const uniqueViolation = "23505"

// WaitlistRepository implements the waitlist repository interface on Postgres.
type WaitlistRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewWaitlistRepository creates a new waitlist repository
func NewWaitlistRepository(database *db.Database, logger *logrus.Logger) ports.WaitlistRepository {
	return &WaitlistRepository{
		db:     database,
		logger: logger,
	}
}

// Create inserts a new registration. The waitlist position comes from the
// table's sequence default, so it is read back into the entity.
func (r *WaitlistRepository) Create(ctx context.Context, u *waitlist.User) error {
	query := `
		INSERT INTO waitlist_users (id, email, name, user_type, is_verified, verification_token, verification_sent_at, quiz_completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING waitlist_position, created_at, updated_at`

	err := r.db.DB.QueryRowxContext(ctx, query,
		u.ID, u.Email, u.Name, u.UserType, u.IsVerified, u.VerificationToken,
		u.VerificationSentAt, u.QuizCompleted).
		Scan(&u.WaitlistPosition, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && strings.Contains(pqErr.Constraint, "email") {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"email": u.Email}).Debug("db: duplicate waitlist registration")
			}
			return fmt.Errorf("%w: %s", waitlist.ErrAlreadyRegistered, u.Email)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).WithError(err).Error("db: failed to create waitlist user")
		}
		return fmt.Errorf("failed to create waitlist user: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("db: waitlist user created")
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *WaitlistRepository) GetByID(ctx context.Context, id uuid.UUID) (*waitlist.User, error) {
	var u waitlist.User
	query := `
		SELECT id, email, name, user_type, is_verified, verification_token,
			   verification_sent_at, quiz_completed, waitlist_position, created_at, updated_at
		FROM waitlist_users
		WHERE id = $1`

	err := r.db.DB.GetContext(ctx, &u, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: id %s", waitlist.ErrNotFound, id)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": id}).WithError(err).Error("db: failed to get user by ID")
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by normalized email
func (r *WaitlistRepository) GetByEmail(ctx context.Context, email string) (*waitlist.User, error) {
	var u waitlist.User
	query := `
		SELECT id, email, name, user_type, is_verified, verification_token,
			   verification_sent_at, quiz_completed, waitlist_position, created_at, updated_at
		FROM waitlist_users
		WHERE email = $1`

	err := r.db.DB.GetContext(ctx, &u, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"email": email}).Debug("db: user not found by email")
			}
			return nil, fmt.Errorf("%w: email %s", waitlist.ErrNotFound, email)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email": email}).WithError(err).Error("db: failed to get user by email")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

// GetByToken retrieves the owning user by exact token match.
func (r *WaitlistRepository) GetByToken(ctx context.Context, token string) (*waitlist.User, error) {
	var u waitlist.User
	query := `
		SELECT id, email, name, user_type, is_verified, verification_token,
			   verification_sent_at, quiz_completed, waitlist_position, created_at, updated_at
		FROM waitlist_users
		WHERE verification_token = $1`

	err := r.db.DB.GetContext(ctx, &u, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: no matching token", waitlist.ErrNotFound)
		}
		if r.logger != nil {
			r.logger.WithField("token_len", len(token)).WithError(err).Error("db: failed to get user by token")
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}

	return &u, nil
}

// ConsumeToken performs the verification state transition as a single
// conditional update: the verified flag and the token clear together, and
// only an unverified row with a fresh token matches. Two racing calls cannot
// both succeed; the loser sees zero affected rows.
func (r *WaitlistRepository) ConsumeToken(ctx context.Context, id uuid.UUID, issuedAfter time.Time) (bool, error) {
	query := `
		UPDATE waitlist_users
		SET is_verified = TRUE, verification_token = NULL, verification_sent_at = NULL, updated_at = now()
		WHERE id = $1 AND is_verified = FALSE AND verification_token IS NOT NULL AND verification_sent_at > $2`

	result, err := r.db.DB.ExecContext(ctx, query, id, issuedAfter)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": id}).WithError(err).Error("db: failed to consume verification token")
		}
		return false, fmt.Errorf("failed to consume verification token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ForceVerify is the narrowed retry: update keyed by id only, with no state
// predicate beyond row identity.
func (r *WaitlistRepository) ForceVerify(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE waitlist_users
		SET is_verified = TRUE, verification_token = NULL, verification_sent_at = NULL, updated_at = now()
		WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": id}).WithError(err).Error("db: narrowed verify update failed")
		}
		return fmt.Errorf("failed to verify user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %s", waitlist.ErrNotFound, id)
	}

	return nil
}

// SetToken stores a fresh verification token on an unverified user.
func (r *WaitlistRepository) SetToken(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) error {
	query := `
		UPDATE waitlist_users
		SET verification_token = $2, verification_sent_at = $3, updated_at = now()
		WHERE id = $1 AND is_verified = FALSE`

	result, err := r.db.DB.ExecContext(ctx, query, id, token, sentAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": id}).WithError(err).Error("db: failed to set verification token")
		}
		return fmt.Errorf("failed to set verification token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: no unverified user with id %s", waitlist.ErrNotFound, id)
	}

	return nil
}

// LatestWelcomeCandidate returns the most recently updated user that is both
// verified and quiz-completed.
func (r *WaitlistRepository) LatestWelcomeCandidate(ctx context.Context) (*waitlist.User, error) {
	var u waitlist.User
	query := `
		SELECT id, email, name, user_type, is_verified, verification_token,
			   verification_sent_at, quiz_completed, waitlist_position, created_at, updated_at
		FROM waitlist_users
		WHERE is_verified = TRUE AND quiz_completed = TRUE
		ORDER BY updated_at DESC
		LIMIT 1`

	err := r.db.DB.GetContext(ctx, &u, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: no welcome candidates", waitlist.ErrNotFound)
		}
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to get welcome candidate")
		}
		return nil, fmt.Errorf("failed to get welcome candidate: %w", err)
	}

	return &u, nil
}
