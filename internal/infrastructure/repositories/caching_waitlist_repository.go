package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	"github.com/purrfectstays/waitlist-api/internal/core/ports"
)

// CachingWaitlistRepository decorates a WaitlistRepository with a read-through
// cache for the id and email lookups. Token lookups are never cached: the
// token is a single-use secret and a stale hit would defeat the consume-once
// update. Every cached user is stored under both keys so the write-path
// invalidation can always reach both; writes invalidate both keys.
type CachingWaitlistRepository struct {
	inner ports.WaitlistRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingWaitlistRepository(inner ports.WaitlistRepository, cache ports.Cache, ttl time.Duration) ports.WaitlistRepository {
	return &CachingWaitlistRepository{inner: inner, cache: cache, ttl: ttl}
}

// cachedUser is the cache wire form. The entity's own JSON tags hide the
// token fields from API responses, so the cache needs its own shape to
// round-trip the full row without losing the pending state.
type cachedUser struct {
	ID                 uuid.UUID         `json:"id"`
	Email              string            `json:"email"`
	Name               string            `json:"name"`
	UserType           waitlist.UserType `json:"user_type"`
	IsVerified         bool              `json:"is_verified"`
	VerificationToken  *string           `json:"verification_token"`
	VerificationSentAt *time.Time        `json:"verification_sent_at"`
	QuizCompleted      bool              `json:"quiz_completed"`
	WaitlistPosition   int               `json:"waitlist_position"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func toCached(u *waitlist.User) *cachedUser {
	return &cachedUser{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		UserType:           u.UserType,
		IsVerified:         u.IsVerified,
		VerificationToken:  u.VerificationToken,
		VerificationSentAt: u.VerificationSentAt,
		QuizCompleted:      u.QuizCompleted,
		WaitlistPosition:   u.WaitlistPosition,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (c *cachedUser) toUser() *waitlist.User {
	return &waitlist.User{
		ID:                 c.ID,
		Email:              c.Email,
		Name:               c.Name,
		UserType:           c.UserType,
		IsVerified:         c.IsVerified,
		VerificationToken:  c.VerificationToken,
		VerificationSentAt: c.VerificationSentAt,
		QuizCompleted:      c.QuizCompleted,
		WaitlistPosition:   c.WaitlistPosition,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func cacheGet(c ports.Cache, ctx context.Context, key string) (*waitlist.User, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v cachedUser
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return v.toUser(), true
}

func userIDKey(id uuid.UUID) string    { return "waitlist:id:" + id.String() }
func userEmailKey(email string) string { return "waitlist:email:" + email }

// cacheUser stores the entity under both keys so invalidate(id) can recover
// the email key from the id entry regardless of which lookup warmed the cache.
func (r *CachingWaitlistRepository) cacheUser(ctx context.Context, u *waitlist.User) {
	if r.cache == nil {
		return
	}
	b, err := json.Marshal(toCached(u))
	if err != nil {
		return
	}
	_ = r.cache.Set(ctx, userIDKey(u.ID), b, r.ttl)
	_ = r.cache.Set(ctx, userEmailKey(u.Email), b, r.ttl)
}

func (r *CachingWaitlistRepository) Create(ctx context.Context, u *waitlist.User) error {
	if err := r.inner.Create(ctx, u); err != nil {
		return err
	}
	r.cacheUser(ctx, u)
	return nil
}

func (r *CachingWaitlistRepository) GetByID(ctx context.Context, id uuid.UUID) (*waitlist.User, error) {
	if u, ok := cacheGet(r.cache, ctx, userIDKey(id)); ok {
		return u, nil
	}
	u, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cacheUser(ctx, u)
	return u, nil
}

func (r *CachingWaitlistRepository) GetByEmail(ctx context.Context, email string) (*waitlist.User, error) {
	if u, ok := cacheGet(r.cache, ctx, userEmailKey(email)); ok {
		return u, nil
	}
	u, err := r.inner.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	r.cacheUser(ctx, u)
	return u, nil
}

// GetByToken always goes to the primary store.
func (r *CachingWaitlistRepository) GetByToken(ctx context.Context, token string) (*waitlist.User, error) {
	return r.inner.GetByToken(ctx, token)
}

func (r *CachingWaitlistRepository) ConsumeToken(ctx context.Context, id uuid.UUID, issuedAfter time.Time) (bool, error) {
	consumed, err := r.inner.ConsumeToken(ctx, id, issuedAfter)
	if err == nil {
		r.invalidate(ctx, id)
	}
	return consumed, err
}

func (r *CachingWaitlistRepository) ForceVerify(ctx context.Context, id uuid.UUID) error {
	err := r.inner.ForceVerify(ctx, id)
	if err == nil {
		r.invalidate(ctx, id)
	}
	return err
}

func (r *CachingWaitlistRepository) SetToken(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) error {
	err := r.inner.SetToken(ctx, id, token, sentAt)
	if err == nil {
		r.invalidate(ctx, id)
	}
	return err
}

// LatestWelcomeCandidate is ordering-sensitive; never served from cache.
func (r *CachingWaitlistRepository) LatestWelcomeCandidate(ctx context.Context) (*waitlist.User, error) {
	return r.inner.LatestWelcomeCandidate(ctx)
}

// invalidate drops both keys. The id entry carries the email, and cacheUser
// always writes the pair together, so a live email entry implies a live id
// entry to recover it from.
func (r *CachingWaitlistRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if r.cache == nil {
		return
	}
	if u, ok := cacheGet(r.cache, ctx, userIDKey(id)); ok {
		_ = r.cache.Delete(ctx, userEmailKey(u.Email))
	}
	_ = r.cache.Delete(ctx, userIDKey(id))
}
