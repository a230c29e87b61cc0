package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	"github.com/purrfectstays/waitlist-api/internal/core/ports"
)

// WaitlistRepositoryMock is a lightweight mock for WaitlistRepository
type WaitlistRepositoryMock struct {
	CreateFn                 func(ctx context.Context, u *waitlist.User) error
	GetByIDFn                func(ctx context.Context, id uuid.UUID) (*waitlist.User, error)
	GetByEmailFn             func(ctx context.Context, email string) (*waitlist.User, error)
	GetByTokenFn             func(ctx context.Context, token string) (*waitlist.User, error)
	ConsumeTokenFn           func(ctx context.Context, id uuid.UUID, issuedAfter time.Time) (bool, error)
	ForceVerifyFn            func(ctx context.Context, id uuid.UUID) error
	SetTokenFn               func(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) error
	LatestWelcomeCandidateFn func(ctx context.Context) (*waitlist.User, error)
}

var _ ports.WaitlistRepository = (*WaitlistRepositoryMock)(nil)

func (m *WaitlistRepositoryMock) Create(ctx context.Context, u *waitlist.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}

func (m *WaitlistRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (*waitlist.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, waitlist.ErrNotFound
}

func (m *WaitlistRepositoryMock) GetByEmail(ctx context.Context, email string) (*waitlist.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, waitlist.ErrNotFound
}

func (m *WaitlistRepositoryMock) GetByToken(ctx context.Context, token string) (*waitlist.User, error) {
	if m.GetByTokenFn != nil {
		return m.GetByTokenFn(ctx, token)
	}
	return nil, waitlist.ErrNotFound
}

func (m *WaitlistRepositoryMock) ConsumeToken(ctx context.Context, id uuid.UUID, issuedAfter time.Time) (bool, error) {
	if m.ConsumeTokenFn != nil {
		return m.ConsumeTokenFn(ctx, id, issuedAfter)
	}
	return true, nil
}

func (m *WaitlistRepositoryMock) ForceVerify(ctx context.Context, id uuid.UUID) error {
	if m.ForceVerifyFn != nil {
		return m.ForceVerifyFn(ctx, id)
	}
	return nil
}

func (m *WaitlistRepositoryMock) SetToken(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) error {
	if m.SetTokenFn != nil {
		return m.SetTokenFn(ctx, id, token, sentAt)
	}
	return nil
}

func (m *WaitlistRepositoryMock) LatestWelcomeCandidate(ctx context.Context) (*waitlist.User, error) {
	if m.LatestWelcomeCandidateFn != nil {
		return m.LatestWelcomeCandidateFn(ctx)
	}
	return nil, waitlist.ErrNotFound
}

// RegistrationServiceMock is a lightweight mock for RegistrationService
type RegistrationServiceMock struct {
	RegisterFn           func(ctx context.Context, req *waitlist.RegisterRequest) (*waitlist.RegistrationResult, error)
	ResendVerificationFn func(ctx context.Context, email string) (*waitlist.EmailDispatchOutcome, error)
}

var _ ports.RegistrationService = (*RegistrationServiceMock)(nil)

func (m *RegistrationServiceMock) Register(ctx context.Context, req *waitlist.RegisterRequest) (*waitlist.RegistrationResult, error) {
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, req)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *RegistrationServiceMock) ResendVerification(ctx context.Context, email string) (*waitlist.EmailDispatchOutcome, error) {
	if m.ResendVerificationFn != nil {
		return m.ResendVerificationFn(ctx, email)
	}
	return nil, fmt.Errorf("not implemented")
}

// VerificationServiceMock is a lightweight mock for VerificationService
type VerificationServiceMock struct {
	VerifyFn func(ctx context.Context, token string) (*waitlist.VerificationResult, error)
}

var _ ports.VerificationService = (*VerificationServiceMock)(nil)

func (m *VerificationServiceMock) Verify(ctx context.Context, token string) (*waitlist.VerificationResult, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, token)
	}
	return nil, fmt.Errorf("not implemented")
}

// WelcomeServiceMock is a lightweight mock for WelcomeService
type WelcomeServiceMock struct {
	SendWelcomeFn       func(ctx context.Context, req *waitlist.WelcomeEmailRequest) (string, error)
	SendWelcomeLatestFn func(ctx context.Context) (string, error)
}

var _ ports.WelcomeService = (*WelcomeServiceMock)(nil)

func (m *WelcomeServiceMock) SendWelcome(ctx context.Context, req *waitlist.WelcomeEmailRequest) (string, error) {
	if m.SendWelcomeFn != nil {
		return m.SendWelcomeFn(ctx, req)
	}
	return "", fmt.Errorf("not implemented")
}

func (m *WelcomeServiceMock) SendWelcomeLatest(ctx context.Context) (string, error) {
	if m.SendWelcomeLatestFn != nil {
		return m.SendWelcomeLatestFn(ctx)
	}
	return "", fmt.Errorf("not implemented")
}

// EmailSenderMock is a lightweight mock for EmailSender
type EmailSenderMock struct {
	SendVerificationEmailFn func(ctx context.Context, email, token, userName string) (string, error)
	SendWelcomeEmailFn      func(ctx context.Context, email, userName string, position int, userType waitlist.UserType) (string, error)
}

var _ ports.EmailSender = (*EmailSenderMock)(nil)

func (m *EmailSenderMock) SendVerificationEmail(ctx context.Context, email, token, userName string) (string, error) {
	if m.SendVerificationEmailFn != nil {
		return m.SendVerificationEmailFn(ctx, email, token, userName)
	}
	return "msg-1", nil
}

func (m *EmailSenderMock) SendWelcomeEmail(ctx context.Context, email, userName string, position int, userType waitlist.UserType) (string, error) {
	if m.SendWelcomeEmailFn != nil {
		return m.SendWelcomeEmailFn(ctx, email, userName, position, userType)
	}
	return "msg-1", nil
}

// CacheMock is an in-memory ports.Cache for decorator tests.
type CacheMock struct {
	Data map[string][]byte
}

var _ ports.Cache = (*CacheMock)(nil)

func NewCacheMock() *CacheMock {
	return &CacheMock{Data: make(map[string][]byte)}
}

func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := m.Data[key]
	return b, ok, nil
}

func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.Data[key] = value
	return nil
}

func (m *CacheMock) Delete(ctx context.Context, key string) error {
	delete(m.Data, key)
	return nil
}

// FailingCacheMock always errors, for fallback-path tests.
type FailingCacheMock struct{}

var _ ports.Cache = (*FailingCacheMock)(nil)

func (m *FailingCacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, fmt.Errorf("cache unavailable")
}

func (m *FailingCacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return fmt.Errorf("cache unavailable")
}

func (m *FailingCacheMock) Delete(ctx context.Context, key string) error {
	return fmt.Errorf("cache unavailable")
}
