package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	api "github.com/purrfectstays/waitlist-api/internal/infrastructure/httpserver"
	"github.com/purrfectstays/waitlist-api/test/mocks"
)

const testServiceSecret = "test-service-secret"

func signedServiceToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "service_role",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newTestServer(t *testing.T, deps api.ServerDeps) *httptest.Server {
	t.Helper()
	srv := api.NewServer(&api.ServerConfig{
		Host:         "127.0.0.1",
		Port:         "0",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
		SiteURL:      "https://purrfectstays.example",
	}, testServiceSecret, logrus.New(), deps)

	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var b []byte
	if body != nil {
		var err error
		b, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(b))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, respBody
}

func TestSendVerificationEmail_RequiresBearer(t *testing.T) {
	ts := newTestServer(t, api.ServerDeps{RegistrationService: &mocks.RegistrationServiceMock{}})

	resp, _ := doJSON(t, ts, http.MethodPost, "/send-verification-email", map[string]string{}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodPost, "/send-verification-email", map[string]string{}, signedServiceToken(t, "wrong-secret"))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSendVerificationEmail_Success(t *testing.T) {
	token := strings.Repeat("a", 64)
	reg := &mocks.RegistrationServiceMock{
		RegisterFn: func(ctx context.Context, req *waitlist.RegisterRequest) (*waitlist.RegistrationResult, error) {
			require.Equal(t, "jane@example.com", req.Email)
			return &waitlist.RegistrationResult{
				User:                 &waitlist.User{ID: uuid.New(), Email: req.Email, Name: req.Name, UserType: req.UserType},
				VerificationToken:    token,
				EmailDispatchOutcome: waitlist.EmailDispatchOutcome{Sent: true, MessageID: "sg-1"},
			}, nil
		},
	}
	ts := newTestServer(t, api.ServerDeps{RegistrationService: reg})

	body := map[string]string{"email": "jane@example.com", "name": "Jane", "userType": "cat-parent"}
	resp, respBody := doJSON(t, ts, http.MethodPost, "/send-verification-email", body, signedServiceToken(t, testServiceSecret))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success           bool   `json:"success"`
		VerificationToken string `json:"verificationToken"`
		EmailDispatch     struct {
			Sent      bool   `json:"sent"`
			MessageID string `json:"message_id"`
		} `json:"emailDispatch"`
	}
	require.NoError(t, json.Unmarshal(respBody, &out))
	require.True(t, out.Success)
	require.Equal(t, token, out.VerificationToken)
	require.True(t, out.EmailDispatch.Sent)
	require.Equal(t, "sg-1", out.EmailDispatch.MessageID)
}

func TestSendVerificationEmail_DispatchFailureStillSucceeds(t *testing.T) {
	reg := &mocks.RegistrationServiceMock{
		RegisterFn: func(ctx context.Context, req *waitlist.RegisterRequest) (*waitlist.RegistrationResult, error) {
			return &waitlist.RegistrationResult{
				User:                 &waitlist.User{ID: uuid.New(), Email: req.Email, Name: req.Name, UserType: req.UserType},
				VerificationToken:    strings.Repeat("b", 64),
				EmailDispatchOutcome: waitlist.EmailDispatchOutcome{Sent: false, Reason: "email provider is not configured"},
			}, nil
		},
	}
	ts := newTestServer(t, api.ServerDeps{RegistrationService: reg})

	body := map[string]string{"email": "jane@example.com", "name": "Jane", "userType": "cat-parent"}
	resp, respBody := doJSON(t, ts, http.MethodPost, "/send-verification-email", body, signedServiceToken(t, testServiceSecret))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success       bool `json:"success"`
		EmailDispatch struct {
			Sent   bool   `json:"sent"`
			Reason string `json:"reason"`
		} `json:"emailDispatch"`
	}
	require.NoError(t, json.Unmarshal(respBody, &out))
	require.True(t, out.Success)
	require.False(t, out.EmailDispatch.Sent)
	require.Equal(t, "email provider is not configured", out.EmailDispatch.Reason)
}

func TestSendVerificationEmail_ValidationDetails(t *testing.T) {
	ts := newTestServer(t, api.ServerDeps{RegistrationService: &mocks.RegistrationServiceMock{}})

	body := map[string]string{"email": "not-an-email", "name": "Jane", "userType": "dog-parent"}
	resp, respBody := doJSON(t, ts, http.MethodPost, "/send-verification-email", body, signedServiceToken(t, testServiceSecret))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(respBody, &out))
	require.Equal(t, "validation failed", out.Error)
	require.Len(t, out.Details, 2)
}

func TestSendVerificationEmail_Conflict(t *testing.T) {
	reg := &mocks.RegistrationServiceMock{
		RegisterFn: func(ctx context.Context, req *waitlist.RegisterRequest) (*waitlist.RegistrationResult, error) {
			return nil, waitlist.ErrAlreadyRegistered
		},
	}
	ts := newTestServer(t, api.ServerDeps{RegistrationService: reg})

	body := map[string]string{"email": "dup@example.com", "name": "Jane", "userType": "cat-parent"}
	resp, _ := doJSON(t, ts, http.MethodPost, "/send-verification-email", body, signedServiceToken(t, testServiceSecret))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestVerifyEmail_GetRedirectsToResultPage(t *testing.T) {
	userID := uuid.New()
	ver := &mocks.VerificationServiceMock{
		VerifyFn: func(ctx context.Context, token string) (*waitlist.VerificationResult, error) {
			return &waitlist.VerificationResult{
				UserID: userID, UserType: waitlist.UserTypeCatParent, Name: "Jane", Email: "jane@example.com",
			}, nil
		},
	}
	ts := newTestServer(t, api.ServerDeps{VerificationService: ver})

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(ts.URL + "/verify-email?token=" + strings.Repeat("a", 64))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "https", loc.Scheme)
	require.Equal(t, "/verify-result", loc.Path)
	require.Equal(t, "true", loc.Query().Get("success"))
	require.Equal(t, userID.String(), loc.Query().Get("user_id"))
	require.Equal(t, "cat-parent", loc.Query().Get("user_type"))
	require.Equal(t, "jane@example.com", loc.Query().Get("email"))
}

func TestVerifyEmail_GetMissingTokenRedirectsWithError(t *testing.T) {
	ts := newTestServer(t, api.ServerDeps{VerificationService: &mocks.VerificationServiceMock{}})

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(ts.URL + "/verify-email")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "false", loc.Query().Get("success"))
	require.NotEmpty(t, loc.Query().Get("error"))
}

func TestVerifyEmail_PostInvalidToken(t *testing.T) {
	ver := &mocks.VerificationServiceMock{
		VerifyFn: func(ctx context.Context, token string) (*waitlist.VerificationResult, error) {
			return nil, waitlist.ErrTokenInvalid
		},
	}
	ts := newTestServer(t, api.ServerDeps{VerificationService: ver})

	body := map[string]string{"token": strings.Repeat("f", 64)}
	resp, respBody := doJSON(t, ts, http.MethodPost, "/verify-email", body, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(respBody, &out))
	require.False(t, out.Success)
	require.Equal(t, waitlist.ErrTokenInvalid.Error(), out.Error)
}

func TestVerifyEmail_PostSuccess(t *testing.T) {
	userID := uuid.New()
	ver := &mocks.VerificationServiceMock{
		VerifyFn: func(ctx context.Context, token string) (*waitlist.VerificationResult, error) {
			return &waitlist.VerificationResult{
				UserID: userID, UserType: waitlist.UserTypeCatteryOwner, Name: "Jane", Email: "jane@example.com",
				AlreadyVerified: true, Message: "already verified",
			}, nil
		},
	}
	ts := newTestServer(t, api.ServerDeps{VerificationService: ver})

	body := map[string]string{"token": strings.Repeat("b", 64)}
	resp, respBody := doJSON(t, ts, http.MethodPost, "/verify-email", body, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success bool   `json:"success"`
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(respBody, &out))
	require.True(t, out.Success)
	require.Equal(t, userID.String(), out.UserID)
	require.Equal(t, "already verified", out.Message)
}

func TestVerifyEmail_PostVerifyFailed(t *testing.T) {
	ver := &mocks.VerificationServiceMock{
		VerifyFn: func(ctx context.Context, token string) (*waitlist.VerificationResult, error) {
			return nil, waitlist.ErrVerifyFailed
		},
	}
	ts := newTestServer(t, api.ServerDeps{VerificationService: ver})

	body := map[string]string{"token": strings.Repeat("c", 64)}
	resp, _ := doJSON(t, ts, http.MethodPost, "/verify-email", body, "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestResendVerification_UniformResponse(t *testing.T) {
	reg := &mocks.RegistrationServiceMock{
		ResendVerificationFn: func(ctx context.Context, email string) (*waitlist.EmailDispatchOutcome, error) {
			return nil, waitlist.ErrNotFound
		},
	}
	ts := newTestServer(t, api.ServerDeps{RegistrationService: reg})

	body := map[string]string{"email": "unknown@example.com"}
	resp, respBody := doJSON(t, ts, http.MethodPost, "/resend-verification", body, signedServiceToken(t, testServiceSecret))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(respBody, &out))
	require.True(t, out.Success)
	require.Contains(t, out.Message, "pending registration")
}

func TestSendWelcomeEmail_RateLimited(t *testing.T) {
	wel := &mocks.WelcomeServiceMock{
		SendWelcomeFn: func(ctx context.Context, req *waitlist.WelcomeEmailRequest) (string, error) {
			return "", &waitlist.RateLimitedError{RetryAfter: 120 * time.Second}
		},
	}
	ts := newTestServer(t, api.ServerDeps{WelcomeService: wel})

	body := map[string]any{"email": "jane@example.com", "name": "Jane", "waitlistPosition": 5, "userType": "cat-parent"}
	resp, respBody := doJSON(t, ts, http.MethodPost, "/send-welcome-email", body, signedServiceToken(t, testServiceSecret))
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "120", resp.Header.Get("Retry-After"))

	var out struct {
		RetryAfter int `json:"retryAfter"`
	}
	require.NoError(t, json.Unmarshal(respBody, &out))
	require.Equal(t, 120, out.RetryAfter)
}

func TestSendWelcomeEmail_EmptyBodySelectsLatest(t *testing.T) {
	latestCalled := false
	wel := &mocks.WelcomeServiceMock{
		SendWelcomeLatestFn: func(ctx context.Context) (string, error) {
			latestCalled = true
			return "sg-batch-1", nil
		},
	}
	ts := newTestServer(t, api.ServerDeps{WelcomeService: wel})

	resp, respBody := doJSON(t, ts, http.MethodPost, "/send-welcome-email", map[string]string{}, signedServiceToken(t, testServiceSecret))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, latestCalled)

	var out struct {
		Success   bool   `json:"success"`
		MessageID string `json:"messageId"`
	}
	require.NoError(t, json.Unmarshal(respBody, &out))
	require.True(t, out.Success)
	require.Equal(t, "sg-batch-1", out.MessageID)
}

func TestSendWelcomeEmail_ProviderNotConfigured(t *testing.T) {
	wel := &mocks.WelcomeServiceMock{
		SendWelcomeFn: func(ctx context.Context, req *waitlist.WelcomeEmailRequest) (string, error) {
			return "", waitlist.ErrProviderNotConfigured
		},
	}
	ts := newTestServer(t, api.ServerDeps{WelcomeService: wel})

	body := map[string]any{"email": "jane@example.com", "name": "Jane", "waitlistPosition": 5, "userType": "cat-parent"}
	resp, _ := doJSON(t, ts, http.MethodPost, "/send-welcome-email", body, signedServiceToken(t, testServiceSecret))
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
