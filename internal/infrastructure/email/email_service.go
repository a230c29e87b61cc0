package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	"github.com/purrfectstays/waitlist-api/internal/core/ports"
)

// defaultRetryAfter is the backoff hint when the provider throttles without
// sending a Retry-After header.
const defaultRetryAfter = 60 * time.Second

// EmailConfig holds email service configuration
type EmailConfig struct {
	SendGridAPIKey    string
	FromEmail         string
	FromName          string
	FallbackFromEmail string
	FallbackFromName  string
	CompanyName       string
	BaseURL           string
}

// sendClient is the part of the SendGrid client the service uses.
type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailService implements the EmailSender interface on SendGrid.
type EmailService struct {
	config    *EmailConfig
	logger    *logrus.Logger
	client    sendClient
	templates map[string]*template.Template
}

// NewEmailService creates a new email service instance. A missing API key is
// not fatal here: sends then fail with a provider-not-configured error so the
// service still boots and reports the condition per request.
func NewEmailService(config *EmailConfig, logger *logrus.Logger) (ports.EmailSender, error) {
	var client sendClient
	if config.SendGridAPIKey != "" {
		client = sendgrid.NewSendClient(config.SendGridAPIKey)
	} else if logger != nil {
		logger.Warn("SENDGRID_API_KEY not set - email delivery disabled")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}

	return &EmailService{
		config:    config,
		logger:    logger,
		client:    client,
		templates: templates,
	}, nil
}

// loadTemplates loads all email templates from the template directory
func loadTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	templateDir := "templates/email"

	templateFiles := []string{
		"verification.html",
		"welcome.html",
	}

	for _, file := range templateFiles {
		name := filepath.Base(file)
		name = name[:len(name)-len(filepath.Ext(name))] // Remove .html extension

		tmpl, err := template.ParseFiles(filepath.Join(templateDir, file))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}

		templates[name] = tmpl
	}

	return templates, nil
}

// sendEmail sends through the primary identity and falls back to the
// secondary on failure. Provider throttling and credential rejection are
// classified before the fallback is attempted.
func (e *EmailService) sendEmail(ctx context.Context, to, subject, htmlContent string) (string, error) {
	if e.client == nil {
		return "", waitlist.ErrProviderNotConfigured
	}

	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	messageID, err := e.trySend(ctx, from, to, subject, htmlContent)
	if err == nil {
		return messageID, nil
	}

	var rl *waitlist.RateLimitedError
	if errors.Is(err, waitlist.ErrProviderNotConfigured) || errors.As(err, &rl) {
		return "", err
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{"to": to, "from": e.config.FromEmail}).WithError(err).Warn("primary sender failed, trying fallback identity")
	}

	fallback := mail.NewEmail(e.config.FallbackFromName, e.config.FallbackFromEmail)
	messageID, fbErr := e.trySend(ctx, fallback, to, subject, htmlContent)
	if fbErr != nil {
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).WithError(fbErr).Error("failed to send email")
		}
		return "", fbErr
	}
	return messageID, nil
}

func (e *EmailService) trySend(ctx context.Context, from *mail.Email, to, subject, htmlContent string) (string, error) {
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, "", htmlContent)

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	if err := classifyResponse(response); err != nil {
		return "", err
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"to":          to,
			"subject":     subject,
			"status_code": response.StatusCode,
		}).Info("Email sent successfully")
	}

	return messageIDFromResponse(response), nil
}

// classifyResponse maps provider status codes to the error taxonomy.
func classifyResponse(response *rest.Response) error {
	switch {
	case response.StatusCode < http.StatusBadRequest:
		return nil
	case response.StatusCode == http.StatusTooManyRequests:
		return &waitlist.RateLimitedError{RetryAfter: retryAfterFromResponse(response)}
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		return waitlist.ErrProviderNotConfigured
	default:
		return fmt.Errorf("email provider returned status %d", response.StatusCode)
	}
}

func retryAfterFromResponse(response *rest.Response) time.Duration {
	for _, key := range []string{"Retry-After", "retry-after"} {
		if values, ok := response.Headers[key]; ok && len(values) > 0 {
			if seconds, err := strconv.Atoi(values[0]); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	return defaultRetryAfter
}

func messageIDFromResponse(response *rest.Response) string {
	for _, key := range []string{"X-Message-Id", "X-Message-ID"} {
		if values, ok := response.Headers[key]; ok && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// renderTemplate renders an email template with the provided data
func (e *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := e.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

// VerificationEmailData holds data for the verification template
type VerificationEmailData struct {
	CompanyName     string
	UserName        string
	VerificationURL string
}

// WelcomeEmailData holds data for the welcome template
type WelcomeEmailData struct {
	CompanyName      string
	UserName         string
	WaitlistPosition int
	UserType         string
	SiteURL          string
}

// SendVerificationEmail sends the verification link embedding the token.
func (e *EmailService) SendVerificationEmail(ctx context.Context, email, token, userName string) (string, error) {
	data := VerificationEmailData{
		CompanyName:     e.config.CompanyName,
		UserName:        userName,
		VerificationURL: fmt.Sprintf("%s/verify-email?token=%s", e.config.BaseURL, token),
	}

	htmlContent, err := e.renderTemplate("verification", data)
	if err != nil {
		return "", fmt.Errorf("failed to render verification email template: %w", err)
	}

	subject := fmt.Sprintf("Verify Your Email Address - %s", e.config.CompanyName)

	return e.sendEmail(ctx, email, subject, htmlContent)
}

// SendWelcomeEmail sends the post-quiz welcome email with the queue position.
func (e *EmailService) SendWelcomeEmail(ctx context.Context, email, userName string, position int, userType waitlist.UserType) (string, error) {
	data := WelcomeEmailData{
		CompanyName:      e.config.CompanyName,
		UserName:         userName,
		WaitlistPosition: position,
		UserType:         userType.String(),
		SiteURL:          e.config.BaseURL,
	}

	htmlContent, err := e.renderTemplate("welcome", data)
	if err != nil {
		return "", fmt.Errorf("failed to render welcome email template: %w", err)
	}

	subject := fmt.Sprintf("Welcome to %s - You're #%d on the Waitlist!", e.config.CompanyName, position)

	return e.sendEmail(ctx, email, subject, htmlContent)
}
