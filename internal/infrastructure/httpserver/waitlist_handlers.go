package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/purrfectstays/waitlist-api/internal/core/domain/waitlist"
	"github.com/purrfectstays/waitlist-api/internal/pkg/validate"
)

// Registration handler
func (s *Server) sendVerificationEmail(c echo.Context) error {
	var req waitlist.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return validationResponse(c, err)
	}

	result, err := s.registrationSvc.Register(c.Request().Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, waitlist.ErrAlreadyRegistered):
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"error": "this email is already registered",
			})
		default:
			var ve *validate.Error
			if errors.As(err, &ve) {
				return validationResponse(c, ve)
			}
			s.logger.WithError(err).Error("registration failed")
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"error": "service unavailable, contact support",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":           true,
		"user":              result.User,
		"verificationToken": result.VerificationToken,
		"emailDispatch":     result.EmailDispatchOutcome,
	})
}

// Verification handler: GET redirects (email links), POST returns JSON.
func (s *Server) verifyEmail(c echo.Context) error {
	var token string

	if c.Request().Method == http.MethodGet {
		token = c.QueryParam("token")
		if token == "" {
			return s.redirectVerifyResult(c, url.Values{
				"success": {"false"},
				"error":   {"missing verification token"},
			})
		}
	} else {
		var req waitlist.VerifyEmailRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if err := c.Validate(&req); err != nil {
			return validationResponse(c, err)
		}
		token = req.Token
	}

	result, err := s.verificationSvc.Verify(c.Request().Context(), token)
	if err != nil {
		if c.Request().Method == http.MethodGet {
			return s.redirectVerifyResult(c, url.Values{
				"success": {"false"},
				"error":   {verifyErrorMessage(err)},
			})
		}
		return verifyErrorJSON(c, err)
	}

	if c.Request().Method == http.MethodGet {
		return s.redirectVerifyResult(c, url.Values{
			"success":   {"true"},
			"user_id":   {result.UserID.String()},
			"user_type": {result.UserType.String()},
			"name":      {result.Name},
			"email":     {result.Email},
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"user_id":   result.UserID,
		"user_type": result.UserType,
		"name":      result.Name,
		"email":     result.Email,
		"message":   result.Message,
	})
}

func (s *Server) redirectVerifyResult(c echo.Context, params url.Values) error {
	return c.Redirect(http.StatusFound, fmt.Sprintf("%s/verify-result?%s", s.config.SiteURL, params.Encode()))
}

func verifyErrorMessage(err error) string {
	if errors.Is(err, waitlist.ErrVerifyFailed) {
		return waitlist.ErrVerifyFailed.Error()
	}
	if errors.Is(err, waitlist.ErrDependencyUnavailable) {
		return "service unavailable, contact support"
	}
	return waitlist.ErrTokenInvalid.Error()
}

func verifyErrorJSON(c echo.Context, err error) error {
	switch {
	case errors.Is(err, waitlist.ErrTokenInvalid):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   waitlist.ErrTokenInvalid.Error(),
		})
	case errors.Is(err, waitlist.ErrVerifyFailed):
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   waitlist.ErrVerifyFailed.Error(),
		})
	default:
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"error":   "service unavailable, contact support",
		})
	}
}

// Resend handler. The response is deliberately uniform for unknown addresses
// so the endpoint cannot be used to probe which emails are registered.
func (s *Server) resendVerification(c echo.Context) error {
	var req waitlist.ResendVerificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return validationResponse(c, err)
	}

	outcome, err := s.registrationSvc.ResendVerification(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, waitlist.ErrProviderNotConfigured) {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"error": "email service unavailable, contact support",
			})
		}
		s.logger.WithError(err).Debug("resend verification not performed")
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "if the address has a pending registration, a new email has been sent",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       "if the address has a pending registration, a new email has been sent",
		"emailDispatch": outcome,
	})
}

// Welcome email handler
func (s *Server) sendWelcomeEmail(c echo.Context) error {
	var req waitlist.WelcomeEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var messageID string
	var err error
	if req.Email == "" && req.Name == "" {
		// Batch/cron variant: no explicit target in the body.
		messageID, err = s.welcomeSvc.SendWelcomeLatest(c.Request().Context())
	} else {
		if verr := c.Validate(&req); verr != nil {
			return validationResponse(c, verr)
		}
		messageID, err = s.welcomeSvc.SendWelcome(c.Request().Context(), &req)
	}

	if err != nil {
		var rl *waitlist.RateLimitedError
		switch {
		case errors.As(err, &rl):
			c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.RetryAfter.Seconds())))
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"error":      "email provider rate limited, retry later",
				"retryAfter": int(rl.RetryAfter.Seconds()),
			})
		case errors.Is(err, waitlist.ErrProviderNotConfigured):
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"error": "email service unavailable, contact support",
			})
		case errors.Is(err, waitlist.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"error": "user not found",
			})
		default:
			var ve *validate.Error
			if errors.As(err, &ve) {
				return validationResponse(c, ve)
			}
			s.logger.WithError(err).Error("welcome email failed")
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"error": "service unavailable, contact support",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"messageId": messageID,
	})
}

// validationResponse renders a 400 with the per-field details list.
func validationResponse(c echo.Context, err error) error {
	var ve *validate.Error
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "validation failed",
			"details": ve.Details,
		})
	}
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error":   "validation failed",
		"details": []string{err.Error()},
	})
}
