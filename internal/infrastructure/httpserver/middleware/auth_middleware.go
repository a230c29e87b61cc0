package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware verifies the service bearer credential on protected
// endpoints. The credential is an HS256-signed JWT checked against the
// configured secret; no per-user claims are read from it.
type AuthMiddleware struct {
	secret string
	logger *logrus.Logger
}

func NewAuthMiddleware(secret string, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, logger: logger}
}

// RequireServiceToken creates middleware that rejects requests without a
// valid bearer credential.
func (m *AuthMiddleware) RequireServiceToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer credential")
			}

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(m.secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path}).Warn("bearer credential validation failed")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer credential")
			}

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("malformed authorization header")
	}
	return parts[1], nil
}
