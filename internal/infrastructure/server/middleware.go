package server

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	httpHandlers "github.com/taskhub/core/internal/adapters/http"
	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/ports"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	ValidateToken(token string) (*ports.Claims, error)
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

var hexColor6 = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// NewValidator returns the request validator with the custom rules registered.
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
		return hexColor6.MatchString(fl.Field().String())
	})
	return &CustomValidator{validator: v}
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// authMiddleware validates JWT tokens and stores the caller's id on the context
func (s *Server) authMiddleware(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return entities.ErrNotAuthenticated
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader || tokenString == "" {
				return entities.ErrNotAuthenticated
			}

			claims, err := verifier.ValidateToken(tokenString)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error": err.Error(),
				})
				return entities.ErrNotAuthenticated
			}

			c.Set(httpHandlers.ContextUserKey, claims.UserID)
			c.Set("user_email", claims.Email)

			return next(c)
		}
	}
}

// metricsMiddleware records request count and latency per route
func (s *Server) metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the status before it is recorded.
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			s.metrics.RequestsTotal.WithLabelValues(
				c.Request().Method,
				path,
				strconv.Itoa(c.Response().Status),
			).Inc()

			s.metrics.RequestDuration.WithLabelValues(
				c.Request().Method,
				path,
			).Observe(time.Since(start).Seconds())

			return nil
		}
	}
}
