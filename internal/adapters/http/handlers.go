package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/ports"
)

// ContextUserKey is where the auth middleware stores the caller's uuid.UUID.
const ContextUserKey = "user"

// AuthService is the subset of the auth service used by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, req ports.RegisterRequest) (*ports.AuthResult, error)
	Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*ports.AuthResult, error)
	Logout(ctx context.Context, userID uuid.UUID) error
}

// UserService is the subset of the user service used by UserHandler.
type UserService interface {
	GetMe(ctx context.Context, actorID uuid.UUID) (*entities.User, error)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RegisterRequest true "Account data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Registration failed", "error", err, "email", req.Email)
		return err
	}

	return c.JSON(http.StatusCreated, presentAuth(result))
}

// Login godoc
// @Summary Log in with e-mail and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{
			"email": req.Email,
		})
		return err
	}

	return c.JSON(http.StatusOK, presentAuth(result))
}

// RefreshToken godoc
// @Summary Exchange a refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req ports.RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentAuth(result))
}

// Logout godoc
// @Summary Revoke every refresh token of the caller
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), actorID(c)); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// UserHandler handles user-related requests
type UserHandler struct {
	userService UserService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// GetMe godoc
// @Summary Current user profile
// @Tags me
// @Produce json
// @Success 200 {object} MeResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /me [get]
func (h *UserHandler) GetMe(c echo.Context) error {
	user, err := h.userService.GetMe(c.Request().Context(), actorID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentMe(user))
}

// Utility functions

// actorID returns the authenticated user, or uuid.Nil which every service rejects.
func actorID(c echo.Context) uuid.UUID {
	id, ok := c.Get(ContextUserKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	return c.Validate(req)
}

// pathID parses a uuid path parameter. Malformed ids are reported as not found.
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, entities.ErrNotFound
	}
	return id, nil
}

// queryPage reads page and perPage from the query string. Absent values take
// the defaults; values outside the bounds are rejected.
func queryPage(c echo.Context, defaultPerPage int) (ports.Page, error) {
	page, err := queryIntOr(c, "page", 1)
	if err != nil {
		return ports.Page{}, err
	}
	if page < 1 || page > ports.MaxPage {
		return ports.Page{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid page parameter")
	}

	perPage, err := queryIntOr(c, "perPage", defaultPerPage)
	if err != nil {
		return ports.Page{}, err
	}
	if !ports.ValidPage(page, perPage) {
		return ports.Page{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid perPage parameter")
	}

	return ports.NewPage(page, perPage, defaultPerPage), nil
}

func queryIntOr(c echo.Context, name string, def int) (int, error) {
	if c.QueryParam(name) == "" {
		return def, nil
	}
	return queryInt(c, name)
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
	}
	return v, nil
}

func queryBool(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
	}
	return &v, nil
}

func queryString(c echo.Context, name string) *string {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil
	}
	return &raw
}
