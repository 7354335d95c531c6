package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"backoffice-service/internal/credential"
	"backoffice-service/internal/dao"
	"backoffice-service/internal/model"
	"backoffice-service/internal/token"
	"backoffice-service/pkg/logger"
	"backoffice-service/prometheus"
)

// AuthHandler serves login and the two credential flows.
type AuthHandler struct {
	users  *dao.UserDAO
	tokens *token.Service
	creds  *credential.Orchestrator
}

func NewAuthHandler(users *dao.UserDAO, tokens *token.Service, creds *credential.Orchestrator) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, creds: creds}
}

// Login checks the credentials and issues a session token.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := h.users.FindByEmail(c.Request().Context(), req.Email)
	if err != nil {
		log.Error("User not found", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Error("Invalid password", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	tok, err := h.tokens.IssueSessionToken(user.ID)
	if err != nil {
		log.Error("Failed to generate session token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.ActiveTokensGauge.Inc()

	log.Info("User logged in", zap.String("id", user.ID), zap.String("email", user.Email))
	return c.JSON(http.StatusOK, echo.Map{
		"token": tok,
		"user":  user.Redacted(),
	})
}

// RequestSignup starts the signup flow for an email address.
func (h *AuthHandler) RequestSignup(c echo.Context) error {
	prometheus.SignupCounter.WithLabelValues("request").Inc()

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := h.creds.RequestSignup(c.Request().Context(), req.Email); err != nil {
		return respondError(c, err)
	}
	return ok(c)
}

// ValidateSignup checks a presented signup token.
func (h *AuthHandler) ValidateSignup(c echo.Context) error {
	prometheus.SignupCounter.WithLabelValues("validate").Inc()

	payload, err := h.creds.ValidateSignupToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"email": payload.Email, "expiration": payload.Expiration})
}

// CompleteSignup commits the signup flow with the user's own data and
// password.
func (h *AuthHandler) CompleteSignup(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.SignupCounter.WithLabelValues("commit").Inc()

	var req struct {
		User     model.User `json:"user"`
		Password string     `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse signup request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	created, err := h.creds.CompleteSignup(c.Request().Context(), c.Param("token"), &req.User, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// RequestForgot starts the password recovery flow.
func (h *AuthHandler) RequestForgot(c echo.Context) error {
	prometheus.ForgotCounter.WithLabelValues("request").Inc()

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := h.creds.RequestForgot(c.Request().Context(), req.Email); err != nil {
		return respondError(c, err)
	}
	return ok(c)
}

// ValidateForgot checks a presented recovery token and returns the
// account it belongs to, without the password.
func (h *AuthHandler) ValidateForgot(c echo.Context) error {
	prometheus.ForgotCounter.WithLabelValues("validate").Inc()

	user, err := h.creds.ValidateForgotToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ResetPassword commits the recovery flow with the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	prometheus.ForgotCounter.WithLabelValues("commit").Inc()

	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := h.creds.ResetPassword(c.Request().Context(), c.Param("token"), req.Password); err != nil {
		return respondError(c, err)
	}
	return ok(c)
}
