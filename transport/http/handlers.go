package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/pkg/log"
	"github.com/layer-3/walletauth/service"
)

// Config holds the cookie settings of the Auth Backend.
type Config struct {
	CookieName   string `env:"WALLETAUTH_COOKIE_NAME" env-default:"walletauth_session"`
	CookieSecure bool   `env:"WALLETAUTH_COOKIE_SECURE" env-default:"true"`
	CookieDomain string `env:"WALLETAUTH_COOKIE_DOMAIN"`
}

func (c Config) cookieName() string {
	if c.CookieName == "" {
		return "walletauth_session"
	}
	return c.CookieName
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	cfg         Config
	metrics     *Metrics
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cfg Config, metrics *Metrics) *AuthHandlers {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &AuthHandlers{
		authService: authService,
		cfg:         cfg,
		metrics:     metrics,
	}
}

// Nonce issues a sign-in challenge
func (h *AuthHandlers) Nonce(c *gin.Context) {
	var req core.NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ch, err := h.authService.IssueNonce(c.Request.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to create challenge"

		switch {
		case errors.Is(err, core.ErrInvalidAddress):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid address"
		case errors.Is(err, core.ErrUnsupportedChain):
			statusCode = http.StatusBadRequest
			errorMsg = "Unsupported chain kind"
		case errors.Is(err, core.ErrDomainNotAllowed):
			statusCode = http.StatusForbidden
			errorMsg = "Domain not allowed"
		default:
			log.FromContext(c.Request.Context()).Error("failed to issue nonce", "err", err)
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	h.metrics.NoncesIssued.WithLabelValues(string(ch.ChainKind)).Inc()
	c.JSON(http.StatusOK, core.NonceResponse{Nonce: ch.Nonce, Message: ch.Message})
}

// Verify checks a signed challenge and starts a session
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req core.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, verifyFailure("Invalid request"))
		return
	}

	res, err := h.authService.Verify(c.Request.Context(), req)
	if err != nil {
		statusCode := http.StatusUnauthorized
		errorMsg := "Authentication failed"
		result := "error"

		switch {
		case errors.Is(err, core.ErrInvalidChallenge):
			errorMsg = "Invalid or expired nonce"
			result = "invalid_challenge"
		case errors.Is(err, core.ErrInvalidSignature):
			errorMsg = "Invalid signature"
			result = "invalid_signature"
		case errors.Is(err, core.ErrInvalidAddress), errors.Is(err, core.ErrUnsupportedChain):
			errorMsg = "Invalid wallet"
			result = "invalid_wallet"
		case errors.Is(err, core.ErrDomainNotAllowed):
			errorMsg = "Domain not allowed"
			result = "invalid_domain"
		default:
			statusCode = http.StatusInternalServerError
			log.FromContext(c.Request.Context()).Error("verification failed", "err", err)
		}

		h.metrics.Verifications.WithLabelValues(string(req.ChainKind), result).Inc()
		c.JSON(statusCode, verifyFailure(errorMsg))
		return
	}

	h.metrics.Verifications.WithLabelValues(string(res.Session.ChainKind), "success").Inc()
	h.setSessionCookie(c, res.Token, time.Until(res.Session.ExpiresAt))
	c.JSON(http.StatusOK, core.VerifyResponse{Success: true, User: res.User.Profile()})
}

// Me returns the profile of the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), session)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		default:
			log.FromContext(c.Request.Context()).Error("failed to load user", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		}
		return
	}

	c.JSON(http.StatusOK, user.Profile())
}

// Logout ends the session. It always succeeds from the caller's view.
func (h *AuthHandlers) Logout(c *gin.Context) {
	h.metrics.Logouts.Inc()

	if token := sessionToken(c, h.cfg.cookieName()); token != "" {
		if err := h.authService.Logout(c.Request.Context(), token); err != nil {
			log.FromContext(c.Request.Context()).Warn("logout failed", "err", err)
		}
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Authorize checks if a user is authorized
func (h *AuthHandlers) Authorize(c *gin.Context) {
	// The middleware has already validated the session.
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"address":    session.Address,
		"chainKind":  session.ChainKind,
	})
}

// Health reports liveness.
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AuthHandlers) setSessionCookie(c *gin.Context, value string, ttl time.Duration) {
	maxAge := -1
	if ttl > 0 {
		maxAge = int(ttl / time.Second)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.cookieName(), value, maxAge, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}

func verifyFailure(msg string) core.VerifyResponse {
	return core.VerifyResponse{Error: &core.APIError{Message: msg}}
}
