package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"role-gate/internal/auth"
	"role-gate/internal/auth/bridge"
	"role-gate/internal/auth/policy"
	"role-gate/internal/auth/provider"
	"role-gate/internal/auth/state"
	"role-gate/internal/guild"
	"role-gate/internal/logger"
	"role-gate/internal/metrics"
	"role-gate/internal/middleware"
	"role-gate/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	stageStart           = "start"
	stageDiscordCallback = "discord_callback"
	stageGoogleCallback  = "google_callback"
)

// RoleGranter is the slice of the Discord bot API the flow needs.
type RoleGranter interface {
	GetMember(ctx context.Context, userID string) (*guild.Member, error)
	AddRole(ctx context.Context, userID string) error
	RoleID() string
}

// Notifier delivers a best-effort message after a role is granted.
type Notifier interface {
	Notify(ctx context.Context, content string) error
}

// Deps lists the collaborators of the flow. Notifier and Metrics may be nil.
type Deps struct {
	Discord  provider.OAuthProvider
	Google   provider.OAuthProvider
	States   *state.Manager
	Bridge   *bridge.Bridge
	Policy   *policy.DomainAllowList
	Guild    RoleGranter
	Notifier Notifier
	Cookies  session.CookieOptions
	FlowTTL  time.Duration
	Metrics  *metrics.Metrics
}

// Handler drives the Discord then Google authorization flow and grants
// the guild role once both identities are bound. It keeps no state
// between requests; everything travels in the flow cookies.
type Handler struct {
	discord  provider.OAuthProvider
	google   provider.OAuthProvider
	states   *state.Manager
	bridge   *bridge.Bridge
	policy   *policy.DomainAllowList
	guild    RoleGranter
	notifier Notifier
	cookies  session.CookieOptions
	flowTTL  time.Duration
	metrics  *metrics.Metrics
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		discord:  d.Discord,
		google:   d.Google,
		states:   d.States,
		bridge:   d.Bridge,
		policy:   d.Policy,
		guild:    d.Guild,
		notifier: d.Notifier,
		cookies:  d.Cookies,
		flowTTL:  d.FlowTTL,
		metrics:  d.Metrics,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.start)
	r.GET("/auth/discord/callback", h.discordCallback)
	r.GET("/auth/google/callback", h.googleCallback)
}

type grantResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

func (h *Handler) start(c *gin.Context) {
	nonce, err := h.states.Issue(c.Writer, state.DiscordHop)
	if err != nil {
		h.fail(c, stageStart, err, nil)
		return
	}

	h.metrics.FlowStarted()
	c.Redirect(http.StatusFound, h.discord.AuthCodeURL(nonce))
}

func (h *Handler) discordCallback(c *gin.Context) {
	if !h.states.Validate(c.Writer, c.Request, state.DiscordHop, c.Query("state")) {
		h.fail(c, stageDiscordCallback, auth.ErrInvalidState, nil)
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		h.fail(c, stageDiscordCallback, auth.ErrAuthorizationDenied, map[string]any{
			"provider_error": errParam,
			"desc":           c.Query("error_description"),
		})
		return
	}

	code := c.Query("code")
	if code == "" {
		h.fail(c, stageDiscordCallback, auth.ErrMissingCode, nil)
		return
	}

	identity, err := h.discord.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		h.fail(c, stageDiscordCallback, err, nil)
		return
	}

	carry, err := h.bridge.Mint(identity.ProviderUserID)
	if err != nil {
		h.fail(c, stageDiscordCallback, err, map[string]any{
			"discord_user_id": identity.ProviderUserID,
		})
		return
	}

	nonce, err := h.states.Issue(c.Writer, state.GoogleHop)
	if err != nil {
		h.fail(c, stageDiscordCallback, err, map[string]any{
			"discord_user_id": identity.ProviderUserID,
		})
		return
	}

	session.SetCookie(c.Writer, session.CarryCookieName, carry, h.flowTTL, h.cookies)

	logger.Info("discord hop complete", map[string]any{
		"discord_user_id": identity.ProviderUserID,
		"request_id":      requestID(c),
	})

	c.Redirect(http.StatusFound, h.google.AuthCodeURL(nonce))
}

func (h *Handler) googleCallback(c *gin.Context) {
	// The carry cookie is single use: it is cleared on every outcome.
	carry := session.ReadCookie(c.Request, session.CarryCookieName)
	session.ClearCookie(c.Writer, session.CarryCookieName, h.cookies)

	if !h.states.Validate(c.Writer, c.Request, state.GoogleHop, c.Query("state")) {
		h.fail(c, stageGoogleCallback, auth.ErrInvalidState, nil)
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		h.fail(c, stageGoogleCallback, auth.ErrAuthorizationDenied, map[string]any{
			"provider_error": errParam,
			"desc":           c.Query("error_description"),
		})
		return
	}

	ctx := c.Request.Context()

	discordUserID, err := h.bridge.Resolve(ctx, carry)
	if err != nil {
		h.fail(c, stageGoogleCallback, err, nil)
		return
	}
	fields := map[string]any{"discord_user_id": discordUserID}

	code := c.Query("code")
	if code == "" {
		h.fail(c, stageGoogleCallback, auth.ErrMissingCode, fields)
		return
	}

	identity, err := h.google.ExchangeCode(ctx, code)
	if err != nil {
		h.fail(c, stageGoogleCallback, err, fields)
		return
	}

	if !h.policy.Allows(identity.Email) {
		fields["email_domain"] = policy.Domain(identity.Email)
		h.fail(c, stageGoogleCallback, auth.ErrDomainNotAllowed, fields)
		return
	}

	member, err := h.guild.GetMember(ctx, discordUserID)
	if err != nil {
		if errors.Is(err, guild.ErrMemberNotFound) {
			h.fail(c, stageGoogleCallback, auth.ErrMemberNotFound, fields)
			return
		}
		h.fail(c, stageGoogleCallback,
			auth.NewError(auth.KindProviderExchange, "Failed to verify guild membership", err), fields)
		return
	}

	if member.HasRole(h.guild.RoleID()) {
		logger.Info("member already holds role; granting again", fields)
	}

	if err := h.guild.AddRole(ctx, discordUserID); err != nil {
		h.fail(c, stageGoogleCallback,
			auth.NewError(auth.KindRoleGrant, auth.ErrRoleGrant.Message, err), fields)
		return
	}

	h.metrics.RoleGranted()
	logger.Info("role granted", map[string]any{
		"discord_user_id": discordUserID,
		"email_domain":    policy.Domain(identity.Email),
		"request_id":      requestID(c),
	})

	h.notify(ctx, identity.Email, discordUserID)

	c.JSON(http.StatusOK, grantResponse{
		Message: "Role assigned successfully",
		Email:   identity.Email,
	})
}

// notify runs after the grant is final; its outcome is only logged.
func (h *Handler) notify(ctx context.Context, email, discordUserID string) {
	if h.notifier == nil {
		return
	}
	content := "Role assigned to " + email + " (" + discordUserID + ")"
	if err := h.notifier.Notify(ctx, content); err != nil {
		logger.Warn("role notification failed", map[string]any{
			"discord_user_id": discordUserID,
			"error":           err.Error(),
		})
	}
}

// fail logs err with its stage, records it and writes the client-safe message.
func (h *Handler) fail(c *gin.Context, stage string, err error, fields map[string]any) {
	var flowErr *auth.Error
	if !errors.As(err, &flowErr) {
		flowErr = auth.NewError(auth.KindInternal, auth.ErrInternal.Message, err)
	}

	logFields := map[string]any{
		"stage":      stage,
		"kind":       string(flowErr.Kind),
		"error":      err.Error(),
		"request_id": requestID(c),
	}
	for k, v := range fields {
		logFields[k] = v
	}

	status := flowErr.Kind.Status()
	if status >= http.StatusInternalServerError {
		logger.Error("flow failed", logFields)
	} else {
		logger.Warn("flow rejected", logFields)
	}

	h.metrics.FlowFailed(stage, string(flowErr.Kind))
	c.AbortWithStatusJSON(status, gin.H{"error": flowErr.Message})
}

func requestID(c *gin.Context) string {
	id, _ := middleware.RequestIDFromContext(c.Request.Context())
	return id
}
