package app

import (
	"context"
	"net/http"

	"role-gate/internal/auth/bridge"
	"role-gate/internal/auth/handler"
	"role-gate/internal/auth/policy"
	"role-gate/internal/auth/provider/discord"
	"role-gate/internal/auth/provider/google"
	"role-gate/internal/auth/state"
	"role-gate/internal/config"
	"role-gate/internal/guild"
	"role-gate/internal/metrics"
	"role-gate/internal/middleware"
	"role-gate/internal/notify"
	"role-gate/internal/session"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	discordProvider, err := discord.New(
		cfg.DiscordClientID,
		cfg.DiscordClientSecret,
		cfg.DiscordRedirectURL(),
		cfg.DiscordAPIBase,
		cfg.DiscordTimeout,
		m,
	)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	googleProvider, err := google.New(google.Options{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.GoogleAuthURL,
			TokenURL: cfg.GoogleTokenURL,
		},
		KeySet:  oidc.NewRemoteKeySet(ctx, cfg.GoogleJWKSURL),
		Issuers: cfg.GoogleIssuers,
		Timeout: cfg.DiscordTimeout,
		Metrics: m,
	})
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	cookies := session.CookieOptions{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	guildClient := guild.NewClient(
		cfg.DiscordAPIBase,
		cfg.DiscordBotToken,
		cfg.DiscordGuildID,
		cfg.DiscordRoleID,
		cfg.DiscordTimeout,
		m,
	)

	deps := handler.Deps{
		Discord: discordProvider,
		Google:  googleProvider,
		States:  state.NewManager(cfg.FlowTTL, cookies),
		Bridge:  bridge.New([]byte(cfg.CarryTokenSecret), cfg.FlowTTL, infra.Ledger),
		Policy:  policy.NewDomainAllowList(cfg.AllowedEmailDomains),
		Guild:   guildClient,
		Cookies: cookies,
		FlowTTL: cfg.FlowTTL,
		Metrics: m,
	}
	if webhook := notify.NewWebhook(cfg.DiscordWebhookURL, cfg.DiscordTimeout, m); webhook != nil {
		deps.Notifier = webhook
	}

	authHandler := handler.NewHandler(deps)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.GinRequestID(), middleware.GinAccessLog())

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, infra.Close, nil
}
