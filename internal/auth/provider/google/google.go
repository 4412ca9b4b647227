package google

import (
	"context"
	"errors"
	"net/http"
	"time"

	"role-gate/internal/auth"
	"role-gate/internal/logger"
	"role-gate/internal/metrics"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const providerName = "google"

type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	issuers     map[string]struct{}
	httpClient  *http.Client
	timeout     time.Duration
	metrics     *metrics.Metrics
}

// Options configures the Google hop. KeySet is normally
// oidc.NewRemoteKeySet over Google's JWKS URL.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
	KeySet       oidc.KeySet
	Issuers      []string
	Timeout      time.Duration
	Metrics      *metrics.Metrics

	// Now overrides the verifier clock in tests.
	Now func() time.Time
}

func New(opts Options) (*Provider, error) {

	if opts.ClientID == "" || opts.ClientSecret == "" || opts.RedirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}
	if opts.KeySet == nil || len(opts.Issuers) == 0 {
		return nil, errors.New("google oidc key set and issuers are required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	// Google signs with either issuer form, so the issuer is checked
	// against the accepted set after go-oidc verifies everything else.
	verifier := oidc.NewVerifier("", opts.KeySet, &oidc.Config{
		ClientID:        opts.ClientID,
		SkipIssuerCheck: true,
		Now:             opts.Now,
	})

	issuers := make(map[string]struct{}, len(opts.Issuers))
	for _, iss := range opts.Issuers {
		issuers[iss] = struct{}{}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		RedirectURL:  opts.RedirectURL,
		Endpoint:     opts.Endpoint,
		Scopes: []string{
			oidc.ScopeOpenID,
			"email",
			"profile",
		},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		verifier:    verifier,
		issuers:     issuers,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		timeout:     opts.Timeout,
		metrics:     opts.Metrics,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the Google authorization URL for openid email profile.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode exchanges the code and returns claims from a fully
// verified ID token. Claims are never read from an unverified token.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*auth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	start := time.Now()
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		status := 0
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		p.metrics.ObserveUpstream("google_token", status, time.Since(start))
		logger.Error("google token exchange failed", map[string]any{
			"status": status,
			"error":  err.Error(),
		})
		return nil, auth.NewError(auth.KindProviderExchange, "Failed to get Google token", err)
	}
	p.metrics.ObserveUpstream("google_token", http.StatusOK, time.Since(start))

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, auth.NewError(auth.KindMissingIdentity, "Failed to get Google token", errors.New("google did not return id_token"))
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Error("google id_token verification failed", map[string]any{
			"error": err.Error(),
		})
		return nil, auth.NewError(auth.KindProviderExchange, "Failed to verify Google token", err)
	}

	if _, ok := p.issuers[idToken.Issuer]; !ok {
		logger.Error("google id_token issuer rejected", map[string]any{
			"issuer": idToken.Issuer,
		})
		return nil, auth.NewError(auth.KindProviderExchange, "Failed to verify Google token", errors.New("unexpected issuer "+idToken.Issuer))
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}

	if err := idToken.Claims(&claims); err != nil {
		return nil, auth.NewError(auth.KindMissingIdentity, "Failed to get email", err)
	}

	if claims.Email == "" {
		return nil, auth.NewError(auth.KindMissingIdentity, "Failed to get email", errors.New("google id_token missing email"))
	}

	logger.Info("google oidc verified", map[string]any{
		"issuer":         idToken.Issuer,
		"email_verified": claims.EmailVerified,
		"audience":       idToken.Audience,
		"expiry_unix":    idToken.Expiry.Unix(),
	})

	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		Issuer:         idToken.Issuer,
	}, nil
}
