package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"role-gate/internal/auth"
	"role-gate/internal/logger"
	"role-gate/internal/metrics"

	"golang.org/x/oauth2"
)

const providerName = "discord"

// Provider implements the Discord hop: authorization code exchange
// followed by a /users/@me lookup. Discord has no OIDC, so the user id
// comes from the REST API.
type Provider struct {
	oauthConfig *oauth2.Config
	apiBase     string
	httpClient  *http.Client
	timeout     time.Duration
	metrics     *metrics.Metrics
}

// User is the subset of the Discord user object the flow needs.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	Locale        string `json:"locale"`
	MFAEnabled    bool   `json:"mfa_enabled"`
}

func New(
	clientID string,
	clientSecret string,
	redirectURL string,
	apiBase string,
	timeout time.Duration,
	m *metrics.Metrics,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" || apiBase == "" {
		return nil, errors.New("discord oauth config missing required fields")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   apiBase + "/oauth2/authorize",
			TokenURL:  apiBase + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{"identify"},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		apiBase:     apiBase,
		httpClient:  &http.Client{Timeout: timeout},
		timeout:     timeout,
		metrics:     m,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the Discord authorization URL with scope identify.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

func (p *Provider) ExchangeCode(ctx context.Context, code string) (*auth.Identity, error) {
	accessToken, err := p.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := p.fetchUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: user.ID,
		Username:       user.Username,
	}, nil
}

func (p *Provider) exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	start := time.Now()
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		var urlErr *url.Error
		switch {
		case errors.As(err, &retrieveErr):
			p.metrics.ObserveUpstream("discord_token", retrieveErr.Response.StatusCode, time.Since(start))
			logger.Error("discord token exchange rejected", map[string]any{
				"status": retrieveErr.Response.StatusCode,
				"body":   string(retrieveErr.Body),
			})
			return "", auth.NewError(auth.KindProviderExchange, "Failed to get access token", err)
		case errors.As(err, &urlErr), errors.Is(err, context.DeadlineExceeded):
			p.metrics.ObserveUpstream("discord_token", 0, time.Since(start))
			return "", auth.NewError(auth.KindProviderExchange, "Failed to get access token", err)
		default:
			// 2xx without a usable access_token
			p.metrics.ObserveUpstream("discord_token", http.StatusOK, time.Since(start))
			return "", auth.NewError(auth.KindMissingIdentity, "Failed to get access token", err)
		}
	}
	p.metrics.ObserveUpstream("discord_token", http.StatusOK, time.Since(start))

	if token.AccessToken == "" {
		return "", auth.NewError(auth.KindMissingIdentity, "Failed to get access token", nil)
	}
	return token.AccessToken, nil
}

func (p *Provider) fetchUser(ctx context.Context, accessToken string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, auth.NewError(auth.KindInternal, auth.ErrInternal.Message, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.metrics.ObserveUpstream("discord_user", 0, time.Since(start))
		return nil, auth.NewError(auth.KindProviderExchange, "Failed to get user", err)
	}
	defer resp.Body.Close()
	p.metrics.ObserveUpstream("discord_user", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Error("discord user lookup rejected", map[string]any{
			"status": resp.StatusCode,
			"body":   string(body),
		})
		return nil, auth.NewError(auth.KindProviderExchange, "Failed to get user",
			fmt.Errorf("discord /users/@me returned %d", resp.StatusCode))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, auth.NewError(auth.KindMissingIdentity, "Failed to get user", err)
	}
	if user.ID == "" {
		return nil, auth.NewError(auth.KindMissingIdentity, "Failed to get user", errors.New("discord user has no id"))
	}

	logger.Info("discord user resolved", map[string]any{
		"discord_user_id": user.ID,
		"username":        user.Username,
	})

	return &user, nil
}
