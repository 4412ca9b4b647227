package discord

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"role-gate/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscord struct {
	tokenStatus int
	tokenBody   string
	userStatus  int
	userBody    string
	delay       time.Duration
	tokenForm   url.Values
	bearer      string
}

func (f *fakeDiscord) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.tokenForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(f.tokenBody))
	})
	mux.HandleFunc("GET /users/@me", func(w http.ResponseWriter, r *http.Request) {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		f.bearer = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.userStatus)
		_, _ = w.Write([]byte(f.userBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func okFake() *fakeDiscord {
	return &fakeDiscord{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"discord-at","token_type":"Bearer","expires_in":604800,"scope":"identify"}`,
		userStatus:  http.StatusOK,
		userBody:    `{"id":"80351110224678912","username":"nelly","global_name":"Nelly"}`,
	}
}

func newProvider(t *testing.T, srv *httptest.Server, timeout time.Duration) *Provider {
	t.Helper()
	p, err := New("client-id", "client-secret", "https://gate.example.com/auth/discord/callback", srv.URL, timeout, nil)
	require.NoError(t, err)
	return p
}

func TestNewRequiresFields(t *testing.T) {
	_, err := New("", "secret", "https://x/cb", "https://discord.com/api", time.Second, nil)
	require.Error(t, err)
}

func TestAuthCodeURL(t *testing.T) {
	p, err := New("client-id", "client-secret", "https://gate.example.com/auth/discord/callback", "https://discord.com/api/v10", time.Second, nil)
	require.NoError(t, err)

	u, err := url.Parse(p.AuthCodeURL("S1"))
	require.NoError(t, err)

	assert.Equal(t, "/api/v10/oauth2/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://gate.example.com/auth/discord/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "identify", q.Get("scope"))
	assert.Equal(t, "S1", q.Get("state"))
}

func TestExchangeCodeSuccess(t *testing.T) {
	f := okFake()
	p := newProvider(t, f.server(t), time.Second)

	id, err := p.ExchangeCode(context.Background(), "C1")
	require.NoError(t, err)

	assert.Equal(t, "discord", id.Provider)
	assert.Equal(t, "80351110224678912", id.ProviderUserID)
	assert.Equal(t, "nelly", id.Username)

	assert.Equal(t, "C1", f.tokenForm.Get("code"))
	assert.Equal(t, "authorization_code", f.tokenForm.Get("grant_type"))
	assert.Equal(t, "client-id", f.tokenForm.Get("client_id"))
	assert.Equal(t, "client-secret", f.tokenForm.Get("client_secret"))
	assert.Equal(t, "https://gate.example.com/auth/discord/callback", f.tokenForm.Get("redirect_uri"))
	assert.Equal(t, "Bearer discord-at", f.bearer)
}

func TestExchangeCodeTokenRejected(t *testing.T) {
	f := okFake()
	f.tokenStatus = http.StatusBadRequest
	f.tokenBody = `{"error":"invalid_grant","error_description":"Invalid \"code\" in request."}`
	p := newProvider(t, f.server(t), time.Second)

	_, err := p.ExchangeCode(context.Background(), "bad")
	require.ErrorIs(t, err, auth.ErrProviderExchange)

	var flowErr *auth.Error
	require.ErrorAs(t, err, &flowErr)
	assert.NotContains(t, flowErr.Message, "invalid_grant")
}

func TestExchangeCodeMissingAccessToken(t *testing.T) {
	f := okFake()
	f.tokenBody = `{"token_type":"Bearer"}`
	p := newProvider(t, f.server(t), time.Second)

	_, err := p.ExchangeCode(context.Background(), "C1")
	require.ErrorIs(t, err, auth.ErrMissingIdentity)
}

func TestExchangeCodeUserWithoutID(t *testing.T) {
	f := okFake()
	f.userBody = `{"username":"ghost"}`
	p := newProvider(t, f.server(t), time.Second)

	_, err := p.ExchangeCode(context.Background(), "C1")
	require.ErrorIs(t, err, auth.ErrMissingIdentity)
}

func TestExchangeCodeUserLookupFails(t *testing.T) {
	f := okFake()
	f.userStatus = http.StatusUnauthorized
	f.userBody = `{"message":"401: Unauthorized","code":0}`
	p := newProvider(t, f.server(t), time.Second)

	_, err := p.ExchangeCode(context.Background(), "C1")
	require.ErrorIs(t, err, auth.ErrProviderExchange)
}

func TestExchangeCodeUserLookupTimeout(t *testing.T) {
	f := okFake()
	f.delay = 200 * time.Millisecond
	p := newProvider(t, f.server(t), 50*time.Millisecond)

	_, err := p.ExchangeCode(context.Background(), "C1")
	require.ErrorIs(t, err, auth.ErrProviderExchange)
}
