// Package guild talks to the Discord bot REST API for membership and
// role changes in one configured guild.
package guild

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"role-gate/internal/metrics"
)

var ErrMemberNotFound = errors.New("guild: member not found")

// APIError is a non-success response from the Discord API.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("guild: %s returned %d", e.Op, e.Status)
}

// Member is the subset of a guild member object the flow reads.
type Member struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Nick  string   `json:"nick"`
	Roles []string `json:"roles"`
}

// HasRole reports whether the member already holds roleID.
func (m *Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

type Client struct {
	apiBase    string
	botToken   string
	guildID    string
	roleID     string
	httpClient *http.Client
	timeout    time.Duration
	metrics    *metrics.Metrics
}

func NewClient(
	apiBase string,
	botToken string,
	guildID string,
	roleID string,
	timeout time.Duration,
	m *metrics.Metrics,
) *Client {
	return &Client{
		apiBase:    apiBase,
		botToken:   botToken,
		guildID:    guildID,
		roleID:     roleID,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		metrics:    m,
	}
}

// RoleID returns the role this client grants.
func (c *Client) RoleID() string {
	return c.roleID
}

// GetMember looks up userID in the guild. A 404 yields ErrMemberNotFound.
func (c *Client) GetMember(ctx context.Context, userID string) (*Member, error) {
	path := "/guilds/" + url.PathEscape(c.guildID) + "/members/" + url.PathEscape(userID)

	resp, body, err := c.do(ctx, http.MethodGet, path, "discord_member")
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrMemberNotFound
	default:
		return nil, &APIError{Op: "get member", Status: resp.StatusCode, Body: string(body)}
	}

	var m Member
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("guild: decode member: %w", err)
	}
	return &m, nil
}

// AddRole grants the configured role to userID. Only 204 is success.
func (c *Client) AddRole(ctx context.Context, userID string) error {
	path := "/guilds/" + url.PathEscape(c.guildID) +
		"/members/" + url.PathEscape(userID) +
		"/roles/" + url.PathEscape(c.roleID)

	resp, body, err := c.do(ctx, http.MethodPut, path, "discord_role")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return &APIError{Op: "add role", Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, upstream string) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("guild: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.botToken)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(upstream, 0, time.Since(start))
		return nil, nil, fmt.Errorf("guild: %s %s: %w", method, upstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	c.metrics.ObserveUpstream(upstream, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, nil, fmt.Errorf("guild: read %s response: %w", upstream, err)
	}
	return resp, body, nil
}
