package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"skillpath/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the skillpath HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// EvaluateParams toggles request-scoped evaluation behavior.
type EvaluateParams struct {
	AdminPreview bool
	Demo         bool
	Premium      bool
}

func (p EvaluateParams) encode() string {
	q := url.Values{}
	if p.AdminPreview {
		q.Set("admin_preview", "1")
	}
	if p.Demo {
		q.Set("demo", "1")
	}
	if p.Premium {
		q.Set("premium", "1")
	}
	return q.Encode()
}

// EvaluatePath fetches the computed progression view for a user on a path.
func (c *Client) EvaluatePath(ctx context.Context, userID, pathKey string, params EvaluateParams) (PathEvaluation, error) {
	u, err := c.pathURL(userID, pathKey, "")
	if err != nil {
		return PathEvaluation{}, err
	}
	if q := params.encode(); q != "" {
		u += "?" + q
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return PathEvaluation{}, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PathEvaluation{}, err
	}
	defer resp.Body.Close()

	var eval PathEvaluation
	if err := decodeJSON(resp, &eval); err != nil {
		return PathEvaluation{}, err
	}
	return eval, nil
}

// RecordFigure records a figure status for a user and returns the fresh evaluation.
func (c *Client) RecordFigure(ctx context.Context, userID, pathKey, figureID, status string) (PathEvaluation, error) {
	return c.postRecord(ctx, userID, pathKey, "figures", map[string]any{
		"figure_id": figureID,
		"status":    status,
	})
}

// RecordTraining records a training completion for a level.
func (c *Client) RecordTraining(ctx context.Context, userID, pathKey, levelID, trainingID string) (PathEvaluation, error) {
	return c.postRecord(ctx, userID, pathKey, "trainings", map[string]any{
		"level_id":    levelID,
		"training_id": trainingID,
	})
}

// RecordChallenge records a challenge participation update.
func (c *Client) RecordChallenge(ctx context.Context, userID, pathKey string, update ChallengeUpdate) (PathEvaluation, error) {
	return c.postRecord(ctx, userID, pathKey, "challenges", update)
}

func (c *Client) postRecord(ctx context.Context, userID, pathKey, kind string, payload any) (PathEvaluation, error) {
	u, err := c.pathURL(userID, pathKey, kind)
	if err != nil {
		return PathEvaluation{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return PathEvaluation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return PathEvaluation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PathEvaluation{}, err
	}
	defer resp.Body.Close()

	var eval PathEvaluation
	if err := decodeJSON(resp, &eval); err != nil {
		return PathEvaluation{}, err
	}
	return eval, nil
}

// Leaderboard fetches the top n ranked users for a path.
func (c *Client) Leaderboard(ctx context.Context, pathKey string, n int) ([]LeaderboardEntry, error) {
	if strings.TrimSpace(pathKey) == "" {
		return nil, ErrEmptyPathKey
	}
	u := fmt.Sprintf("%s/paths/%s/leaderboard", c.baseURL, url.PathEscape(pathKey))
	if n > 0 {
		u += fmt.Sprintf("?n=%d", n)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Path    string             `json:"path"`
		Entries []LeaderboardEntry `json:"entries"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return nil, err
	}
	return body.Entries, nil
}

// Achievements fetches the achievement IDs a user holds.
func (c *Client) Achievements(ctx context.Context, userID string) ([]string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	u := fmt.Sprintf("%s/users/%s/achievements", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		UserID       string   `json:"user_id"`
		Achievements []string `json:"achievements"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return nil, err
	}
	return body.Achievements, nil
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	u := c.baseURL + "/healthz"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return HealthStatus{}, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{}, err
	}
	defer resp.Body.Close()

	var hs HealthStatus
	if err := decodeJSON(resp, &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				var evt core.Event
				if err := conn.ReadJSON(&evt); err != nil {
					return
				}
				select {
				case out <- evt:
				default:
					// drop if consumer is slow
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) pathURL(userID, pathKey, suffix string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrEmptyUserID
	}
	if strings.TrimSpace(pathKey) == "" {
		return "", ErrEmptyPathKey
	}
	u := fmt.Sprintf("%s/users/%s/paths/%s", c.baseURL, url.PathEscape(userID), url.PathEscape(pathKey))
	if suffix != "" {
		u += "/" + suffix
	}
	return u, nil
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
