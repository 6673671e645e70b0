package falcon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// Base URLs per cloud region. Anything not in this table is treated as a
// literal URL so the client can be pointed at lab or mock servers.
var regionBaseURLs = map[string]string{
	"auto":   "https://api.crowdstrike.com",
	"us-1":   "https://api.crowdstrike.com",
	"us-2":   "https://api.us-2.crowdstrike.com",
	"eu-1":   "https://api.eu-1.crowdstrike.com",
	"usgov1": "https://api.laggar.gcw.crowdstrike.com",
}

type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// Client talks to the Falcon REST API. It owns OAuth2 token exchange and
// refresh; callers only see the resource endpoints.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	http         *retryablehttp.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client ID and secret are required")
	}

	base := ResolveBaseURL(cfg.BaseURL)
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	httpClient := retryablehttp.NewClient()
	httpClient.Logger = nil
	httpClient.HTTPClient.Timeout = 60 * time.Second

	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      strings.TrimRight(base, "/"),
		http:         httpClient,
	}, nil
}

// ResolveBaseURL maps a region alias to its API host. Unknown values pass
// through unchanged.
func ResolveBaseURL(region string) string {
	if region == "" {
		region = "auto"
	}
	if base, ok := regionBaseURLs[strings.ToLower(region)]; ok {
		return base
	}
	return region
}

// APIError is any response the API answered with an unexpected status. It
// carries the raw body so failures surface exactly what the platform said.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API response %d - %s", e.StatusCode, e.Body)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("authenticate: %w", &APIError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access token")
	}

	c.token = tok.AccessToken
	// Refresh a minute early so in-flight calls never ride an expired token.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)

	return c.token, nil
}

// do issues an authenticated request and decodes the JSON response into out.
// It returns *APIError for any status outside wantStatus.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, wantStatus int, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = strings.NewReader(string(data))
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

type ccidResponse struct {
	Resources []string `json:"resources"`
}

// CCID returns the customer ID the credentials authenticate as, in the
// sensor-installer form "<cid>-<checksum>".
func (c *Client) CCID(ctx context.Context) (string, error) {
	var out ccidResponse
	if err := c.do(ctx, http.MethodGet, "/sensors/queries/installers/ccid/v1", nil, nil, http.StatusOK, &out); err != nil {
		return "", fmt.Errorf("query CCID: %w", err)
	}
	if len(out.Resources) == 0 {
		return "", fmt.Errorf("CCID query returned no resources")
	}
	return out.Resources[0], nil
}
