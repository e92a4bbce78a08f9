package phishtank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the PhishTank check endpoint.
const DefaultBaseURL = "https://checkurl.phishtank.com/checkurl/index.php"

// Config drives PhishTank client behaviour.
type Config struct {
	APIKey    string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Record is the classification PhishTank returned for a URL.
type Record struct {
	// Phish holds the decoded data.url.phish value.
	Phish any
}

// Flagged reports whether the record marks the URL as phishing. Both the
// string "true" and the boolean true count; any other value does not.
func (r Record) Flagged() bool {
	switch v := r.Phish.(type) {
	case string:
		return v == "true"
	case bool:
		return v
	default:
		return false
	}
}

// StatusError is returned when PhishTank answers with a non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("phishtank api status %d", e.Code)
}

// ErrInvalidPayload is returned when a 200 response lacks data.url.phish.
var ErrInvalidPayload = errors.New("phishtank payload missing data.url")

// Client performs PhishTank lookups.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	timeout    time.Duration
}

// NewClient constructs a PhishTank client. An empty API key is allowed;
// PhishTank serves keyless requests with a lower quota.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = "phishtank/phishing-check"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// HasAPIKey reports whether requests carry a credential.
func (c *Client) HasAPIKey() bool { return c.apiKey != "" }

// Lookup queries PhishTank for the supplied domain. The returned error is a
// *StatusError, wraps ErrInvalidPayload, or describes a transport failure.
func (c *Client) Lookup(ctx context.Context, domain string) (Record, error) {
	if c == nil {
		return Record{}, errors.New("phishtank client is nil")
	}

	params := url.Values{}
	params.Set("url", domain)
	params.Set("format", "json")
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	endpoint := c.baseURL
	if strings.Contains(endpoint, "?") {
		endpoint = endpoint + "&" + params.Encode()
	} else {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Record{}, fmt.Errorf("build phishtank request: %w", stripURL(err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Record{}, stripURL(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Record{}, &StatusError{Code: resp.StatusCode}
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Record{}, fmt.Errorf("decode phishtank response: %w", err)
	}
	return parseRecord(payload)
}

// parseRecord walks data.url.phish in a decoded body. A missing level, a level
// that is not an object, or a missing phish key yields ErrInvalidPayload.
func parseRecord(payload any) (Record, error) {
	root, ok := payload.(map[string]any)
	if !ok {
		return Record{}, ErrInvalidPayload
	}
	data, ok := root["data"].(map[string]any)
	if !ok {
		return Record{}, ErrInvalidPayload
	}
	entry, ok := data["url"].(map[string]any)
	if !ok {
		return Record{}, ErrInvalidPayload
	}
	phish, ok := entry["phish"]
	if !ok {
		return Record{}, fmt.Errorf("%w: no phish flag", ErrInvalidPayload)
	}
	return Record{Phish: phish}, nil
}

// stripURL drops the request URL from net/http errors; it carries the api key.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s phishtank: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
