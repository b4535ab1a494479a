package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/nhle/studytrack/internal/logger"
)

// DefaultCSRFCookie is the cookie Django stores its CSRF token in.
const DefaultCSRFCookie = "csrftoken"

// Config configures a Client.
type Config struct {
	// BaseURL is the root URL of the backend (e.g., https://studytrack.example.com).
	BaseURL string

	// Timeout bounds a single HTTP request. Zero means 30 seconds.
	Timeout time.Duration

	// MaxRetries is how many times a rate-limited request is retried.
	MaxRetries int

	// CSRFCookie names the cookie carrying the CSRF token.
	CSRFCookie string

	// HTTPClient overrides the default client. Its Jar is replaced when nil.
	HTTPClient *http.Client
}

// Client is a thin HTTP client for the study tracker REST API. Requests
// carry the session cookie from its cookie jar; mutating requests also
// carry the CSRF token read from the jar. Rate-limited requests (429) are
// retried with exponential backoff.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	csrfCookie string
	maxRetries int
}

// NewClient creates a client for cfg.BaseURL with an empty cookie jar.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	csrf := cfg.CSRFCookie
	if csrf == "" {
		csrf = DefaultCSRFCookie
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		csrfCookie: csrf,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// SetSession seeds the cookie jar with the session and CSRF cookies, as
// obtained from a browser login. Empty values are skipped.
func (c *Client) SetSession(sessionID, csrfToken string) {
	var cookies []*http.Cookie
	if sessionID != "" {
		cookies = append(cookies, &http.Cookie{Name: "sessionid", Value: sessionID, Path: "/"})
	}
	if csrfToken != "" {
		cookies = append(cookies, &http.Cookie{Name: c.csrfCookie, Value: csrfToken, Path: "/"})
	}
	if len(cookies) > 0 {
		c.httpClient.Jar.SetCookies(c.baseURL, cookies)
	}
}

// csrfToken returns the CSRF token currently in the jar, or "".
func (c *Client) csrfToken() string {
	for _, cookie := range c.httpClient.Jar.Cookies(c.baseURL) {
		if cookie.Name == c.csrfCookie {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) patch(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPatch, path, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do is the core HTTP method that builds the request, attaches cookies
// and the CSRF header, retries on 429 and decodes the JSON response.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	target := c.baseURL.String() + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if method != http.MethodGet && method != http.MethodHead {
			req.Header.Set("X-CSRFToken", c.csrfToken())
			req.Header.Set("Referer", c.baseURL.String()+"/")
		}

		logger.Debug("HTTP request", logger.F("method", method), logger.F("path", path))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &TransportError{Method: method, Path: path, Err: err}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return &TransportError{Method: method, Path: path, Err: fmt.Errorf("reading response body: %w", readErr)}
		}

		logger.Debug("HTTP response",
			logger.F("method", method),
			logger.F("path", path),
			logger.F("status", resp.StatusCode))

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Detail: errorDetail(respBody)}
			if attempt == c.maxRetries {
				break
			}

			select {
			case <-ctx.Done():
				return &TransportError{Method: method, Path: path, Err: ctx.Err()}
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Detail:     errorDetail(respBody),
			}
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}

		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("no attempt made")
	}
	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
