package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/version"
)

const (
	// DefaultBaseURL is the hosted contents API.
	DefaultBaseURL = "https://api.github.com"

	defaultMaxRetries = 2
	defaultBaseDelay  = 200 * time.Millisecond
	defaultMaxDelay   = 2 * time.Second

	jsonMediaType = "application/vnd.github+json"
	rawMediaType  = "application/vnd.github.raw+json"
)

var repoURLPattern = regexp.MustCompile(`^https://github\.com/([a-zA-Z0-9._-]+)/([a-zA-Z0-9._-]+)/?$`)
var repoPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+/[a-zA-Z0-9._-]+$`)

// Credentials select and authorize the remote container.
type Credentials struct {
	Token string
	// Repository is "owner/repo" or "https://github.com/owner/repo".
	Repository string
	// Branch is optional; the default branch is used when empty.
	Branch string
}

// ParseRepository normalizes a repository reference to "owner/repo".
func ParseRepository(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if m := repoURLPattern.FindStringSubmatch(raw); m != nil {
		return m[1] + "/" + strings.TrimSuffix(m[2], ".git"), nil
	}
	if repoPattern.MatchString(raw) {
		return raw, nil
	}
	return "", fmt.Errorf("invalid repository %q (want owner/repo or https://github.com/owner/repo)", raw)
}

// Document is one fetched document.
type Document struct {
	Name string
	// Content is the decoded document body (JSON).
	Content []byte
	// Version is the opaque token required to overwrite this revision.
	Version string
}

// Options tune a Client. Zero values pick defaults.
type Options struct {
	BaseURL string
	// PathPrefix is a directory inside the container holding the documents.
	PathPrefix string
	HTTPClient *http.Client
	Logger     logger.Logger
	// MaxRetries bounds transport-level retries of 429/5xx and dial errors.
	// Zero picks the default, a negative value disables retries.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Client talks to a hosted contents API. It is safe for concurrent use and
// its credentials can be replaced at runtime.
type Client struct {
	baseURL    string
	pathPrefix string
	httpClient *http.Client
	logger     logger.Logger
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration

	mu    sync.RWMutex
	creds Credentials
}

// NewClient validates the credentials and builds a client.
func NewClient(creds Credentials, opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		baseURL:    baseURL,
		pathPrefix: strings.Trim(strings.TrimSpace(opts.PathPrefix), "/"),
		httpClient: httpClient,
		logger:     log,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		maxDelay:   opts.MaxDelay,
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	} else if opts.MaxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.baseDelay <= 0 {
		c.baseDelay = defaultBaseDelay
	}
	if c.maxDelay <= 0 {
		c.maxDelay = defaultMaxDelay
	}
	if err := c.SetCredentials(creds); err != nil {
		return nil, err
	}
	return c, nil
}

// SetCredentials swaps the token and container used by later calls.
func (c *Client) SetCredentials(creds Credentials) error {
	repo, err := ParseRepository(creds.Repository)
	if err != nil {
		return err
	}
	creds.Repository = repo
	creds.Token = strings.TrimSpace(creds.Token)
	creds.Branch = strings.TrimSpace(creds.Branch)

	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return nil
}

// Repository returns the normalized "owner/repo" in use.
func (c *Client) Repository() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds.Repository
}

func (c *Client) credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// Probe performs a lightweight metadata read of the container. A missing
// container is reported as ErrAuth since only new credentials can fix it.
func (c *Client) Probe(ctx context.Context) error {
	creds := c.credentials()
	err := c.doJSON(ctx, creds, http.MethodGet, "/repos/"+creds.Repository, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: repository %s is not reachable with these credentials", ErrAuth, creds.Repository)
	}
	return err
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

// Fetch reads a document. A missing document returns ErrNotFound.
// Documents over 1 MB come back without inline content and are read
// again through the raw media type.
func (c *Client) Fetch(ctx context.Context, name string) (Document, error) {
	creds := c.credentials()
	reqPath := c.contentsPath(creds, name)
	if creds.Branch != "" {
		reqPath += "?ref=" + url.QueryEscape(creds.Branch)
	}

	var out contentsResponse
	if err := c.doJSON(ctx, creds, http.MethodGet, reqPath, nil, &out); err != nil {
		return Document{}, err
	}

	doc := Document{Name: name, Version: out.SHA}
	switch out.Encoding {
	case "base64":
		content, err := decodeContent(out.Content)
		if err != nil {
			return doc, fmt.Errorf("%w: %s: %v", ErrSerialization, name, err)
		}
		doc.Content = content
	case "none":
		raw, err := c.do(ctx, creds, http.MethodGet, reqPath, rawMediaType, nil)
		if err != nil {
			return doc, fmt.Errorf("fetch raw %s: %w", name, err)
		}
		doc.Content = raw
	default:
		return doc, fmt.Errorf("%w: %s: unsupported content encoding %q", ErrSerialization, name, out.Encoding)
	}
	return doc, nil
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type writeResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// Write replaces a document, conditioned on token (empty when creating).
// It returns the new version token.
func (c *Client) Write(ctx context.Context, name string, content []byte, token string) (string, error) {
	creds := c.credentials()
	body := writeRequest{
		Message: fmt.Sprintf("Update %s", name),
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     token,
		Branch:  creds.Branch,
	}

	var out writeResponse
	err := c.doJSON(ctx, creds, http.MethodPut, c.contentsPath(creds, name), body, &out)
	if errors.Is(err, ErrNotFound) {
		// The contents API hides unwritable repositories behind 404.
		return "", fmt.Errorf("%w: cannot write %s: %s", ErrAuth, name, err.Error())
	}
	if err != nil {
		return "", err
	}
	if out.Content.SHA == "" {
		return "", fmt.Errorf("%w: write of %s returned no version", ErrSerialization, name)
	}
	return out.Content.SHA, nil
}

func (c *Client) contentsPath(creds Credentials, name string) string {
	p := name
	if c.pathPrefix != "" {
		p = path.Join(c.pathPrefix, name)
	}
	return "/repos/" + creds.Repository + "/contents/" + p
}

// decodeContent accepts base64 with embedded line breaks, as returned by
// the contents API.
func decodeContent(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(clean)
}

func (c *Client) doJSON(ctx context.Context, creds Credentials, method, requestPath string, body, out any) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrSerialization, err)
		}
	}

	payload, err := c.do(ctx, creds, method, requestPath, jsonMediaType, bodyBytes)
	if err != nil {
		return err
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrSerialization, err)
	}
	return nil
}

// do sends one request, retrying dial errors, 429 and 5xx, and returns
// the body of a 2xx answer.
func (c *Client) do(ctx context.Context, creds Credentials, method, requestPath, accept string, bodyBytes []byte) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("%w: build request: %w", ErrNetwork, err)
		}
		requestID := uuid.NewString()
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", "toomanytabs/"+version.Version)
		req.Header.Set("X-Request-Id", requestID)
		if creds.Token != "" {
			req.Header.Set("Authorization", "Bearer "+creds.Token)
		}
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				c.logger.Debug("remote request failed, retrying",
					logger.String("method", method),
					logger.String("path", requestPath),
					logger.String("request_id", requestID),
					logger.Int("attempt", attempt+1),
					logger.Error(err))
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return nil, fmt.Errorf("%w: %w", ErrNetwork, waitErr)
				}
				continue
			}
			return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, requestPath, err)
		}
		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("%w: read response: %w", ErrNetwork, readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return payload, nil
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.maxRetries {
			c.logger.Debug("remote request throttled or failed, retrying",
				logger.String("method", method),
				logger.String("path", requestPath),
				logger.String("request_id", requestID),
				logger.Int("status", resp.StatusCode),
				logger.Int("attempt", attempt+1))
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrNetwork, waitErr)
			}
			continue
		}

		var errPayload struct {
			Message string `json:"message"`
			Errors  []struct {
				Code string `json:"code"`
			} `json:"errors"`
		}
		_ = json.Unmarshal(payload, &errPayload)
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    errPayload.Message,
			Path:       requestPath,
		}
		for _, e := range errPayload.Errors {
			if e.Code == "too_large" {
				httpErr.TooLarge = true
			}
		}
		return nil, httpErr
	}
}

// retryDelay doubles from baseDelay per attempt, capped at maxDelay. A
// Retry-After header wins when present.
func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		return min(retryAfter, c.maxDelay)
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return min(delay, c.maxDelay)
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
