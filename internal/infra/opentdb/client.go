package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quizsphere/internal/domain"
)

// DefaultBaseURL is the public Open Trivia DB endpoint.
const DefaultBaseURL = "https://opentdb.com"

// Open Trivia DB response codes.
const (
	codeSuccess       = 0
	codeNoResults     = 1
	codeInvalidParam  = 2
	codeTokenNotFound = 3
	codeTokenEmpty    = 4
	codeRateLimit     = 5
)

// Options tune the query sent to the provider.
type Options struct {
	BaseURL    string
	Type       string
	Category   string
	Difficulty string
	Timeout    time.Duration
	// UseToken asks the provider for a session token so repeated sessions do
	// not receive the same questions.
	UseToken bool
}

// Client fetches question sets from an Open Trivia DB style API.
type Client struct {
	http *http.Client
	opts Options

	sf    singleflight.Group
	mu    sync.Mutex
	token string
}

type questionsResponse struct {
	ResponseCode int                  `json:"response_code"`
	Results      []domain.RawQuestion `json:"results"`
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

// NewClient builds a client. A nil httpClient gets one with opts.Timeout.
func NewClient(httpClient *http.Client, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Type == "" {
		opts.Type = "multiple"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{http: httpClient, opts: opts}
}

// FetchQuestions requests amount items. Every failure wraps domain.ErrProvider.
func (c *Client) FetchQuestions(ctx context.Context, amount int) ([]domain.RawQuestion, error) {
	results, code, err := c.fetch(ctx, amount)
	if err != nil {
		return nil, err
	}
	if code == codeTokenNotFound || code == codeTokenEmpty {
		// token expired or exhausted: start over with a fresh one
		c.resetToken()
		results, code, err = c.fetch(ctx, amount)
		if err != nil {
			return nil, err
		}
	}
	if code != codeSuccess {
		return nil, fmt.Errorf("%w: %s", domain.ErrProvider, describe(code))
	}
	return results, nil
}

func (c *Client) fetch(ctx context.Context, amount int) ([]domain.RawQuestion, int, error) {
	q := url.Values{}
	q.Set("amount", strconv.Itoa(amount))
	q.Set("type", c.opts.Type)
	if c.opts.Category != "" {
		q.Set("category", c.opts.Category)
	}
	if c.opts.Difficulty != "" {
		q.Set("difficulty", c.opts.Difficulty)
	}
	if c.opts.UseToken {
		token, err := c.sessionToken(ctx)
		if err != nil {
			return nil, 0, err
		}
		q.Set("token", token)
	}

	var body questionsResponse
	if err := c.getJSON(ctx, "/api.php?"+q.Encode(), &body); err != nil {
		return nil, 0, err
	}
	return body.Results, body.ResponseCode, nil
}

// sessionToken returns the cached token, requesting one when missing.
// Concurrent callers share a single request.
func (c *Client) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	v, err, _ := c.sf.Do("token", func() (interface{}, error) {
		var body tokenResponse
		if err := c.getJSON(ctx, "/api_token.php?command=request", &body); err != nil {
			return "", err
		}
		if body.ResponseCode != codeSuccess || body.Token == "" {
			return "", fmt.Errorf("%w: token request failed: %s", domain.ErrProvider, describe(body.ResponseCode))
		}
		c.mu.Lock()
		c.token = body.Token
		c.mu.Unlock()
		return body.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", domain.ErrProvider, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: unexpected status %d", domain.ErrProvider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", domain.ErrProvider, err)
	}
	return nil
}

func describe(code int) string {
	switch code {
	case codeNoResults:
		return "not enough questions for the query"
	case codeInvalidParam:
		return "invalid query parameter"
	case codeTokenNotFound:
		return "session token not found"
	case codeTokenEmpty:
		return "session token exhausted"
	case codeRateLimit:
		return "rate limited"
	default:
		return "response code " + strconv.Itoa(code)
	}
}
