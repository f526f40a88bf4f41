package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/plannerdash/go-planner-backend/config"
)

var (
	// ErrNotFound marks a 404 from Graph. Expected for resources that were
	// removed upstream; callers treat it as "skip", not as a failure.
	ErrNotFound = errors.New("graph: resource not found")

	// ErrUnavailable marks transport failures and retriable server errors
	// that survived all retry attempts.
	ErrUnavailable = errors.New("graph: upstream unavailable")
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	retryDelay     = 2 * time.Second
)

// Client talks to the Microsoft Graph v1.0 API. Requests are rate limited
// and retried with linear backoff on 429/502/503/504 and timeouts.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	maxRetries int
	retryDelay time.Duration
	sleep      func(time.Duration)
}

// NewClient builds a Client with an OAuth2 client-credentials token source
// for the configured Azure AD app registration.
func NewClient(cfg config.GraphConfig) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       cfg.Scopes,
	}

	hc := cc.Client(context.Background())
	hc.Timeout = defaultTimeout

	return newClient(cfg.BaseURL, hc)
}

// NewClientWithHTTP builds a Client around an existing http.Client. Used by
// tests against httptest servers.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	if hc.Timeout == 0 {
		hc.Timeout = defaultTimeout
	}
	return newClient(baseURL, hc)
}

func newClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: hc,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		sleep:      time.Sleep,
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.retryDelay * time.Duration(attempt)
			log.Printf("[warn] graph retrying %s in %s (attempt %d/%d)", endpoint, wait, attempt, c.maxRetries)
			c.sleep(wait)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Timeouts and connection errors are worth retrying.
			lastErr = err
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
			continue
		}

		retriable, err := c.handleResponse(resp, endpoint, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retriable {
			return err
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// handleResponse decodes a successful body into out and classifies failures
// into retriable (429/502/503/504) and terminal ones.
func (c *Client) handleResponse(resp *http.Response, endpoint string, out any) (retriable bool, err error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return false, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
		return false, nil

	case resp.StatusCode == http.StatusNoContent:
		return false, nil

	case resp.StatusCode == http.StatusNotFound:
		// Expected for deleted upstream resources, keep logs quiet.
		return false, ErrNotFound

	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		log.Printf("[warn] graph %s returned status %d", endpoint, resp.StatusCode)
		return true, fmt.Errorf("status %d", resp.StatusCode)

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[error] graph %s returned status %d: %s", endpoint, resp.StatusCode, body)
		return false, fmt.Errorf("graph request failed with status %d", resp.StatusCode)
	}
}

// Me fetches the service identity. Used as a cheap reachability probe.
func (c *Client) Me(ctx context.Context) error {
	var out map[string]any
	return c.get(ctx, "/me", nil, &out)
}

// ListGroups lists the groups visible to the application.
func (c *Client) ListGroups(ctx context.Context, limit int) ([]Group, error) {
	params := url.Values{}
	params.Set("$top", strconv.Itoa(limit))
	params.Set("$select", "id,displayName,mail,description,groupTypes,visibility,createdDateTime")

	var env listEnvelope[Group]
	if err := c.get(ctx, "/groups", params, &env); err != nil {
		return nil, err
	}
	return env.Value, nil
}

// ListPlans lists the Planner plans owned by a group.
func (c *Client) ListPlans(ctx context.Context, groupID string) ([]Plan, error) {
	var env listEnvelope[Plan]
	if err := c.get(ctx, "/groups/"+groupID+"/planner/plans", nil, &env); err != nil {
		return nil, err
	}
	return env.Value, nil
}

// ListBuckets lists the buckets of a plan.
func (c *Client) ListBuckets(ctx context.Context, planID string) ([]Bucket, error) {
	var env listEnvelope[Bucket]
	if err := c.get(ctx, "/planner/plans/"+planID+"/buckets", nil, &env); err != nil {
		return nil, err
	}
	return env.Value, nil
}

// ListTasks lists the tasks of a plan.
func (c *Client) ListTasks(ctx context.Context, planID string, limit int) ([]Task, error) {
	params := url.Values{}
	params.Set("$top", strconv.Itoa(limit))

	var env listEnvelope[Task]
	if err := c.get(ctx, "/planner/plans/"+planID+"/tasks", params, &env); err != nil {
		return nil, err
	}
	return env.Value, nil
}

// GetUser fetches one directory user, used to enrich task assignees.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var u User
	if err := c.get(ctx, "/users/"+userID, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
