package portalclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/softap/internal/logging"
	"github.com/muurk/softap/internal/portal"
	"github.com/muurk/softap/internal/provision"
)

const (
	// DefaultTimeout is the default timeout for status requests
	DefaultTimeout = 10 * time.Second

	// DefaultProvisionTimeout bounds one provisioning POST. The portal holds
	// the response open for the whole retry loop on the device.
	DefaultProvisionTimeout = 2 * time.Minute

	// DefaultMaxRetries is the default number of retry attempts for GET requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// maxResponseSize caps how much of a portal response is read
	maxResponseSize = 16 * 1024
)

// Client talks to one provisioning portal
type Client struct {
	// BaseURL is the portal URL (e.g., "http://192.168.0.2")
	BaseURL string

	// HTTPClient is the underlying HTTP client. Timeouts are applied per
	// request, so it should not set its own.
	HTTPClient *http.Client

	// Timeout bounds each GET request
	Timeout time.Duration

	// ProvisionTimeout bounds the provisioning POST
	ProvisionTimeout time.Duration

	// MaxRetries is the maximum number of retry attempts for GET requests.
	// Provisioning is never retried.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration
}

// ProvisionResult is the outcome of a successful provisioning request
type ProvisionResult struct {
	SSID      string
	Connected bool
	// SawProgress is set when the portal streamed its progress notice
	// before the result
	SawProgress bool
	// Fragment is the raw HTML the portal returned
	Fragment string
}

// NewClient creates a client for a portal at ip:port
func NewClient(ip string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(ip, strconv.Itoa(port)))
}

// NewClientWithURL creates a client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:          strings.TrimRight(baseURL, "/"),
		HTTPClient:       &http.Client{},
		Timeout:          DefaultTimeout,
		ProvisionTimeout: DefaultProvisionTimeout,
		MaxRetries:       DefaultMaxRetries,
		RetryDelay:       DefaultRetryDelay,
		MaxRetryDelay:    DefaultMaxRetryDelay,
	}
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// FormBody builds the provisioning form body. The portal reads fields by
// position, so SSID must come first.
func FormBody(ssid, password string) string {
	return "SSID=" + url.QueryEscape(ssid) + "&PASSWORD=" + url.QueryEscape(password)
}

// Ping checks that the portal serves its page
func (c *Client) Ping(ctx context.Context) error {
	return c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.get(ctx, "/")
		return err
	})
}

// Status fetches the portal's provisioning state
func (c *Client) Status(ctx context.Context) (*portal.StatusResponse, error) {
	var status portal.StatusResponse
	err := c.withRetry(ctx, func(ctx context.Context) error {
		body, err := c.get(ctx, "/status")
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &status); err != nil {
			return NewParseError("failed to parse status response", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Provision submits credentials and waits for the device's verdict
func (c *Client) Provision(ctx context.Context, ssid, password string) (*ProvisionResult, error) {
	if errs := ValidateCredentials(ssid, password); len(errs) > 0 {
		return nil, errs[0]
	}

	ctx, cancel := context.WithTimeout(ctx, c.ProvisionTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/", strings.NewReader(FormBody(ssid, password)))
	if err != nil {
		return nil, ClassifyNetworkError("failed to create POST request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logging.Debug("Submitting credentials",
		zap.String("url", c.BaseURL),
		zap.String("ssid", ssid),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError("POST request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, newStatusError(ErrTypeAlreadyConfigured, resp.StatusCode, "portal ignored the request; the device is already provisioned")
	case http.StatusRequestEntityTooLarge:
		return nil, newStatusError(ErrTypeValidation, resp.StatusCode, "portal rejected the credentials as too long")
	case http.StatusServiceUnavailable:
		return nil, newStatusError(ErrTypeBusy, resp.StatusCode, "another connection attempt is in progress")
	default:
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, ClassifyNetworkError("failed to read response body", err)
	}
	return ParseResult(ssid, string(body))
}

// ParseResult interprets the HTML fragments of a 200 provisioning response
func ParseResult(ssid, body string) (*ProvisionResult, error) {
	result := &ProvisionResult{
		SSID:        ssid,
		SawProgress: strings.Contains(body, provision.ConnectInProgress),
		Fragment:    body,
	}

	switch {
	case strings.Contains(body, provision.SuccessSuffix):
		result.Connected = true
		return result, nil
	case strings.Contains(body, provision.FailureSuffix):
		return nil, &ClientError{
			Type:       ErrTypeProvisioningFailed,
			Message:    fmt.Sprintf("device could not join %q", ssid),
			StatusCode: http.StatusOK,
		}
	case strings.Contains(body, provision.TooLargeMessage):
		return nil, newStatusError(ErrTypeValidation, http.StatusOK, "portal rejected the credentials as too long")
	case result.SawProgress:
		return nil, NewParseError("portal closed the response before reporting a result", nil)
	default:
		return nil, NewParseError("response is not a provisioning result", nil)
	}
}

// get performs one GET and returns the body of a 200 response
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, ClassifyNetworkError("failed to create GET request", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError("GET request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, ClassifyNetworkError("failed to read response body", err)
	}
	return body, nil
}

// withRetry runs attempt until it succeeds, fails with a non-retryable
// error, or MaxRetries retries are spent. Delays double up to MaxRetryDelay.
func (c *Client) withRetry(ctx context.Context, attempt func(context.Context) error) error {
	var lastErr error
	delay := c.RetryDelay

	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			logging.Debug("Retrying portal request",
				zap.Int("retry", i),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ClassifyNetworkError("request cancelled", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}

		err := attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}
