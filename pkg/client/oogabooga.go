package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ooga-swap/pkg/httputil"
	"ooga-swap/pkg/types"
)

const (
	DefaultBaseURL = "https://mainnet.api.oogabooga.io"
	swapPath       = "/v1/swap"
)

var ErrEmptyQuote = errors.New("quote response has no transaction")

// APIError is returned when the quote API answers with a non-2xx status
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API returned status code %d", e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// OogaBoogaClient talks to the OogaBooga swap API
type OogaBoogaClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        *zap.Logger
}

// Option configures an OogaBoogaClient
type Option func(*OogaBoogaClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *OogaBoogaClient) { o.httpClient = c }
}

// WithRetry sets the retry policy for API calls
func WithRetry(cfg httputil.RetryConfig) Option {
	return func(o *OogaBoogaClient) { o.retry = cfg }
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(o *OogaBoogaClient) { o.log = l }
}

// NewOogaBoogaClient creates a new swap API client
func NewOogaBoogaClient(baseURL, apiKey string, opts ...Option) *OogaBoogaClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &OogaBoogaClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      httputil.DefaultRetry,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.Logger == nil {
		c.retry.Logger = c.log
	}
	return c
}

// SwapURL builds the quote URL for a swap request
func (c *OogaBoogaClient) SwapURL(req *types.SwapRequest) (*url.URL, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}
	u.Path = path.Join("/", u.Path, swapPath)
	u.RawPath = ""

	amount := "0"
	if req.Amount != nil {
		amount = req.Amount.String()
	}

	q := u.Query()
	q.Set("tokenIn", req.TokenIn.Hex())
	q.Set("amount", amount)
	q.Set("tokenOut", req.TokenOut.Hex())
	q.Set("to", req.To.Hex())
	q.Set("slippage", strconv.FormatFloat(req.Slippage, 'f', -1, 64))
	u.RawQuery = q.Encode()

	return u, nil
}

// GetSwap requests a swap quote together with the transaction that executes it
func (c *OogaBoogaClient) GetSwap(ctx context.Context, req *types.SwapRequest) (*types.SwapResponse, error) {
	u, err := c.SwapURL(req)
	if err != nil {
		return nil, err
	}

	c.log.Debug("requesting swap quote", zap.String("url", u.String()))

	httpResp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
		r.Header.Set("Accept", "application/json")
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get quote from API: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, parseAPIError(httpResp.StatusCode, body)
	}

	var resp types.SwapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if resp.Tx == nil {
		return nil, ErrEmptyQuote
	}

	return &resp, nil
}

// parseAPIError extracts the API's own error message from a failed response
func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	if len(body) == 0 {
		return apiErr
	}

	var errorResp map[string]interface{}
	if err := json.Unmarshal(body, &errorResp); err == nil {
		for _, key := range []string{"message", "error"} {
			if message, ok := errorResp[key].(string); ok && message != "" {
				apiErr.Message = message
				return apiErr
			}
		}
		if errs, ok := errorResp["errors"]; ok {
			apiErr.Message = fmt.Sprintf("%v", errs)
			return apiErr
		}
	}

	apiErr.Message = string(body)
	return apiErr
}
