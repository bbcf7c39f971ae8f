package atfcf

import (
	"context"
	"fmt"
	"strings"

	"resty.dev/v3"

	"atfcf/internal/fetcher"
	"atfcf/internal/ratelimit"
)

// Response represents the upstream ATFCF service response for one ticker.
// All figures are trailing-twelve-month values; any of them may be null.
type Response struct {
	Ticker       string   `json:"ticker"`
	ATFCF        *float64 `json:"atfcf"`
	FCF          *float64 `json:"fcf"`
	EBIT         *float64 `json:"ebit"`
	TaxRate      *float64 `json:"tax_rate"`
	TaxProvision *float64 `json:"tax_provision"`
	OCF          *float64 `json:"ocf"`
	CapEx        *float64 `json:"capex"`
	DA           *float64 `json:"da"`
	DeltaWC      *float64 `json:"delta_wc"`
	Error        string   `json:"error"`
}

// ErrorResponse is the body returned with non-2xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Client fetches ATFCF figures from the upstream service
type Client struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewClient creates a new upstream client. A nil limiter does not throttle.
func NewClient(baseURL string, limiter *ratelimit.Limiter) *Client {
	return &Client{
		client:  fetcher.NewHTTPClient(strings.TrimRight(baseURL, "/")),
		limiter: limiter,
	}
}

// Quote retrieves the full upstream response for ticker in a single request.
func (c *Client) Quote(ctx context.Context, ticker string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fetcher.ClassifyRequestError(ctx, err)
	}

	var result Response
	var apiErr ErrorResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("ticker", ticker).
		SetResult(&result).
		SetError(&apiErr).
		Get("/atfcf")

	if err != nil {
		return nil, fetcher.ClassifyRequestError(ctx, fmt.Errorf("failed to fetch ATFCF for %s: %w", ticker, err))
	}

	if fe := fetcher.ClassifyResponse(resp, apiErr.Error); fe != nil {
		return nil, fe
	}

	if ct := resp.Header().Get("Content-Type"); !strings.Contains(ct, "json") {
		return nil, fetcher.NewValidationError(fmt.Sprintf("unexpected content type %q for %s", ct, ticker))
	}

	if result.Error != "" {
		return nil, fetcher.NewValidationError(result.Error)
	}

	return &result, nil
}

// Fetch retrieves the ATFCF value for ticker. A nil value with a nil error
// means the service answered but has no figure for the ticker.
func (c *Client) Fetch(ctx context.Context, ticker string) (*float64, error) {
	result, err := c.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return result.ATFCF, nil
}
