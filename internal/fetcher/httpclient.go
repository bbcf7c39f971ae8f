package fetcher

import (
	"resty.dev/v3"
)

const userAgent = "atfcf-enricher/1.0"

// NewHTTPClient creates a new HTTP client for an upstream service.
// Retries are driven by Policy so the client itself never retries.
func NewHTTPClient(baseURL string) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0)

	return client
}

// ClassifyResponse turns a completed request into a FetchError, or nil when the
// status is a success. message is the upstream's own error text, if any.
func ClassifyResponse(r *resty.Response, message string) *FetchError {
	if r.IsSuccess() {
		return nil
	}
	return ClassifyHTTPError(r.StatusCode(), message)
}
