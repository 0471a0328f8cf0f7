package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
)

const subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// rawBody marks a request body that is sent as application/octet-stream.
type rawBody []byte

// do performs one request and returns the response body. requestBody may be
// nil, a rawBody (image bytes), or any JSON-marshalable value. A status not in
// expectedStatuses is decoded into an *APIError.
func (c *Client) do(ctx context.Context, method, endpoint string, requestBody any, expectedStatuses ...int) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var bodyReader io.Reader
	contentType := ""
	switch b := requestBody.(type) {
	case nil:
	case rawBody:
		bodyReader = bytes.NewReader(b)
		contentType = "application/octet-stream"
	default:
		jsonBody, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set(subscriptionKeyHeader, c.key)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL constructed from validated parsedURL via resolveURL
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	if !slices.Contains(expectedStatuses, resp.StatusCode) {
		return nil, newAPIError(method, endpoint, resp.StatusCode, body)
	}

	c.captureResponse(endpoint, body)
	return body, nil
}

// doJSON performs a request and unmarshals the JSON response into T.
func doJSON[T any](ctx context.Context, c *Client, method, endpoint string, requestBody any, expectedStatuses ...int) (*T, error) {
	body, err := c.do(ctx, method, endpoint, requestBody, expectedStatuses...)
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &result, nil
}

// doGetJSON performs a GET request and unmarshals the JSON response.
func doGetJSON[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	return doJSON[T](ctx, c, http.MethodGet, endpoint, nil, http.StatusOK)
}

// doPostJSON performs a POST request and unmarshals the JSON response.
func doPostJSON[T any](ctx context.Context, c *Client, endpoint string, requestBody any) (*T, error) {
	return doJSON[T](ctx, c, http.MethodPost, endpoint, requestBody, http.StatusOK)
}

// doNoContent performs a request whose response body is ignored.
func (c *Client) doNoContent(ctx context.Context, method, endpoint string, requestBody any, expectedStatuses ...int) error {
	if len(expectedStatuses) == 0 {
		expectedStatuses = []int{http.StatusOK}
	}
	_, err := c.do(ctx, method, endpoint, requestBody, expectedStatuses...)
	return err
}
