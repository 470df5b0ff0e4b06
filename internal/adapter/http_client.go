package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/wallet-performance/internal/errors"
)

// maxErrorBody bounds how much of a failed response body ends up in error details
const maxErrorBody = 512

// errNotFound is returned by getJSON for a 404 response
var errNotFound = fmt.Errorf("not found")

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET request and decodes a 200 response into out.
// A 404 yields errNotFound; every other failure is a categorized data source error.
func getJSON(ctx context.Context, client *http.Client, source, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.NewDataSourceError(source, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperrors.NewDataSourceTransportError(source, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.NewDataSourceStatusError(source, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewDataSourceError(source, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
