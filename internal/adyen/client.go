// Package adyen is a typed HTTP client for the Adyen entity-creation
// endpoints used during merchant onboarding. It spans the three Adyen APIs
// involved: legal entity management, balance platform and management.
package adyen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "github.com/vtem-rh/payersync-be-test-sub000/internal/common/http"
)

// ErrStoreReferenceExists marks the one store-creation failure that is a
// terminal conflict rather than a transient platform error. Store references
// are globally unique, so retrying with the same input can never succeed.
var ErrStoreReferenceExists = errors.New("store reference already exists")

type Client struct {
	lemBaseURL        string
	balanceBaseURL    string
	managementBaseURL string
	merchantAccount   string
	balancePlatform   string
	apiKey            string
	httpClient        *commonhttp.Client
}

type Config struct {
	LEMBaseURL             string
	BalancePlatformBaseURL string
	ManagementBaseURL      string
	MerchantAccount        string
	BalancePlatform        string
	APIKey                 string
	Timeout                time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		lemBaseURL:        strings.TrimRight(cfg.LEMBaseURL, "/"),
		balanceBaseURL:    strings.TrimRight(cfg.BalancePlatformBaseURL, "/"),
		managementBaseURL: strings.TrimRight(cfg.ManagementBaseURL, "/"),
		merchantAccount:   cfg.MerchantAccount,
		balancePlatform:   cfg.BalancePlatform,
		apiKey:            cfg.APIKey,
		httpClient:        commonhttp.NewClient(timeout),
	}
}

// apiError is the error body Adyen returns on non-2xx responses.
type apiError struct {
	Status    int    `json:"status"`
	ErrorCode string `json:"errorCode"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	Message   string `json:"message"`
}

func (e *apiError) text() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Title
}

func (c *Client) do(ctx context.Context, method, url string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.text() != "" {
			return fmt.Errorf("adyen request failed (status %d, code %s): %s",
				resp.StatusCode, apiErr.ErrorCode, apiErr.text())
		}
		return fmt.Errorf("adyen request failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func (c *Client) post(ctx context.Context, url string, payload, result interface{}) error {
	return c.do(ctx, http.MethodPost, url, payload, result)
}

func (c *Client) patch(ctx context.Context, url string, payload, result interface{}) error {
	return c.do(ctx, http.MethodPatch, url, payload, result)
}

func (c *Client) get(ctx context.Context, url string, result interface{}) error {
	return c.do(ctx, http.MethodGet, url, nil, result)
}
