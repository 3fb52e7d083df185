// Package contractgen talks to the AI backend that drafts smart-contract code.
package contractgen

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
)

const generatePath = "/v1/contracts/generate"

// maxResponseBytes caps how much of a generator response is read.
const maxResponseBytes = 1 << 20

var ErrEmptyResult = errors.New("contractgen: generator returned no code")

// Config holds the generator endpoint settings
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Result is the generator's draft and its own static-analysis verdict.
type Result struct {
	Code        string
	IsValidated bool
	Warnings    []string
}

// Generator is the narrow surface the contract workflow depends on.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Result, error)
}

type generateRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Code        string   `json:"code"`
	IsValidated bool     `json:"is_validated"`
	Warnings    []string `json:"warnings"`
	Error       string   `json:"error,omitempty"`
}

// Client implements Generator over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("contract generator URL is required")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		model:   config.Model,
	}, nil
}

// Generate asks the backend for a contract matching prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (*Result, error) {
	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call contract generator: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var out generateResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &out) == nil && out.Error != "" {
			return nil, fmt.Errorf("contract generator returned status %d: %s", resp.StatusCode, out.Error)
		}
		return nil, fmt.Errorf("contract generator returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if strings.TrimSpace(out.Code) == "" {
		return nil, ErrEmptyResult
	}

	warnings := out.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &Result{Code: out.Code, IsValidated: out.IsValidated, Warnings: warnings}, nil
}
