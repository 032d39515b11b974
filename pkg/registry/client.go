// Package registry submits completed registrations to the school registry
// service and normalizes every outcome, including failures, into a response
// the form can show the user.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wingservice/privateschool/pkg/form"
)

const defaultSubmitTimeout = 30 * time.Second

// ApiResponse is the registry's submission result. The client also
// synthesizes one for transport and decode failures, so callers always get
// a displayable message and never an error.
type ApiResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	RowID   string            `json:"rowId,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Client talks to the registry submission endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a registry client for baseURL. The API key may be empty
// when the registry runs with auth disabled.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultSubmitTimeout},
	}
}

// Submit posts the record to the registry. Every failure mode degrades into
// an unsuccessful ApiResponse; Submit never panics and never returns an
// error value.
func (c *Client) Submit(ctx context.Context, record form.Record) ApiResponse {
	body, err := json.Marshal(record)
	if err != nil {
		return ApiResponse{Message: "Could not encode the registration."}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/registrations", bytes.NewReader(body))
	if err != nil {
		return ApiResponse{Message: "Could not build the registry request."}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ApiResponse{Message: "Could not reach the registry. Check your connection and try again."}
	}
	defer resp.Body.Close()

	var parsed ApiResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && parsed.Message != "" {
			return parsed
		}
		return ApiResponse{Message: fmt.Sprintf("Server returned error status: %d", resp.StatusCode)}
	}
	if decodeErr != nil {
		return ApiResponse{Message: "Received an unreadable response from the registry."}
	}
	return parsed
}
