package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	dErrors "analysthub/pkg/domain-errors"
)

// Sender delivers a composed application. The HTTP client satisfies it in
// production; tests substitute fakes.
type Sender interface {
	Submit(ctx context.Context, payload Payload) error
}

// Client posts applications to the Submission Endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, httpClient *http.Client) *Client {
	return &Client{url: url, httpClient: httpClient}
}

type endpointResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Submit posts the payload. Endpoint rejections surface the server-provided
// message directly; transport failures get a generic description since
// there is nothing user-actionable in them.
func (c *Client) Submit(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal submission payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "submission service is unreachable, please retry", err)
	}
	defer resp.Body.Close()

	var parsed endpointResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return dErrors.New(dErrors.CodeUnavailable, "submission service returned an unreadable response, please retry")
		}
		return dErrors.New(dErrors.CodeUnavailable, "submission was rejected, please retry")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !parsed.Success {
		message := parsed.Message
		if message == "" {
			message = "submission was rejected, please retry"
		}
		return dErrors.New(dErrors.CodeUnprocessable, message)
	}
	return nil
}
