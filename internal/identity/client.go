// Package identity is the adapter for the external Identity Service. All
// permissive field-fallback handling for user records happens here, at the
// ingestion boundary, so the onboarding core only ever sees one canonical
// shape.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Profile is the canonical user record the rest of the service consumes.
type Profile struct {
	UserID          string
	DisplayName     string
	UserType        string
	ProfileComplete bool
}

// Service exposes the identity operations onboarding needs.
type Service interface {
	FetchProfile(ctx context.Context, userID string) (Profile, error)
	MarkSubmitted(ctx context.Context, userID string) error
}

// Client talks HTTP to the Identity Service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// userRecord mirrors the Identity Service's loose wire shape. Different
// deployments populate different name fields; normalization resolves them
// in one documented order.
type userRecord struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	DisplayName     string `json:"display_name"`
	UserType        string `json:"user_type"`
	ProfileComplete bool   `json:"profile_complete"`
}

// displayName resolves the preferred-name fallback chain: name, then
// full_name, then display_name.
func (r userRecord) displayName() string {
	for _, candidate := range []string{r.Name, r.FullName, r.DisplayName} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) FetchProfile(ctx context.Context, userID string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+userID, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build identity request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch identity profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("fetch identity profile: unexpected status %d", resp.StatusCode)
	}

	var record userRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return Profile{}, fmt.Errorf("decode identity profile: %w", err)
	}

	return Profile{
		UserID:          record.ID,
		DisplayName:     record.displayName(),
		UserType:        record.UserType,
		ProfileComplete: record.ProfileComplete,
	}, nil
}

// MarkSubmitted flips the Identity Service's cached profile state to
// "submitted, pending verification" after a successful application.
func (c *Client) MarkSubmitted(ctx context.Context, userID string) error {
	body, err := json.Marshal(map[string]string{
		"profile_status": "submitted_pending_verification",
	})
	if err != nil {
		return fmt.Errorf("marshal profile status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/users/"+userID+"/profile-status", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build profile status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update profile status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("update profile status: unexpected status %d", resp.StatusCode)
	}
	return nil
}
