package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchProfile(t *testing.T) {
	t.Run("normalizes the wire record", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/user-1", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{
				"id":               "user-1",
				"name":             "Rajesh Mehta",
				"user_type":        "analyst",
				"profile_complete": true,
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		profile, err := client.FetchProfile(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, Profile{
			UserID:          "user-1",
			DisplayName:     "Rajesh Mehta",
			UserType:        "analyst",
			ProfileComplete: true,
		}, profile)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		_, err := client.FetchProfile(context.Background(), "user-1")
		require.Error(t, err)
	})
}

func TestDisplayNameFallback(t *testing.T) {
	tests := []struct {
		name   string
		record userRecord
		want   string
	}{
		{"name wins", userRecord{Name: "A", FullName: "B", DisplayName: "C"}, "A"},
		{"full_name next", userRecord{FullName: "B", DisplayName: "C"}, "B"},
		{"display_name last", userRecord{DisplayName: "C"}, "C"},
		{"whitespace does not count", userRecord{Name: "  ", FullName: "B"}, "B"},
		{"all empty resolves to empty", userRecord{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.displayName())
		})
	}
}

func TestMarkSubmitted(t *testing.T) {
	t.Run("posts the pending-verification status", func(t *testing.T) {
		var body map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/users/user-1/profile-status", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		require.NoError(t, client.MarkSubmitted(context.Background(), "user-1"))
		assert.Equal(t, "submitted_pending_verification", body["profile_status"])
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		require.Error(t, client.MarkSubmitted(context.Background(), "user-1"))
	})
}
