package uploads

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "analysthub/pkg/domain-errors"
)

func TestPrecheck(t *testing.T) {
	tests := []struct {
		name        string
		kind        Kind
		contentType string
		size        int64
		ok          bool
	}{
		{"jpeg photo within bound", KindPhoto, "image/jpeg", 1 << 20, true},
		{"webp photo accepted", KindPhoto, "image/webp", 1024, true},
		{"photo at the exact bound", KindPhoto, "image/png", MaxPhotoBytes, true},
		{"photo over the bound", KindPhoto, "image/png", MaxPhotoBytes + 1, false},
		{"pdf is not a photo", KindPhoto, "application/pdf", 1024, false},
		{"pdf certificate", KindCertificate, "application/pdf", 2 << 20, true},
		{"jpeg certificate", KindCertificate, "image/jpeg", 2 << 20, true},
		{"certificate over the bound", KindCertificate, "application/pdf", MaxCertificateBytes + 1, false},
		{"gif is not a certificate type", KindCertificate, "image/gif", 1024, false},
		{"unknown kind", Kind("resume"), "application/pdf", 1024, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Precheck(tt.kind, tt.contentType, tt.size)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
			}
		})
	}
}

func TestClientUpload(t *testing.T) {
	t.Run("posts multipart and returns the reference URL", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/uploads/photo", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()

			assert.Equal(t, "headshot.jpg", header.Filename)
			content, err := io.ReadAll(file)
			require.NoError(t, err)
			assert.Equal(t, "jpeg-bytes", string(content))

			var resp uploadResponse
			resp.Success = true
			resp.Data.PhotoURL = "https://cdn.example.com/photo.jpg"
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		url, err := client.Upload(context.Background(), KindPhoto, "headshot.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/photo.jpg", url)
	})

	t.Run("certificate uploads read the certificate URL", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/uploads/certificate", r.URL.Path)
			var resp uploadResponse
			resp.Success = true
			resp.Data.CertificateURL = "https://cdn.example.com/cert.pdf"
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		url, err := client.Upload(context.Background(), KindCertificate, "cert.pdf", "application/pdf", strings.NewReader("%PDF"))
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/cert.pdf", url)
	})

	t.Run("missing file reference is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(uploadResponse{Success: true})
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		_, err := client.Upload(context.Background(), KindPhoto, "headshot.jpg", "image/jpeg", strings.NewReader("x"))
		require.True(t, dErrors.Is(err, dErrors.CodeUnavailable))
	})

	t.Run("endpoint failure is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		_, err := client.Upload(context.Background(), KindPhoto, "headshot.jpg", "image/jpeg", strings.NewReader("x"))
		require.True(t, dErrors.Is(err, dErrors.CodeUnavailable))
	})
}
