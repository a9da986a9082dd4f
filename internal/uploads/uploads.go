// Package uploads validates and forwards binary uploads to the external
// File Upload Endpoint. Size and type checks run before any network call;
// a rejected file never leaves the process.
package uploads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	dErrors "analysthub/pkg/domain-errors"
)

// Kind selects the upload slot and its validation policy.
type Kind string

const (
	KindPhoto       Kind = "photo"
	KindCertificate Kind = "certificate"
)

const (
	MaxPhotoBytes       = 5 << 20
	MaxCertificateBytes = 10 << 20
)

var certificateTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// Precheck rejects files that fail size or type policy. It must pass before
// Uploader.Upload is called.
func Precheck(kind Kind, contentType string, size int64) error {
	switch kind {
	case KindPhoto:
		if !strings.HasPrefix(contentType, "image/") {
			return dErrors.New(dErrors.CodeBadRequest, "profile photo must be an image")
		}
		if size > MaxPhotoBytes {
			return dErrors.New(dErrors.CodeBadRequest, "profile photo must be 5MB or smaller")
		}
	case KindCertificate:
		if !certificateTypes[contentType] {
			return dErrors.New(dErrors.CodeBadRequest, "certificate must be a PDF, JPEG or PNG")
		}
		if size > MaxCertificateBytes {
			return dErrors.New(dErrors.CodeBadRequest, "certificate must be 10MB or smaller")
		}
	default:
		return dErrors.New(dErrors.CodeBadRequest, "unknown upload kind")
	}
	return nil
}

// Uploader sends a pre-validated blob and returns its reference URL.
type Uploader interface {
	Upload(ctx context.Context, kind Kind, filename, contentType string, body io.Reader) (string, error)
}

// Client posts multipart uploads to the File Upload Endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		PhotoURL       string `json:"photo_url"`
		CertificateURL string `json:"certificate_url"`
	} `json:"data"`
}

func (c *Client) Upload(ctx context.Context, kind Kind, filename, contentType string, body io.Reader) (string, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, body); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads/"+string(kind), pr)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeUnavailable, "upload service is unreachable, please retry", err)
	}
	defer resp.Body.Close()

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || !parsed.Success {
		return "", dErrors.New(dErrors.CodeUnavailable, "upload failed, please retry")
	}

	url := parsed.Data.PhotoURL
	if kind == KindCertificate {
		url = parsed.Data.CertificateURL
	}
	if url == "" {
		return "", dErrors.New(dErrors.CodeUnavailable, "upload service returned no file reference")
	}
	return url, nil
}
