// Package drive uploads files to Google Drive with a service account.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"passagens/internal/domain"
)

const serviceName = "drive"

type Client struct {
	files    *drivev3.FilesService
	folderID string
}

// UploadResult identifies an uploaded file.
type UploadResult struct {
	FileID      string `json:"file_id"`
	WebViewLink string `json:"web_view_link"`
}

// New wraps an already authorised HTTP client. An empty baseURL keeps the
// public Drive endpoint.
func New(ctx context.Context, httpClient *http.Client, baseURL, folderID string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if baseURL != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(baseURL, "/")+"/drive/v3/"))
	}
	srv, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Client{files: srv.Files, folderID: folderID}, nil
}

// NewFromCredentialsFile builds a client from a service-account JSON key.
func NewFromCredentialsFile(ctx context.Context, path, folderID string) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(data, drivev3.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}
	return New(ctx, cfg.Client(ctx), "", folderID)
}

// Upload stores content as a new file using a multipart upload.
func (c *Client) Upload(ctx context.Context, name, mimeType string, content []byte) (UploadResult, error) {
	meta := &drivev3.File{Name: name, MimeType: mimeType}
	if c.folderID != "" {
		meta.Parents = []string{c.folderID}
	}
	f, err := c.files.Create(meta).
		Media(bytes.NewReader(content), googleapi.ContentType(mimeType)).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return UploadResult{}, domain.UpstreamError{Service: serviceName, Err: err}
	}
	return UploadResult{FileID: f.Id, WebViewLink: f.WebViewLink}, nil
}
