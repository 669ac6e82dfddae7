// Package upload exchanges device-local photos for durable remote URLs via
// the image-upload endpoint.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/DcSyedFaraz/impora-warehouse/internal/logging"
	"github.com/DcSyedFaraz/impora-warehouse/internal/media"
)

// fieldName is the repeated multipart field the batch endpoint expects.
const fieldName = "image[]"

// UploadError describes a failed upload attempt. Status is set for transport
// failures (non-2xx); Reason is set when the endpoint answered 2xx but the
// body did not carry usable URLs.
type UploadError struct {
	Status int
	Reason string
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("image upload failed: %d", e.Status)
	}
	return fmt.Sprintf("image upload failed - %s", e.Reason)
}

// Options configures a Client instance.
type Options struct {
	Endpoint   string
	Username   string
	Password   string
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client posts images to the upload endpoint as a single multipart request.
type Client struct {
	endpoint string
	username string
	password string
	hc       *http.Client
	logger   logging.Logger
}

// New instantiates a Client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New()
	}
	return &Client{
		endpoint: strings.TrimSpace(opts.Endpoint),
		username: opts.Username,
		password: opts.Password,
		hc:       hc,
		logger:   logger,
	}
}

// uploadResponse is the batch response shape. Legacy single-image deployments
// answer with just {"url": "..."} instead.
type uploadResponse struct {
	Success bool     `json:"success"`
	URLs    []string `json:"urls"`
	URL     string   `json:"url"`
}

// Upload sends the given images in order and returns their remote URLs, one
// per image, in the same order. An empty input returns immediately without
// touching the network.
func (c *Client) Upload(ctx context.Context, images []media.Image) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	if c.endpoint == "" {
		return nil, &UploadError{Reason: "no upload endpoint configured"}
	}

	body, contentType, err := encodeMultipart(images)
	if err != nil {
		return nil, fmt.Errorf("encode images: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth(c.username, c.password)

	logging.DumpOutboundRequest(c.logger, req, "upload", false)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post images: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}
	c.logger.Printf("Upload response (%d): %s", resp.StatusCode, respBody)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UploadError{Status: resp.StatusCode}
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &UploadError{Reason: "invalid response format"}
	}

	// Legacy single-image endpoints answer {"url": ...} with no success flag.
	if len(images) == 1 && parsed.URLs == nil && parsed.URL != "" {
		return []string{parsed.URL}, nil
	}

	if !parsed.Success || parsed.URLs == nil {
		return nil, &UploadError{Reason: "invalid response format"}
	}
	if len(parsed.URLs) != len(images) {
		return nil, &UploadError{Reason: fmt.Sprintf("expected %d urls, got %d", len(images), len(parsed.URLs))}
	}
	return parsed.URLs, nil
}

func encodeMultipart(images []media.Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for i, img := range images {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, img.Name()))
		header.Set("Content-Type", img.MIME())
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create part %d: %w", i+1, err)
		}
		rc, err := img.Open()
		if err != nil {
			return nil, "", fmt.Errorf("open image %s: %w", img.Name(), err)
		}
		_, copyErr := io.Copy(part, rc)
		rc.Close()
		if copyErr != nil {
			return nil, "", fmt.Errorf("read image %s: %w", img.Name(), copyErr)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
