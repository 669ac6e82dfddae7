// Package webhook delivers submission records to the make.com endpoints and
// interprets their responses.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DcSyedFaraz/impora-warehouse/internal/logging"
)

// successSentinel is the only body the primary webhook may answer with on
// success. The comparison is exact equality, not a substring match.
const successSentinel = "done"

// WebhookError describes a rejected or malformed webhook exchange. Status is
// the HTTP status for transport-level failures; Text carries the server body
// when the status was fine but the body was not the success sentinel.
type WebhookError struct {
	Status int
	Text   string
}

func (e *WebhookError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("Server response: %s", e.Text)
	}
	return fmt.Sprintf("webhook request failed: %d", e.Status)
}

// IntakeResult is the status-keyed outcome of the Rücknahme/label webhook.
// Accepted is true only for HTTP 200; everything else is a server rejection
// with the body preserved for display.
type IntakeResult struct {
	Accepted bool
	Status   int
	Body     string
}

// Options configures a Dispatcher instance.
type Options struct {
	Endpoint       string
	IntakeEndpoint string
	HTTPClient     *http.Client
	Logger         logging.Logger
}

// Dispatcher posts JSON records to the fixed webhook endpoints.
type Dispatcher struct {
	endpoint       string
	intakeEndpoint string
	hc             *http.Client
	logger         logging.Logger
}

// New instantiates a Dispatcher.
func New(opts Options) *Dispatcher {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New()
	}
	return &Dispatcher{
		endpoint:       strings.TrimSpace(opts.Endpoint),
		intakeEndpoint: strings.TrimSpace(opts.IntakeEndpoint),
		hc:             hc,
		logger:         logger,
	}
}

// Dispatch sends a registration record to the primary webhook. Success means
// a 2xx status whose body is exactly the sentinel string.
func (d *Dispatcher) Dispatch(ctx context.Context, record any) error {
	status, body, err := d.post(ctx, d.endpoint, "webhook", record)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &WebhookError{Status: status}
	}
	if body != successSentinel {
		return &WebhookError{Status: status, Text: body}
	}
	return nil
}

// DispatchIntake sends a Rücknahme or label record to the intake webhook.
// The outcome is keyed on HTTP status alone; the returned error is non-nil
// only for transport-level failures where no status was obtained.
func (d *Dispatcher) DispatchIntake(ctx context.Context, record any) (IntakeResult, error) {
	status, body, err := d.post(ctx, d.intakeEndpoint, "intake webhook", record)
	if err != nil {
		return IntakeResult{}, err
	}
	return IntakeResult{
		Accepted: status == http.StatusOK,
		Status:   status,
		Body:     body,
	}, nil
}

func (d *Dispatcher) post(ctx context.Context, endpoint, label string, record any) (int, string, error) {
	if endpoint == "" {
		return 0, "", fmt.Errorf("no %s endpoint configured", label)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return 0, "", fmt.Errorf("encode %s payload: %w", label, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("build %s request: %w", label, err)
	}
	req.Header.Set("Content-Type", "application/json")

	logging.DumpOutboundRequest(d.logger, req, label, true)

	resp, err := d.hc.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("post to %s: %w", label, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("read %s response: %w", label, err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	logging.DumpInboundResponse(d.logger, resp, label)

	return resp.StatusCode, string(body), nil
}
