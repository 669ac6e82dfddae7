// Package app wires configuration, HTTP clients, and the submission pipeline
// together for the CLI entrypoint.
package app

import (
	"net/http"

	"github.com/DcSyedFaraz/impora-warehouse/config"
	"github.com/DcSyedFaraz/impora-warehouse/internal/intake"
	"github.com/DcSyedFaraz/impora-warehouse/internal/logging"
	"github.com/DcSyedFaraz/impora-warehouse/internal/pipeline"
	"github.com/DcSyedFaraz/impora-warehouse/internal/upload"
	"github.com/DcSyedFaraz/impora-warehouse/internal/webhook"
)

// Options controls how the pipeline is assembled.
type Options struct {
	Config    config.Config
	Presenter pipeline.Presenter
	Logger    logging.Logger
	// HTTPClient overrides the shared client, mainly for tests.
	HTTPClient *http.Client
}

// BuildPipeline assembles a ready-to-use submission pipeline from the given
// configuration.
func BuildPipeline(opts Options) *pipeline.Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.New()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Config.Timeout()}
	}

	uploader := upload.New(upload.Options{
		Endpoint:   opts.Config.Endpoints.ImageUpload,
		Username:   opts.Config.Credentials.Username,
		Password:   opts.Config.Credentials.Password,
		HTTPClient: hc,
		Logger:     logger,
	})
	dispatcher := webhook.New(webhook.Options{
		Endpoint:       opts.Config.Endpoints.Webhook,
		IntakeEndpoint: opts.Config.Endpoints.IntakeWebhook,
		HTTPClient:     hc,
		Logger:         logger,
	})

	return pipeline.New(pipeline.Options{
		Uploader:     uploader,
		Dispatcher:   dispatcher,
		Presenter:    opts.Presenter,
		Logger:       logger,
		Policy:       intake.Policy{RequireQRWithIMEI: opts.Config.Validation.RequireQRWithIMEI},
		PackagingWay: opts.Config.Payload.PackagingWay,
		ConfirmDelay: opts.Config.ConfirmDelay(),
	})
}
