// Package pipeline orchestrates one submission attempt: validate, upload
// photos, build the payload, dispatch it, and route the outcome to the
// presenter. All network stages run sequentially; the Idle-only entry guard
// is the sole concurrency control.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DcSyedFaraz/impora-warehouse/internal/intake"
	"github.com/DcSyedFaraz/impora-warehouse/internal/logging"
	"github.com/DcSyedFaraz/impora-warehouse/internal/media"
	"github.com/DcSyedFaraz/impora-warehouse/internal/payload"
	"github.com/DcSyedFaraz/impora-warehouse/internal/webhook"
)

// Phase tracks where the pipeline currently is. Submissions are accepted only
// while Idle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseUploading
	PhaseDispatching
)

// User-facing headings and messages, unchanged from the shipped app.
const (
	headingMissingInfo       = "Missing Information"
	headingMissingInfoIntake = "Fehlende Informationen"
	headingSubmitted         = "Daten übermittelt"
	headingError             = "Error"
	headingIntakeSuccess     = "Erfolgreich"
	headingIntakeRejected    = "Fehler"
	headingPermission        = "Permission Error"

	msgSubmitted        = "Die Daten wurden erfolgreich übermittelt."
	msgSubmitFailed     = "Daten konnten nicht übermittelt werden!"
	msgPermissionDenied = "Permission to access camera was denied."
)

// Uploader exchanges local images for remote URLs.
type Uploader interface {
	Upload(ctx context.Context, images []media.Image) ([]string, error)
}

// Dispatcher delivers built records to the webhooks.
type Dispatcher interface {
	Dispatch(ctx context.Context, record any) error
	DispatchIntake(ctx context.Context, record any) (webhook.IntakeResult, error)
}

// Options configures a Pipeline instance.
type Options struct {
	Uploader   Uploader
	Dispatcher Dispatcher
	Presenter  Presenter
	Logger     logging.Logger

	Policy       intake.Policy
	PackagingWay string
	// ConfirmDelay is the pause between dismissing a covering panel and
	// presenting the intake success confirmation.
	ConfirmDelay time.Duration
	// Sleep substitutes time.Sleep in tests.
	Sleep func(time.Duration)
}

// Pipeline runs submissions for all three flows over a shared phase guard.
type Pipeline struct {
	uploader   Uploader
	dispatcher Dispatcher
	presenter  Presenter
	logger     logging.Logger

	policy       intake.Policy
	packagingWay string
	confirmDelay time.Duration
	sleep        func(time.Duration)

	mu    sync.Mutex
	phase Phase
}

// New instantiates a Pipeline.
func New(opts Options) *Pipeline {
	presenter := opts.Presenter
	if presenter == nil {
		presenter = NopPresenter{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New()
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Pipeline{
		uploader:     opts.Uploader,
		dispatcher:   opts.Dispatcher,
		presenter:    presenter,
		logger:       logger,
		policy:       opts.Policy,
		packagingWay: opts.PackagingWay,
		confirmDelay: opts.ConfirmDelay,
		sleep:        sleep,
	}
}

// Phase reports the current pipeline phase.
func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// begin claims the pipeline for one attempt. It fails when a submission is
// already in flight, making repeated submit taps a no-op.
func (p *Pipeline) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != PhaseIdle {
		return false
	}
	p.phase = PhaseValidating
	return true
}

func (p *Pipeline) setPhase(phase Phase) {
	p.mu.Lock()
	p.phase = phase
	p.mu.Unlock()
}

func (p *Pipeline) end() {
	p.setPhase(PhaseIdle)
}

// SubmitForm runs the registration flow. The returned bool is false when the
// attempt was ignored because another submission is in flight; the presenter
// is not called in that case. On success the text fields and image slots are
// cleared, keeping the product/form selection.
func (p *Pipeline) SubmitForm(ctx context.Context, state *intake.FormState) (Outcome, bool) {
	if !p.begin() {
		return Outcome{}, false
	}
	defer p.end()

	id := intake.NewSubmissionID()
	p.logger.Printf("submission %s: form=%s product=%s", id, state.Form, state.Product)

	if err := intake.ValidateForm(state, p.policy); err != nil {
		return p.present(Outcome{Kind: OutcomeValidationFailure, Heading: headingMissingInfo, Message: err.Error()}), true
	}

	var urls []string
	if images := state.AttachedImages(); len(images) > 0 {
		p.setPhase(PhaseUploading)
		var err error
		urls, err = p.uploader.Upload(ctx, images)
		if err != nil {
			p.logger.Printf("submission %s: upload failed: %v", id, err)
			return p.present(uploadOutcome(err)), true
		}
	}

	record, err := payload.Build(state, urls, payload.Options{PackagingWay: p.packagingWay})
	if err != nil {
		p.logger.Printf("submission %s: payload build failed: %v", id, err)
		return p.present(Outcome{Kind: OutcomeInternalError, Heading: headingError, Message: msgSubmitFailed}), true
	}

	p.setPhase(PhaseDispatching)
	if err := p.dispatcher.Dispatch(ctx, record); err != nil {
		p.logger.Printf("submission %s: dispatch failed: %v", id, err)
		return p.present(dispatchOutcome(err)), true
	}

	state.ResetFields()
	return p.present(Outcome{Kind: OutcomeSuccess, Heading: headingSubmitted, Message: msgSubmitted}), true
}

// SubmitReturnIntake runs the Rücknahme flow. All fields and photos are
// preserved on every failure so the technician can correct and resubmit; the
// form is cleared only on a confirmed 200.
func (p *Pipeline) SubmitReturnIntake(ctx context.Context, ri *intake.ReturnIntake) (Outcome, bool) {
	if !p.begin() {
		return Outcome{}, false
	}
	defer p.end()

	id := intake.NewSubmissionID()
	p.logger.Printf("submission %s: ruecknahme qr=%s", id, ri.QRCode)

	if err := intake.ValidateReturnIntake(ri); err != nil {
		return p.present(Outcome{Kind: OutcomeValidationFailure, Heading: headingMissingInfoIntake, Message: err.Error()}), true
	}

	var urls []string
	if images := ri.AttachedImages(); len(images) > 0 {
		p.setPhase(PhaseUploading)
		var err error
		urls, err = p.uploader.Upload(ctx, images)
		if err != nil {
			p.logger.Printf("submission %s: upload failed: %v", id, err)
			return p.present(uploadOutcome(err)), true
		}
	}

	record := payload.BuildReturnIntake(ri, urls)

	p.setPhase(PhaseDispatching)
	result, err := p.dispatcher.DispatchIntake(ctx, record)
	if err != nil {
		p.logger.Printf("submission %s: dispatch failed: %v", id, err)
		return p.present(Outcome{Kind: OutcomeWebhookFailure, Heading: headingError, Message: msgSubmitFailed}), true
	}
	if !result.Accepted {
		p.logger.Printf("submission %s: rejected with status %d", id, result.Status)
		return p.present(Outcome{Kind: OutcomeServerRejected, Heading: headingIntakeRejected, Message: result.Body}), true
	}

	ri.Reset()
	return p.presentAfterOverlay(Outcome{Kind: OutcomeSuccess, Heading: headingIntakeSuccess, Message: result.Body}), true
}

// SubmitLabel runs the "Label erzeugen" flow. Same status keying and
// reset-on-200-only policy as the Rücknahme flow.
func (p *Pipeline) SubmitLabel(ctx context.Context, l *intake.LabelRequest) (Outcome, bool) {
	if !p.begin() {
		return Outcome{}, false
	}
	defer p.end()

	id := intake.NewSubmissionID()
	p.logger.Printf("submission %s: label qr=%s", id, l.QRCode)

	if err := intake.ValidateLabelRequest(l); err != nil {
		return p.present(Outcome{Kind: OutcomeValidationFailure, Heading: headingMissingInfoIntake, Message: err.Error()}), true
	}

	p.setPhase(PhaseDispatching)
	result, err := p.dispatcher.DispatchIntake(ctx, payload.BuildLabel(l))
	if err != nil {
		p.logger.Printf("submission %s: dispatch failed: %v", id, err)
		return p.present(Outcome{Kind: OutcomeWebhookFailure, Heading: headingError, Message: msgSubmitFailed}), true
	}
	if !result.Accepted {
		p.logger.Printf("submission %s: rejected with status %d", id, result.Status)
		return p.present(Outcome{Kind: OutcomeServerRejected, Heading: headingIntakeRejected, Message: result.Body}), true
	}

	l.Reset()
	return p.presentAfterOverlay(Outcome{Kind: OutcomeSuccess, Heading: headingIntakeSuccess, Message: result.Body}), true
}

func (p *Pipeline) present(o Outcome) Outcome {
	p.presenter.Present(o)
	return o
}

// presentAfterOverlay dismisses any covering panel first and waits out the
// configured delay so the confirmation is not swallowed by the closing
// animation.
func (p *Pipeline) presentAfterOverlay(o Outcome) Outcome {
	p.presenter.DismissOverlay()
	if p.confirmDelay > 0 {
		p.sleep(p.confirmDelay)
	}
	p.presenter.Present(o)
	return o
}

func uploadOutcome(err error) Outcome {
	if errors.Is(err, media.ErrPermissionDenied) {
		return Outcome{Kind: OutcomePermissionDenied, Heading: headingPermission, Message: msgPermissionDenied}
	}
	return Outcome{Kind: OutcomeUploadFailure, Heading: headingError, Message: msgSubmitFailed}
}

func dispatchOutcome(err error) Outcome {
	var whErr *webhook.WebhookError
	if errors.As(err, &whErr) && whErr.Text != "" {
		return Outcome{
			Kind:    OutcomeWebhookFailure,
			Heading: headingError,
			Message: fmt.Sprintf("%s %s", msgSubmitFailed, whErr.Error()),
		}
	}
	return Outcome{Kind: OutcomeWebhookFailure, Heading: headingError, Message: msgSubmitFailed}
}
