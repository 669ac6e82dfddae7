package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DcSyedFaraz/impora-warehouse/internal/intake"
	"github.com/DcSyedFaraz/impora-warehouse/internal/media"
	"github.com/DcSyedFaraz/impora-warehouse/internal/upload"
	"github.com/DcSyedFaraz/impora-warehouse/internal/webhook"
)

type fakeUploader struct {
	urls  []string
	err   error
	calls atomic.Int32
}

func (f *fakeUploader) Upload(ctx context.Context, images []media.Image) ([]string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.urls, nil
}

type fakeDispatcher struct {
	err       error
	intake    webhook.IntakeResult
	intakeErr error
	block     chan struct{}
	calls     atomic.Int32
	lastMu    sync.Mutex
	last      any
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, record any) error {
	f.calls.Add(1)
	f.lastMu.Lock()
	f.last = record
	f.lastMu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.err
}

func (f *fakeDispatcher) DispatchIntake(ctx context.Context, record any) (webhook.IntakeResult, error) {
	f.calls.Add(1)
	f.lastMu.Lock()
	f.last = record
	f.lastMu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.intake, f.intakeErr
}

type recordingPresenter struct {
	mu        sync.Mutex
	outcomes  []Outcome
	dismissed int
	events    []string
}

func (r *recordingPresenter) Present(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	r.events = append(r.events, "present")
}

func (r *recordingPresenter) DismissOverlay() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissed++
	r.events = append(r.events, "dismiss")
}

func testImage(name string) media.Image {
	return media.MemoryImage{FileName: name, Data: []byte("img")}
}

func TestSubmitFormValidationFailureSkipsNetwork(t *testing.T) {
	uploader := &fakeUploader{}
	dispatcher := &fakeDispatcher{}
	presenter := &recordingPresenter{}
	p := New(Options{Uploader: uploader, Dispatcher: dispatcher, Presenter: presenter})

	state := &intake.FormState{Product: intake.WatchDevice, Form: intake.FormImeiAndQR}
	outcome, ran := p.SubmitForm(context.Background(), state)
	if !ran {
		t.Fatalf("expected attempt to run")
	}
	if outcome.Kind != OutcomeValidationFailure {
		t.Fatalf("expected validation failure, got %v", outcome.Kind)
	}
	if outcome.Heading != "Missing Information" || outcome.Message != "Please enter IMEI." {
		t.Fatalf("unexpected presentation %q/%q", outcome.Heading, outcome.Message)
	}
	if uploader.calls.Load() != 0 || dispatcher.calls.Load() != 0 {
		t.Fatalf("expected no network activity on validation failure")
	}
}

func TestSubmitFormSkipsUploadWithoutImages(t *testing.T) {
	uploader := &fakeUploader{}
	dispatcher := &fakeDispatcher{}
	p := New(Options{Uploader: uploader, Dispatcher: dispatcher})

	state := &intake.FormState{
		Product:   intake.BaseStation,
		Form:      intake.FormAccountAndQR,
		AccountID: "12345",
		QRCode:    "QR-1",
	}
	outcome, _ := p.SubmitForm(context.Background(), state)
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %v (%s)", outcome.Kind, outcome.Message)
	}
	if uploader.calls.Load() != 0 {
		t.Fatalf("expected uploader to be skipped entirely")
	}
	if dispatcher.calls.Load() != 1 {
		t.Fatalf("expected one dispatch, got %d", dispatcher.calls.Load())
	}
}

func TestSubmitFormSuccessClearsFieldsKeepsSelection(t *testing.T) {
	p := New(Options{Uploader: &fakeUploader{}, Dispatcher: &fakeDispatcher{}})

	state := &intake.FormState{Product: intake.BaseStation, Form: intake.FormAccountAndQR, AccountID: "12345", QRCode: "QR-1"}
	outcome, _ := p.SubmitForm(context.Background(), state)
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %v", outcome.Kind)
	}
	if outcome.Heading != "Daten übermittelt" {
		t.Fatalf("unexpected heading %q", outcome.Heading)
	}
	if state.AccountID != "" || state.QRCode != "" {
		t.Fatalf("expected fields cleared after success")
	}
	if state.Product != intake.BaseStation || state.Form != intake.FormAccountAndQR {
		t.Fatalf("expected product/form selection preserved")
	}
}

func TestSubmitFormFailureKeepsFields(t *testing.T) {
	dispatcher := &fakeDispatcher{err: &webhook.WebhookError{Status: 200, Text: "error: X"}}
	p := New(Options{Uploader: &fakeUploader{}, Dispatcher: dispatcher})

	state := &intake.FormState{Product: intake.BaseStation, Form: intake.FormAccountAndQR, AccountID: "12345", QRCode: "QR-1"}
	outcome, _ := p.SubmitForm(context.Background(), state)
	if outcome.Kind != OutcomeWebhookFailure {
		t.Fatalf("expected webhook failure, got %v", outcome.Kind)
	}
	if outcome.Message != "Daten konnten nicht übermittelt werden! Server response: error: X" {
		t.Fatalf("expected server text surfaced, got %q", outcome.Message)
	}
	if state.AccountID != "12345" || state.QRCode != "QR-1" {
		t.Fatalf("expected fields preserved on failure")
	}
}

func TestSubmitFormUploadFailure(t *testing.T) {
	uploader := &fakeUploader{err: &upload.UploadError{Status: http.StatusBadGateway}}
	dispatcher := &fakeDispatcher{}
	p := New(Options{Uploader: uploader, Dispatcher: dispatcher})

	state := &intake.FormState{Product: intake.BaseStation, Form: intake.FormPackagingPhoto}
	state.SetImage(intake.SlotPrimary, testImage("box.jpg"))

	outcome, _ := p.SubmitForm(context.Background(), state)
	if outcome.Kind != OutcomeUploadFailure {
		t.Fatalf("expected upload failure, got %v", outcome.Kind)
	}
	if dispatcher.calls.Load() != 0 {
		t.Fatalf("expected webhook untouched after upload failure")
	}
}

func TestSubmitFormPermissionDenied(t *testing.T) {
	uploader := &fakeUploader{err: media.ErrPermissionDenied}
	p := New(Options{Uploader: uploader, Dispatcher: &fakeDispatcher{}})

	state := &intake.FormState{Product: intake.BaseStation, Form: intake.FormPackagingPhoto}
	state.SetImage(intake.SlotPrimary, testImage("box.jpg"))

	outcome, _ := p.SubmitForm(context.Background(), state)
	if outcome.Kind != OutcomePermissionDenied {
		t.Fatalf("expected permission outcome, got %v", outcome.Kind)
	}
	if outcome.Heading != "Permission Error" {
		t.Fatalf("unexpected heading %q", outcome.Heading)
	}
}

func TestSubmitGuardAllowsExactlyOneDispatch(t *testing.T) {
	dispatcher := &fakeDispatcher{block: make(chan struct{})}
	p := New(Options{Uploader: &fakeUploader{}, Dispatcher: dispatcher})

	state := &intake.FormState{Product: intake.BaseStation, Form: intake.FormAccountAndQR, AccountID: "12345", QRCode: "QR-1"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ran := p.SubmitForm(context.Background(), state); !ran {
			t.Errorf("expected first submit to run")
		}
	}()

	// Wait for the first attempt to reach the dispatcher.
	deadline := time.After(2 * time.Second)
	for dispatcher.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("first submit never reached dispatch")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	second := &intake.FormState{Product: intake.BaseStation, Form: intake.FormAccountAndQR, AccountID: "999", QRCode: "QR-2"}
	if _, ran := p.SubmitForm(context.Background(), second); ran {
		t.Fatalf("expected second submit to be a no-op while dispatching")
	}

	close(dispatcher.block)
	<-done

	if dispatcher.calls.Load() != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", dispatcher.calls.Load())
	}
	if p.Phase() != PhaseIdle {
		t.Fatalf("expected pipeline back at idle")
	}
}

func TestSubmitReturnIntakeRejectionPreservesInput(t *testing.T) {
	dispatcher := &fakeDispatcher{intake: webhook.IntakeResult{Status: http.StatusBadRequest, Body: "QR code already used"}}
	presenter := &recordingPresenter{}
	p := New(Options{Uploader: &fakeUploader{}, Dispatcher: dispatcher, Presenter: presenter})

	ri := &intake.ReturnIntake{QRCode: "QR-1", Handler: "M. Schmidt", Notes: "Karton beschädigt"}
	ri.Images[0] = testImage("one.jpg")
	ri.Images[2] = testImage("three.jpg")

	outcome, _ := p.SubmitReturnIntake(context.Background(), ri)
	if outcome.Kind != OutcomeServerRejected {
		t.Fatalf("expected server rejection, got %v", outcome.Kind)
	}
	if outcome.Heading != "Fehler" || outcome.Message != "QR code already used" {
		t.Fatalf("expected body surfaced under Fehler, got %q/%q", outcome.Heading, outcome.Message)
	}
	if ri.QRCode != "QR-1" || ri.Handler != "M. Schmidt" || ri.Notes != "Karton beschädigt" {
		t.Fatalf("expected fields preserved, got %+v", ri)
	}
	if ri.Images[0] == nil || ri.Images[2] == nil {
		t.Fatalf("expected photos preserved")
	}
	if presenter.dismissed != 0 {
		t.Fatalf("expected overlay to stay open on rejection")
	}
}

func TestSubmitReturnIntakeSuccessResetsAndDelaysConfirmation(t *testing.T) {
	dispatcher := &fakeDispatcher{intake: webhook.IntakeResult{Accepted: true, Status: http.StatusOK, Body: "OK"}}
	presenter := &recordingPresenter{}
	var slept []time.Duration
	p := New(Options{
		Uploader:     &fakeUploader{urls: []string{"https://x/1.jpg"}},
		Dispatcher:   dispatcher,
		Presenter:    presenter,
		ConfirmDelay: 300 * time.Millisecond,
		Sleep:        func(d time.Duration) { slept = append(slept, d) },
	})

	ri := &intake.ReturnIntake{QRCode: "QR-1", Handler: "M. Schmidt", Notes: "x"}
	ri.Images[1] = testImage("two.jpg")

	outcome, _ := p.SubmitReturnIntake(context.Background(), ri)
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %v (%s)", outcome.Kind, outcome.Message)
	}
	if outcome.Heading != "Erfolgreich" || outcome.Message != "OK" {
		t.Fatalf("expected server body under Erfolgreich, got %q/%q", outcome.Heading, outcome.Message)
	}

	if ri.QRCode != "" || ri.Handler != "" || ri.Notes != "" {
		t.Fatalf("expected fields cleared, got %+v", ri)
	}
	for i, img := range ri.Images {
		if img != nil {
			t.Fatalf("expected image slot %d cleared", i)
		}
	}

	if len(slept) != 1 || slept[0] != 300*time.Millisecond {
		t.Fatalf("expected one 300ms delay, got %v", slept)
	}
	if want := []string{"dismiss", "present"}; !reflect.DeepEqual(presenter.events, want) {
		t.Fatalf("expected overlay dismissed before confirmation, got %v", presenter.events)
	}
}

func TestSubmitReturnIntakeTransportError(t *testing.T) {
	dispatcher := &fakeDispatcher{intakeErr: errors.New("connection refused")}
	p := New(Options{Uploader: &fakeUploader{}, Dispatcher: dispatcher})

	ri := &intake.ReturnIntake{QRCode: "QR-1", Handler: "M. Schmidt"}
	outcome, _ := p.SubmitReturnIntake(context.Background(), ri)
	if outcome.Kind != OutcomeWebhookFailure {
		t.Fatalf("expected webhook failure, got %v", outcome.Kind)
	}
	if ri.QRCode != "QR-1" {
		t.Fatalf("expected input preserved on transport error")
	}
}

func TestSubmitLabelFlow(t *testing.T) {
	dispatcher := &fakeDispatcher{intake: webhook.IntakeResult{Accepted: true, Status: http.StatusOK, Body: "Label wird erstellt"}}
	p := New(Options{Uploader: &fakeUploader{}, Dispatcher: dispatcher, Sleep: func(time.Duration) {}})

	label := &intake.LabelRequest{}
	outcome, _ := p.SubmitLabel(context.Background(), label)
	if outcome.Kind != OutcomeValidationFailure {
		t.Fatalf("expected validation failure for empty QR, got %v", outcome.Kind)
	}
	if outcome.Message != "Bitte geben Sie einen QR Code ein." {
		t.Fatalf("unexpected message %q", outcome.Message)
	}

	label.QRCode = "QR-7"
	outcome, _ = p.SubmitLabel(context.Background(), label)
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %v", outcome.Kind)
	}
	if label.QRCode != "" {
		t.Fatalf("expected label form cleared on success")
	}

	dispatcher.lastMu.Lock()
	last := dispatcher.last
	dispatcher.lastMu.Unlock()
	data, _ := json.Marshal(last)
	var got map[string]any
	_ = json.Unmarshal(data, &got)
	if got["qrCode"] != "QR-7" || got["label_erzeugen"] != true {
		t.Fatalf("unexpected label record %v", got)
	}
}

// End-to-end: real uploader and dispatcher against stub endpoints.
func TestSubmitFormEndToEndPackagingDual(t *testing.T) {
	uploadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if n := len(r.MultipartForm.File["image[]"]); n != 2 {
			t.Fatalf("expected 2 parts, got %d", n)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"urls":    []string{"https://x/1.jpg", "https://x/2.jpg"},
		})
	}))
	defer uploadSrv.Close()

	var received map[string]any
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer hookSrv.Close()

	p := New(Options{
		Uploader:   upload.New(upload.Options{Endpoint: uploadSrv.URL, HTTPClient: uploadSrv.Client()}),
		Dispatcher: webhook.New(webhook.Options{Endpoint: hookSrv.URL, HTTPClient: hookSrv.Client()}),
	})

	state := &intake.FormState{Product: intake.WatchDevice, Form: intake.FormPackagingPhoto}
	state.SetImage(intake.SlotPrimary, testImage("image1.jpg"))
	state.SetImage(intake.SlotSecondary, testImage("image2.jpg"))

	outcome, _ := p.SubmitForm(context.Background(), state)
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %v (%s)", outcome.Kind, outcome.Message)
	}

	want := map[string]any{
		"product_way": "james_uhr",
		"imeiImage":   "https://x/1.jpg",
		"qrCodeImage": "https://x/2.jpg",
		"way":         "picture-box",
	}
	if !reflect.DeepEqual(received, want) {
		t.Fatalf("webhook payload mismatch:\n got %v\nwant %v", received, want)
	}
	if state.Image(intake.SlotPrimary) != nil {
		t.Fatalf("expected image slots cleared after success")
	}
}
