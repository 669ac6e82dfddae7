package intake

import (
	"errors"
	"strings"
)

// ErrValidation indicates the form input is incomplete. Match with errors.Is;
// the concrete error's message is shown to the user verbatim.
var ErrValidation = errors.New("validation error")

// ValidationError carries the user-facing reason a form failed validation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Is makes errors.Is(err, ErrValidation) work for ValidationError values.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Policy configures validation rules that drifted between app revisions.
type Policy struct {
	// RequireQRWithIMEI additionally demands a QR code on the IMEI form.
	RequireQRWithIMEI bool
}

// User-facing validation messages, unchanged from the shipped app.
const (
	msgEnterIMEI       = "Please enter IMEI."
	msgFillAllFields   = "Please fill in all required fields."
	msgUploadImage     = "Please upload an image."
	msgUploadBothImage = "Please upload both images."

	msgIntakeFillAll = "Bitte füllen Sie alle Felder aus."
	msgLabelEnterQR  = "Bitte geben Sie einen QR Code ein."
)

// ValidateForm checks the registration form. Rules run in a fixed priority
// and the first failure wins; an unselected form is valid (there is nothing
// to submit yet, the submit control is not shown).
func ValidateForm(s *FormState, p Policy) error {
	switch s.Form {
	case FormImeiAndQR:
		if s.IMEI == "" {
			return &ValidationError{Reason: msgEnterIMEI}
		}
		if p.RequireQRWithIMEI && s.QRCode == "" {
			return &ValidationError{Reason: msgFillAllFields}
		}
	case FormAccountAndQR:
		if s.AccountID == "" || s.QRCode == "" {
			return &ValidationError{Reason: msgFillAllFields}
		}
	case FormPackagingPhoto:
		switch s.Product {
		case BaseStation:
			if s.Image(SlotPrimary) == nil {
				return &ValidationError{Reason: msgUploadImage}
			}
		case WatchDevice:
			if s.Image(SlotPrimary) == nil || s.Image(SlotSecondary) == nil {
				return &ValidationError{Reason: msgUploadBothImage}
			}
		}
	}
	return nil
}

// ValidateReturnIntake checks the Rücknahme form. Photos are never required.
func ValidateReturnIntake(r *ReturnIntake) error {
	if strings.TrimSpace(r.QRCode) == "" || strings.TrimSpace(r.Handler) == "" {
		return &ValidationError{Reason: msgIntakeFillAll}
	}
	return nil
}

// ValidateLabelRequest checks the label-generation form.
func ValidateLabelRequest(l *LabelRequest) error {
	if strings.TrimSpace(l.QRCode) == "" {
		return &ValidationError{Reason: msgLabelEnterQR}
	}
	return nil
}
