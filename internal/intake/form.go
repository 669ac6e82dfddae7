// Package intake holds the technician-facing form state for the warehouse
// flows: device registration, Rücknahme (return intake), and label generation.
package intake

import (
	"strings"

	"github.com/google/uuid"

	"github.com/DcSyedFaraz/impora-warehouse/internal/media"
)

// ProductKind selects the product category. The values double as the
// product_way identifiers on the wire.
type ProductKind string

const (
	ProductNone ProductKind = ""
	BaseStation ProductKind = "basisstation"
	WatchDevice ProductKind = "james_uhr"
)

// FormKind selects which sub-form of the registration screen is active.
type FormKind string

const (
	FormNone           FormKind = ""
	FormAccountAndQR   FormKind = "accountQR"
	FormPackagingPhoto FormKind = "verpackung"
	FormImeiAndQR      FormKind = "imeiQR"
)

// ImageSlot addresses one of the registration form's two photo positions.
type ImageSlot int

const (
	SlotPrimary ImageSlot = iota
	SlotSecondary
	slotCount
)

// FormState is the in-progress input of the registration screen. It is owned
// by a single screen instance and mutated only by input callbacks and the
// pipeline itself.
type FormState struct {
	Product   ProductKind
	Form      FormKind
	AccountID string
	QRCode    string
	IMEI      string

	images [slotCount]media.Image
}

// SelectProduct switches the product category. A form kind is only meaningful
// for the product it was chosen under, so this clears the form kind and all
// field and image state.
func (s *FormState) SelectProduct(p ProductKind) {
	s.Product = p
	s.Form = FormNone
	s.ResetFields()
}

// SelectForm switches the active sub-form and clears any input entered for
// the previous one.
func (s *FormState) SelectForm(f FormKind) {
	s.Form = f
	s.ResetFields()
}

// ResetFields clears text fields and image slots, keeping the product and
// form selection. Called after a successful submission.
func (s *FormState) ResetFields() {
	s.AccountID = ""
	s.QRCode = ""
	s.IMEI = ""
	s.images = [slotCount]media.Image{}
}

// SetImage stores an acquired image in the given slot.
func (s *FormState) SetImage(slot ImageSlot, img media.Image) {
	if slot < 0 || slot >= slotCount {
		return
	}
	s.images[slot] = img
}

// RemoveImage empties the given slot.
func (s *FormState) RemoveImage(slot ImageSlot) {
	if slot < 0 || slot >= slotCount {
		return
	}
	s.images[slot] = nil
}

// Image returns the image in the given slot, or nil when empty.
func (s *FormState) Image(slot ImageSlot) media.Image {
	if slot < 0 || slot >= slotCount {
		return nil
	}
	return s.images[slot]
}

// AttachedImages returns the non-empty slots in slot order. The uploader's
// result URLs line up positionally with this sequence.
func (s *FormState) AttachedImages() []media.Image {
	var out []media.Image
	for _, img := range s.images {
		if img != nil {
			out = append(out, img)
		}
	}
	return out
}

// ReturnIntakeSlots is the fixed number of photo slots on the Rücknahme form.
const ReturnIntakeSlots = 3

// ReturnIntake is the Rücknahme form state. It is cleared only on a confirmed
// 200 from the backend; any error leaves every field and photo in place so
// the technician can correct and resubmit.
type ReturnIntake struct {
	QRCode  string
	Handler string
	Notes   string
	Images  [ReturnIntakeSlots]media.Image
}

// Reset clears all fields and photo slots.
func (r *ReturnIntake) Reset() {
	*r = ReturnIntake{}
}

// AttachedImages returns the filled slots in ascending index order.
func (r *ReturnIntake) AttachedImages() []media.Image {
	var out []media.Image
	for _, img := range r.Images {
		if img != nil {
			out = append(out, img)
		}
	}
	return out
}

// LabelRequest is the "Label erzeugen" form state: a single QR code forwarded
// to the intake backend with the label flag set. Same reset-on-success-only
// policy as ReturnIntake.
type LabelRequest struct {
	QRCode string
}

// Reset clears the request.
func (l *LabelRequest) Reset() {
	l.QRCode = ""
}

// NewSubmissionID generates the identifier attached to one submission attempt
// for log correlation.
func NewSubmissionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
