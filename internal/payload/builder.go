// Package payload builds the JSON records the webhooks expect, one shape per
// (form, product) combination. The field names and "way" discriminators are a
// fixed backend contract and must not be normalised.
package payload

import (
	"errors"
	"fmt"

	"github.com/DcSyedFaraz/impora-warehouse/internal/intake"
)

// ErrInvalidFormKind reports a submission reaching the builder without a form
// selected. The validator gate makes this unreachable; hitting it is a bug in
// the caller, not user input.
var ErrInvalidFormKind = errors.New("invalid form type")

const (
	wayImeiQR    = "imei-qr-code"
	wayAccountQR = "account-id-with-qr-code"

	// DefaultPackagingWay is the canonical discriminator for photo-based
	// submissions. Deployments pinned to the historical misspelling
	// "picutre-box" override it via Options.
	DefaultPackagingWay = "picture-box"
)

// Options configures per-deployment contract strings.
type Options struct {
	PackagingWay string
}

// ImeiAndQRRecord is the payload for the IMEI registration form.
type ImeiAndQRRecord struct {
	ProductWay intake.ProductKind `json:"product_way"`
	IMEI       string             `json:"imei"`
	QRCode     string             `json:"qrCode"`
	Way        string             `json:"way"`
}

// AccountAndQRRecord is the payload for the account-number registration form.
type AccountAndQRRecord struct {
	ProductWay intake.ProductKind `json:"product_way"`
	AccountID  string             `json:"account_id"`
	QRCode     string             `json:"qrCode"`
	Way        string             `json:"way"`
}

// PackagingSingleRecord is the payload for a base-station packaging photo.
type PackagingSingleRecord struct {
	ProductWay intake.ProductKind `json:"product_way"`
	ImageLink  string             `json:"imageLink"`
	Way        string             `json:"way"`
}

// PackagingDualRecord is the payload for the watch's two packaging photos.
type PackagingDualRecord struct {
	ProductWay  intake.ProductKind `json:"product_way"`
	IMEIImage   string             `json:"imeiImage"`
	QRCodeImage string             `json:"qrCodeImage"`
	Way         string             `json:"way"`
}

// ReturnIntakeRecord is the Rücknahme payload for the intake webhook.
type ReturnIntakeRecord struct {
	QRCode     string   `json:"qrCode"`
	Bearbeiter string   `json:"bearbeiter"`
	Notizen    string   `json:"notizen"`
	Images     []string `json:"images,omitempty"`
}

// LabelRecord asks the intake webhook to generate a label for a QR code.
type LabelRecord struct {
	QRCode        string `json:"qrCode"`
	LabelErzeugen bool   `json:"label_erzeugen"`
}

// Build maps the validated form state plus uploaded URLs onto the record
// shape for the active form. uploadedURLs is positional: element 0 belongs to
// the first filled image slot.
func Build(s *intake.FormState, uploadedURLs []string, opts Options) (any, error) {
	packagingWay := opts.PackagingWay
	if packagingWay == "" {
		packagingWay = DefaultPackagingWay
	}

	switch s.Form {
	case intake.FormImeiAndQR:
		return ImeiAndQRRecord{
			ProductWay: s.Product,
			IMEI:       s.IMEI,
			QRCode:     s.QRCode,
			Way:        wayImeiQR,
		}, nil

	case intake.FormAccountAndQR:
		return AccountAndQRRecord{
			ProductWay: s.Product,
			AccountID:  s.AccountID,
			QRCode:     s.QRCode,
			Way:        wayAccountQR,
		}, nil

	case intake.FormPackagingPhoto:
		if s.Product == intake.BaseStation {
			if len(uploadedURLs) < 1 {
				return nil, fmt.Errorf("packaging payload needs 1 uploaded image, have %d", len(uploadedURLs))
			}
			return PackagingSingleRecord{
				ProductWay: s.Product,
				ImageLink:  uploadedURLs[0],
				Way:        packagingWay,
			}, nil
		}
		if len(uploadedURLs) < 2 {
			return nil, fmt.Errorf("packaging payload needs 2 uploaded images, have %d", len(uploadedURLs))
		}
		return PackagingDualRecord{
			ProductWay:  s.Product,
			IMEIImage:   uploadedURLs[0],
			QRCodeImage: uploadedURLs[1],
			Way:         packagingWay,
		}, nil

	default:
		return nil, ErrInvalidFormKind
	}
}

// BuildReturnIntake maps the Rücknahme form onto its webhook record. The
// images key is present only when at least one photo was uploaded.
func BuildReturnIntake(r *intake.ReturnIntake, uploadedURLs []string) ReturnIntakeRecord {
	record := ReturnIntakeRecord{
		QRCode:     r.QRCode,
		Bearbeiter: r.Handler,
		Notizen:    r.Notes,
	}
	if len(uploadedURLs) > 0 {
		record.Images = uploadedURLs
	}
	return record
}

// BuildLabel maps the label form onto its webhook record.
func BuildLabel(l *intake.LabelRequest) LabelRecord {
	return LabelRecord{QRCode: l.QRCode, LabelErzeugen: true}
}
